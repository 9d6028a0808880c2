package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/oauth2"
)

// oauthCookie carries the pending state and PKCE verifier between the
// redirect to Google and the callback.
const oauthCookie = "librarian_oauth"

// LoginLimiter tracks failed logins per client address and email.
type LoginLimiter interface {
	RecordFailure(ip, email string) (bool, time.Duration)
	RecordSuccess(ip, email string)
}

// AuthController handles registration, login and token revocation.
type AuthController struct {
	service *auth.Service
	limiter LoginLimiter
	audit   AuditLog

	google      *oauth2.Flow
	frontendURL string
}

// NewAuthController creates a new AuthController. limiter may be nil.
func NewAuthController(service *auth.Service, limiter LoginLimiter, audit AuditLog) *AuthController {
	return &AuthController{
		service: service,
		limiter: limiter,
		audit:   auditOrNop(audit),
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EnableExternalSignIn turns on the Google routes. Signed-in users are sent
// to frontendURL with their token in the query string.
func (ac *AuthController) EnableExternalSignIn(flow *oauth2.Flow, frontendURL string) {
	ac.google = flow
	ac.frontendURL = frontendURL
}

// Register handles POST /auth/register.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := ac.service.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	ac.audit.LogAuth(session.User.ID, "register", c.ClientIP(), c.Request.UserAgent(), true)
	c.JSON(http.StatusCreated, session)
}

// Login handles POST /auth/login.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	ip := c.ClientIP()
	session, err := ac.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) && ac.limiter != nil {
			ac.limiter.RecordFailure(ip, req.Email)
		}
		ac.audit.LogAuth(0, "login_failed", ip, c.Request.UserAgent(), false)
		respondError(c, err)
		return
	}

	if ac.limiter != nil {
		ac.limiter.RecordSuccess(ip, req.Email)
	}
	ac.audit.LogAuth(session.User.ID, "login", ip, c.Request.UserAgent(), true)
	c.JSON(http.StatusOK, session)
}

// Logout handles POST /auth/logout by revoking the presented token.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.service.RevokeToken(c.Request.Context(), auth.GetToken(c)); err != nil {
		respondError(c, err)
		return
	}
	ac.audit.LogAuth(auth.GetUserID(c), "logout", c.ClientIP(), c.Request.UserAgent(), true)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me handles GET /auth/me.
func (ac *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, auth.GetUser(c))
}

// GoogleLogin handles GET /auth/google by redirecting to the consent page.
func (ac *AuthController) GoogleLogin(c *gin.Context) {
	authURL, pending, err := ac.google.Start()
	if err != nil {
		respondInternalError(c, err)
		return
	}
	ac.setOAuthCookie(c, pending.Encode(), 600)
	c.Redirect(http.StatusFound, authURL)
}

// GoogleCallback handles GET /auth/google/callback. The user is found or
// created from the Google account and sent back to the frontend with a
// bearer token.
func (ac *AuthController) GoogleCallback(c *gin.Context) {
	ip, agent := c.ClientIP(), c.Request.UserAgent()

	raw, _ := c.Cookie(oauthCookie)
	ac.setOAuthCookie(c, "", -1)

	if reason := c.Query("error"); reason != "" {
		ac.audit.LogAuth(0, "login_google_denied", ip, agent, false)
		c.Redirect(http.StatusFound, ac.frontendURL+"/login?error="+url.QueryEscape(reason))
		return
	}

	pending, ok := oauth2.DecodePending(raw)
	if !ok {
		respondStatus(c, http.StatusBadRequest, CodeOAuthState, "sign-in expired, please try again")
		return
	}

	identity, err := ac.google.Complete(c.Request.Context(), pending, c.Query("state"), c.Query("code"))
	switch {
	case errors.Is(err, oauth2.ErrStateMismatch), errors.Is(err, oauth2.ErrMissingCode):
		respondStatus(c, http.StatusBadRequest, CodeOAuthState, err.Error())
		return
	case err != nil:
		log.Warn().Err(err).Str("provider", ac.google.Provider()).Msg("external sign-in failed")
		ac.audit.LogAuth(0, "login_google_failed", ip, agent, false)
		respondStatus(c, http.StatusBadGateway, CodeOAuthFailed, "Google sign-in failed")
		return
	}

	session, err := ac.service.SignInWithGoogle(c.Request.Context(), auth.GoogleProfile{
		ID:            identity.Subject,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		Name:          identity.Name,
	})
	if err != nil {
		ac.audit.LogAuth(0, "login_google_failed", ip, agent, false)
		respondError(c, err)
		return
	}

	log.Info().Uint("user_id", session.User.ID).Msg("signed in with Google")
	ac.audit.LogAuth(session.User.ID, "login_google", ip, agent, true)
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, ac.frontendURL+"/?token="+url.QueryEscape(session.Token))
}

func (ac *AuthController) setOAuthCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthCookie, value, maxAge, "/auth/google", "", c.Request.TLS != nil, true)
}
