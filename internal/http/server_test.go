package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	auditstore "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/database/borrows"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/reviews"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// payload is a JSON request body.
type payload map[string]any

type testServer struct {
	router     *gin.Engine
	db         *database.Database
	ledger     *library.Ledger
	auth       *auth.Service
	audit      *audit.Service
	adminToken string
	category   entities.Category
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.NewDatabase(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "library.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	auditService := audit.NewService(auditstore.NewRepository(db.DB))
	t.Cleanup(auditService.Wait)

	borrowRepo := borrows.NewRepository(db.DB)
	ledger := library.NewLedger(borrowRepo, nil, library.DefaultPolicy())
	authService := auth.NewService(users.NewRepository(db.DB), config.Auth{BcryptCost: 4, TokenExpiry: time.Hour})

	s := &testServer{
		db:     db,
		ledger: ledger,
		auth:   authService,
		audit:  auditService,
	}
	s.router = NewRouter(RouterConfig{
		Database:       db,
		Ledger:         ledger,
		Catalog:        library.NewCatalog(catalog.NewRepository(db.DB)),
		Reviews:        library.NewReviews(reviews.NewRepository(db.DB), borrowRepo),
		Audit:          auditService,
		AuthService:    authService,
		Google:         stubGoogle{},
		FrontendURL:    "http://localhost:5173",
		AllowedOrigins: []string{"http://localhost:5173"},
		Version:        "test",
	})

	ctx := context.Background()
	_, err = authService.CreateUser(ctx, "admin@library.com", "admin123", "Admin", entities.UserRoleAdmin)
	require.NoError(t, err)
	session, err := authService.Login(ctx, "admin@library.com", "admin123")
	require.NoError(t, err)
	s.adminToken = session.Token

	s.category = entities.Category{Name: "Fiction"}
	require.NoError(t, db.DB.Create(&s.category).Error)
	return s
}

// register creates a USER account and returns its id and token.
func (s *testServer) register(t *testing.T, email string) (uint, string) {
	t.Helper()
	session, err := s.auth.Register(context.Background(), email, "secret1", "Reader")
	require.NoError(t, err)
	return session.User.ID, session.Token
}

func (s *testServer) createBook(t *testing.T, title string, copies int) entities.Book {
	t.Helper()
	book := entities.Book{
		Title:       title,
		Author:      "Frank Herbert",
		Description: "A desert planet and its spice.",
		CategoryID:  s.category.ID,
		TotalCopies: copies,
	}
	require.NoError(t, s.db.DB.Create(&book).Error)
	return book
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) bookState(t *testing.T, id uint) entities.Book {
	t.Helper()
	var book entities.Book
	require.NoError(t, s.db.DB.First(&book, id).Error)
	return book
}
