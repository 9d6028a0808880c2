package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/library"
)

type ReviewsController struct {
	reviews Reviews
	audit   AuditLog
}

func NewReviewsController(reviews Reviews, audit AuditLog) *ReviewsController {
	return &ReviewsController{
		reviews: reviews,
		audit:   auditOrNop(audit),
	}
}

// CreateReview handles POST /reviews
func (rc *ReviewsController) CreateReview(c *gin.Context) {
	var in library.ReviewInput
	if !bindJSON(c, &in) {
		return
	}

	userID := auth.GetUserID(c)
	review, err := rc.reviews.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	rc.audit.LogReview(userID, review.BookID, review.Rating)
	c.JSON(http.StatusCreated, review)
}

// ListReviews handles GET /reviews[?bookId=]
func (rc *ReviewsController) ListReviews(c *gin.Context) {
	bookID, ok := parseQueryID(c, "bookId")
	if !ok {
		return
	}

	reviews, err := rc.reviews.List(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}
