package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auditstore "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/entities"
)

type AuditController struct {
	audit AuditLog
}

func NewAuditController(audit AuditLog) *AuditController {
	return &AuditController{
		audit: auditOrNop(audit),
	}
}

// AuditEventsResponse is a page of audit events.
type AuditEventsResponse struct {
	Events      []entities.AuditEvent `json:"events"`
	Page        int                   `json:"page"`
	Limit       int                   `json:"limit"`
	TotalPages  int                   `json:"totalPages"`
	TotalEvents int64                 `json:"totalEvents"`
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/admin/audit?page=&limit=&type=&userId=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	userID, ok := parseQueryID(c, "userId")
	if !ok {
		return
	}

	events, total, err := ac.audit.GetEvents(c.Request.Context(), auditstore.Filter{
		UserID:    userID,
		EventType: entities.AuditEventType(c.Query("type")),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, AuditEventsResponse{
		Events:      events,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		TotalEvents: total,
	})
}
