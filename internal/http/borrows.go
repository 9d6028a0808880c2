package http

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/library"
)

// ExportFilename is the attachment name of the CSV history export.
const ExportFilename = "borrow_history.csv"

// BorrowsController exposes the loan ledger.
type BorrowsController struct {
	ledger Ledger
	audit  AuditLog
}

func NewBorrowsController(ledger Ledger, audit AuditLog) *BorrowsController {
	return &BorrowsController{
		ledger: ledger,
		audit:  auditOrNop(audit),
	}
}

type borrowRequest struct {
	BookID uint `json:"bookId"`
}

// BorrowIDResponse answers GET /borrows/borrow-id.
type BorrowIDResponse struct {
	BorrowID uint `json:"borrowId"`
}

// Borrow handles POST /borrows
func (bc *BorrowsController) Borrow(c *gin.Context) {
	var req borrowRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := auth.GetUserID(c)
	borrow, err := bc.ledger.Borrow(c.Request.Context(), userID, req.BookID)
	if err != nil {
		bc.audit.LogBorrow(userID, req.BookID, 0, err)
		respondError(c, err)
		return
	}

	bc.audit.LogBorrow(userID, req.BookID, borrow.ID, nil)
	c.JSON(http.StatusCreated, borrow)
}

// Return handles POST /borrows/return/:id
func (bc *BorrowsController) Return(c *gin.Context) {
	borrowID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID := auth.GetUserID(c)
	result, err := bc.ledger.Return(c.Request.Context(), borrowID, userID)
	if err != nil {
		bc.audit.LogReturn(userID, borrowID, 0, err)
		respondError(c, err)
		return
	}

	bc.audit.LogReturn(userID, borrowID, result.Fine, nil)
	c.JSON(http.StatusOK, result)
}

// History handles GET /borrows/history. Admins see every user's loans.
func (bc *BorrowsController) History(c *gin.Context) {
	userID := auth.GetUserID(c)
	if auth.IsAdmin(c) {
		userID = 0
	}
	bc.respondHistory(c, userID)
}

// MyBorrows handles GET /users/borrows, the caller's own history.
func (bc *BorrowsController) MyBorrows(c *gin.Context) {
	bc.respondHistory(c, auth.GetUserID(c))
}

func (bc *BorrowsController) respondHistory(c *gin.Context, userID uint) {
	borrows, err := bc.ledger.History(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrows)
}

// Export handles GET /borrows/export[?userId=], streaming CSV as an attachment.
func (bc *BorrowsController) Export(c *gin.Context) {
	filterUserID, ok := parseQueryID(c, "userId")
	if !ok {
		return
	}

	var buf bytes.Buffer
	rows, err := bc.ledger.ExportCSV(c.Request.Context(), &buf, filterUserID)
	bc.audit.LogExport(auth.GetUserID(c), rows, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// BorrowID handles GET /borrows/borrow-id?bookId=&userId=. userId defaults to
// the caller; only admins may look up another user's loan.
func (bc *BorrowsController) BorrowID(c *gin.Context) {
	bookID, ok := parseQueryID(c, "bookId")
	if !ok {
		return
	}
	userID, ok := parseQueryID(c, "userId")
	if !ok {
		return
	}
	if bookID == 0 {
		respondError(c, library.Invalid("bookId", "bookId is required"))
		return
	}

	caller := auth.GetUserID(c)
	if userID == 0 {
		userID = caller
	}
	if userID != caller && !auth.IsAdmin(c) {
		respondForbidden(c, "cannot look up another user's loans")
		return
	}

	borrowID, err := bc.ledger.BorrowID(c.Request.Context(), bookID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, BorrowIDResponse{BorrowID: borrowID})
}
