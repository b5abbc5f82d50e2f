package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gptb70564-code/cw-bot/internal/api/dto"
	"github.com/gptb70564-code/cw-bot/internal/api/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListBids handles GET /api/v1/bids
// Pages through bid history newest first using a keyset cursor.
func (h *Handler) ListBids(c *gin.Context) {
	var req dto.ListBidsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	cursor, err := DecodeBidCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.BidFilter{
		UserID:    req.UserID,
		PostingID: req.PostingID,
		JobKind:   req.JobKind,
		PageSize:  pageSize,
		Cursor:    cursor,
	}

	records, err := h.storage.ListBidRecords(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list bid records", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list bids",
		})
		return
	}

	hasMore := len(records) > pageSize
	if hasMore {
		records = records[:pageSize]
	}

	resp := dto.ListBidsResponse{
		Bids: make([]dto.BidRecordDTO, 0, len(records)),
	}
	for _, r := range records {
		resp.Bids = append(resp.Bids, dto.BidRecordDTO{
			RecordID:      r.RecordID,
			UserID:        r.UserID,
			PostingID:     r.PostingID,
			CategoryID:    r.CategoryID,
			BidText:       r.BidText,
			JobKind:       r.JobKind,
			BudgetOffered: r.BudgetOffered,
			SubmittedAt:   r.SubmittedAt.UTC().Format(time.RFC3339),
		})
	}

	if hasMore {
		last := records[len(records)-1]
		nextCursor, err := EncodeBidCursor(&storage.BidCursor{
			SubmittedAt: last.SubmittedAt,
			RecordID:    last.RecordID,
		})
		if err != nil {
			h.logger.Error("Failed to encode cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode cursor",
			})
			return
		}
		resp.NextCursor = nextCursor
	}

	c.JSON(http.StatusOK, resp)
}
