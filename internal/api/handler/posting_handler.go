package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gptb70564-code/cw-bot/internal/api/dto"
	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

// IngestPosting handles POST /api/v1/postings
// Stores a newly discovered posting and publishes a new-posting event for
// the dispatch engine. Replayed ids are acknowledged without a second event.
func (h *Handler) IngestPosting(c *gin.Context) {
	var req dto.IngestPostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid posting payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.HighBudget > 0 && req.LowBudget > req.HighBudget {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "low_budget must not exceed high_budget",
		})
		return
	}

	posting := domain.Posting{
		ID:          req.ID,
		CategoryID:  req.CategoryID,
		JobKind:     req.JobKind,
		LowBudget:   req.LowBudget,
		HighBudget:  req.HighBudget,
		Title:       req.Title,
		Description: req.Description,
	}

	created, err := h.storage.InsertPosting(c.Request.Context(), &posting)
	if err != nil {
		h.logger.Error("Failed to store posting", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store posting",
		})
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{
			"id":     posting.ID,
			"status": "duplicate",
		})
		return
	}

	body, err := json.Marshal(gin.H{"posting_id": posting.ID})
	if err != nil {
		h.logger.Error("Failed to marshal posting event", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to publish posting event",
		})
		return
	}

	if err := h.rabbitClient.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish posting event",
			slog.Int64("posting_id", posting.ID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to publish posting event",
		})
		return
	}

	h.logger.Info("Posting ingested",
		slog.Int64("posting_id", posting.ID),
		slog.Int64("category_id", posting.CategoryID),
		slog.String("job_kind", posting.JobKind),
	)

	c.JSON(http.StatusCreated, gin.H{
		"id":     posting.ID,
		"status": "ingested",
	})
}

// GetPosting handles GET /api/v1/postings/:posting_id
func (h *Handler) GetPosting(c *gin.Context) {
	postingID, err := strconv.ParseInt(c.Param("posting_id"), 10, 64)
	if err != nil || postingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "posting_id must be a positive integer",
		})
		return
	}

	posting, err := h.storage.GetPosting(c.Request.Context(), postingID)
	if err != nil {
		if errors.Is(err, domain.ErrPostingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Posting not found",
			})
			return
		}
		h.logger.Error("Failed to get posting", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get posting",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          posting.ID,
		"category_id": posting.CategoryID,
		"job_kind":    posting.JobKind,
		"low_budget":  posting.LowBudget,
		"high_budget": posting.HighBudget,
		"title":       posting.Title,
		"description": posting.Description,
		"bidder_ids":  posting.Bidders,
	})
}
