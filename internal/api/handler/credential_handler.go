package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gptb70564-code/cw-bot/internal/api/dto"
	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

// UpsertCredential handles PUT /api/v1/credentials/:user_id
// Stores the user's platform session and generation key. A changed key
// drops back to unknown health until the validation endpoint confirms it.
func (h *Handler) UpsertCredential(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id must be a positive integer",
		})
		return
	}

	var req dto.UpsertCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid credential payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	status := domain.KeyStatusUnknown
	existing, err := h.storage.GetCredential(c.Request.Context(), userID)
	if err == nil && existing.GenerationKey == req.GenerationKey {
		status = existing.KeyStatus
	}

	cred := domain.Credential{
		UserID:        userID,
		SessionToken:  req.SessionToken,
		SessionCookie: req.SessionCookie,
		GenerationKey: req.GenerationKey,
		KeyStatus:     status,
	}

	if err := h.storage.UpsertCredential(c.Request.Context(), &cred); err != nil {
		h.logger.Error("Failed to upsert credential", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save credential",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":               cred.UserID,
		"session_present":       cred.SessionComplete(),
		"generation_key_status": cred.KeyStatus,
	})
}

// ValidateCredential handles POST /api/v1/credentials/:user_id/validate
// Probes the stored generation key against the generation service and
// records the result. This is the only path that can restore a key to
// valid.
func (h *Handler) ValidateCredential(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id must be a positive integer",
		})
		return
	}

	cred, err := h.storage.GetCredential(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Credential not found",
			})
			return
		}
		h.logger.Error("Failed to get credential", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get credential",
		})
		return
	}

	status := h.keyValidator.ValidateKey(c.Request.Context(), cred.GenerationKey)

	if err := h.storage.SetKeyStatus(c.Request.Context(), userID, status); err != nil {
		h.logger.Error("Failed to record key status",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to record key status",
		})
		return
	}

	h.logger.Info("Generation key validated",
		slog.Int64("user_id", userID),
		slog.String("status", string(status)),
	)

	c.JSON(http.StatusOK, gin.H{
		"user_id":               userID,
		"generation_key_status": status,
	})
}
