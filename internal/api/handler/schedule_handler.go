package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gptb70564-code/cw-bot/internal/api/dto"
	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

// Activation-block reasons surfaced to the dashboard. The corrective action
// differs per reason, so a generic failure is not enough.
const (
	blockReasonCredentialMissing = "credentials_missing"
	blockReasonKeyInvalid        = "key_invalid"
	blockReasonKeyLimited        = "key_limited"
	blockReasonKeyUnknown        = "key_unvalidated"
)

// UpsertSchedule handles PUT /api/v1/schedules/:user_id
// Creates or replaces the user's schedule. An activation request is silently
// coerced to inactive unless the user's credential health currently allows
// matching; the response names the blocking reason.
func (h *Handler) UpsertSchedule(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id must be a positive integer",
		})
		return
	}

	var req dto.UpsertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid schedule payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.TimeRangeStart > req.TimeRangeEnd {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "time_range_start must not be after time_range_end",
		})
		return
	}

	isActive := req.IsActive
	blockedReason := ""
	if isActive {
		if reason := h.activationBlockReason(c.Request.Context(), userID); reason != "" {
			isActive = false
			blockedReason = reason
			h.logger.Warn("Schedule activation coerced off",
				slog.Int64("user_id", userID),
				slog.String("reason", reason),
			)
		}
	}

	schedule := domain.Schedule{
		UserID:               userID,
		IsActive:             isActive,
		DaysOfWeek:           req.DaysOfWeek,
		TimeRangeStart:       req.TimeRangeStart,
		TimeRangeEnd:         req.TimeRangeEnd,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		PreferredCategoryIDs: req.PreferredCategoryIDs,
		FixedBudgetMin:       req.FixedBudgetMin,
		FixedBudgetMax:       req.FixedBudgetMax,
		HourlyBudgetMin:      req.HourlyBudgetMin,
		HourlyBudgetMax:      req.HourlyBudgetMax,
		ClientBudgetPref:     req.ClientBudgetPref,
		PreferredHourlyRate:  req.PreferredHourlyRate,
		WeeklyHourCap:        req.WeeklyHourCap,
	}

	if err := h.storage.UpsertSchedule(c.Request.Context(), &schedule); err != nil {
		h.logger.Error("Failed to upsert schedule", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save schedule",
		})
		return
	}

	c.JSON(http.StatusOK, scheduleResponse(&schedule, blockedReason))
}

// GetSchedule handles GET /api/v1/schedules/:user_id
func (h *Handler) GetSchedule(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id must be a positive integer",
		})
		return
	}

	schedule, err := h.storage.GetSchedule(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Schedule not found",
			})
			return
		}
		h.logger.Error("Failed to get schedule", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get schedule",
		})
		return
	}

	c.JSON(http.StatusOK, scheduleResponse(schedule, ""))
}

// activationBlockReason returns the specific reason activation is not
// allowed right now, or empty when it is.
func (h *Handler) activationBlockReason(ctx context.Context, userID int64) string {
	cred, err := h.storage.GetCredential(ctx, userID)
	if err != nil {
		return blockReasonCredentialMissing
	}
	if !cred.SessionComplete() {
		return blockReasonCredentialMissing
	}
	switch cred.KeyStatus {
	case domain.KeyStatusValid:
		return ""
	case domain.KeyStatusInvalid:
		return blockReasonKeyInvalid
	case domain.KeyStatusLimited:
		return blockReasonKeyLimited
	default:
		return blockReasonKeyUnknown
	}
}

func scheduleResponse(schedule *domain.Schedule, blockedReason string) dto.ScheduleResponse {
	return dto.ScheduleResponse{
		UserID:                  schedule.UserID,
		IsActive:                schedule.IsActive,
		DaysOfWeek:              schedule.DaysOfWeek,
		TimeRangeStart:          schedule.TimeRangeStart,
		TimeRangeEnd:            schedule.TimeRangeEnd,
		StartDate:               schedule.StartDate,
		EndDate:                 schedule.EndDate,
		PreferredCategoryIDs:    schedule.PreferredCategoryIDs,
		FixedBudgetMin:          schedule.FixedBudgetMin,
		FixedBudgetMax:          schedule.FixedBudgetMax,
		HourlyBudgetMin:         schedule.HourlyBudgetMin,
		HourlyBudgetMax:         schedule.HourlyBudgetMax,
		ClientBudgetPref:        schedule.ClientBudgetPref,
		PreferredHourlyRate:     schedule.PreferredHourlyRate,
		WeeklyHourCap:           schedule.WeeklyHourCap,
		ActivationBlockedReason: blockedReason,
	}
}
