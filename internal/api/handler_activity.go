package api

import (
	"github.com/cpa03/basefly-sub001/internal/auth"
	"github.com/cpa03/basefly-sub001/internal/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// activityLimit caps how many audit events auth.myActivity returns
const activityLimit = 50

// ActivityHandler serves the caller's audit history
type ActivityHandler struct {
	backend Backend
	logger  *zap.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(backend Backend, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		backend: backend,
		logger:  logger.Named("activity"),
	}
}

// MyActivity handles GET auth.myActivity, newest events first
func (h *ActivityHandler) MyActivity(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	events, err := h.backend.Audit.ListByActor(ctx, userID, activityLimit)
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("list audit events", zap.Error(err))
		return ErrorInternal(c, "Failed to load activity")
	}

	return SuccessOK(c, events)
}
