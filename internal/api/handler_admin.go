package api

import (
	"github.com/cpa03/basefly-sub001/internal/logging"
	"github.com/cpa03/basefly-sub001/internal/store"
	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AdminHandler serves the admin.* procedures
type AdminHandler struct {
	backend Backend
	logger  *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(backend Backend, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		backend: backend,
		logger:  logger.Named("admin"),
	}
}

// Clusters handles GET admin.clusters
func (h *AdminHandler) Clusters(c echo.Context) error {
	params := ParsePaginationParams(c)

	filters := store.ListFilters{
		Limit:          params.PerPage,
		Offset:         params.Offset,
		IncludeDeleted: c.QueryParam("include_deleted") == "true",
	}
	applied := map[string]interface{}{}

	if status := c.QueryParam("status"); status != "" {
		s := types.ClusterStatus(status)
		filters.Status = &s
		applied["status"] = status
	}
	if owner := c.QueryParam("owner"); owner != "" {
		filters.AuthUserID = &owner
		applied["owner"] = owner
	}
	if filters.IncludeDeleted {
		applied["include_deleted"] = true
	}

	ctx := c.Request().Context()
	clusters, total, err := h.backend.Clusters.ListAll(ctx, filters)
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("list all clusters", zap.Any("filters", applied), zap.Error(err))
		return ErrorInternal(c, "Failed to list clusters")
	}

	return SuccessPaginated(c, clusters, CalculatePagination(params.Page, params.PerPage, total), applied)
}
