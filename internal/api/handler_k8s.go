package api

import (
	"errors"
	"time"

	"github.com/cpa03/basefly-sub001/internal/auth"
	"github.com/cpa03/basefly-sub001/internal/logging"
	"github.com/cpa03/basefly-sub001/internal/policy"
	"github.com/cpa03/basefly-sub001/internal/schema"
	"github.com/cpa03/basefly-sub001/internal/store"
	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ClusterHandler serves the k8s.* procedures
type ClusterHandler struct {
	backend Backend
	policy  *policy.Engine
	inputs  *inputParser
	logger  *zap.Logger
}

// NewClusterHandler creates a new cluster handler
func NewClusterHandler(backend Backend, p *policy.Engine, inputs *inputParser, logger *zap.Logger) *ClusterHandler {
	return &ClusterHandler{
		backend: backend,
		policy:  p,
		inputs:  inputs,
		logger:  logger.Named("k8s"),
	}
}

// ClusterUpdated is returned by k8s.updateCluster
type ClusterUpdated struct {
	Success bool           `json:"success"`
	Cluster *types.Cluster `json:"cluster"`
}

// ClusterDeleted is returned by k8s.deleteCluster
type ClusterDeleted struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// List handles GET k8s.getClusters
func (h *ClusterHandler) List(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	clusters, err := h.backend.Clusters.ListByOwner(ctx, userID)
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("list clusters", zap.Error(err))
		return ErrorInternal(c, "Failed to list clusters")
	}

	return SuccessOK(c, clusters)
}

// Get handles GET k8s.getCluster
func (h *ClusterHandler) Get(c echo.Context) error {
	value, ok, err := h.inputs.parse(c, schema.ClusterGet)
	if !ok {
		return err
	}
	in := value.(*types.ClusterGetInput)

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	cluster, err := h.backend.Clusters.GetByID(ctx, in.ID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrorNotFound(c, "Cluster not found")
	}
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("get cluster", zap.Int64("cluster_id", in.ID), zap.Error(err))
		return ErrorInternal(c, "Failed to load cluster")
	}

	return SuccessOK(c, cluster)
}

// Create handles POST k8s.createCluster
func (h *ClusterHandler) Create(c echo.Context) error {
	value, ok, err := h.inputs.parse(c, schema.ClusterCreate)
	if !ok {
		return err
	}
	in := value.(*types.ClusterCreateInput)

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	log := logging.WithRequestID(ctx, h.logger)

	// Customers without a billing record or an active subscription are on the free plan
	tier := types.PlanFree
	customer, err := h.backend.Customers.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		tier = customer.EffectivePlan(time.Now())
	case !errors.Is(err, store.ErrNotFound):
		log.Error("get customer", zap.Error(err))
		return ErrorInternal(c, "Failed to load subscription")
	}

	cluster := &types.Cluster{
		Name:       in.Name,
		Location:   in.Location,
		AuthUserID: userID,
		Plan:       h.policy.Plan(tier),
		Status:     types.ClusterStatusPending,
	}

	// The store counts and inserts under a per-owner lock
	active, err := h.backend.Clusters.CreateWithinLimit(ctx, cluster, h.policy.MaxClusters(tier))
	if errors.Is(err, store.ErrQuotaExceeded) {
		quota := h.policy.CheckClusterQuota(tier, active)
		audit(ctx, c, h.logger, h.backend.Audit, &types.AuditEvent{
			Actor:    userID,
			Action:   "k8s.createCluster",
			Status:   types.AuditEventStatusDenied,
			Metadata: types.AuditMetadata{"reason": "quota_exceeded", "plan": quota.Plan, "limit": quota.Limit},
		})
		return ErrorQuota(c, quota)
	}
	if err != nil {
		log.Error("create cluster", zap.Error(err))
		return ErrorInternal(c, "Failed to create cluster")
	}
	id := cluster.ID

	audit(ctx, c, h.logger, h.backend.Audit, &types.AuditEvent{
		Actor:           userID,
		Action:          "k8s.createCluster",
		TargetClusterID: &id,
		Status:          types.AuditEventStatusSuccess,
		Metadata:        types.AuditMetadata{"name": in.Name, "location": in.Location},
	})

	log.Info("cluster created", zap.Int64("cluster_id", id), zap.String("plan", string(cluster.Plan)))

	return SuccessOK(c, &types.ClusterCreated{
		ID:          id,
		ClusterName: in.Name,
		Location:    in.Location,
		Success:     true,
	})
}

// Update handles POST k8s.updateCluster
func (h *ClusterHandler) Update(c echo.Context) error {
	value, ok, err := h.inputs.parse(c, schema.ClusterUpdate)
	if !ok {
		return err
	}
	in := value.(*types.ClusterUpdateInput)

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	cluster, err := h.backend.Clusters.Update(ctx, in.ID, userID, store.ClusterUpdate{
		Name:     in.Name,
		Location: in.Location,
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrorNotFound(c, "Cluster not found")
	}
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("update cluster", zap.Int64("cluster_id", in.ID), zap.Error(err))
		return ErrorInternal(c, "Failed to update cluster")
	}

	metadata := types.AuditMetadata{}
	if in.Name != nil {
		metadata["name"] = *in.Name
	}
	if in.Location != nil {
		metadata["location"] = *in.Location
	}
	audit(ctx, c, h.logger, h.backend.Audit, &types.AuditEvent{
		Actor:           userID,
		Action:          "k8s.updateCluster",
		TargetClusterID: &in.ID,
		Status:          types.AuditEventStatusSuccess,
		Metadata:        metadata,
	})

	return SuccessOK(c, &ClusterUpdated{Success: true, Cluster: cluster})
}

// Delete handles POST k8s.deleteCluster
func (h *ClusterHandler) Delete(c echo.Context) error {
	value, ok, err := h.inputs.parse(c, schema.ClusterDelete)
	if !ok {
		return err
	}
	in := value.(*types.ClusterDeleteInput)

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	err = h.backend.Clusters.SoftDelete(ctx, in.ID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrorNotFound(c, "Cluster not found")
	}
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("delete cluster", zap.Int64("cluster_id", in.ID), zap.Error(err))
		return ErrorInternal(c, "Failed to delete cluster")
	}

	audit(ctx, c, h.logger, h.backend.Audit, &types.AuditEvent{
		Actor:           userID,
		Action:          "k8s.deleteCluster",
		TargetClusterID: &in.ID,
		Status:          types.AuditEventStatusSuccess,
	})

	return SuccessOK(c, &ClusterDeleted{Success: true, ID: in.ID})
}
