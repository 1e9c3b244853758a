package api

import (
	"errors"
	"strings"

	"github.com/cpa03/basefly-sub001/internal/auth"
	"github.com/cpa03/basefly-sub001/internal/logging"
	"github.com/cpa03/basefly-sub001/internal/schema"
	"github.com/cpa03/basefly-sub001/internal/store"
	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CustomerHandler serves the customer.* procedures
type CustomerHandler struct {
	backend Backend
	inputs  *inputParser
	logger  *zap.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(backend Backend, inputs *inputParser, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		backend: backend,
		inputs:  inputs,
		logger:  logger.Named("customer"),
	}
}

// UpdateUserName handles POST customer.updateUserName
func (h *CustomerHandler) UpdateUserName(c echo.Context) error {
	value, ok, err := h.inputs.parse(c, schema.UpdateUserName)
	if !ok {
		return err
	}
	in := value.(*types.UserNameUpdateInput)
	in.UserID = strings.ToLower(in.UserID)

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	// Users may only rename themselves
	if in.UserID != userID {
		return ErrorForbidden(c, "You can only update your own name")
	}

	ctx := c.Request().Context()
	err = h.backend.Users.UpdateName(ctx, userID, in.Name)
	if errors.Is(err, store.ErrNotFound) {
		return ErrorNotFound(c, "User not found")
	}
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("update user name", zap.Error(err))
		return ErrorInternal(c, "Failed to update name")
	}

	audit(ctx, c, h.logger, h.backend.Audit, &types.AuditEvent{
		Actor:    userID,
		Action:   "customer.updateUserName",
		Status:   types.AuditEventStatusSuccess,
		Metadata: types.AuditMetadata{"name": in.Name},
	})

	return SuccessOK(c, map[string]bool{"success": true})
}

// Insert handles POST customer.insertCustomer
func (h *CustomerHandler) Insert(c echo.Context) error {
	value, ok, err := h.inputs.parse(c, schema.Customer)
	if !ok {
		return err
	}
	in := value.(*types.CustomerInput)
	in.UserID = strings.ToLower(in.UserID)

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	if in.UserID != userID {
		return ErrorForbidden(c, "You can only create your own customer record")
	}

	ctx := c.Request().Context()
	customer, err := h.backend.Customers.Create(ctx, userID)
	if errors.Is(err, store.ErrConflict) {
		return ErrorConflict(c, "Customer already exists")
	}
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("insert customer", zap.Error(err))
		return ErrorInternal(c, "Failed to create customer")
	}

	return SuccessCreated(c, customer)
}

// Query handles GET|POST customer.queryCustomer. Admins may look up any user.
func (h *CustomerHandler) Query(c echo.Context) error {
	value, ok, err := h.inputs.parse(c, schema.Customer)
	if !ok {
		return err
	}
	in := value.(*types.CustomerInput)
	in.UserID = strings.ToLower(in.UserID)

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	if in.UserID != userID && !auth.IsAdmin(c) {
		return ErrorForbidden(c, "You do not have access to this customer")
	}

	ctx := c.Request().Context()
	customer, err := h.backend.Customers.GetByUserID(ctx, in.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrorNotFound(c, "Customer not found")
	}
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("query customer", zap.Error(err))
		return ErrorInternal(c, "Failed to load customer")
	}

	return SuccessOK(c, customer)
}
