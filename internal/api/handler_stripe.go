package api

import (
	"errors"
	"time"

	"github.com/cpa03/basefly-sub001/internal/auth"
	"github.com/cpa03/basefly-sub001/internal/billing"
	"github.com/cpa03/basefly-sub001/internal/logging"
	"github.com/cpa03/basefly-sub001/internal/plan"
	"github.com/cpa03/basefly-sub001/internal/schema"
	"github.com/cpa03/basefly-sub001/internal/store"
	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// BillingHandler serves the stripe.* procedures
type BillingHandler struct {
	backend  Backend
	plans    *plan.Registry
	checkout billing.Checkout
	returns  billing.ReturnURLs
	inputs   *inputParser
	logger   *zap.Logger
	now      func() time.Time
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(backend Backend, plans *plan.Registry, checkout billing.Checkout, returns billing.ReturnURLs, inputs *inputParser, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		backend:  backend,
		plans:    plans,
		checkout: checkout,
		returns:  returns,
		inputs:   inputs,
		logger:   logger.Named("stripe"),
		now:      time.Now,
	}
}

// CreateSession handles POST stripe.createSession. Paying customers are
// sent to the billing portal, everyone else to a checkout for the plan.
func (h *BillingHandler) CreateSession(c echo.Context) error {
	value, ok, err := h.inputs.parse(c, schema.StripeSession)
	if !ok {
		return err
	}
	in := value.(*types.StripeSessionInput)

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	if _, known := h.plans.ByPriceID(in.PlanID); !known {
		return ErrorBadRequest(c, "Unknown plan")
	}

	if h.checkout == nil {
		return ErrorServiceUnavailable(c, "Billing is not configured")
	}

	ctx := c.Request().Context()
	log := logging.WithRequestID(ctx, h.logger)

	customer, err := h.backend.Customers.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("get customer", zap.Error(err))
		return ErrorInternal(c, "Failed to load subscription")
	}

	if customer != nil && customer.HasActiveSubscription(h.now()) && customer.StripeCustomerID != nil {
		url, err := h.checkout.CreatePortalSession(ctx, *customer.StripeCustomerID, h.returns.Billing)
		if err != nil {
			log.Error("create portal session", zap.Error(err))
			return ErrorServiceUnavailable(c, "Billing provider unavailable")
		}
		return SuccessOK(c, &types.SessionResponse{Success: true, URL: url})
	}

	user, err := h.backend.Users.GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrorNotFound(c, "User not found")
	}
	if err != nil {
		log.Error("get user", zap.Error(err))
		return ErrorInternal(c, "Failed to load user")
	}

	req := billing.CheckoutRequest{
		PriceID:    in.PlanID,
		UserID:     userID,
		Email:      user.Email,
		SuccessURL: h.returns.Billing,
		CancelURL:  h.returns.Pricing,
	}
	if customer != nil {
		req.StripeCustomerID = customer.StripeCustomerID
	}

	url, err := h.checkout.CreateCheckoutSession(ctx, req)
	if err != nil {
		log.Error("create checkout session", zap.String("price_id", in.PlanID), zap.Error(err))
		return ErrorServiceUnavailable(c, "Billing provider unavailable")
	}

	return SuccessOK(c, &types.SessionResponse{Success: true, URL: url})
}

// MySubscription handles GET auth.mySubscription
func (h *BillingHandler) MySubscription(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	customer, err := h.backend.Customers.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logging.WithRequestID(ctx, h.logger).Error("get customer", zap.Error(err))
		return ErrorInternal(c, "Failed to load subscription")
	}

	active, err := h.backend.Clusters.CountActive(ctx, userID)
	if err != nil {
		logging.WithRequestID(ctx, h.logger).Error("count clusters", zap.Error(err))
		return ErrorInternal(c, "Failed to load subscription")
	}

	info := h.subscriptionInfo(customer)
	info.ActiveClusters = active
	return SuccessOK(c, info)
}

// subscriptionInfo resolves the caller's effective plan. Lapsed and missing
// subscriptions resolve to the free plan.
func (h *BillingHandler) subscriptionInfo(customer *types.Customer) *types.SubscriptionInfo {
	if customer == nil || !customer.HasActiveSubscription(h.now()) {
		info := h.plans.Info(types.PlanFree)
		sub := &types.SubscriptionInfo{
			Plan:        info.Tier,
			Title:       info.Title,
			MaxClusters: info.MaxClusters,
		}
		if customer != nil {
			sub.StripeCustomerID = customer.StripeCustomerID
		}
		return sub
	}

	info := h.plans.Info(customer.Plan)
	return &types.SubscriptionInfo{
		Plan:                   info.Tier,
		Title:                  info.Title,
		IsPaid:                 info.IsPaid(),
		StripeCustomerID:       customer.StripeCustomerID,
		StripeCurrentPeriodEnd: customer.StripeCurrentPeriodEnd,
		MaxClusters:            info.MaxClusters,
	}
}
