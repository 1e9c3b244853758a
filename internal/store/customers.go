package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerStore handles customer (billing) records
type CustomerStore struct {
	pool *pgxpool.Pool
}

const customerColumns = `id, auth_user_id, name, plan, stripe_customer_id, stripe_subscription_id,
	stripe_price_id, stripe_current_period_end, created_at, updated_at`

func scanCustomer(row pgx.Row) (*types.Customer, error) {
	var customer types.Customer
	err := row.Scan(
		&customer.ID,
		&customer.AuthUserID,
		&customer.Name,
		&customer.Plan,
		&customer.StripeCustomerID,
		&customer.StripeSubscriptionID,
		&customer.StripePriceID,
		&customer.StripeCurrentPeriodEnd,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByUserID retrieves the customer record of a user
func (s *CustomerStore) GetByUserID(ctx context.Context, authUserID string) (*types.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE auth_user_id = $1`

	customer, err := scanCustomer(s.pool.QueryRow(ctx, query, authUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}

	return customer, nil
}

// Create inserts a customer on the free plan. It returns ErrConflict when
// the user already has one.
func (s *CustomerStore) Create(ctx context.Context, authUserID string) (*types.Customer, error) {
	query := `
		INSERT INTO customers (auth_user_id, plan)
		VALUES ($1, $2)
		RETURNING ` + customerColumns

	customer, err := scanCustomer(s.pool.QueryRow(ctx, query, authUserID, types.PlanFree))
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}

	return customer, nil
}
