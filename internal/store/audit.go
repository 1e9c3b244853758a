package store

import (
	"context"
	"fmt"

	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditStore handles audit event operations
type AuditStore struct {
	pool *pgxpool.Pool
}

// Log creates an immutable audit event record
func (s *AuditStore) Log(ctx context.Context, event *types.AuditEvent) error {
	if event.ID == "" {
		event.ID = types.GenerateID()
	}

	query := `
		INSERT INTO audit_events (
			id, actor, action, target_cluster_id, status,
			metadata, request_id, ip_address, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := s.pool.Exec(ctx, query,
		event.ID,
		event.Actor,
		event.Action,
		event.TargetClusterID,
		event.Status,
		event.Metadata,
		event.RequestID,
		event.IPAddress,
		event.UserAgent,
	)

	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	return nil
}

// ListByActor retrieves the most recent audit events for an actor
func (s *AuditStore) ListByActor(ctx context.Context, actor string, limit int) ([]*types.AuditEvent, error) {
	query := `
		SELECT id, actor, action, target_cluster_id, status,
			metadata, request_id, ip_address, user_agent, created_at
		FROM audit_events
		WHERE actor = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, actor, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events by actor: %w", err)
	}
	defer rows.Close()

	events := []*types.AuditEvent{}
	for rows.Next() {
		var event types.AuditEvent
		err := rows.Scan(
			&event.ID,
			&event.Actor,
			&event.Action,
			&event.TargetClusterID,
			&event.Status,
			&event.Metadata,
			&event.RequestID,
			&event.IPAddress,
			&event.UserAgent,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
