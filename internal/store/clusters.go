package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClusterStore handles cluster database operations
type ClusterStore struct {
	pool *pgxpool.Pool
}

// ListFilters contains filters for listing clusters across all owners
type ListFilters struct {
	Status         *types.ClusterStatus
	AuthUserID     *string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// ClusterUpdate holds the fields a partial update may change
type ClusterUpdate struct {
	Name     *string
	Location *string
}

const clusterColumns = `id, name, location, auth_user_id, plan, network, status, "delete", created_at, updated_at`

func scanCluster(row pgx.Row) (*types.Cluster, error) {
	var cluster types.Cluster
	err := row.Scan(
		&cluster.ID,
		&cluster.Name,
		&cluster.Location,
		&cluster.AuthUserID,
		&cluster.Plan,
		&cluster.Network,
		&cluster.Status,
		&cluster.Delete,
		&cluster.CreatedAt,
		&cluster.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cluster, nil
}

func collectClusters(rows pgx.Rows) ([]*types.Cluster, error) {
	defer rows.Close()

	clusters := []*types.Cluster{}
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		clusters = append(clusters, cluster)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}

	return clusters, nil
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const countActiveQuery = `SELECT COUNT(*) FROM k8s_cluster_configs WHERE auth_user_id = $1 AND "delete" = false`

func insertCluster(ctx context.Context, q querier, cluster *types.Cluster) error {
	if cluster.Status == "" {
		cluster.Status = types.ClusterStatusPending
	}

	query := `
		INSERT INTO k8s_cluster_configs (
			name, location, auth_user_id, plan, network, status
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		cluster.Name,
		cluster.Location,
		cluster.AuthUserID,
		cluster.Plan,
		cluster.Network,
		cluster.Status,
	).Scan(&cluster.ID, &cluster.CreatedAt, &cluster.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert cluster: %w", err)
	}

	return nil
}

// CreateWithinLimit inserts a new cluster record unless its owner already
// has limit live clusters, in which case ErrQuotaExceeded is returned.
// It reports the number of live clusters the owner had before the insert.
// Concurrent creates for the same owner are serialized by a transaction
// scoped advisory lock, so the limit holds under races.
func (s *ClusterStore) CreateWithinLimit(ctx context.Context, cluster *types.Cluster, limit int) (int, error) {
	var active int

	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, cluster.AuthUserID); err != nil {
			return fmt.Errorf("lock cluster owner: %w", err)
		}

		if err := tx.QueryRow(ctx, countActiveQuery, cluster.AuthUserID).Scan(&active); err != nil {
			return fmt.Errorf("count active clusters: %w", err)
		}
		if active >= limit {
			return ErrQuotaExceeded
		}

		return insertCluster(ctx, tx, cluster)
	})

	return active, err
}

// GetByID retrieves a live cluster owned by authUserID
func (s *ClusterStore) GetByID(ctx context.Context, id int64, authUserID string) (*types.Cluster, error) {
	query := `SELECT ` + clusterColumns + `
		FROM k8s_cluster_configs
		WHERE id = $1 AND auth_user_id = $2 AND "delete" = false
	`

	cluster, err := scanCluster(s.pool.QueryRow(ctx, query, id, authUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cluster: %w", err)
	}

	return cluster, nil
}

// ListByOwner retrieves the live clusters of one user, newest first
func (s *ClusterStore) ListByOwner(ctx context.Context, authUserID string) ([]*types.Cluster, error) {
	query := `SELECT ` + clusterColumns + `
		FROM k8s_cluster_configs
		WHERE auth_user_id = $1 AND "delete" = false
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, authUserID)
	if err != nil {
		return nil, fmt.Errorf("query clusters by owner: %w", err)
	}

	return collectClusters(rows)
}

// ListAll retrieves clusters across all owners with pagination
func (s *ClusterStore) ListAll(ctx context.Context, filters ListFilters) ([]*types.Cluster, int, error) {
	query := `SELECT ` + clusterColumns + ` FROM k8s_cluster_configs WHERE 1=1`
	countQuery := "SELECT COUNT(*) FROM k8s_cluster_configs WHERE 1=1"

	args := []interface{}{}
	argPos := 1

	if !filters.IncludeDeleted {
		query += ` AND "delete" = false`
		countQuery += ` AND "delete" = false`
	}

	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		countQuery += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *filters.Status)
		argPos++
	}

	if filters.AuthUserID != nil {
		query += fmt.Sprintf(" AND auth_user_id = $%d", argPos)
		countQuery += fmt.Sprintf(" AND auth_user_id = $%d", argPos)
		args = append(args, *filters.AuthUserID)
		argPos++
	}

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clusters: %w", err)
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query clusters: %w", err)
	}

	clusters, err := collectClusters(rows)
	if err != nil {
		return nil, 0, err
	}

	return clusters, total, nil
}

// CountActive counts the live clusters of one user
func (s *ClusterStore) CountActive(ctx context.Context, authUserID string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, countActiveQuery, authUserID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active clusters: %w", err)
	}

	return count, nil
}

// Update applies a partial update to a live cluster owned by authUserID
func (s *ClusterStore) Update(ctx context.Context, id int64, authUserID string, update ClusterUpdate) (*types.Cluster, error) {
	query := `
		UPDATE k8s_cluster_configs
		SET name = COALESCE($3, name),
			location = COALESCE($4, location),
			updated_at = NOW()
		WHERE id = $1 AND auth_user_id = $2 AND "delete" = false
		RETURNING ` + clusterColumns

	cluster, err := scanCluster(s.pool.QueryRow(ctx, query, id, authUserID, update.Name, update.Location))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update cluster: %w", err)
	}

	return cluster, nil
}

// SoftDelete flags a cluster owned by authUserID as deleted
func (s *ClusterStore) SoftDelete(ctx context.Context, id int64, authUserID string) error {
	query := `
		UPDATE k8s_cluster_configs
		SET "delete" = true, status = $3, updated_at = NOW()
		WHERE id = $1 AND auth_user_id = $2 AND "delete" = false
	`

	result, err := s.pool.Exec(ctx, query, id, authUserID, types.ClusterStatusDeleted)
	if err != nil {
		return fmt.Errorf("soft delete cluster: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PurgeDeleted permanently removes clusters soft-deleted before olderThan
func (s *ClusterStore) PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM k8s_cluster_configs WHERE "delete" = true AND updated_at < $1`

	result, err := s.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge deleted clusters: %w", err)
	}

	return result.RowsAffected(), nil
}
