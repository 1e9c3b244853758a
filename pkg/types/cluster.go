package types

import (
	"time"
)

// ClusterStatus represents the provisioning state of a cluster
type ClusterStatus string

const (
	ClusterStatusPending  ClusterStatus = "PENDING"
	ClusterStatusCreating ClusterStatus = "CREATING"
	ClusterStatusIniting  ClusterStatus = "INITING"
	ClusterStatusRunning  ClusterStatus = "RUNNING"
	ClusterStatusStopped  ClusterStatus = "STOPPED"
	ClusterStatusDeleted  ClusterStatus = "DELETED"
)

// Cluster represents a Kubernetes cluster configuration record
type Cluster struct {
	ID         int64            `db:"id" json:"id"`
	Name       string           `db:"name" json:"name"`
	Location   string           `db:"location" json:"location"`
	AuthUserID string           `db:"auth_user_id" json:"authUserId"`
	Plan       SubscriptionPlan `db:"plan" json:"plan"`
	Network    *string          `db:"network" json:"network"`
	Status     ClusterStatus    `db:"status" json:"status"`
	Delete     bool             `db:"delete" json:"delete"` // Soft-delete flag
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updatedAt"`
}

// ClusterCreated is returned by the create procedure
type ClusterCreated struct {
	ID          int64  `json:"id"`
	ClusterName string `json:"clusterName"`
	Location    string `json:"location"`
	Success     bool   `json:"success"`
}
