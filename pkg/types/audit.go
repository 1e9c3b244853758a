package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditEventStatus represents the outcome of an audited action
type AuditEventStatus string

const (
	AuditEventStatusSuccess AuditEventStatus = "SUCCESS"
	AuditEventStatusFailure AuditEventStatus = "FAILURE"
	AuditEventStatusDenied  AuditEventStatus = "DENIED"
)

// AuditMetadata is arbitrary JSON metadata stored with an audit event
type AuditMetadata map[string]interface{}

// Value implements driver.Valuer for database serialization
func (m AuditMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database deserialization
func (m *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported audit metadata type %T", value)
	}
}

// AuditEvent represents an immutable audit log entry
type AuditEvent struct {
	ID              string           `db:"id"`
	Actor           string           `db:"actor"` // Authenticated user ID
	Action          string           `db:"action"`
	TargetClusterID *int64           `db:"target_cluster_id"`
	Status          AuditEventStatus `db:"status"`
	Metadata        AuditMetadata    `db:"metadata"`
	RequestID       string           `db:"request_id"`
	IPAddress       *string          `db:"ip_address"`
	UserAgent       *string          `db:"user_agent"`
	CreatedAt       time.Time        `db:"created_at"`
}
