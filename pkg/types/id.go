package types

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// GenerateRequestID generates a sortable, collision-resistant request ID
func GenerateRequestID() string {
	return fmt.Sprintf("req_%s", ksuid.New().String())
}

// GenerateID generates a generic unique ID (UUID v4)
func GenerateID() string {
	return uuid.New().String()
}
