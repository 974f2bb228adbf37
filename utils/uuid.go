package utils

import (
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// GenerateRequestID returns a new unique request identifier
func GenerateRequestID() string {
	return uuid.NewString()
}
