package util

import (
	"github.com/google/uuid"
)

// NewRequestID returns a random identifier used to correlate log lines of a request
func NewRequestID() string {
	return uuid.New().String()
}
