package common

import (
	"github.com/google/uuid"
)

// NewRunID generates the correlation ID attached to every log event of one invocation
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}
