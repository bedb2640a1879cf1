package alert

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeRapidRequestPattern Type = "rapid_request_pattern"
	TypeBruteForceDetected  Type = "brute_force_detected"
	TypeExcessiveDataAccess Type = "excessive_data_access"
)

// Payload keys are part of the alert schema consumed by dashboards.
const (
	PayloadActor       = "actor"
	PayloadCount       = "count"
	PayloadWindowStart = "window_start"
	PayloadOrigin      = "origin"
	PayloadResourceTag = "resource_tag"
	PayloadTotal       = "total"
)

const IDPrefix = "SEC_"

type SecurityAlert struct {
	ID        string         `json:"id"`
	AlertType Type           `json:"alert_type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewSecurityAlert(alertType Type, payload map[string]any, createdAt time.Time) *SecurityAlert {
	if payload == nil {
		payload = map[string]any{}
	}
	return &SecurityAlert{
		AlertType: alertType,
		Payload:   payload,
		CreatedAt: createdAt,
	}
}

// NewID returns "SEC_" followed by the hex form of a random UUID.
func NewID(gen func() uuid.UUID) string {
	if gen == nil {
		gen = uuid.New
	}
	return IDPrefix + strings.ReplaceAll(gen().String(), "-", "")
}
