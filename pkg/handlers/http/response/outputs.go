package response

import (
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/activity"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
)

type AlertListOutput struct {
	Alerts []alert.SecurityAlert `json:"alerts"`
	Count  int                   `json:"count"`
}

type SessionActivityOutput struct {
	SessionID string           `json:"session_id"`
	Events    []activity.Event `json:"events"`
	Count     int              `json:"count"`
}

type OriginOutput struct {
	Origin   string `json:"origin"`
	Blocked  bool   `json:"blocked"`
	Failures int    `json:"failures"`
}
