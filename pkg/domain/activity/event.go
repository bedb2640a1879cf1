package activity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Event is one normalized authenticated request. Params must already be
// sanitized by whoever builds the event: the recorder stores them verbatim.
type Event struct {
	Actor          string            `json:"actor,omitempty"`
	Controller     string            `json:"controller"`
	Action         string            `json:"action"`
	Path           string            `json:"path" validate:"required"`
	Method         string            `json:"method" validate:"required"`
	Status         int               `json:"status" validate:"gte=0,lte=599"`
	ResponseTimeMs float64           `json:"response_time_ms" validate:"gte=0"`
	IP             string            `json:"ip" validate:"required,ip"`
	DeviceType     string            `json:"device_type"`
	Browser        string            `json:"browser"`
	OS             string            `json:"os"`
	OccurredAt     time.Time         `json:"occurred_at"`
	Suspicious     bool              `json:"suspicious"`
	Params         map[string]string `json:"params,omitempty"`
}

func (e Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurred_at is required", domain.ErrMalformedEvent)
	}
	return nil
}

const (
	filteredMaxValueLength = 256
)

var sensitiveParamFragments = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
	"otp_code",
	"credit_card",
	"card_number",
	"cvv",
	"ssn",
}

func IsSensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	for _, fragment := range sensitiveParamFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// FilterParams returns a copy of params without sensitive fields, with long
// values truncated. Callers run it before building an Event.
func FilterParams(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		if IsSensitiveParam(k) {
			continue
		}
		if len(v) > filteredMaxValueLength {
			cut := filteredMaxValueLength
			for cut > 0 && !utf8.RuneStart(v[cut]) {
				cut--
			}
			v = v[:cut]
		}
		out[k] = v
	}
	return out
}
