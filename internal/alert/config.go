package alert

// Event types raised by the poller.
const (
	EventCheckFailed   = "check_failed"
	EventDegradedOrder = "degraded_order"
)

// AlertConfig defines a webhook alert destination.
type AlertConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["check_failed", "degraded_order"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// AlertEvent is the payload sent to webhook endpoints.
type AlertEvent struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Source    string `json:"source"`
	MessageID string `json:"message_id,omitempty"`
	Token     string `json:"token,omitempty"`
	Customer  string `json:"customer,omitempty"`
	OrderType string `json:"order_type,omitempty"`
	Extractor string `json:"extractor,omitempty"`
	Reason    string `json:"reason"`
}
