package panel

// State is the panel lifecycle state.
type State string

// Lifecycle states.
const (
	StateUninitialized  State = "uninitialized"
	StateWeightsLoading State = "weights_loading"
	StateDataLoading    State = "data_loading"
	StateReady          State = "ready"
	StateError          State = "error"
)

// Severity classifies a status message.
type Severity string

// Message severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Message is a user-visible status line.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}
