package engine

import (
	"fmt"
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/notifications"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// ExecutionStatus classifies the outcome of one submitted opportunity.
type ExecutionStatus int

const (
	ExecutionAccepted ExecutionStatus = iota
	ExecutionRejected
)

func (s ExecutionStatus) String() string {
	switch s {
	case ExecutionAccepted:
		return "ACCEPTED"
	case ExecutionRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}

// ExecutionResult is emitted once per consumed opportunity.
type ExecutionResult struct {
	Opportunity types.Opportunity `json:"opportunity"`
	Status      ExecutionStatus   `json:"status"`
	Reason      string            `json:"reason,omitempty"` // rejection reason code
	Shares      int               `json:"shares,omitempty"`
	StopLoss    float64           `json:"stop_loss,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// ExitEvent is emitted once per realized full or partial exit.
type ExitEvent struct {
	Record          position.TradeRecord `json:"record"`
	RemainingShares int                  `json:"remaining_shares"`
	Timestamp       time.Time            `json:"timestamp"`
}

// GuardrailEvent is emitted when a portfolio-wide limit trips.
type GuardrailEvent struct {
	Reason    string    `json:"reason"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives engine events. Implementations must not block; slow
// consumers should buffer internally.
type Observer interface {
	OnExecution(result ExecutionResult)
	OnExit(event ExitEvent)
	OnGuardrail(event GuardrailEvent)
}

// NotificationObserver forwards exits and guardrail trips to an alerting
// service. Routine execution results are not forwarded.
type NotificationObserver struct {
	notifier notifications.Notifier
}

// NewNotificationObserver creates an observer backed by the given notifier.
func NewNotificationObserver(notifier notifications.Notifier) *NotificationObserver {
	return &NotificationObserver{notifier: notifier}
}

// OnExecution ignores routine execution results.
func (o *NotificationObserver) OnExecution(result ExecutionResult) {}

// OnExit sends an alert for every realized exit.
func (o *NotificationObserver) OnExit(event ExitEvent) {
	level := notifications.LevelSuccess
	if event.Record.PnL < 0 {
		level = notifications.LevelWarning
	}

	kind := "Partial exit"
	if event.Record.Final {
		kind = "Exit"
	}

	message := fmt.Sprintf("%s %s (%s)\nShares: %d @ $%.2f\nP&L: $%.2f (%.2f%%)\nReason: %s",
		kind, event.Record.Symbol, event.Record.Strategy,
		event.Record.Shares, event.Record.ExitPrice,
		event.Record.PnL, event.Record.PnLPct, event.Record.Reason)

	// Alert delivery is best effort; failures are the notifier's problem.
	_ = o.notifier.SendAlert(level, message)
}

// OnGuardrail sends an alert for every guardrail trip.
func (o *NotificationObserver) OnGuardrail(event GuardrailEvent) {
	message := fmt.Sprintf("Guardrail tripped: %s\n%s", event.Reason, event.Detail)
	_ = o.notifier.SendAlert(notifications.LevelError, message)
}
