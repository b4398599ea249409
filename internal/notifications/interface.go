package notifications

// Alert levels understood by the notifiers.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
	LevelSuccess = "success"
)

// Notifier defines the interface for notification services
type Notifier interface {
	// SendAlert sends an alert with the specified level and message
	SendAlert(level, message string) error
}

// levelEmoji maps an alert level to its message prefix.
func levelEmoji(level string) string {
	switch level {
	case LevelWarning:
		return "⚠️"
	case LevelError:
		return "🚨"
	case LevelSuccess:
		return "✅"
	default:
		return "ℹ️"
	}
}

// MultiNotifier fans an alert out to several services. Delivery failures on
// one service never block the others; the first error is returned.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a fan-out notifier.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// SendAlert delivers the alert to every configured service.
func (m *MultiNotifier) SendAlert(level, message string) error {
	var firstErr error
	for _, n := range m.notifiers {
		if err := n.SendAlert(level, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
