package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger represents a file logger for engine activity
type Logger struct {
	session string
	logFile *os.File
	logger  *log.Logger
	mu      sync.Mutex
	logDir  string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a new file logger for the named engine session
func NewLogger(session string) (*Logger, error) {
	// Create log directory if it doesn't exist
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Create log filename with timestamp
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", session, timestamp)
	logPath := filepath.Join(logDir, filename)

	// Open or create log file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create logger with no prefix (we add our own formatting)
	logger := log.New(file, "", 0)

	l := &Logger{
		session: session,
		logFile: file,
		logger:  logger,
		logDir:  logDir,
	}

	// Write session start header
	l.writeSessionHeader()

	return l, nil
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 RISK ENGINE SESSION STARTED
================================================================================
Session: %s
Started: %s
================================================================================
`, l.session, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	logEntry := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)

	l.logger.Println(logEntry)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs engine status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogExit logs a realized exit
func (l *Logger) LogExit(symbol, strategy, reason string, shares int, exitPrice, pnl, pnlPct float64, final bool) {
	kind := "PARTIAL EXIT"
	if final {
		kind = "EXIT"
	}
	emoji := "✅"
	if pnl < 0 {
		emoji = "🔻"
	}
	l.Trade("%s %s %s (%s): %d shares @ $%.2f, P&L $%.2f (%.2f%%) [%s]",
		emoji, kind, symbol, strategy, shares, exitPrice, pnl, pnlPct, reason)
}

// LogEntry logs a committed entry
func (l *Logger) LogEntry(symbol, strategy string, shares int, entryPrice, stopLoss float64) {
	l.Trade("🟢 ENTRY %s (%s): %d shares @ $%.2f, stop $%.2f",
		symbol, strategy, shares, entryPrice, stopLoss)
}

// LogPortfolioStatus logs a portfolio summary line
func (l *Logger) LogPortfolioStatus(totalCapital, availableCapital, investedCapital float64, openPositions int, heat float64, heatBand string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	statusLog := fmt.Sprintf(`
[%s] [STATUS] ==================== PORTFOLIO STATUS ====================
💰 Capital: $%.2f | Available: $%.2f | Invested: $%.2f
📊 Open Positions: %d | Heat: %.2f%% (%s)
==============================================================`,
		timestamp, totalCapital, availableCapital, investedCapital, openPositions, heat, heatBand)

	l.logger.Println(statusLog)
}

// LogGuardrail logs a guardrail trip
func (l *Logger) LogGuardrail(reason, detail string) {
	l.Warning("🛑 GUARDRAIL %s: %s", reason, detail)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		footer := fmt.Sprintf(`
================================================================================
🛑 RISK ENGINE SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, timestamp)
		l.logger.Print(footer)

		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", l.session, timestamp)
	return filepath.Join(l.logDir, filename)
}
