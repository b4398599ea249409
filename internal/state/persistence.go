package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engineerr"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/logger"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/risk"
)

// EngineState is the complete recoverable state of the risk engine: the
// portfolio snapshot plus the guardrail counters and the last known regime.
type EngineState struct {
	Version     int       `json:"version"`
	LastUpdated time.Time `json:"last_updated"`

	Portfolio  position.Snapshot `json:"portfolio"`
	Guardrails risk.State        `json:"guardrails"`

	Regime           string  `json:"regime"`
	RegimeConfidence float64 `json:"regime_confidence"`
}

// StateVersion is bumped whenever EngineState changes incompatibly.
const StateVersion = 1

const (
	saveRetries    = 3
	saveRetryDelay = 250 * time.Millisecond
	maxStateAge    = 7 * 24 * time.Hour
)

// Persistence manages saving and loading engine state. Saves go through a
// temp file and an atomic rename so a crash mid-write can never corrupt the
// last good snapshot; the previous snapshot is rotated to a .bak first.
type Persistence struct {
	mu       sync.Mutex
	log      *logger.Logger
	stateDir string
	session  string
	lastSave time.Time
}

// NewPersistence creates a persistence manager writing under stateDir. The
// logger may be nil (tests).
func NewPersistence(log *logger.Logger, stateDir, session string) *Persistence {
	return &Persistence{
		log:      log,
		stateDir: stateDir,
		session:  session,
	}
}

// Initialize creates the state directory.
func (p *Persistence) Initialize() error {
	if err := os.MkdirAll(p.stateDir, 0755); err != nil {
		return engineerr.NewPersistenceError("state", "initialize",
			fmt.Sprintf("failed to create state directory %s", p.stateDir), err)
	}
	p.info("State persistence initialized: %s", p.stateDir)
	return nil
}

// StatePath returns the snapshot file path for this session.
func (p *Persistence) StatePath() string {
	return filepath.Join(p.stateDir, fmt.Sprintf("%s_state.json", p.session))
}

func (p *Persistence) backupPath() string {
	return p.StatePath() + ".bak"
}

// Save persists the engine state. Transient write failures are retried with
// a short backoff; a final failure is reported as a retryable persistence
// error and never crashes the caller.
func (p *Persistence) Save(state EngineState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state.Version = StateVersion
	state.LastUpdated = time.Now()

	data, err := json.MarshalIndent(&state, "", "  ")
	if err != nil {
		return engineerr.NewPersistenceError("state", "save", "failed to marshal engine state", err)
	}

	statePath := p.StatePath()

	// Rotate the previous good snapshot before touching anything.
	if _, err := os.Stat(statePath); err == nil {
		if err := copyFile(statePath, p.backupPath()); err != nil {
			p.warn("failed to rotate state backup: %v", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(saveRetryDelay * time.Duration(attempt))
		}
		if lastErr = p.writeAtomic(statePath, data); lastErr == nil {
			p.lastSave = time.Now()
			return nil
		}
		p.warn("state save attempt %d/%d failed: %v", attempt+1, saveRetries, lastErr)
	}

	return engineerr.NewPersistenceError("state", "save",
		fmt.Sprintf("failed to write %s after %d attempts", statePath, saveRetries), lastErr)
}

// writeAtomic writes data to a temp file then renames it over the target.
func (p *Persistence) writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move state file into place: %w", err)
	}
	return nil
}

// Load reads the persisted engine state. A missing file returns (nil, nil):
// the engine starts clean. A corrupt primary falls back to the .bak rotation.
func (p *Persistence) Load() (*EngineState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	statePath := p.StatePath()
	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		p.info("No existing state file found, starting with clean state")
		return nil, nil
	}

	state, err := p.loadFrom(statePath)
	if err == nil {
		p.info("State loaded from %s", statePath)
		return state, nil
	}

	p.warn("primary state file unusable (%v), trying backup", err)
	state, bakErr := p.loadFrom(p.backupPath())
	if bakErr != nil {
		return nil, engineerr.NewPersistenceError("state", "load",
			fmt.Sprintf("both %s and backup are unusable", statePath), err)
	}
	p.info("State recovered from backup %s", p.backupPath())
	return state, nil
}

func (p *Persistence) loadFrom(path string) (*EngineState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state EngineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if err := validateState(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

func validateState(state *EngineState) error {
	if state.Version != StateVersion {
		return fmt.Errorf("state version mismatch: expected %d, got %d", StateVersion, state.Version)
	}
	if state.Portfolio.TotalCapital < 0 || state.Portfolio.AvailableCapital < 0 {
		return fmt.Errorf("state has negative capital")
	}
	if time.Since(state.LastUpdated) > maxStateAge {
		return fmt.Errorf("state is too old: %v", state.LastUpdated)
	}
	return nil
}

// LastSave returns when the state was last persisted successfully.
func (p *Persistence) LastSave() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSave
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func (p *Persistence) info(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Info(format, args...)
	}
}

func (p *Persistence) warn(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Warning(format, args...)
	}
}
