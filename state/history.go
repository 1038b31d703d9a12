package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/codesession/session"
)

// noHistory is the fixed rendering of an empty history.
const noHistory = "no previous executions"

// AppendHistory adds one record to the bounded execution history,
// evicting the oldest record when full.
func (m *Manager) AppendHistory(rec ExecutionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendHistoryLocked(rec)
}

func (m *Manager) appendHistoryLocked(rec ExecutionRecord) {
	m.history = append(m.history, rec)
	if extra := len(m.history) - m.historyLimit; extra > 0 {
		m.history = m.history[extra:]
	}
}

// History returns a copy of the execution history, oldest first.
func (m *Manager) History() []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExecutionRecord, len(m.history))
	copy(out, m.history)
	return out
}

// ClearHistory empties the execution history.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

// FormatHistory renders the history for human reading, oldest first, or
// a fixed sentinel when empty.
func (m *Manager) FormatHistory() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return noHistory
	}
	var b strings.Builder
	for i, rec := range m.history {
		status := "ok"
		if !rec.Success {
			status = "failed"
		}
		fmt.Fprintf(&b, "%d. [%s] %s %s (%s)", i+1, status,
			rec.Timestamp.Format(time.RFC3339), rec.Task, rec.Duration)
		if rec.Result != "" {
			fmt.Fprintf(&b, ": %s", rec.Result)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// SaveHistory persists the otherwise in-memory history to the workspace
// and commits it. The ring itself is unaffected.
func (m *Manager) SaveHistory(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.history
	if records == nil {
		records = []ExecutionRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", session.ErrVolume, historyFile, err)
	}
	if err := m.writeFile(ctx, historyFile, string(data)); err != nil {
		return err
	}
	return m.session.Commit(ctx)
}
