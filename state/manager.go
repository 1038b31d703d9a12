package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/codesession/helper"
	"github.com/jonwraymond/codesession/protocol"
	"github.com/jonwraymond/codesession/session"
)

// Defaults for manager configuration.
const (
	// DefaultHistoryLimit bounds the in-memory execution history ring.
	DefaultHistoryLimit = 50

	// DefaultMemoryLimit is the per-block character limit.
	DefaultMemoryLimit = 8192

	// DefaultVersionCap bounds each script's PreviousVersions.
	DefaultVersionCap = 20
)

// Workspace files the manager keeps its stores in.
const (
	scriptsFile = "scripts.json"
	memoryFile  = "memory.json"
	historyFile = "history.json"
)

// failureMarker prefixes the captured error text of a failed fragment.
const failureMarker = "error:"

// Logger is an optional interface for manager observability.
type Logger interface {
	Logf(format string, args ...any)
}

// Executor is the slice of the session surface the state layer drives:
// fragment execution, the durability barrier, and the workspace mount
// point the fragments address files under.
type Executor interface {
	Execute(ctx context.Context, cmd protocol.Command) (*session.Result, error)
	Commit(ctx context.Context) error
	WorkspacePath() string
}

var _ Executor = (*session.Controller)(nil)

// Config holds the configuration for a Manager.
type Config struct {
	// Session executes the fragments that reach durable storage.
	// Required.
	Session Executor

	// HistoryLimit bounds the execution history ring.
	// Zero applies DefaultHistoryLimit.
	HistoryLimit int

	// MemoryLimit is the per-block character ceiling.
	// Zero applies DefaultMemoryLimit.
	MemoryLimit int

	// VersionCap bounds each script's PreviousVersions, evicting the
	// oldest snapshot first. Zero applies DefaultVersionCap.
	VersionCap int

	// Logger is an optional logger for observability.
	Logger Logger
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Session == nil {
		return fmt.Errorf("%w: missing required fields: Session", session.ErrConfiguration)
	}
	return nil
}

// applyDefaults sets default values for optional fields.
func (c *Config) applyDefaults() {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = DefaultMemoryLimit
	}
	if c.VersionCap <= 0 {
		c.VersionCap = DefaultVersionCap
	}
}

// Manager is the session state layer.
//
// Contract:
// - Concurrency: safe for concurrent use; operations serialize on an
//   internal mutex.
// - Context: every durable operation threads ctx into Execute.
// - Errors: missing scripts return ErrScriptNotFound; rejected appends
//   return ErrMemoryLimit; storage failures wrap session.ErrVolume.
// - Ownership: scripts and memory live in the workspace files and are
//   re-read on every operation; only the history ring is held in
//   memory.
type Manager struct {
	session      Executor
	historyLimit int
	memoryLimit  int
	versionCap   int
	logger       Logger

	now func() time.Time

	mu      sync.Mutex
	history []ExecutionRecord
}

// New creates a Manager from cfg.
func New(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Manager{
		session:      cfg.Session,
		historyLimit: cfg.HistoryLimit,
		memoryLimit:  cfg.MemoryLimit,
		versionCap:   cfg.VersionCap,
		logger:       cfg.Logger,
		now:          time.Now,
	}, nil
}

// SaveScript stores code under name, versioning any existing record:
// the prior record is snapshotted onto PreviousVersions, the version
// number increments, and the execution count restarts for the new code.
func (m *Manager) SaveScript(ctx context.Context, name, code string, meta Metadata) (*ScriptRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: script name is required", session.ErrConfiguration)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: script code is required", session.ErrConfiguration)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	scripts, err := m.loadScripts(ctx)
	if err != nil {
		return nil, err
	}

	rec := &ScriptRecord{
		Name:        name,
		Code:        code,
		Timestamp:   m.now().UTC(),
		Author:      meta.Author,
		Description: meta.Description,
		Version:     1,
	}
	if prior, ok := scripts[name]; ok {
		rec.Version = prior.Version + 1
		rec.PreviousVersions = m.pushVersion(prior.PreviousVersions, prior.snapshot())
	}
	scripts[name] = rec

	if err := m.saveScripts(ctx, scripts); err != nil {
		return nil, err
	}
	m.logf("state: saved script %s v%d", name, rec.Version)
	return rec, nil
}

// Script returns the named script record.
func (m *Manager) Script(ctx context.Context, name string) (*ScriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scripts, err := m.loadScripts(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	return rec, nil
}

// RunScript loads the named script, executes its code as one Command,
// and persists the updated record: the prior state moves onto
// PreviousVersions, ExecutionCount increments by one, and LastResult is
// replaced. The record is updated whether or not the code succeeded; a
// failed run additionally returns the execution error alongside the
// updated record. An execution record is appended to the history.
func (m *Manager) RunScript(ctx context.Context, name string) (*ScriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scripts, err := m.loadScripts(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}

	res, execErr := m.session.Execute(ctx, protocol.Command{
		Code:        rec.Code,
		OutputNames: []string{"result"},
	})
	if res == nil {
		// Stream-level failure: nothing ran to completion, nothing to
		// record.
		return nil, execErr
	}

	success := classifySuccess(res, execErr)
	rec.PreviousVersions = m.pushVersion(rec.PreviousVersions, rec.snapshot())
	rec.ExecutionCount++
	rec.LastResult = &ScriptResult{
		Values:     res.Values,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		Success:    success,
		DurationMs: res.DurationMs,
	}

	if err := m.saveScripts(ctx, scripts); err != nil {
		return nil, err
	}
	m.appendHistoryLocked(ExecutionRecord{
		Timestamp: m.now().UTC(),
		Task:      "script " + name,
		Code:      rec.Code,
		Result:    renderResult(res),
		Success:   success,
		Duration:  time.Duration(res.DurationMs) * time.Millisecond,
	})
	m.logf("state: ran script %s v%d (success=%t)", name, rec.Version, success)
	return rec, execErr
}

// ListScripts returns every stored script, sorted by name.
func (m *Manager) ListScripts(ctx context.Context) ([]*ScriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scripts, err := m.loadScripts(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*ScriptRecord, 0, len(names))
	for _, name := range names {
		out = append(out, scripts[name])
	}
	return out, nil
}

// DeleteScript removes the named script and its version history.
func (m *Manager) DeleteScript(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scripts, err := m.loadScripts(ctx)
	if err != nil {
		return err
	}
	if _, ok := scripts[name]; !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	delete(scripts, name)
	if err := m.saveScripts(ctx, scripts); err != nil {
		return err
	}
	m.logf("state: deleted script %s", name)
	return nil
}

// pushVersion appends snap and evicts the oldest snapshots beyond the
// version cap.
func (m *Manager) pushVersion(prev []ScriptRecord, snap ScriptRecord) []ScriptRecord {
	prev = append(prev, snap)
	if extra := len(prev) - m.versionCap; extra > 0 {
		prev = prev[extra:]
	}
	return prev
}

func (m *Manager) loadScripts(ctx context.Context) (map[string]*ScriptRecord, error) {
	scripts := make(map[string]*ScriptRecord)
	raw, err := m.readFile(ctx, scriptsFile)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return scripts, nil
	}
	if err := json.Unmarshal([]byte(raw), &scripts); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", session.ErrVolume, scriptsFile, err)
	}
	return scripts, nil
}

func (m *Manager) saveScripts(ctx context.Context, scripts map[string]*ScriptRecord) error {
	data, err := json.Marshal(scripts)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", session.ErrVolume, scriptsFile, err)
	}
	if err := m.writeFile(ctx, scriptsFile, string(data)); err != nil {
		return err
	}
	return m.session.Commit(ctx)
}

// The fragments below are the only code the manager executes for its
// own bookkeeping. Records are serialized host-side; the fragments move
// opaque strings in and out of workspace files. Variable names carry a
// reserved prefix and are cleared so they never collide with session
// namespace entries.
const (
	readFileCode = `local f = io.open(__path, "r")
__path = nil
if f == nil then
  submit("")
else
  local data = f:read("*a")
  f:close()
  submit(data)
end`

	writeFileCode = `local f = assert(io.open(__path, "w"))
f:write(__data)
f:close()
__path = nil
__data = nil
submit(true)`
)

// readFile returns the named workspace file's content, empty when the
// file does not exist yet.
func (m *Manager) readFile(ctx context.Context, name string) (string, error) {
	res, err := m.session.Execute(ctx, protocol.Command{
		Code:        readFileCode,
		Variables:   map[string]any{"__path": m.filePath(name)},
		OutputNames: []string{"data"},
	})
	if err != nil {
		return "", storageErr("read", name, err)
	}
	data, _ := res.Values["data"].(string)
	return data, nil
}

func (m *Manager) writeFile(ctx context.Context, name, data string) error {
	_, err := m.session.Execute(ctx, protocol.Command{
		Code:        writeFileCode,
		Variables:   map[string]any{"__path": m.filePath(name), "__data": data},
		OutputNames: []string{"ok"},
	})
	if err != nil {
		return storageErr("write", name, err)
	}
	return nil
}

func (m *Manager) filePath(name string) string {
	return path.Join(m.session.WorkspacePath(), name)
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Logf(format, args...)
	}
}

// storageErr classifies a failed storage fragment: an execution or tool
// failure is a storage failure, lifecycle and protocol conditions pass
// through unchanged.
func storageErr(op, name string, err error) error {
	if errors.Is(err, session.ErrExecution) || errors.Is(err, session.ErrTool) {
		return fmt.Errorf("%w: %s %s: %v", session.ErrVolume, op, name, err)
	}
	return err
}

// classifySuccess applies the failure classification: an execution
// error, a null-valued final, or error-marked stderr all count as
// failures, never as successes with odd output.
func classifySuccess(res *session.Result, execErr error) bool {
	if execErr != nil || res.Failed() {
		return false
	}
	return !strings.HasPrefix(strings.TrimSpace(res.Stderr), failureMarker)
}

// renderResult flattens a Result into one history line.
func renderResult(res *session.Result) string {
	if res.Failed() {
		return helper.Peek(res.Stderr, 0, 120)
	}
	if len(res.Values) > 0 {
		if data, err := json.Marshal(res.Values); err == nil {
			return helper.Peek(string(data), 0, 120)
		}
	}
	return helper.Peek(strings.TrimSpace(res.Stdout), 0, 120)
}
