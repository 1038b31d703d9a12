package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/codesession/protocol"
	"github.com/jonwraymond/codesession/runtime"
	"github.com/jonwraymond/codesession/tool"
)

// Lifecycle states.
const (
	stateUnstarted int32 = iota
	stateStarting
	stateRunning
	stateShutdown
)

// Controller owns one session: the provisioned runtime, the host side
// of the wire protocol, and the lifecycle watchdogs. Exactly one
// session per Controller; a shut-down Controller cannot be restarted.
//
// Contract:
// - Concurrency: safe for concurrent use; Execute calls serialize on an
//   internal mutex (single-flight protocol).
// - Context: Execute blocks on stream I/O; cancellation is observed
//   between responses. Watchdog teardown unblocks in-flight reads.
// - Errors: lifecycle misuse and provisioning failures wrap
//   ErrLifecycle; stream failures wrap ErrProtocol; fragment failures
//   are *ExecutionError; tool-caused failures wrap ErrTool.
type Controller struct {
	cfg    Config
	id     string
	logger Logger

	state atomic.Int32

	// mu serializes Execute: one Command in flight, ever.
	mu sync.Mutex

	// lifeMu guards the fields below during the starting window.
	lifeMu    sync.Mutex
	inst      runtime.Instance
	writer    *protocol.Writer
	reader    *protocol.Reader
	wallTimer *time.Timer
	idleTimer *time.Timer

	resolveOnce sync.Once
	resolved    runtime.Provisioner
	resolveErr  error
}

// New creates a Controller from cfg. No provisioning or lookups happen
// here; Start performs them.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Controller{
		cfg:    cfg,
		id:     uuid.NewString(),
		logger: cfg.Logger,
	}, nil
}

// ID returns the generated session identifier.
func (c *Controller) ID() string { return c.id }

// WorkspacePath returns the workspace mount point inside the runtime.
func (c *Controller) WorkspacePath() string { return c.cfg.WorkspaceDir }

// Start provisions the isolated runtime, attaches the protocol codecs
// to its streams, and arms the wall-clock and idle watchdogs.
func (c *Controller) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateUnstarted, stateStarting) {
		if c.state.Load() == stateShutdown {
			return fmt.Errorf("%w: session already shut down", ErrLifecycle)
		}
		return fmt.Errorf("%w: session already started", ErrLifecycle)
	}

	prov, err := c.resolveRuntime(ctx)
	if err != nil {
		c.state.Store(stateShutdown)
		return fmt.Errorf("%w: resolve runtime: %v", ErrLifecycle, err)
	}
	inst, err := prov.Provision(ctx, c.runtimeSpec())
	if err != nil {
		c.state.Store(stateShutdown)
		return fmt.Errorf("%w: provision runtime: %v", ErrLifecycle, err)
	}

	c.lifeMu.Lock()
	c.inst = inst
	c.writer = protocol.NewWriter(inst.Stdin())
	c.reader = protocol.NewReader(inst.Stdout())
	if c.cfg.WallClockTimeout > 0 {
		c.wallTimer = time.AfterFunc(c.cfg.WallClockTimeout, func() { c.expire("wall-clock timeout") })
	}
	if c.cfg.IdleTimeout > 0 {
		c.idleTimer = time.AfterFunc(c.cfg.IdleTimeout, func() { c.expire("idle timeout") })
	}
	c.lifeMu.Unlock()

	if !c.state.CompareAndSwap(stateStarting, stateRunning) {
		// Shut down while provisioning was in flight.
		_ = inst.Terminate(context.Background())
		return fmt.Errorf("%w: session shut down during start", ErrLifecycle)
	}

	go c.drainStderr(inst.Stderr())
	c.logf("session %s started", c.id)
	return nil
}

// Shutdown tears the runtime down unconditionally and stops the
// watchdogs. Idempotent; safe to call repeatedly and concurrently.
// Uncommitted workspace state is discarded.
func (c *Controller) Shutdown(ctx context.Context) error {
	prev := c.state.Swap(stateShutdown)
	if prev == stateUnstarted || prev == stateShutdown {
		return nil
	}

	c.lifeMu.Lock()
	inst := c.inst
	wall, idle := c.wallTimer, c.idleTimer
	c.lifeMu.Unlock()

	if wall != nil {
		wall.Stop()
	}
	if idle != nil {
		idle.Stop()
	}

	var err error
	if inst != nil {
		err = inst.Terminate(ctx)
	}
	c.logf("session %s shut down", c.id)
	if err != nil {
		return fmt.Errorf("%w: terminate runtime: %v", ErrLifecycle, err)
	}
	return nil
}

// Execute sends one Command and loops on Responses until the terminal
// final arrives: each tool_call is answered by invoking the configured
// tool provider and sending its result (or error) back as the Reply.
// The returned Result is populated even when err is non-nil, so callers
// can inspect captured output and the tool-call audit trail of a failed
// fragment.
func (c *Controller) Execute(ctx context.Context, cmd protocol.Command) (*Result, error) {
	switch c.state.Load() {
	case stateRunning:
	case stateShutdown:
		return nil, fmt.Errorf("%w: session already shut down", ErrLifecycle)
	default:
		return nil, fmt.Errorf("%w: session not started", ErrLifecycle)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pauseIdle()
	defer c.resumeIdle()

	if err := c.writer.WriteCommand(cmd); err != nil {
		return nil, c.streamError("write command", err)
	}

	var calls []ToolCallRecord
	var toolFailure error

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := c.reader.ReadResponse()
		if err != nil {
			return nil, c.streamError("read response", err)
		}

		if tc := resp.ToolCall; tc != nil {
			rec := ToolCallRecord{Name: tc.Name, Args: tc.Args}
			start := time.Now()
			result, callErr := c.callTool(ctx, tc.Name, tc.Args)
			rec.DurationMs = time.Since(start).Milliseconds()

			reply := protocol.Reply{ToolResult: result}
			if callErr != nil {
				rec.Error = callErr.Error()
				reply = protocol.Reply{ToolError: callErr.Error()}
				if toolFailure == nil {
					toolFailure = fmt.Errorf("%w: %s: %v", ErrTool, tc.Name, callErr)
				}
				c.logf("session %s: tool %s failed: %v", c.id, tc.Name, callErr)
			} else {
				rec.Result = result
			}
			calls = append(calls, rec)

			if err := c.writer.WriteReply(reply); err != nil {
				return nil, c.streamError("write reply", err)
			}
			continue
		}

		final := resp.Final
		res := &Result{
			Values:     final.Values,
			Stdout:     final.Stdout,
			Stderr:     final.Stderr,
			ToolCalls:  calls,
			DurationMs: final.DurationMs,
		}
		if !res.Failed() {
			return res, nil
		}
		// A failed fragment that was itself brought down by a tool
		// failure surfaces as the tool error; fragments that catch a
		// tool error and complete are not failures at this level.
		if toolFailure != nil {
			return res, toolFailure
		}
		return res, &ExecutionError{Stderr: final.Stderr}
	}
}

// UploadToDurableStorage performs a forced batch write of local
// directories and files into the durable volume, bypassing the staging
// directory. Entries are overwritten unconditionally; this is not a
// delta or merge. dirs maps local directories to key prefixes; files
// maps local files to exact keys.
func (c *Controller) UploadToDurableStorage(ctx context.Context, dirs, files map[string]string) error {
	if c.cfg.Volume == nil {
		return fmt.Errorf("%w: no durable volume configured", ErrVolume)
	}
	if err := c.cfg.Volume.UploadBatch(ctx, dirs, files); err != nil {
		return fmt.Errorf("%w: upload: %v", ErrVolume, err)
	}
	return nil
}

// Commit is the explicit durability barrier: it publishes the staging
// directory's current contents to the durable volume. A no-op when no
// volume is configured.
func (c *Controller) Commit(ctx context.Context) error {
	if c.cfg.Volume == nil {
		return nil
	}
	if err := c.cfg.Volume.Push(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrVolume, err)
	}
	return nil
}

// Reload is the explicit visibility barrier: it replaces the staging
// directory's contents with the volume's current state, discarding
// uncommitted local changes. A no-op when no volume is configured.
func (c *Controller) Reload(ctx context.Context) error {
	if c.cfg.Volume == nil {
		return nil
	}
	if err := c.cfg.Volume.Pull(ctx); err != nil {
		return fmt.Errorf("%w: reload: %v", ErrVolume, err)
	}
	return nil
}

// resolveRuntime returns the directly supplied provisioner, or performs
// the deferred lookup by name exactly once, on first need.
func (c *Controller) resolveRuntime(ctx context.Context) (runtime.Provisioner, error) {
	c.resolveOnce.Do(func() {
		if c.cfg.Runtime != nil {
			c.resolved = c.cfg.Runtime
			return
		}
		c.resolved, c.resolveErr = c.cfg.RuntimeLookup(ctx, c.cfg.RuntimeName)
		if c.resolveErr == nil && c.resolved == nil {
			c.resolveErr = fmt.Errorf("runtime %q not found", c.cfg.RuntimeName)
		}
	})
	return c.resolved, c.resolveErr
}

// runtimeSpec renders the config into the provisioning spec.
func (c *Controller) runtimeSpec() runtime.Spec {
	spec := runtime.Spec{
		Image:     c.cfg.Image,
		Command:   c.cfg.DriverCommand,
		Resources: c.cfg.Resources,
		Security:  c.cfg.Profile.Security(),
	}
	if c.cfg.WallClockTimeout > 0 {
		spec.Timeout = c.cfg.WallClockTimeout
	}
	for _, k := range sortedKeys(c.cfg.Secrets) {
		spec.Env = append(spec.Env, k+"="+c.cfg.Secrets[k])
	}
	if c.cfg.Volume != nil {
		spec.WorkingDir = c.cfg.WorkspaceDir
		spec.Mounts = []runtime.Mount{{
			HostPath:    c.cfg.Volume.StagePath(),
			RuntimePath: c.cfg.WorkspaceDir,
		}}
	}
	labels := make(map[string]string, len(c.cfg.Labels)+1)
	for k, v := range c.cfg.Labels {
		labels[k] = v
	}
	labels["session.id"] = c.id
	spec.Labels = labels
	return spec
}

func (c *Controller) callTool(ctx context.Context, name string, args []any) (any, error) {
	if c.cfg.Tools == nil {
		return nil, errors.New("no tool provider configured")
	}
	result, err := c.cfg.Tools.Call(ctx, name, args)
	if err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		return nil, err
	}
	return result, nil
}

// streamError classifies a stream failure: after teardown it is a
// lifecycle condition (the watchdog or a concurrent Shutdown closed the
// streams), otherwise a protocol failure.
func (c *Controller) streamError(op string, err error) error {
	if c.state.Load() == stateShutdown {
		return fmt.Errorf("%w: session torn down during %s: %v", ErrLifecycle, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrProtocol, op, err)
}

func (c *Controller) expire(reason string) {
	if c.state.Load() == stateShutdown {
		return
	}
	c.logf("session %s: %s, tearing down", c.id, reason)
	_ = c.Shutdown(context.Background())
}

func (c *Controller) pauseIdle() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
}

func (c *Controller) resumeIdle() {
	if c.idleTimer != nil && c.state.Load() == stateRunning {
		c.idleTimer.Reset(c.cfg.IdleTimeout)
	}
}

// drainStderr forwards driver diagnostics to the logger. It keeps
// reading even without a logger so the driver never blocks on a full
// stderr pipe.
func (c *Controller) drainStderr(r io.Reader) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		c.logf("session %s driver: %s", c.id, s.Text())
	}
}

func (c *Controller) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Logf(format, args...)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
