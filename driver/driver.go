package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonwraymond/codesession/protocol"
	"github.com/jonwraymond/codesession/quota"
)

// ErrConfiguration is returned when the driver is constructed with
// missing required fields.
var ErrConfiguration = errors.New("invalid driver configuration")

// Config holds the configuration for a Driver.
type Config struct {
	// Engine interprets program fragments.
	// Required.
	Engine Engine

	// In carries Commands and tool replies from the host.
	// Required.
	In io.Reader

	// Out carries Responses to the host.
	// Required.
	Out io.Writer

	// Governor condenses oversized fragment output before it is
	// embedded in a Response. If nil, output is returned verbatim.
	Governor *quota.Governor

	// Logger is an optional logger for observability.
	Logger Logger
}

// Validate checks that all required fields are set.
// Returns ErrConfiguration if any required field is missing.
func (c *Config) Validate() error {
	var missing []string

	if c.Engine == nil {
		missing = append(missing, "Engine")
	}
	if c.In == nil {
		missing = append(missing, "In")
	}
	if c.Out == nil {
		missing = append(missing, "Out")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s",
			ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// Driver runs the Command loop for one session.
type Driver struct {
	engine   Engine
	reader   *protocol.Reader
	writer   *protocol.Writer
	governor *quota.Governor
	logger   Logger
}

// New creates a Driver from cfg.
func New(cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		engine:   cfg.Engine,
		reader:   protocol.NewReader(cfg.In),
		writer:   protocol.NewWriter(cfg.Out),
		governor: cfg.Governor,
		logger:   cfg.Logger,
	}, nil
}

// Run reads Commands until the input stream ends, executing each one
// and writing exactly one terminal Response per Command. End-of-stream
// is an orderly shutdown and returns nil. A malformed or out-of-order
// message terminates the loop with the decode error; nothing further is
// read from the stream.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmd, err := d.reader.ReadCommand()
		if errors.Is(err, io.EOF) {
			d.logf("input stream closed, shutting down")
			return nil
		}
		if err != nil {
			return err
		}

		if err := d.serve(ctx, cmd); err != nil {
			return err
		}
	}
}

// serve executes one Command and writes its terminal Response.
func (d *Driver) serve(ctx context.Context, cmd protocol.Command) error {
	frag := Fragment{
		Code:        cmd.Code,
		Variables:   cmd.Variables,
		ToolNames:   cmd.ToolNames,
		OutputNames: cmd.OutputNames,
	}

	call := func(name string, args []any) (any, error) {
		if err := d.writer.WriteResponse(protocol.ToolCall(name, args)); err != nil {
			return nil, err
		}
		reply, err := d.reader.ReadReply()
		if err != nil {
			return nil, fmt.Errorf("tool %s: no reply: %w", name, err)
		}
		if reply.ToolError != "" {
			return nil, errors.New(reply.ToolError)
		}
		return reply.ToolResult, nil
	}

	start := time.Now()
	outcome, err := d.engine.Execute(ctx, frag, call)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		return fmt.Errorf("execute fragment: %w", err)
	}

	stdout := outcome.Stdout
	if d.governor != nil {
		stdout = d.governor.CondenseOutput(ctx, stdout)
	}

	resp := protocol.Final(outcome.Values, stdout, duration)
	if outcome.Failed() {
		d.logf("fragment failed: %s", firstLine(outcome.Stderr))
		resp = protocol.Failure(outcome.Stderr, stdout, duration)
	}
	return d.writer.WriteResponse(resp)
}

func (d *Driver) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Logf(format, args...)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
