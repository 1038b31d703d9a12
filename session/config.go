package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/codesession/runtime"
	"github.com/jonwraymond/codesession/tool"
	"github.com/jonwraymond/codesession/volume"
)

// Defaults for controller configuration.
const (
	// DefaultWorkspaceDir is where the durable-volume staging directory
	// appears inside the runtime.
	DefaultWorkspaceDir = "/workspace"

	// DefaultWallClockTimeout bounds the whole session.
	DefaultWallClockTimeout = 30 * time.Minute

	// DefaultIdleTimeout bounds the gap between Execute calls.
	DefaultIdleTimeout = 5 * time.Minute
)

// Config holds the configuration for a Controller.
type Config struct {
	// Runtime provisions the isolated runtime directly.
	// Either Runtime or RuntimeLookup is required.
	Runtime runtime.Provisioner

	// RuntimeLookup resolves a provisioner by name on first need,
	// never at construction. Used when Runtime is nil.
	RuntimeLookup func(ctx context.Context, name string) (runtime.Provisioner, error)

	// RuntimeName is the name passed to RuntimeLookup.
	// Required when RuntimeLookup is set.
	RuntimeName string

	// Image is the runtime image reference. Container providers require
	// it; host-process providers ignore it.
	Image string

	// DriverCommand launches the driver inside the runtime.
	DriverCommand []string

	// Profile selects the security posture of the runtime.
	// Zero value applies the standard profile.
	Profile runtime.Profile

	// Resources defines the runtime's resource limits.
	Resources runtime.ResourceSpec

	// Volume is the optional durable-volume binding. Its staging
	// directory is mounted at WorkspaceDir. Volume operations without a
	// binding fail with ErrVolume; Commit and Reload become no-ops.
	Volume *volume.Binding

	// WorkspaceDir is the mount point of the staging directory inside
	// the runtime. Host-process providers cannot remap paths, so with
	// those it must equal the staging directory itself. Defaults to
	// DefaultWorkspaceDir.
	WorkspaceDir string

	// Secrets are credentials injected into the runtime's environment,
	// rendered as KEY=value in sorted key order.
	Secrets map[string]string

	// Tools answers the fragments' brokered tool calls. A tool_call
	// with no provider configured, or naming an unknown tool, is
	// answered with a tool error.
	Tools tool.Provider

	// WallClockTimeout bounds the whole session; on expiry the runtime
	// is torn down unconditionally, discarding uncommitted state. Zero
	// applies DefaultWallClockTimeout; negative disables the bound.
	WallClockTimeout time.Duration

	// IdleTimeout bounds the gap between Execute calls. Zero applies
	// DefaultIdleTimeout; negative disables the bound.
	IdleTimeout time.Duration

	// Labels tag the provisioned runtime, merged with the generated
	// session identity label.
	Labels map[string]string

	// Logger is an optional logger for observability.
	Logger Logger
}

// Validate checks that all required fields are set.
// Returns ErrConfiguration if any required field is missing.
func (c *Config) Validate() error {
	var missing []string

	if c.Runtime == nil && c.RuntimeLookup == nil {
		missing = append(missing, "Runtime")
	}
	if c.Runtime == nil && c.RuntimeLookup != nil && c.RuntimeName == "" {
		missing = append(missing, "RuntimeName")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s",
			ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// applyDefaults sets default values for optional fields.
func (c *Config) applyDefaults() {
	if c.WorkspaceDir == "" {
		c.WorkspaceDir = DefaultWorkspaceDir
	}
	if c.WallClockTimeout == 0 {
		c.WallClockTimeout = DefaultWallClockTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
}
