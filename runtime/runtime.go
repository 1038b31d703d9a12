// Package runtime defines the isolated-runtime provisioning capability
// sessions execute inside. A Provisioner turns a Spec into a running
// Instance hosting one driver process and exposing its byte streams;
// the controller owns the Instance's lifecycle and tears it down
// unconditionally on shutdown or timeout.
//
// Providers under this package tree trade isolation for convenience:
//
//   - local: a plain host subprocess, no isolation (development)
//   - docker: a container with resource limits and a security profile
//   - inproc: the driver loop in-process over pipes (tests, embedding)
package runtime

import (
	"context"
	"errors"
	"io"
)

// Errors for provisioning operations.
var (
	// ErrProvisionFailed is returned when an isolated runtime could not
	// be created or started.
	ErrProvisionFailed = errors.New("runtime provisioning failed")

	// ErrSecurityViolation is returned when a Spec requests settings a
	// sandbox context never allows.
	ErrSecurityViolation = errors.New("security policy violation")
)

// Instance is a running isolated runtime hosting one driver process.
//
// Contract:
// - Concurrency: Stdin and Stdout may be used from different
//   goroutines; individual streams are not otherwise synchronized.
// - Errors: Terminate is idempotent and unconditional; calling it on an
//   already-dead instance returns nil.
// - Ownership: streams stay valid until Terminate returns.
type Instance interface {
	// Stdin is the stream carrying Commands and replies to the driver.
	Stdin() io.Writer

	// Stdout is the stream carrying Responses from the driver.
	Stdout() io.Reader

	// Stderr carries the driver's diagnostic output.
	Stderr() io.Reader

	// Terminate tears the runtime down. It first gives the driver a
	// short grace period to exit on end-of-stream, then kills it.
	Terminate(ctx context.Context) error

	// Wait blocks until the driver process exits and returns its exit
	// error, if any.
	Wait() error
}

// Provisioner creates isolated runtimes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: ctx bounds provisioning only; the returned Instance
//   outlives it.
// - Errors: provisioning failures wrap ErrProvisionFailed; policy
//   violations wrap ErrSecurityViolation.
type Provisioner interface {
	Provision(ctx context.Context, spec Spec) (Instance, error)
}
