// Package local provisions the driver as a plain host subprocess. It
// provides no isolation beyond the process boundary and exists for
// development and trusted single-tenant deployments. Mounts cannot be
// remapped: the runtime sees host paths as they are, so every mount
// must use identical host and runtime paths.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/jonwraymond/codesession/runtime"
)

// DefaultGracePeriod is how long Terminate waits for the driver to exit
// after its input closes before killing the process.
const DefaultGracePeriod = 3 * time.Second

// Options configures a Provisioner.
type Options struct {
	// GracePeriod overrides DefaultGracePeriod.
	GracePeriod time.Duration
}

// Provisioner launches driver subprocesses on the host.
type Provisioner struct {
	grace time.Duration
}

var _ runtime.Provisioner = (*Provisioner)(nil)

// New creates a local Provisioner.
func New(opts Options) *Provisioner {
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Provisioner{grace: grace}
}

// Provision starts spec.Command as a subprocess with pipes attached.
func (p *Provisioner) Provision(ctx context.Context, spec runtime.Spec) (runtime.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("%w: command is required", runtime.ErrProvisionFailed)
	}
	for _, m := range spec.Mounts {
		if m.HostPath != m.RuntimePath {
			return nil, fmt.Errorf("%w: local runtime cannot remap mount %q to %q",
				runtime.ErrProvisionFailed, m.HostPath, m.RuntimePath)
		}
	}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrProvisionFailed, err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrProvisionFailed, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrProvisionFailed, err)
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, fmt.Errorf("%w: start %q: %v", runtime.ErrProvisionFailed, spec.Command[0], err)
	}

	// The child owns its pipe ends now.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	inst := &instance{
		cmd:    cmd,
		stdin:  stdinW,
		stdout: stdoutR,
		stderr: stderrR,
		grace:  p.grace,
		done:   make(chan struct{}),
	}
	go func() {
		inst.waitErr = cmd.Wait()
		close(inst.done)
	}()
	return inst, nil
}

type instance struct {
	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File
	stderr *os.File
	grace  time.Duration

	done     chan struct{}
	waitErr  error
	termOnce sync.Once
}

func (i *instance) Stdin() io.Writer  { return i.stdin }
func (i *instance) Stdout() io.Reader { return i.stdout }
func (i *instance) Stderr() io.Reader { return i.stderr }

// Terminate closes the driver's input, waits one grace period for it
// to exit on end-of-stream, then kills it. Idempotent.
func (i *instance) Terminate(ctx context.Context) error {
	i.termOnce.Do(func() {
		_ = i.stdin.Close()
		select {
		case <-i.done:
		case <-time.After(i.grace):
			_ = i.cmd.Process.Kill()
		case <-ctx.Done():
			_ = i.cmd.Process.Kill()
		}
		<-i.done
		_ = i.stdout.Close()
		_ = i.stderr.Close()
	})
	return nil
}

// Wait blocks until the subprocess exits.
func (i *instance) Wait() error {
	<-i.done
	return i.waitErr
}
