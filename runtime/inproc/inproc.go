// Package inproc provisions the driver inside the host process. Each
// instance owns a private interpreter and runs the command loop in a
// goroutine, with the instance's stream pair backed by in-memory pipes.
// There is no isolation at all; the provider exists for embedded use
// and for exercising full sessions in tests without subprocesses.
//
// Spec.Image and Spec.Command are ignored: there is nothing to launch.
// Spec.Env is ignored as well; credentials and budgets are injected
// directly through Options instead of the environment. Mounts must use
// identical host and runtime paths, as with the local provider.
package inproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/codesession/driver"
	"github.com/jonwraymond/codesession/driver/luaengine"
	"github.com/jonwraymond/codesession/quota"
	"github.com/jonwraymond/codesession/runtime"
)

// DefaultGracePeriod is how long Terminate waits for the loop to drain
// after its input closes before canceling it.
const DefaultGracePeriod = time.Second

var errTerminated = errors.New("inproc: instance terminated")

// Options configures a Provisioner.
type Options struct {
	// Governor meters the runtime's model helpers and condenses
	// oversized output before it crosses back to the host.
	Governor *quota.Governor

	// Logger receives driver loop events.
	Logger driver.Logger

	// GracePeriod overrides DefaultGracePeriod.
	GracePeriod time.Duration
}

// Provisioner runs driver loops in-process.
type Provisioner struct {
	opts Options
}

var _ runtime.Provisioner = (*Provisioner)(nil)

// New creates an in-process Provisioner.
func New(opts Options) *Provisioner {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	return &Provisioner{opts: opts}
}

// Provision creates an interpreter and starts its command loop.
func (p *Provisioner) Provision(ctx context.Context, spec runtime.Spec) (runtime.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	for _, m := range spec.Mounts {
		if m.HostPath != m.RuntimePath {
			return nil, fmt.Errorf("%w: in-process runtime cannot remap mount %q to %q",
				runtime.ErrProvisionFailed, m.HostPath, m.RuntimePath)
		}
	}

	engine, err := luaengine.New(luaengine.Options{Governor: p.opts.Governor})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrProvisionFailed, err)
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	d, err := driver.New(driver.Config{
		Engine:   engine,
		In:       inR,
		Out:      outW,
		Governor: p.opts.Governor,
		Logger:   p.opts.Logger,
	})
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("%w: %v", runtime.ErrProvisionFailed, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(context.Background(), spec.Timeout)
	}

	inst := &instance{
		stdin:  inW,
		stdout: outR,
		cancel: cancel,
		grace:  p.opts.GracePeriod,
		done:   make(chan struct{}),
	}
	go func() {
		inst.runErr = d.Run(runCtx)
		engine.Close()
		outW.Close()
		inR.Close()
		close(inst.done)
	}()
	return inst, nil
}

type instance struct {
	stdin  *io.PipeWriter
	stdout *io.PipeReader
	cancel context.CancelFunc
	grace  time.Duration

	done     chan struct{}
	runErr   error
	termOnce sync.Once
}

func (i *instance) Stdin() io.Writer  { return i.stdin }
func (i *instance) Stdout() io.Reader { return i.stdout }
func (i *instance) Stderr() io.Reader { return strings.NewReader("") }

// Terminate closes the loop's input so it can drain on end-of-stream,
// then cancels it if it has not exited within the grace period.
func (i *instance) Terminate(ctx context.Context) error {
	i.termOnce.Do(func() {
		_ = i.stdin.Close()
		select {
		case <-i.done:
		case <-time.After(i.grace):
			i.cancel()
			_ = i.stdout.CloseWithError(errTerminated)
			<-i.done
		case <-ctx.Done():
			i.cancel()
			_ = i.stdout.CloseWithError(errTerminated)
			<-i.done
		}
		i.cancel()
	})
	return nil
}

// Wait blocks until the command loop exits and returns its error.
func (i *instance) Wait() error {
	<-i.done
	return i.runErr
}
