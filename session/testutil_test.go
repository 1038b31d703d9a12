package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/codesession/protocol"
	"github.com/jonwraymond/codesession/runtime"
)

// driveFunc plays the driver's half of the wire protocol in tests: it
// receives the controller's Commands on in and writes Responses to out.
// Returning closes the instance's output stream.
type driveFunc func(in *protocol.Reader, out io.Writer)

// mockInstance is a runtime.Instance whose driver side is a driveFunc
// running over in-process pipes.
type mockInstance struct {
	stdin      *io.PipeWriter
	stdout     *io.PipeReader
	stderrText string

	done       chan struct{}
	termOnce   sync.Once
	termErr    error
	terminated atomic.Bool
}

var _ runtime.Instance = (*mockInstance)(nil)

func newMockInstance(drive driveFunc, stderrText string) *mockInstance {
	cmdR, cmdW := io.Pipe()
	respR, respW := io.Pipe()
	inst := &mockInstance{
		stdin:      cmdW,
		stdout:     respR,
		stderrText: stderrText,
		done:       make(chan struct{}),
	}
	go func() {
		defer close(inst.done)
		defer respW.Close()
		defer cmdR.Close()
		drive(protocol.NewReader(cmdR), respW)
	}()
	return inst
}

func (m *mockInstance) Stdin() io.Writer  { return m.stdin }
func (m *mockInstance) Stdout() io.Reader { return m.stdout }
func (m *mockInstance) Stderr() io.Reader { return strings.NewReader(m.stderrText) }

func (m *mockInstance) Terminate(context.Context) error {
	m.termOnce.Do(func() {
		m.terminated.Store(true)
		m.stdin.Close()
		// Unblock a drive function stuck writing a Response and a
		// controller stuck reading one.
		m.stdout.CloseWithError(errors.New("instance terminated"))
		<-m.done
	})
	return m.termErr
}

func (m *mockInstance) Wait() error {
	<-m.done
	return nil
}

// silentDriver consumes Commands without ever responding, standing in
// for a wedged fragment.
func silentDriver(in *protocol.Reader, _ io.Writer) {
	for {
		if _, err := in.ReadCommand(); err != nil {
			return
		}
	}
}

// mockProvisioner records provisioning specs and hands out
// mockInstances driven by the configured driveFunc.
type mockProvisioner struct {
	drive      driveFunc
	stderrText string
	err        error
	termErr    error

	mu    sync.Mutex
	specs []runtime.Spec
	insts []*mockInstance
}

var _ runtime.Provisioner = (*mockProvisioner)(nil)

func (p *mockProvisioner) Provision(_ context.Context, spec runtime.Spec) (runtime.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.specs = append(p.specs, spec)
	if p.err != nil {
		return nil, p.err
	}
	drive := p.drive
	if drive == nil {
		drive = silentDriver
	}
	inst := newMockInstance(drive, p.stderrText)
	inst.termErr = p.termErr
	p.insts = append(p.insts, inst)
	return inst, nil
}

func (p *mockProvisioner) lastSpec() runtime.Spec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.specs[len(p.specs)-1]
}

func (p *mockProvisioner) lastInstance() *mockInstance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.insts[len(p.insts)-1]
}

// finalDriver answers every Command with the same successful final.
func finalDriver(values map[string]any) driveFunc {
	return func(in *protocol.Reader, out io.Writer) {
		w := protocol.NewWriter(out)
		for {
			if _, err := in.ReadCommand(); err != nil {
				return
			}
			if err := w.WriteResponse(protocol.Final(values, "", 1)); err != nil {
				return
			}
		}
	}
}

// toolCallDriver answers every Command with one tool_call and folds the
// Reply into the final: an errored reply fails the fragment, a result
// completes it under the "result" output name.
func toolCallDriver(name string, args []any) driveFunc {
	return func(in *protocol.Reader, out io.Writer) {
		w := protocol.NewWriter(out)
		for {
			if _, err := in.ReadCommand(); err != nil {
				return
			}
			if err := w.WriteResponse(protocol.ToolCall(name, args)); err != nil {
				return
			}
			reply, err := in.ReadReply()
			if err != nil {
				return
			}
			resp := protocol.Final(map[string]any{"result": reply.ToolResult}, "", 2)
			if reply.ToolError != "" {
				resp = protocol.Failure("error: "+reply.ToolError, "", 2)
			}
			if err := w.WriteResponse(resp); err != nil {
				return
			}
		}
	}
}

// startController builds and starts a Controller, tearing it down with
// the test.
func startController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c
}
