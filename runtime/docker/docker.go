// Package docker provisions isolated runtimes as containers via the
// docker command-line client. Each instance is one `docker run --rm -i`
// invocation: the client process's standard streams carry the wire
// protocol, and the container is addressed by a generated name so it
// can be killed even if the client process wedges.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/codesession/runtime"
)

// Defaults for provisioner configuration.
const (
	// DefaultDockerPath is the client binary resolved from PATH.
	DefaultDockerPath = "docker"

	// DefaultNamePrefix prefixes generated container names.
	DefaultNamePrefix = "session"

	// DefaultGracePeriod is how long Terminate waits for the container
	// to exit on end-of-stream before killing it.
	DefaultGracePeriod = 5 * time.Second
)

// Options configures a Provisioner.
type Options struct {
	// DockerPath overrides DefaultDockerPath.
	DockerPath string

	// NamePrefix overrides DefaultNamePrefix.
	NamePrefix string

	// GracePeriod overrides DefaultGracePeriod.
	GracePeriod time.Duration
}

// Provisioner launches driver containers through the docker client.
type Provisioner struct {
	dockerPath string
	prefix     string
	grace      time.Duration
}

var _ runtime.Provisioner = (*Provisioner)(nil)

// New creates a docker Provisioner.
func New(opts Options) *Provisioner {
	p := &Provisioner{
		dockerPath: opts.DockerPath,
		prefix:     opts.NamePrefix,
		grace:      opts.GracePeriod,
	}
	if p.dockerPath == "" {
		p.dockerPath = DefaultDockerPath
	}
	if p.prefix == "" {
		p.prefix = DefaultNamePrefix
	}
	if p.grace <= 0 {
		p.grace = DefaultGracePeriod
	}
	return p
}

// Provision starts a container for spec and attaches to its streams.
// The container outlives ctx; only validation and startup honor it.
func (p *Provisioner) Provision(ctx context.Context, spec runtime.Spec) (runtime.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Image == "" {
		return nil, fmt.Errorf("%w: image is required", runtime.ErrProvisionFailed)
	}

	name := p.prefix + "-" + uuid.NewString()
	cmd := exec.Command(p.dockerPath, buildArgs(name, spec)...)

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
		return nil, fmt.Errorf("%w: start %s: %v", runtime.ErrProvisionFailed, p.dockerPath, err)
	}
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	inst := &instance{
		dockerPath: p.dockerPath,
		name:       name,
		cmd:        cmd,
		stdin:      stdinW,
		stdout:     stdoutR,
		stderr:     stderrR,
		grace:      p.grace,
		done:       make(chan struct{}),
	}
	go func() {
		inst.waitErr = cmd.Wait()
		close(inst.done)
	}()
	return inst, nil
}

// buildArgs renders the container invocation for spec. Labels are
// emitted in sorted order so invocations are deterministic.
func buildArgs(name string, spec runtime.Spec) []string {
	args := []string{"run", "--rm", "-i", "--name", name}
	if spec.WorkingDir != "" {
		args = append(args, "-w", spec.WorkingDir)
	}
	for _, m := range spec.Mounts {
		bind := m.HostPath + ":" + m.RuntimePath
		if m.ReadOnly {
			bind += ":ro"
		}
		args = append(args, "-v", bind)
	}
	for _, kv := range spec.Env {
		args = append(args, "-e", kv)
	}
	if spec.Resources.MemoryBytes > 0 {
		args = append(args, "--memory", strconv.FormatInt(spec.Resources.MemoryBytes, 10))
	}
	if spec.Resources.CPUQuotaMillis > 0 {
		args = append(args, "--cpus", formatCPUs(spec.Resources.CPUQuotaMillis))
	}
	if spec.Resources.PidsLimit > 0 {
		args = append(args, "--pids-limit", strconv.FormatInt(spec.Resources.PidsLimit, 10))
	}
	if spec.Security.ReadOnlyRootfs {
		args = append(args, "--read-only")
	}
	if spec.Security.NetworkMode != "" {
		args = append(args, "--network", spec.Security.NetworkMode)
	}
	if spec.Security.User != "" {
		args = append(args, "--user", spec.Security.User)
	}
	keys := make([]string, 0, len(spec.Labels))
	for k := range spec.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", k+"="+spec.Labels[k])
	}
	args = append(args, spec.Image)
	args = append(args, spec.Command...)
	return args
}

// formatCPUs renders milli-CPUs the way the --cpus flag expects,
// e.g. 1500 -> "1.5".
func formatCPUs(millis int64) string {
	return strconv.FormatFloat(float64(millis)/1000, 'f', -1, 64)
}

type instance struct {
	dockerPath string
	name       string
	cmd        *exec.Cmd
	stdin      *os.File
	stdout     *os.File
	stderr     *os.File
	grace      time.Duration

	done     chan struct{}
	waitErr  error
	termOnce sync.Once
}

func (i *instance) Stdin() io.Writer  { return i.stdin }
func (i *instance) Stdout() io.Reader { return i.stdout }
func (i *instance) Stderr() io.Reader { return i.stderr }

// Terminate closes the driver's input so the container can exit on
// end-of-stream, then kills the container by name and reaps the client
// process. The kill is issued even when the client already exited; a
// gone container makes it a no-op.
func (i *instance) Terminate(ctx context.Context) error {
	i.termOnce.Do(func() {
		_ = i.stdin.Close()
		select {
		case <-i.done:
		case <-time.After(i.grace):
		case <-ctx.Done():
		}
		kill := exec.Command(i.dockerPath, "kill", i.name)
		_ = kill.Run()
		_ = i.cmd.Process.Kill()
		<-i.done
		_ = i.stdout.Close()
		_ = i.stderr.Close()
	})
	return nil
}

// Wait blocks until the client process exits.
func (i *instance) Wait() error {
	<-i.done
	return i.waitErr
}
