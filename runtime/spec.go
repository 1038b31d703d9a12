package runtime

import "time"

// ResourceSpec defines runtime resource limits.
type ResourceSpec struct {
	// MemoryBytes is the memory limit in bytes.
	// Zero means unlimited.
	MemoryBytes int64

	// CPUQuotaMillis is the CPU quota in milli-CPUs (1000 = one core).
	// Zero means unlimited.
	CPUQuotaMillis int64

	// PidsLimit is the maximum number of processes.
	// Zero means unlimited.
	PidsLimit int64
}

// SecuritySpec defines runtime security settings.
type SecuritySpec struct {
	// User is the user to run as (e.g., "nobody:nogroup").
	User string

	// ReadOnlyRootfs mounts the root filesystem as read-only. Mounted
	// volumes stay writable.
	ReadOnlyRootfs bool

	// NetworkMode is the network mode: "none", "bridge".
	// "host" is not allowed in sandbox contexts.
	NetworkMode string

	// Privileged grants extended privileges.
	// Must always be false in sandbox contexts.
	Privileged bool
}

// Mount binds a host directory into the runtime.
type Mount struct {
	// HostPath is the directory on the host. Required.
	HostPath string

	// RuntimePath is where the directory appears inside the runtime.
	// Required.
	RuntimePath string

	// ReadOnly mounts the directory read-only.
	ReadOnly bool
}

// Spec describes the isolated runtime to provision.
type Spec struct {
	// Image is the image reference. Required by container providers;
	// ignored by host-process providers.
	Image string

	// Command launches the driver inside the runtime.
	Command []string

	// WorkingDir is the working directory inside the runtime.
	WorkingDir string

	// Env contains environment variables in KEY=value format. Injected
	// credentials ride here.
	Env []string

	// Mounts binds host directories, typically the durable-volume
	// staging directory, into the runtime.
	Mounts []Mount

	// Resources defines resource limits.
	Resources ResourceSpec

	// Security defines security settings.
	Security SecuritySpec

	// Timeout is the wall-clock bound providers may additionally
	// enforce. The controller always enforces it regardless.
	Timeout time.Duration

	// Labels tag the runtime for tracking.
	Labels map[string]string
}

// Profile names a preset security posture.
type Profile string

// Security profiles, from most permissive to most restrictive.
const (
	// ProfileDev allows network egress and a writable root filesystem.
	ProfileDev Profile = "dev"

	// ProfileStandard keeps the root filesystem read-only but allows
	// network egress so governed model calls work inside the runtime.
	ProfileStandard Profile = "standard"

	// ProfileHardened additionally disables the network, which also
	// disables governed model calls.
	ProfileHardened Profile = "hardened"
)

// Security returns the security settings the profile stands for.
func (p Profile) Security() SecuritySpec {
	switch p {
	case ProfileDev:
		return SecuritySpec{User: "nobody:nogroup", NetworkMode: "bridge"}
	case ProfileHardened:
		return SecuritySpec{User: "nobody:nogroup", ReadOnlyRootfs: true, NetworkMode: "none"}
	default:
		return SecuritySpec{User: "nobody:nogroup", ReadOnlyRootfs: true, NetworkMode: "bridge"}
	}
}
