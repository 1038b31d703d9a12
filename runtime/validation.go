package runtime

import (
	"errors"
	"fmt"
)

// Validate checks the Spec for errors before provisioning.
func (s Spec) Validate() error {
	if err := s.Security.Validate(); err != nil {
		return fmt.Errorf("security: %w", err)
	}
	if err := s.Resources.Validate(); err != nil {
		return fmt.Errorf("resources: %w", err)
	}
	for i, m := range s.Mounts {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("mount %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks SecuritySpec for policy violations.
func (s SecuritySpec) Validate() error {
	if s.Privileged {
		return ErrSecurityViolation
	}
	if s.NetworkMode == "host" {
		return fmt.Errorf("%w: host network not allowed", ErrSecurityViolation)
	}
	return nil
}

// Validate checks ResourceSpec for invalid values.
func (r ResourceSpec) Validate() error {
	if r.MemoryBytes < 0 {
		return errors.New("memory cannot be negative")
	}
	if r.CPUQuotaMillis < 0 {
		return errors.New("cpu quota cannot be negative")
	}
	if r.PidsLimit < 0 {
		return errors.New("pids limit cannot be negative")
	}
	return nil
}

// Validate checks that both mount paths are set.
func (m Mount) Validate() error {
	if m.HostPath == "" {
		return errors.New("host path is required")
	}
	if m.RuntimePath == "" {
		return errors.New("runtime path is required")
	}
	return nil
}
