package session

import (
	"errors"
	"testing"
)

func TestExecutionErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{
			name:   "single line",
			stderr: "error: attempt to call a nil value",
			want:   "fragment execution failed: error: attempt to call a nil value",
		},
		{
			name:   "traceback trimmed",
			stderr: "error: division by zero\nstack traceback:\n\t[string \"fragment\"]:3",
			want:   "fragment execution failed: error: division by zero",
		},
		{
			name:   "empty",
			stderr: "",
			want:   "fragment execution failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &ExecutionError{Stderr: tt.stderr}
			if got := e.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecutionErrorMatchesSentinel(t *testing.T) {
	var err error = &ExecutionError{Stderr: "error: boom"}
	if !errors.Is(err, ErrExecution) {
		t.Error("errors.Is(ExecutionError, ErrExecution) = false, want true")
	}
	if errors.Is(err, ErrTool) {
		t.Error("errors.Is(ExecutionError, ErrTool) = true, want false")
	}
	if errors.Is(err, ErrProtocol) {
		t.Error("errors.Is(ExecutionError, ErrProtocol) = true, want false")
	}
}
