package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/codesession/protocol"
)

func TestRunScopesSession(t *testing.T) {
	prov := &mockProvisioner{drive: finalDriver(map[string]any{"sum": 5})}

	var ran bool
	err := Run(context.Background(), Config{Runtime: prov}, func(ctx context.Context, c *Controller) error {
		ran = true
		res, err := c.Execute(ctx, protocol.Command{Code: "submit(2+3)", OutputNames: []string{"sum"}})
		if err != nil {
			return err
		}
		if res.Values["sum"] != float64(5) {
			t.Errorf("Values[sum] = %v, want 5", res.Values["sum"])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !ran {
		t.Fatal("fn never ran")
	}
	if !prov.lastInstance().terminated.Load() {
		t.Error("instance not terminated after Run")
	}
}

func TestRunPropagatesFnError(t *testing.T) {
	prov := &mockProvisioner{drive: finalDriver(nil)}
	boom := errors.New("analysis failed")

	err := Run(context.Background(), Config{Runtime: prov}, func(context.Context, *Controller) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if !prov.lastInstance().terminated.Load() {
		t.Error("instance not terminated after fn error")
	}
}

func TestRunShutsDownOnPanic(t *testing.T) {
	prov := &mockProvisioner{drive: finalDriver(nil)}

	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("recover() = %v, want boom", r)
		}
		if !prov.lastInstance().terminated.Load() {
			t.Error("instance not terminated after panic")
		}
	}()
	_ = Run(context.Background(), Config{Runtime: prov}, func(context.Context, *Controller) error {
		panic("boom")
	})
}

func TestRunReportsTeardownFailure(t *testing.T) {
	prov := &mockProvisioner{
		drive:   finalDriver(nil),
		termErr: errors.New("kill failed"),
	}

	err := Run(context.Background(), Config{Runtime: prov}, func(context.Context, *Controller) error {
		return nil
	})
	if !errors.Is(err, ErrLifecycle) {
		t.Fatalf("Run() error = %v, want ErrLifecycle", err)
	}
	if !strings.Contains(err.Error(), "kill failed") {
		t.Errorf("Run() error = %v, want teardown cause", err)
	}
}

func TestRunFnErrorWinsOverTeardownFailure(t *testing.T) {
	prov := &mockProvisioner{
		drive:   finalDriver(nil),
		termErr: errors.New("kill failed"),
	}
	boom := errors.New("analysis failed")

	err := Run(context.Background(), Config{Runtime: prov}, func(context.Context, *Controller) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want fn error", err)
	}
}

func TestRunStartFailure(t *testing.T) {
	prov := &mockProvisioner{err: errors.New("no capacity")}

	var ran bool
	err := Run(context.Background(), Config{Runtime: prov}, func(context.Context, *Controller) error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrLifecycle) {
		t.Fatalf("Run() error = %v, want ErrLifecycle", err)
	}
	if ran {
		t.Error("fn ran despite failed start")
	}
}

func TestRunConfigFailure(t *testing.T) {
	var ran bool
	err := Run(context.Background(), Config{}, func(context.Context, *Controller) error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Run() error = %v, want ErrConfiguration", err)
	}
	if ran {
		t.Error("fn ran despite invalid config")
	}
}
