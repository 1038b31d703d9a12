package session

import "context"

// Run acquires a session as a scoped resource: it constructs a
// Controller from cfg, starts it, invokes fn, and guarantees Shutdown
// on every exit path, including a panic inside fn. An error or panic
// from fn is never suppressed; a teardown failure is reported only when
// fn itself succeeded.
func Run(ctx context.Context, cfg Config, fn func(ctx context.Context, c *Controller) error) (err error) {
	c, err := New(cfg)
	if err != nil {
		return err
	}
	if err = c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		// Teardown uses a fresh context so a canceled ctx cannot leak
		// the runtime.
		shutErr := c.Shutdown(context.Background())
		if err == nil {
			err = shutErr
		}
	}()
	return fn(ctx, c)
}
