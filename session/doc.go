// Package session provides the host-side controller for governed,
// stateful code-execution sessions.
//
// A [Controller] owns exactly one session: it provisions an isolated
// runtime through a [runtime.Provisioner], launches the driver process
// inside it, speaks the line-delimited wire protocol over the driver's
// standard streams, and tears everything down on shutdown or timeout.
// Fragments executed within one session share a persistent namespace;
// nothing survives the session except explicitly committed
// durable-volume writes.
//
// # Lifecycle
//
// A Controller moves through unstarted, running, and shut down, in that
// order and at most once. [Controller.Start] provisions;
// [Controller.Shutdown] is idempotent and unconditional. [Run] acquires
// a session as a scoped resource, guaranteeing teardown on every exit
// path:
//
//	err := session.Run(ctx, cfg, func(ctx context.Context, c *session.Controller) error {
//		res, err := c.Execute(ctx, protocol.Command{
//			Code:        "submit(2 + 3)",
//			OutputNames: []string{"sum"},
//		})
//		if err != nil {
//			return err
//		}
//		fmt.Println(res.Values["sum"])
//		return nil
//	})
//
// # Executing Commands
//
// [Controller.Execute] sends one Command and blocks until its terminal
// response, answering brokered tool calls along the way from the
// configured [tool.Provider]. The protocol is single-flight: concurrent
// Execute calls serialize, and within one Command tool calls strictly
// alternate with replies. Every brokered call is recorded in the
// Result's [ToolCallRecord] audit trail.
//
// A fragment that raises yields a *[ExecutionError] carrying the
// captured error text; the Result still holds the fragment's stdout and
// tool calls. A fragment brought down by a failing tool yields an error
// wrapping [ErrTool] instead.
//
// # Durable Storage
//
// When a [volume.Binding] is configured, its staging directory is
// mounted into the runtime at the workspace path. Consistency is
// explicit: [Controller.Commit] publishes staged writes,
// [Controller.Reload] refreshes from the store, and shutdown discards
// anything uncommitted. Without a binding, Commit and Reload are
// no-ops and [Controller.UploadToDurableStorage] fails with [ErrVolume].
//
// # Watchdogs
//
// Two lifecycle-level timeouts guard every session: a wall-clock bound
// on the whole session and an idle bound on the gap between Execute
// calls. On expiry the runtime is torn down unconditionally; an
// in-flight Execute then fails with an error wrapping [ErrLifecycle].
package session
