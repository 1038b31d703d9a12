// Package state keeps session-spanning state in durable storage: named
// versioned scripts, a bounded execution history, and character-limited
// memory blocks.
//
// A Manager is built entirely on top of a session: every durable
// operation is a Command whose fragment moves an opaque string in or
// out of the mounted workspace, followed by an explicit commit. Records
// are serialized host-side, so their lifecycle is independent of any
// single session: a later session over the same volume sees whatever
// was committed before.
//
//	m, err := state.New(state.Config{Session: controller})
//	if err != nil {
//		return err
//	}
//	if _, err := m.SaveScript(ctx, "report", code, state.Metadata{Author: "ana"}); err != nil {
//		return err
//	}
//	rec, err := m.RunScript(ctx, "report")
package state
