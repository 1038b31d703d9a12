package driver

// Fragment specifies one unit of execution against the persistent
// namespace.
type Fragment struct {
	// Code is the program fragment text.
	Code string

	// Variables are merged into the namespace before Code runs.
	Variables map[string]any

	// ToolNames lists the host-brokered callables the fragment may
	// invoke. The bindings exist only for the duration of this fragment.
	ToolNames []string

	// OutputNames is the ordered list of names positional submissions
	// are matched against.
	OutputNames []string
}

// Outcome is the result of executing a fragment.
type Outcome struct {
	// Values holds the submitted outputs. A nil map means the fragment
	// failed; an empty map is a success with no outputs.
	Values map[string]any

	// Stdout is the text the fragment printed.
	Stdout string

	// Stderr carries the error text of a failed fragment.
	Stderr string
}

// Failed reports whether the outcome represents a failed execution.
func (o Outcome) Failed() bool { return o.Values == nil }

// CallFunc invokes a host-brokered tool by name with positional
// arguments. The engine calls it while a fragment is suspended; the
// returned value is injected at the call site. An error is raised
// inside the fragment as an in-language error.
type CallFunc func(name string, args []any) (any, error)
