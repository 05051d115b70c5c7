package filegraph

import "fmt"

// InvariantError marks a programmer error: attempting to store a Builtins
// key, storing a file kind without a name, or traversing provider lists
// outside an exclusive section. These are fatal — by the time one is
// raised, the heap state can no longer be trusted, so callers let it
// propagate as a panic rather than recovering and continuing.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "filegraph: invariant violated: " + e.Msg
}

// invariantViolation panics with an *InvariantError built from format/args.
func invariantViolation(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
