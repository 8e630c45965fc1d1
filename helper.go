package reqlog

import (
	stderrs "errors"
	"strings"

	smerrors "github.com/Station-Manager/errors"
	"github.com/rs/zerolog"
)

// stackTracer is implemented by errors that carry the stack they were
// created with, such as recovered panics.
type stackTracer interface {
	Stack() string
}

// parseLevel parses a string log level into a zerolog.Level.
// Returns zerolog.NoLevel and an error if parsing fails.
func parseLevel(level string) (zerolog.Level, error) {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, err
	}
	return l, nil
}

// buildErrorChain walks an error's cause chain and returns:
//   - chain: outermost -> innermost error messages
//   - ops: operation identifiers for DetailedError links ("" if not available)
//   - root: the innermost error message
//   - rootOp: the innermost operation identifier if available
//
// The traversal prefers Station-Manager DetailedError.Cause() and then
// falls back to stdlib errors.Unwrap. It guards against excessive depth
// and repeated messages to avoid cycles.
func buildErrorChain(err error) (chain []string, ops []string, root string, rootOp string) {
	const maxDepth = 50
	visited := 0
	seen := map[string]bool{}

	for err != nil && visited < maxDepth {
		visited++

		if dErr, ok := smerrors.AsDetailedError(err); ok && dErr != nil {
			msg := dErr.Error()
			chain = append(chain, msg)
			op := string(dErr.Op())
			ops = append(ops, op)
			// prefer unwrapping via our error type first
			err = dErr.Cause()
			continue
		}

		// Fallback: generic error
		msg := err.Error()
		// avoid infinite loops if messages repeat due to unusual cycles
		if seen[msg] {
			break
		}
		seen[msg] = true
		chain = append(chain, msg)
		ops = append(ops, "")
		// unwrap via stdlib
		err = stderrs.Unwrap(err)
	}

	if len(chain) > 0 {
		root = chain[len(chain)-1]
	}
	if len(ops) > 0 {
		rootOp = ops[len(ops)-1]
	}
	return
}

// joinChain returns a single string for the error chain separated by " -> ".
func joinChain(chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	return strings.Join(chain, " -> ")
}

// Suffixes of the keys written by withErrorChain, the bare key included.
var errorChainSuffixes = []string{"", "_chain", "_root", "_history", "_ops", "_root_op"}

// withErrorChain adds err under key together with its cause chain:
// key_chain, key_root, key_history, key_ops and key_root_op.
func withErrorChain(e *zerolog.Event, key string, err error) *zerolog.Event {
	if e == nil || err == nil {
		return e
	}
	e = e.AnErr(key, err)
	chain, ops, root, rootOp := buildErrorChain(err)
	if len(chain) > 0 {
		e = e.Strs(key+"_chain", chain).
			Str(key+"_root", root).
			Str(key+"_history", joinChain(chain)).
			Strs(key+"_ops", ops)
		if rootOp != "" {
			e = e.Str(key+"_root_op", rootOp)
		}
	}
	return e
}

// errorStack returns the stack carried by err, or its joined cause chain
// when it has none.
func errorStack(err error) string {
	var st stackTracer
	if stderrs.As(err, &st) {
		return st.Stack()
	}
	chain, _, _, _ := buildErrorChain(err)
	return joinChain(chain)
}
