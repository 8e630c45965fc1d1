package reqlog

import (
	"context"

	"github.com/rs/zerolog"
)

// Dump logs v at debug level as masked JSON under the "dump" field. Unlike
// payloads of request records it is never truncated. Maps, slices, structs
// and pointers are walked recursively; repeated references print as
// "[Circular]".
func (l *Logger) Dump(ctx context.Context, label string, v any) {
	e := l.event(zerolog.DebugLevel)
	if e == nil {
		return
	}
	defer l.root.release()

	fields := l.lineFields(ctx, nil)
	delete(fields, "dump")
	e = e.Fields(fields)

	var out string
	if v == nil {
		out = "<nil>"
	} else if masked, err := newWalker(l.root.sanitizer.SensitiveFields, l.root.sanitizer.MaskPattern).walk(v); err != nil {
		out = unserializableMarker
	} else {
		out = masked.String()
	}

	e.Str("dump", out).Msg(label)
}
