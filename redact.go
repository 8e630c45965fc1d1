package reqlog

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

const redactedMarker = "[Redacted]"

// redactWriter censors configured paths in JSON lines before passing them
// on. Lines that are not JSON objects are written unchanged.
type redactWriter struct {
	out   io.Writer
	paths [][]string
}

func newRedactWriter(out io.Writer, paths []string) io.Writer {
	if len(paths) == 0 {
		return out
	}
	w := &redactWriter{out: out}
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != emptyString {
			w.paths = append(w.paths, strings.Split(p, "."))
		}
	}
	return w
}

func (w *redactWriter) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\n")
	v, err := parseJSON(string(line))
	if err != nil || v.Kind() != KindObject {
		return w.out.Write(p)
	}

	changed := false
	for _, path := range w.paths {
		if censor(v, path) {
			changed = true
		}
	}
	if !changed {
		return w.out.Write(p)
	}

	buf := v.AppendJSON(make([]byte, 0, len(p)))
	buf = append(buf, '\n')
	if _, err := w.out.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// censor replaces the value at path inside v and reports whether anything
// was replaced.
func censor(v *Value, path []string) bool {
	if len(path) == 0 {
		return false
	}
	seg, rest := path[0], path[1:]
	changed := false

	replace := func(cur *Value) *Value {
		if len(rest) == 0 {
			changed = true
			return StringValue(redactedMarker)
		}
		if censor(cur, rest) {
			changed = true
		}
		return cur
	}

	switch v.Kind() {
	case KindObject:
		for i := range v.members {
			if seg == "*" || v.members[i].Key == seg {
				v.members[i].Value = replace(v.members[i].Value)
			}
		}
	case KindArray:
		for i := range v.items {
			if seg == "*" || seg == strconv.Itoa(i) {
				v.items[i] = replace(v.items[i])
			}
		}
	}
	return changed
}
