// Package diff computes structured, line-granular differences between
// consecutive note versions. The output is a tagged segment list so it can be
// stored on the version row and rendered by any client.
package diff

import (
	"encoding/json"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Op tags a segment of the edit script.
type Op string

const (
	Unchanged Op = "unchanged"
	Added     Op = "added"
	Removed   Op = "removed"
)

// Segment is one run of consecutive lines sharing the same Op.
type Segment struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

// Compute returns the edit script that turns prev into next, as an ordered
// segment list. Identical inputs yield an empty (non-nil) list. The result is
// deterministic for a given input pair.
func Compute(prev, next string) []Segment {
	if prev == next {
		return []Segment{}
	}

	a := splitLines(prev)
	b := splitLines(next)

	var out []Segment
	for _, oc := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch oc.Tag {
		case 'e':
			out = append(out, Segment{Op: Unchanged, Text: join(a[oc.I1:oc.I2])})
		case 'd':
			out = append(out, Segment{Op: Removed, Text: join(a[oc.I1:oc.I2])})
		case 'i':
			out = append(out, Segment{Op: Added, Text: join(b[oc.J1:oc.J2])})
		case 'r':
			// A replace is a removal followed by an addition.
			out = append(out, Segment{Op: Removed, Text: join(a[oc.I1:oc.I2])})
			out = append(out, Segment{Op: Added, Text: join(b[oc.J1:oc.J2])})
		}
	}
	if out == nil {
		out = []Segment{}
	}
	return out
}

// Marshal computes the diff and encodes it as JSON for storage.
func Marshal(prev, next string) (json.RawMessage, error) {
	return json.Marshal(Compute(prev, next))
}

// splitLines splits on newlines, keeping a trailing empty line out of the
// slice so "a\n" and "a" diff cleanly.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func join(lines []string) string {
	return strings.Join(lines, "\n")
}
