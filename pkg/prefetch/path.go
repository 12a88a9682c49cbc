package prefetch

import (
	"fmt"
	"strings"
)

// Path delimiters. A path uses one of them consistently.
const (
	pathDelimiter    = "__"
	pathDelimiterDot = "."
)

// Target is a resolved attribute path: the object owning the final relation,
// the relation name on it, and the foreign-key id stored there
type Target struct {
	Owner Relations
	Name  string
	ID    int64
}

// SplitPath splits an attribute path on "__" if present, "." otherwise
func SplitPath(path string) []string {
	if strings.Contains(path, pathDelimiter) {
		return strings.Split(path, pathDelimiter)
	}
	return strings.Split(path, pathDelimiterDot)
}

// ResolvePath walks path on rec and returns the foreign key at its end.
//
// Every intermediate segment must have a non-NULL foreign key and a loaded
// related object, otherwise ok is false and nothing further is read.
// Unknown segment names surface as errors from the model.
func ResolvePath(rec Relations, path string) (Target, bool, error) {
	segments := SplitPath(path)
	cur := rec

	for i, segment := range segments[:len(segments)-1] {
		if _, ok, err := cur.ForeignKey(segment); err != nil {
			return Target{}, false, fmt.Errorf("resolve %q: %w", path, err)
		} else if !ok {
			return Target{}, false, nil
		}

		next, err := cur.Related(segment)
		if err != nil {
			return Target{}, false, fmt.Errorf("resolve %q: %w", path, err)
		}
		if next == nil {
			// foreign key set but the object was never loaded
			return Target{}, false, fmt.Errorf("resolve %q: segment %q not loaded", path, strings.Join(segments[:i+1], "."))
		}
		cur = next
	}

	last := segments[len(segments)-1]
	id, ok, err := cur.ForeignKey(last)
	if err != nil {
		return Target{}, false, fmt.Errorf("resolve %q: %w", path, err)
	}
	if !ok {
		return Target{}, false, nil
	}

	return Target{Owner: cur, Name: last, ID: id}, true, nil
}
