package harness

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Counters is the demo domain state: named integer counters.
type Counters map[string]int64

// Clone returns an independent copy. A nil Counters clones to an empty one
// so it encodes as {} rather than null.
func (c Counters) Clone() Counters {
	out := make(Counters, len(c))
	maps.Copy(out, c)
	return out
}

// String renders the counters sorted by key, e.g. "{a=1 b=2}".
func (c Counters) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, c[k])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Mutation operations.
const (
	OpAdd   = "add"
	OpSet   = "set"
	OpReset = "reset"
	OpDiv   = "div"
)

// Mutation is one change to the counters.
type Mutation struct {
	Op  string `yaml:"op" json:"op"`
	Key string `yaml:"key,omitempty" json:"key,omitempty"`
	By  int64  `yaml:"by,omitempty" json:"by,omitempty"`
}

func (m Mutation) String() string {
	switch {
	case m.Key == "":
		return m.Op
	case m.Op == OpReset:
		return m.Op + " " + m.Key
	default:
		return fmt.Sprintf("%s %s %d", m.Op, m.Key, m.By)
	}
}

// Reduce applies m to s and returns the new counters; s is not modified.
//
//   - add: key += by
//   - set: key = by
//   - reset: key = 0, or every counter removed when key is empty
//   - div: key /= by; panics on a zero divisor
//
// Unknown operations leave the state unchanged.
func Reduce(s Counters, m Mutation) Counters {
	next := s.Clone()
	switch m.Op {
	case OpAdd:
		next[m.Key] += m.By
	case OpSet:
		next[m.Key] = m.By
	case OpReset:
		if m.Key == "" {
			return Counters{}
		}
		next[m.Key] = 0
	case OpDiv:
		next[m.Key] /= m.By
	}
	return next
}
