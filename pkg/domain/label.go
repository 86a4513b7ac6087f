package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ChainLabel identifies a chain inside an assembly: the operator instance
// that generated it and the label asym id of the source chain.
type ChainLabel struct {
	Instance int    `json:"instance"`
	Asym     string `json:"asym"`
}

// String renders the label as "{instance}.{asym}".
func (l ChainLabel) String() string {
	return strconv.Itoa(l.Instance) + "." + l.Asym
}

// MarshalText implements encoding.TextMarshaler so labels can key JSON maps.
func (l ChainLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ChainLabel) UnmarshalText(b []byte) error {
	parsed, err := ParseChainLabel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Less orders labels by instance number, then asym id.
func (l ChainLabel) Less(o ChainLabel) bool {
	if l.Instance != o.Instance {
		return l.Instance < o.Instance
	}
	if len(l.Asym) != len(o.Asym) {
		return len(l.Asym) < len(o.Asym)
	}
	return l.Asym < o.Asym
}

// ParseChainLabel parses "{instance}.{asym}".
func ParseChainLabel(s string) (ChainLabel, error) {
	inst, asym, ok := strings.Cut(s, ".")
	if !ok || asym == "" {
		return ChainLabel{}, fmt.Errorf("invalid chain label %q", s)
	}
	n, err := strconv.Atoi(inst)
	if err != nil {
		return ChainLabel{}, fmt.Errorf("invalid chain label %q: %w", s, err)
	}
	return ChainLabel{Instance: n, Asym: asym}, nil
}

// SortLabels sorts labels in place and drops duplicates.
func SortLabels(labels []ChainLabel) []ChainLabel {
	sort.Slice(labels, func(i, j int) bool { return labels[i].Less(labels[j]) })
	out := labels[:0]
	for i, l := range labels {
		if i > 0 && l == labels[i-1] {
			continue
		}
		out = append(out, l)
	}
	return out
}

// JoinLabels renders labels with sep.
func JoinLabels(labels []ChainLabel, sep string) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.String()
	}
	return strings.Join(parts, sep)
}
