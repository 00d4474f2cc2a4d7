package enums

import "fmt"

// MutationKind names the cart mutation families that get their own
// serialized network queue.
type MutationKind string

const (
	MutationKindAdd    MutationKind = "add"
	MutationKindRemove MutationKind = "remove"
	MutationKindUpdate MutationKind = "update"
)

var validMutationKinds = []MutationKind{
	MutationKindAdd,
	MutationKindRemove,
	MutationKindUpdate,
}

// String implements fmt.Stringer.
func (m MutationKind) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MutationKind.
func (m MutationKind) IsValid() bool {
	for _, candidate := range validMutationKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMutationKind converts raw input into a MutationKind.
func ParseMutationKind(value string) (MutationKind, error) {
	for _, candidate := range validMutationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid mutation kind %q", value)
}
