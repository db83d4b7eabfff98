package session

// LabelKind tags the shape of a RawLabel.
type LabelKind int

const (
	KindScalar LabelKind = iota
	KindSubLabels
)

// RawLabel is an unresolved label: either one value or the sub-labels of
// the windows/rows a session was built from.
type RawLabel struct {
	kind   LabelKind
	scalar int
	values []int
}

// Scalar wraps a single 0/1 label.
func Scalar(v int) RawLabel {
	return RawLabel{kind: KindScalar, scalar: v}
}

// SubLabels wraps the per-window or per-row labels a session was built from.
func SubLabels(values []int) RawLabel {
	return RawLabel{kind: KindSubLabels, values: values}
}

// Kind reports whether the label is a scalar or a collection.
func (l RawLabel) Kind() LabelKind {
	return l.kind
}

// Resolve aggregates a RawLabel to 0 or 1. A collection is anomalous when
// the sum of its sub-labels is greater than zero.
func Resolve(l RawLabel) int {
	switch l.kind {
	case KindSubLabels:
		sum := 0
		for _, v := range l.values {
			sum += v
		}
		if sum > 0 {
			return 1
		}
		return 0
	default:
		if l.scalar != 0 {
			return 1
		}
		return 0
	}
}

// LabelSource looks up the raw label for a session key.
type LabelSource interface {
	Lookup(key string) (RawLabel, bool)
}

// MapLabels is a LabelSource backed by a map.
type MapLabels map[string]RawLabel

// Lookup implements LabelSource.
func (m MapLabels) Lookup(key string) (RawLabel, bool) {
	l, ok := m[key]
	return l, ok
}

// ScalarLabels converts a key -> 0/1 table into a LabelSource.
func ScalarLabels(table map[string]int) MapLabels {
	m := make(MapLabels, len(table))
	for k, v := range table {
		m[k] = Scalar(v)
	}
	return m
}

// ResolveKey looks up and resolves the label for key.
func ResolveKey(src LabelSource, key string) (int, error) {
	raw, ok := src.Lookup(key)
	if !ok {
		return 0, &LabelLookupError{Key: key}
	}
	return Resolve(raw), nil
}
