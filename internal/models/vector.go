package models

// OptionalVector is an embedding that may be absent. Absence is a valid,
// first-class state (the provider was unavailable or a batch failed), so
// it is modeled like the sql.Null* types rather than a bare nil slice:
// every consumer has to decide what the degraded case means for it.
type OptionalVector struct {
	Values []float32
	Valid  bool
}

// SomeVector wraps a present embedding.
func SomeVector(values []float32) OptionalVector {
	return OptionalVector{Values: values, Valid: true}
}

// Dim returns the vector dimensionality, or 0 when absent.
func (v OptionalVector) Dim() int {
	if !v.Valid {
		return 0
	}
	return len(v.Values)
}
