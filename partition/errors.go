package partition

import "fmt"

/*
StructuralError is returned when a fitted tree cannot be turned into a
partition of the input space (no root, missing nodes, terminal nodes
without prediction, children that leave gaps or overlap) or when a forest
has no trees. It is always returned at index build time.
*/
type StructuralError struct {
	Reason string
	Err    error
}

func (se *StructuralError) Error() string {
	if se.Err != nil {
		return fmt.Sprintf("structural error: %s: %v", se.Reason, se.Err)
	}
	return fmt.Sprintf("structural error: %s", se.Reason)
}

func (se *StructuralError) Unwrap() error {
	return se.Err
}

func structuralErrorf(format string, a ...interface{}) error {
	return &StructuralError{Reason: fmt.Sprintf(format, a...)}
}
