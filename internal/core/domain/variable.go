package domain

import "fmt"

// Variable name constraints.
const (
	MaxVariableNameLength = 128
)

// Variable describes a named byte range inside a service file.
//
// The interval [Offset, Offset+Length) must not overlap any other variable
// registered in the same file, and must lie inside the file's total size.
type Variable struct {
	// Name is the unique key of the variable within its service file.
	Name string `json:"name"`

	// Offset is the byte offset of the variable in the file.
	Offset uint64 `json:"offset"`

	// Length is the variable size in bytes.
	Length uint64 `json:"length"`

	// TypeID is a small application-defined type tag.
	TypeID uint32 `json:"type_id"`

	// Persistent marks variables that survive client disconnections.
	Persistent bool `json:"persistent"`
}

// NewVariable creates variable metadata with the persistence flag unset.
func NewVariable(name string, offset, length uint64, typeID uint32) Variable {
	return Variable{
		Name:   name,
		Offset: offset,
		Length: length,
		TypeID: typeID,
	}
}

// End returns the exclusive end offset of the variable's interval.
func (v Variable) End() uint64 {
	return v.Offset + v.Length
}

// Overlaps reports whether two variables' byte intervals intersect.
func (v Variable) Overlaps(other Variable) bool {
	return v.Offset < other.End() && other.Offset < v.End()
}

// OverlapsRange reports whether the variable intersects the half-open
// interval [start, end).
func (v Variable) OverlapsRange(start, end uint64) bool {
	return start < v.End() && v.Offset < end
}

// Validate checks structural validity of the metadata itself. Capacity
// checks against a concrete file size happen at registration time.
func (v Variable) Validate() error {
	if v.Name == "" {
		return ErrInvalidRange.WithDetails("variable name is empty")
	}
	if len(v.Name) > MaxVariableNameLength {
		return ErrInvalidRange.WithDetails(fmt.Sprintf("variable name exceeds %d bytes", MaxVariableNameLength))
	}
	if v.Length == 0 {
		return ErrInvalidRange.WithDetails("variable length is zero")
	}
	if v.Offset+v.Length < v.Offset {
		return ErrInvalidRange.WithDetails("variable interval overflows uint64")
	}
	return nil
}
