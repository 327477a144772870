package embedding

import "errors"

var (
	// ErrDimensionMismatch is returned when operand vectors differ in
	// dimension, a vector has no elements, or a change index falls outside
	// the base vector.
	ErrDimensionMismatch = errors.New("embedding: dimension mismatch")
	// ErrTypeMismatch is returned when operands have different element types.
	ErrTypeMismatch = errors.New("embedding: element type mismatch")
	// ErrUnsupportedType is returned for an unknown DType.
	ErrUnsupportedType = errors.New("embedding: unsupported element type")
	// ErrInvalidVector is returned when a Vector's data length does not
	// match Dim * DType.Size().
	ErrInvalidVector = errors.New("embedding: invalid vector")
	// ErrTruncatedInput is returned when an encoded delta is shorter than
	// its header declares.
	ErrTruncatedInput = errors.New("embedding: truncated delta")
	// ErrTrailingData is returned when an encoded delta is longer than its
	// header declares.
	ErrTrailingData = errors.New("embedding: trailing data after delta")
	// ErrEncode is returned when a delta cannot be represented in the wire
	// format.
	ErrEncode = errors.New("embedding: delta encode")
)
