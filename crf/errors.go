package crf

import "github.com/pkg/errors"

// Precondition errors. Every public operation validates its inputs before
// computing anything and wraps one of these with the offending shape.
var (
	ErrShapeMismatch = errors.New("crf: shape mismatch")
	ErrInvalidMask   = errors.New("crf: invalid mask")
	ErrInvalidTag    = errors.New("crf: invalid tag")
	ErrEmptyBatch    = errors.New("crf: empty batch")
)
