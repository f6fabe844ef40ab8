package crf

import "github.com/pkg/errors"

// Emissions holds unary scores with shape (batch, seqLen, T+2).
// Columns for START and STOP must be finite but are never read at positions
// where they would matter.
type Emissions [][][]float64

// Mask marks real tokens with shape (batch, seqLen). Every row must be a
// non-empty prefix of true values followed only by false.
type Mask [][]bool

// Tags holds tag ids with shape (batch, seqLen).
type Tags [][]int

// Shape returns (batch, seqLen, tags) of the emissions. An empty batch
// reports zeros.
func (e Emissions) Shape() (batch, seqLen, tags int) {
	if len(e) == 0 {
		return 0, 0, 0
	}
	batch, seqLen = len(e), len(e[0])
	if seqLen > 0 {
		tags = len(e[0][0])
	}
	return batch, seqLen, tags
}

// FullMask returns a mask with every position of every sequence marked valid.
func FullMask(batch, seqLen int) Mask {
	m := make(Mask, batch)
	for b := range batch {
		m[b] = make([]bool, seqLen)
		for t := range seqLen {
			m[b][t] = true
		}
	}
	return m
}

// MaskFromLengths builds a left-aligned mask of width seqLen.
func MaskFromLengths(lengths []int, seqLen int) Mask {
	m := make(Mask, len(lengths))
	for b, n := range lengths {
		m[b] = make([]bool, seqLen)
		for t := 0; t < n && t < seqLen; t++ {
			m[b][t] = true
		}
	}
	return m
}

// Lengths returns the number of valid positions of each sequence.
func (m Mask) Lengths() []int {
	lengths := make([]int, len(m))
	for b, row := range m {
		for _, v := range row {
			if v {
				lengths[b]++
			}
		}
	}
	return lengths
}

// checkInputs validates emissions and mask against a tag space of size
// `size` and returns the per-sequence lengths.
func checkInputs(em Emissions, mask Mask, size int) ([]int, error) {
	batch, seqLen, _ := em.Shape()
	if batch == 0 || seqLen == 0 {
		return nil, errors.Wrapf(ErrEmptyBatch, "emissions shape (%d, %d)", batch, seqLen)
	}
	for b := range batch {
		if len(em[b]) != seqLen {
			return nil, errors.Wrapf(ErrShapeMismatch, "emissions[%d] has %d steps, want %d", b, len(em[b]), seqLen)
		}
		for t := range seqLen {
			if len(em[b][t]) != size {
				return nil, errors.Wrapf(ErrShapeMismatch, "emissions[%d][%d] has %d tags, want %d", b, t, len(em[b][t]), size)
			}
		}
	}

	return checkMask(mask, batch, seqLen)
}

// checkMask validates the mask shape and the left-aligned prefix rule, and
// returns the per-sequence lengths.
func checkMask(mask Mask, batch, seqLen int) ([]int, error) {
	if len(mask) != batch {
		return nil, errors.Wrapf(ErrShapeMismatch, "mask batch %d, want %d", len(mask), batch)
	}
	lengths := make([]int, batch)
	for b, row := range mask {
		if len(row) != seqLen {
			return nil, errors.Wrapf(ErrShapeMismatch, "mask[%d] has %d steps, want %d", b, len(row), seqLen)
		}
		n := 0
		for n < len(row) && row[n] {
			n++
		}
		for t := n; t < len(row); t++ {
			if row[t] {
				return nil, errors.Wrapf(ErrInvalidMask, "mask[%d] has a valid position %d after padding at %d", b, t, n)
			}
		}
		if n == 0 {
			return nil, errors.Wrapf(ErrInvalidMask, "mask[%d] has no valid positions", b)
		}
		lengths[b] = n
	}
	return lengths, nil
}

// checkTags validates gold tags: same shape as the mask, real tag ids on
// every valid position. Padding values are ignored.
func checkTags(tags Tags, mask Mask, numTags int) error {
	if len(tags) != len(mask) {
		return errors.Wrapf(ErrShapeMismatch, "tags batch %d, mask batch %d", len(tags), len(mask))
	}
	for b := range tags {
		if len(tags[b]) != len(mask[b]) {
			return errors.Wrapf(ErrShapeMismatch, "tags[%d] has %d steps, want %d", b, len(tags[b]), len(mask[b]))
		}
		for t, y := range tags[b] {
			if mask[b][t] && (y < 0 || y >= numTags) {
				return errors.Wrapf(ErrInvalidTag, "tags[%d][%d] = %d, want 0..%d", b, t, y, numTags-1)
			}
		}
	}
	return nil
}

// newMatrix allocates a zeroed (rows, cols) matrix.
func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range rows {
		m[i] = make([]float64, cols)
	}
	return m
}

func newIntMatrix(rows, cols int) [][]int {
	m := make([][]int, rows)
	for i := range rows {
		m[i] = make([]int, cols)
	}
	return m
}
