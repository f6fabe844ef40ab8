package crf

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultSentinel is the score given to forbidden boundary transitions
// (anything into START, anything out of STOP). exp(-1000) underflows to zero
// in float64, so forbidden paths carry no probability mass unless emission
// or transition magnitudes approach 1000.
const DefaultSentinel = -1000.0

// Transitions holds the (T+2)×(T+2) transition scores. Rows index the tag
// being left and columns the tag being entered. START is tag T and STOP is
// tag T+1.
//
// The matrix is the only persistent state of a CRF. It is mutated only
// through Set and Update, normally by an optimizer between calls.
type Transitions struct {
	numTags  int
	sentinel float64
	scores   *mat.Dense
}

// NewTransitions allocates a zero transition matrix for numTags real tags and
// forbids the boundary transitions with sentinel.
func NewTransitions(numTags int, sentinel float64) (*Transitions, error) {
	if numTags < 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "numTags = %d, want at least 1", numTags)
	}
	size := numTags + 2
	tr := &Transitions{
		numTags:  numTags,
		sentinel: sentinel,
		scores:   mat.NewDense(size, size, nil),
	}
	tr.resetBoundary()
	return tr, nil
}

func (tr *Transitions) resetBoundary() {
	start, stop := tr.Start(), tr.Stop()
	for i := range tr.Size() {
		tr.scores.Set(i, start, tr.sentinel)
		tr.scores.Set(stop, i, tr.sentinel)
	}
}

// NumTags returns T, the number of real tags.
func (tr *Transitions) NumTags() int { return tr.numTags }

// Size returns T+2.
func (tr *Transitions) Size() int { return tr.numTags + 2 }

// Start returns the id of the virtual START tag.
func (tr *Transitions) Start() int { return tr.numTags }

// Stop returns the id of the virtual STOP tag.
func (tr *Transitions) Stop() int { return tr.numTags + 1 }

// Sentinel returns the score used for forbidden boundary transitions.
func (tr *Transitions) Sentinel() float64 { return tr.sentinel }

// Score returns the score of moving from tag `from` to tag `to`.
func (tr *Transitions) Score(from, to int) float64 {
	return tr.scores.At(from, to)
}

// Set overwrites the score of moving from tag `from` to tag `to`.
func (tr *Transitions) Set(from, to int, v float64) {
	tr.scores.Set(from, to, v)
}

// Matrix returns a read-only view of the scores.
func (tr *Transitions) Matrix() mat.Matrix {
	return tr.scores
}

// Update applies a gradient step: scores -= rate * grad.
func (tr *Transitions) Update(grad mat.Matrix, rate float64) error {
	r, c := grad.Dims()
	if r != tr.Size() || c != tr.Size() {
		return errors.Wrapf(ErrShapeMismatch, "gradient is %d×%d, want %d×%d", r, c, tr.Size(), tr.Size())
	}
	var step mat.Dense
	step.Scale(rate, grad)
	tr.scores.Sub(tr.scores, &step)
	return nil
}

// Clone returns an independent copy.
func (tr *Transitions) Clone() *Transitions {
	return &Transitions{
		numTags:  tr.numTags,
		sentinel: tr.sentinel,
		scores:   mat.DenseCopyOf(tr.scores),
	}
}

// rows copies the matrix into a [from][to] slice for the hot loops.
func (tr *Transitions) rows() [][]float64 {
	size := tr.Size()
	out := make([][]float64, size)
	for i := range size {
		out[i] = mat.Row(nil, i, tr.scores)
	}
	return out
}

type transitionsJSON struct {
	NumTags  int         `json:"num_tags"`
	Sentinel float64     `json:"sentinel"`
	Scores   [][]float64 `json:"scores"`
}

// MarshalJSON encodes the matrix row by row (row = from tag).
func (tr *Transitions) MarshalJSON() ([]byte, error) {
	return json.Marshal(transitionsJSON{
		NumTags:  tr.numTags,
		Sentinel: tr.sentinel,
		Scores:   tr.rows(),
	})
}

// UnmarshalJSON decodes a matrix written by MarshalJSON.
func (tr *Transitions) UnmarshalJSON(data []byte) error {
	var raw transitionsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.NumTags < 1 {
		return errors.Wrapf(ErrShapeMismatch, "num_tags = %d", raw.NumTags)
	}
	size := raw.NumTags + 2
	if len(raw.Scores) != size {
		return errors.Wrapf(ErrShapeMismatch, "scores has %d rows, want %d", len(raw.Scores), size)
	}
	flat := make([]float64, 0, size*size)
	for i, row := range raw.Scores {
		if len(row) != size {
			return errors.Wrapf(ErrShapeMismatch, "scores[%d] has %d columns, want %d", i, len(row), size)
		}
		flat = append(flat, row...)
	}
	tr.numTags = raw.NumTags
	tr.sentinel = raw.Sentinel
	tr.scores = mat.NewDense(size, size, flat)
	return nil
}
