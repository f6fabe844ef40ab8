// Package storage reads emission batches and dataset folders for the CRF.
package storage

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/happyhackingspace/chaincrf/crf"
)

// LabelSchema holds the label set of a dataset and its label mappings.
type LabelSchema struct {
	Labels      []string
	NAValue     string            // marks an unannotated position
	SimplifyMap map[string]string // fine label -> coarse label
}

// Simplify maps a label through the schema's simplify map.
func (s *LabelSchema) Simplify(label string) string {
	if s == nil {
		return label
	}
	if simplified, ok := s.SimplifyMap[label]; ok {
		return simplified
	}
	return label
}

// Batch is one (batch, seqLen, T+2) emission tensor with its mask and,
// optionally, gold labels for the valid positions.
type Batch struct {
	Emissions crf.Emissions
	Mask      crf.Mask
	Labels    [][]string
}

// batchJSON is the on-disk form of a batch. The mask may be given as
// booleans or 0/1 numbers, or replaced by per-sequence lengths. With
// neither, every position is valid.
type batchJSON struct {
	Emissions crf.Emissions `json:"emissions"`
	Mask      [][]flag      `json:"mask,omitempty"`
	Lengths   []int         `json:"lengths,omitempty"`
	Labels    [][]string    `json:"labels,omitempty"`
}

type flag bool

func (f flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *flag) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*f = true
	case "false", "0":
		*f = false
	default:
		return fmt.Errorf("invalid mask value %s", data)
	}
	return nil
}

// Size returns the batch size.
func (b *Batch) Size() int {
	return len(b.Emissions)
}

// Labeled reports whether the batch carries gold labels.
func (b *Batch) Labeled() bool {
	return b.Labels != nil
}

// Select returns a batch holding only the given sequences, in order.
func (b *Batch) Select(rows []int) *Batch {
	out := &Batch{
		Emissions: make(crf.Emissions, 0, len(rows)),
		Mask:      make(crf.Mask, 0, len(rows)),
	}
	if b.Labeled() {
		out.Labels = make([][]string, 0, len(rows))
	}
	for _, r := range rows {
		out.Emissions = append(out.Emissions, b.Emissions[r])
		out.Mask = append(out.Mask, b.Mask[r])
		if b.Labeled() {
			out.Labels = append(out.Labels, b.Labels[r])
		}
	}
	return out
}

// ParseBatch decodes a batch from JSON.
func ParseBatch(data []byte) (*Batch, error) {
	var raw batchJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.Emissions) == 0 {
		return nil, fmt.Errorf("batch has no emissions")
	}
	_, seqLen, _ := raw.Emissions.Shape()

	b := &Batch{Emissions: raw.Emissions, Labels: raw.Labels}
	switch {
	case raw.Mask != nil:
		if len(raw.Mask) != len(raw.Emissions) {
			return nil, fmt.Errorf("%d mask rows for a batch of %d", len(raw.Mask), len(raw.Emissions))
		}
		b.Mask = make(crf.Mask, len(raw.Mask))
		for i, row := range raw.Mask {
			if len(row) != len(raw.Emissions[i]) {
				return nil, fmt.Errorf("mask[%d] has %d steps, emissions have %d", i, len(row), len(raw.Emissions[i]))
			}
			b.Mask[i] = make([]bool, len(row))
			for t, v := range row {
				b.Mask[i][t] = bool(v)
			}
		}
	case raw.Lengths != nil:
		if len(raw.Lengths) != len(raw.Emissions) {
			return nil, fmt.Errorf("%d lengths for a batch of %d", len(raw.Lengths), len(raw.Emissions))
		}
		for i, n := range raw.Lengths {
			if n < 1 || n > seqLen {
				return nil, fmt.Errorf("lengths[%d] = %d, want 1..%d", i, n, seqLen)
			}
		}
		b.Mask = crf.MaskFromLengths(raw.Lengths, seqLen)
	default:
		b.Mask = crf.FullMask(len(raw.Emissions), seqLen)
	}
	if b.Labels != nil && len(b.Labels) != len(b.Emissions) {
		return nil, fmt.Errorf("%d label rows for a batch of %d", len(b.Labels), len(b.Emissions))
	}
	return b, nil
}

// LoadBatch reads a batch file.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := ParseBatch(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// SaveBatch writes a batch file with an explicit 0/1 mask.
func SaveBatch(b *Batch, path string) error {
	raw := batchJSON{Emissions: b.Emissions, Labels: b.Labels, Mask: make([][]flag, len(b.Mask))}
	for i, row := range b.Mask {
		raw.Mask[i] = make([]flag, len(row))
		for t, v := range row {
			raw.Mask[i][t] = flag(v)
		}
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
