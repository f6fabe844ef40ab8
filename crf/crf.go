// Package crf implements a batched linear-chain Conditional Random Field
// layer over per-token emission scores.
//
// Tags 0..T-1 are real; two virtual tags, START (T) and STOP (T+1), bound
// every sequence. Batches are dense (batch, seqLen, T+2) tensors with a
// left-aligned mask selecting the real positions of each sequence.
package crf

import (
	"log/slog"
	"time"
)

// Alphabet maps between string labels and integer IDs.
type Alphabet struct {
	ToID  map[string]int `json:"to_id"`
	ToStr []string       `json:"to_str"`
}

// NewAlphabet creates an empty alphabet.
func NewAlphabet() *Alphabet {
	return &Alphabet{
		ToID: make(map[string]int),
	}
}

// AlphabetOf builds an alphabet holding labels in order. Duplicates keep
// their first ID.
func AlphabetOf(labels ...string) *Alphabet {
	a := NewAlphabet()
	for _, l := range labels {
		a.Add(l)
	}
	return a
}

// Add adds a string to the alphabet if not already present, returns its ID.
func (a *Alphabet) Add(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	id := len(a.ToStr)
	a.ToID[s] = id
	a.ToStr = append(a.ToStr, s)
	return id
}

// Get returns the ID for a string, or -1 if not found.
func (a *Alphabet) Get(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	return -1
}

// Label returns the string for an ID, or "" if out of range.
func (a *Alphabet) Label(id int) string {
	if id < 0 || id >= len(a.ToStr) {
		return ""
	}
	return a.ToStr[id]
}

// Size returns the number of entries.
func (a *Alphabet) Size() int {
	return len(a.ToStr)
}

// Config holds CRF options.
type Config struct {
	// Sentinel is the score of forbidden boundary transitions.
	Sentinel float64
	// AverageBatch divides the negative log-likelihood by the batch size.
	AverageBatch bool
}

// DefaultConfig returns the default CRF configuration.
func DefaultConfig() Config {
	return Config{
		Sentinel: DefaultSentinel,
	}
}

// CRF is a linear-chain CRF layer. It owns its transition matrix; all other
// tensors are allocated per call.
type CRF struct {
	Trans  *Transitions
	config Config
}

// New creates a CRF over numTags real tags.
func New(numTags int, config Config) (*CRF, error) {
	tr, err := NewTransitions(numTags, config.Sentinel)
	if err != nil {
		return nil, err
	}
	return &CRF{Trans: tr, config: config}, nil
}

// FromTransitions wraps an existing transition matrix.
func FromTransitions(tr *Transitions, config Config) *CRF {
	config.Sentinel = tr.Sentinel()
	return &CRF{Trans: tr, config: config}
}

// NumTags returns the number of real tags.
func (c *CRF) NumTags() int { return c.Trans.NumTags() }

// Config returns the CRF configuration.
func (c *CRF) Config() Config { return c.config }

// prepare validates inputs and builds the edge tensor.
func (c *CRF) prepare(op string, em Emissions, mask Mask) (*EdgeScores, []int, error) {
	lengths, err := checkInputs(em, mask, c.Trans.Size())
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	edges := BuildEdges(em, c.Trans)
	slog.Debug("CRF edge scores built", "op", op, "batch", edges.Batch, "seq_len", edges.SeqLen,
		"tags", edges.Size, "duration", time.Since(start))
	return edges, lengths, nil
}
