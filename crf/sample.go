package crf

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleResult holds one stochastic path per sequence.
type SampleResult struct {
	Tags   Tags      // [batch][seqLen], padded positions hold 0
	Scores []float64 // [batch] Σ -log softmax of the taken tags over valid steps
}

// Sample draws one path per sequence by walking forward and sampling each
// tag from the softmax of the edge row leaving the previously sampled tag.
// This is a greedy rollout, not a draw from the CRF posterior. src drives
// every draw; a nil src uses the global generator.
func (c *CRF) Sample(em Emissions, mask Mask, src rand.Source) (*SampleResult, error) {
	d, err := c.decode("sample", em, mask, src, decodeSample)
	if err != nil {
		return nil, err
	}
	return d.Sample, nil
}

// DecodeSample returns the sampled tag sequences and their scores.
func (c *CRF) DecodeSample(em Emissions, mask Mask, src rand.Source) (Tags, []float64, error) {
	res, err := c.Sample(em, mask, src)
	if err != nil {
		return nil, nil, err
	}
	return res.Tags, res.Scores, nil
}

// categorical draws an index from softmax(scores).
func categorical(scores []float64, src rand.Source) int {
	probs := make([]float64, len(scores))
	Softmax(probs, scores)
	return int(distuv.NewCategorical(probs, src).Rand())
}

type sampleState struct {
	src     rand.Source
	prev    int
	tags    []int
	score   float64
	logProb []float64
}

func newSampleState(first []float64, seqLen int, src rand.Source) *sampleState {
	s := &sampleState{
		src:     src,
		tags:    make([]int, seqLen),
		logProb: make([]float64, len(first)),
	}
	s.take(0, first, true)
	return s
}

// take samples from row and records the draw. Draws continue through
// padding so the walk stays aligned, but padding adds no score and leaves
// a 0 tag.
func (s *sampleState) take(t int, row []float64, valid bool) {
	y := categorical(row, s.src)
	s.prev = y
	if !valid {
		return
	}
	LogSoftmax(s.logProb, row)
	s.score -= s.logProb[y]
	s.tags[t] = y
}

// step reads the Viterbi candidate row of the previously sampled tag.
func (s *sampleState) step(t int, cand [][]float64, valid bool) {
	s.take(t, cand[s.prev], valid)
}
