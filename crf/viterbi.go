package crf

import "math"

// ViterbiResult holds the best path of every sequence.
type ViterbiResult struct {
	// History is the max-partition after each step, [batch][seqLen][T'].
	// Steps past a sequence's length keep advancing and are not meaningful.
	History [][][]float64
	// Tags is the best path, [batch][seqLen]. Padded positions hold 0.
	Tags Tags
	// Scores is the best path score including the START and STOP transitions.
	Scores []float64
}

// Viterbi finds the highest scoring tag sequence of every batch element.
func (c *CRF) Viterbi(em Emissions, mask Mask) (*ViterbiResult, error) {
	d, err := c.decode("viterbi", em, mask, nil, decodeViterbi)
	if err != nil {
		return nil, err
	}
	return d.Viterbi, nil
}

// DecodeViterbi returns only the best tag sequences.
func (c *CRF) DecodeViterbi(em Emissions, mask Mask) (Tags, error) {
	res, err := c.Viterbi(em, mask)
	if err != nil {
		return nil, err
	}
	return res.Tags, nil
}

// viterbiState runs the max-product recursion of one sequence.
type viterbiState struct {
	size      int
	partition []float64
	history   [][]float64
	backptr   [][]int
}

func newViterbiState(edges *EdgeScores, b, start int) *viterbiState {
	v := &viterbiState{
		size:    edges.Size,
		history: newMatrix(edges.SeqLen, edges.Size),
		backptr: newIntMatrix(edges.SeqLen, edges.Size),
	}
	copy(v.history[0], edges.Row(0, b, start))
	v.partition = v.history[0]
	return v
}

// step advances the partition with cand[from][to] = Edge + partition[from].
// Unlike the forward algorithm the partition also advances on padding; only
// the backpointers are forced to 0 there.
func (v *viterbiState) step(t int, cand [][]float64, valid bool) {
	next := v.history[t]
	for to := range v.size {
		best, arg := math.Inf(-1), 0
		for from := range v.size {
			if cand[from][to] > best {
				best, arg = cand[from][to], from
			}
		}
		next[to] = best
		if valid {
			v.backptr[t][to] = arg
		}
	}
	v.partition = next
}

// finish closes the path at the true last position and walks the
// backpointers back to t=0.
func (v *viterbiState) finish(length int, trans [][]float64, stop int, tags []int) float64 {
	last := v.history[length-1]
	final := make([]float64, v.size)
	for from := range v.size {
		final[from] = last[from] + trans[from][stop]
	}
	y := argmax(final)
	tags[length-1] = y
	for t := length - 1; t > 0; t-- {
		y = v.backptr[t][y]
		tags[t-1] = y
	}
	return final[tags[length-1]]
}
