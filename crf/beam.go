package crf

import (
	"math/rand/v2"
	"sort"
)

// BeamResult holds the hypothesis picked from the final beam of every
// sequence.
type BeamResult struct {
	Tags        Tags      // [batch][seqLen], padded positions hold 0
	Scores      []float64 // [batch] cumulative score of the picked hypothesis
	NegLogProbs []float64 // [batch] -log softmax(final beam)[picked]
}

// Beam keeps the T' best partial paths of every sequence, then picks one of
// the final hypotheses by sampling from the softmax of their scores.
//
// Candidates are ranked by score; equal scores keep ascending
// EncodeEdge(slot, tag) order. Padding steps carry the beam forward
// unchanged. The final scores do not include the STOP transition.
func (c *CRF) Beam(em Emissions, mask Mask, src rand.Source) (*BeamResult, error) {
	d, err := c.decode("beam", em, mask, src, decodeBeam)
	if err != nil {
		return nil, err
	}
	return d.Beam, nil
}

// DecodeBeam returns the picked tag sequences and their scores.
func (c *CRF) DecodeBeam(em Emissions, mask Mask, src rand.Source) (Tags, []float64, error) {
	res, err := c.Beam(em, mask, src)
	if err != nil {
		return nil, nil, err
	}
	return res.Tags, res.Scores, nil
}

// topK returns the indices of the k largest scores, best first. Ties keep
// ascending index order.
func topK(scores []float64, k int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order[:min(k, len(order))]
}

// beamState tracks K = T' hypotheses of one sequence. For every step it
// records the tag each slot ends in and the slot of the previous step it
// extends.
type beamState struct {
	size   int
	scores []float64
	tagAt  [][]int
	from   [][]int
	cand   []float64
}

func newBeamState(first []float64, seqLen int) *beamState {
	size := len(first)
	s := &beamState{
		size:   size,
		scores: make([]float64, size),
		tagAt:  newIntMatrix(seqLen, size),
		from:   newIntMatrix(seqLen, size),
		cand:   make([]float64, size*size),
	}
	copy(s.scores, first)
	for k := range size {
		s.tagAt[0][k] = k
		s.from[0][k] = k
	}
	return s
}

func (s *beamState) step(t int, edges *EdgeScores, b int, valid bool) {
	if !valid {
		copy(s.tagAt[t], s.tagAt[t-1])
		for k := range s.size {
			s.from[t][k] = k
		}
		return
	}
	for slot := range s.size {
		row := edges.Row(t, b, s.tagAt[t-1][slot])
		for tag := range s.size {
			s.cand[EncodeEdge(slot, tag, s.size)] = s.scores[slot] + row[tag]
		}
	}
	for k, flat := range topK(s.cand, s.size) {
		slot, tag := DecodeEdge(flat, s.size)
		s.from[t][k] = slot
		s.tagAt[t][k] = tag
		s.scores[k] = s.cand[flat]
	}
}

// finish samples a final slot and rebuilds its path.
func (s *beamState) finish(src rand.Source, tags []int, valid []bool) (score, negLogProb float64) {
	pick := categorical(s.scores, src)
	logProb := make([]float64, s.size)
	LogSoftmax(logProb, s.scores)

	slot := pick
	for t := len(tags) - 1; t >= 0; t-- {
		tags[t] = s.tagAt[t][slot]
		slot = s.from[t][slot]
	}
	for t := range tags {
		if !valid[t] {
			tags[t] = 0
		}
	}
	return s.scores[pick], -logProb[pick]
}
