package crf

import "github.com/pkg/errors"

// GoldScore returns the score of the given tag sequences using an edge tensor
// built by LogPartition (or BuildEdges) from the same emissions.
func (c *CRF) GoldScore(edges *EdgeScores, mask Mask, tags Tags) ([]float64, error) {
	if edges.Size != c.Trans.Size() {
		return nil, errors.Wrapf(ErrShapeMismatch, "edge tensor has %d tags, want %d", edges.Size, c.Trans.Size())
	}
	lengths, err := checkMask(mask, edges.Batch, edges.SeqLen)
	if err != nil {
		return nil, err
	}
	if err := checkTags(tags, mask, c.NumTags()); err != nil {
		return nil, err
	}
	return c.gold(edges, mask, tags, lengths), nil
}

func (c *CRF) gold(edges *EdgeScores, mask Mask, tags Tags, lengths []int) []float64 {
	size, start, stop := edges.Size, c.Trans.Start(), c.Trans.Stop()
	scores := make([]float64, edges.Batch)
	for b := range edges.Batch {
		var s float64
		prev := start
		for t := range edges.SeqLen {
			if !mask[b][t] {
				continue
			}
			cur := tags[b][t]
			s += edges.Flat(t, b)[EncodeEdge(prev, cur, size)]
			prev = cur
		}
		last := tags[b][lengths[b]-1]
		scores[b] = s + c.Trans.Score(last, stop)
	}
	return scores
}
