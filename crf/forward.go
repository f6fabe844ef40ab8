package crf

// LogPartition runs the forward algorithm and returns log Z for every
// sequence together with the edge tensor, which GoldScore can reuse.
func (c *CRF) LogPartition(em Emissions, mask Mask) ([]float64, *EdgeScores, error) {
	edges, _, err := c.prepare("partition", em, mask)
	if err != nil {
		return nil, nil, err
	}
	return c.forward(edges, mask), edges, nil
}

// forward assumes validated inputs.
func (c *CRF) forward(edges *EdgeScores, mask Mask) []float64 {
	size, start, stop := edges.Size, c.Trans.Start(), c.Trans.Stop()
	cand := newMatrix(size, size)
	next := make([]float64, size)
	buf := make([]float64, size)

	logZ := make([]float64, edges.Batch)
	for b := range edges.Batch {
		partition := make([]float64, size)
		copy(partition, edges.Row(0, b, start))

		for t := 1; t < edges.SeqLen; t++ {
			// Padding keeps the partition of the last real step.
			if !mask[b][t] {
				continue
			}
			for from := range size {
				row := edges.Row(t, b, from)
				for to := range size {
					cand[from][to] = row[to] + partition[from]
				}
			}
			LogSumExpFrom(cand, next, buf)
			copy(partition, next)
		}

		for from := range size {
			buf[from] = partition[from] + c.Trans.Score(from, stop)
		}
		logZ[b] = LogSumExp(buf)
	}
	return logZ
}
