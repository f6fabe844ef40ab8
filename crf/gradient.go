package crf

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Gradients holds the derivatives of the negative log-likelihood.
type Gradients struct {
	Loss        []float64     // [batch] same values as NegLogLikelihood
	Emissions   [][][]float64 // [batch][seqLen][T'] zero on padding
	Transitions *mat.Dense    // [T'][T'] row = from tag
}

// Gradients computes the negative log-likelihood and its exact gradient
// with respect to the emissions and the transition matrix, using the
// forward-backward algorithm in log space. The result can be fed to
// Transitions.Update by an optimizer.
func (c *CRF) Gradients(em Emissions, mask Mask, tags Tags) (*Gradients, error) {
	edges, lengths, err := c.prepare("gradients", em, mask)
	if err != nil {
		return nil, err
	}
	if err := checkTags(tags, mask, c.NumTags()); err != nil {
		return nil, err
	}

	size, start, stop := edges.Size, c.Trans.Start(), c.Trans.Stop()
	trans := c.Trans.rows()
	scale := 1.0
	if c.config.AverageBatch {
		scale = 1 / float64(edges.Batch)
	}

	g := &Gradients{
		Loss:        make([]float64, edges.Batch),
		Emissions:   make([][][]float64, edges.Batch),
		Transitions: mat.NewDense(size, size, nil),
	}
	addTrans := func(from, to int, v float64) {
		g.Transitions.Set(from, to, g.Transitions.At(from, to)+v)
	}
	buf := make([]float64, size)

	for b := range edges.Batch {
		n := lengths[b]
		g.Emissions[b] = newMatrix(edges.SeqLen, size)

		alpha := newMatrix(n, size)
		copy(alpha[0], edges.Row(0, b, start))
		for t := 1; t < n; t++ {
			for to := range size {
				for from := range size {
					buf[from] = alpha[t-1][from] + edges.At(t, b, from, to)
				}
				alpha[t][to] = LogSumExp(buf)
			}
		}

		beta := newMatrix(n, size)
		for from := range size {
			beta[n-1][from] = trans[from][stop]
		}
		for t := n - 2; t >= 0; t-- {
			for from := range size {
				row := edges.Row(t+1, b, from)
				for to := range size {
					buf[to] = row[to] + beta[t+1][to]
				}
				beta[t][from] = LogSumExp(buf)
			}
		}

		for from := range size {
			buf[from] = alpha[n-1][from] + trans[from][stop]
		}
		logZ := LogSumExp(buf)

		// Model expectations.
		for t := range n {
			for to := range size {
				g.Emissions[b][t][to] = scale * math.Exp(alpha[t][to]+beta[t][to]-logZ)
			}
		}
		for to := range size {
			addTrans(start, to, g.Emissions[b][0][to])
		}
		for t := 1; t < n; t++ {
			for from := range size {
				row := edges.Row(t, b, from)
				for to := range size {
					addTrans(from, to, scale*math.Exp(alpha[t-1][from]+row[to]+beta[t][to]-logZ))
				}
			}
		}
		for from := range size {
			addTrans(from, stop, scale*math.Exp(alpha[n-1][from]+trans[from][stop]-logZ))
		}

		// Empirical counts of the gold path.
		gold := 0.0
		prev := start
		for t := range n {
			y := tags[b][t]
			g.Emissions[b][t][y] -= scale
			addTrans(prev, y, -scale)
			gold += edges.At(t, b, prev, y)
			prev = y
		}
		addTrans(prev, stop, -scale)
		gold += trans[prev][stop]

		g.Loss[b] = scale * (logZ - gold)
	}
	return g, nil
}
