package crf

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	const (
		numTags = 3
		eps     = 1e-5
		tol     = 1e-6
	)
	rng := newRand(61)
	c := randomCRF(t, numTags, rng)
	c.config.AverageBatch = true
	em := randomEmissions(rng, 2, 4, numTags)
	mask := MaskFromLengths([]int{4, 2}, 4)
	tags := Tags{{0, 2, 1, 1}, {1, 0, 0, 0}}

	g, err := c.Gradients(em, mask, tags)
	require.NoError(t, err)

	loss := func() float64 {
		return Sum(must.M1(c.NegLogLikelihood(em, mask, tags)))
	}
	assert.InDelta(t, loss(), Sum(g.Loss), 1e-9)

	for b := range em {
		for tt := range em[b] {
			for y := range numTags {
				orig := em[b][tt][y]
				em[b][tt][y] = orig + eps
				up := loss()
				em[b][tt][y] = orig - eps
				down := loss()
				em[b][tt][y] = orig
				assert.InDelta(t, (up-down)/(2*eps), g.Emissions[b][tt][y], tol, "emission b=%d t=%d y=%d", b, tt, y)
			}
		}
	}
	// Padding never receives gradient.
	assert.Equal(t, make([]float64, numTags+2), g.Emissions[1][3])

	size := c.Trans.Size()
	for from := range size {
		for to := range size {
			orig := c.Trans.Score(from, to)
			c.Trans.Set(from, to, orig+eps)
			up := loss()
			c.Trans.Set(from, to, orig-eps)
			down := loss()
			c.Trans.Set(from, to, orig)
			assert.InDelta(t, (up-down)/(2*eps), g.Transitions.At(from, to), tol, "transition %d→%d", from, to)
		}
	}
}

func TestGradientStepReducesLoss(t *testing.T) {
	rng := newRand(62)
	c := randomCRF(t, 3, rng)
	em := randomEmissions(rng, 3, 5, 3)
	mask := MaskFromLengths([]int{5, 4, 2}, 5)
	tags := Tags{{0, 1, 1, 2, 0}, {2, 2, 1, 0, 0}, {1, 0, 0, 0, 0}}

	before := Sum(must.M1(c.NegLogLikelihood(em, mask, tags)))
	for range 20 {
		g := must.M1(c.Gradients(em, mask, tags))
		require.NoError(t, c.Trans.Update(g.Transitions, 0.02))
	}
	after := Sum(must.M1(c.NegLogLikelihood(em, mask, tags)))
	assert.Less(t, after, before)
}
