package crf

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/janpfeifer/must"
)

// randomCRF returns a CRF whose allowed transitions are drawn uniformly
// from [-1, 1]. Boundary transitions keep the sentinel.
func randomCRF(t *testing.T, numTags int, rng *rand.Rand) *CRF {
	t.Helper()
	c := must.M1(New(numTags, DefaultConfig()))
	size := c.Trans.Size()
	for from := range size {
		if from == c.Trans.Stop() {
			continue
		}
		for to := range size {
			if to == c.Trans.Start() {
				continue
			}
			c.Trans.Set(from, to, 2*rng.Float64()-1)
		}
	}
	return c
}

// randomEmissions fills real tag columns from [-2, 2] and leaves the
// virtual tag columns at 0.
func randomEmissions(rng *rand.Rand, batch, seqLen, numTags int) Emissions {
	em := make(Emissions, batch)
	for b := range batch {
		em[b] = newMatrix(seqLen, numTags+2)
		for t := range seqLen {
			for y := range numTags {
				em[b][t][y] = 4*rng.Float64() - 2
			}
		}
	}
	return em
}

// pathScore scores one path of real tags over the first len(path) steps.
func pathScore(c *CRF, em [][]float64, path []int) float64 {
	tr := c.Trans
	s := tr.Score(tr.Start(), path[0]) + em[0][path[0]]
	for t := 1; t < len(path); t++ {
		s += tr.Score(path[t-1], path[t]) + em[t][path[t]]
	}
	return s + tr.Score(path[len(path)-1], tr.Stop())
}

// bruteForce enumerates every real-tag path of the given length and returns
// log Σ exp(score), the best score and the best path.
func bruteForce(c *CRF, em [][]float64, length int) (logZ, best float64, bestPath []int) {
	numTags := c.NumTags()
	path := make([]int, length)
	var scores []float64
	best = math.Inf(-1)
	for {
		s := pathScore(c, em, path)
		scores = append(scores, s)
		if s > best {
			best = s
			bestPath = append([]int(nil), path...)
		}
		i := length - 1
		for i >= 0 {
			path[i]++
			if path[i] < numTags {
				break
			}
			path[i] = 0
			i--
		}
		if i < 0 {
			break
		}
	}
	return LogSumExp(scores), best, bestPath
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
