package crf

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogSumExp returns log(Σ exp(x)) computed as max + log Σ exp(x - max).
// xs must not be empty. If every element is -Inf the result is -Inf.
func LogSumExp(xs []float64) float64 {
	return floats.LogSumExp(xs)
}

// LogSumExpFrom reduces a (from, to) score matrix along the from axis:
// dst[j] = log Σ_i exp(m[i][j]). dst must have len(m[0]) elements.
// buf is scratch space of at least len(m) elements and may be nil.
func LogSumExpFrom(m [][]float64, dst, buf []float64) {
	if len(buf) < len(m) {
		buf = make([]float64, len(m))
	}
	col := buf[:len(m)]
	for j := range dst {
		for i := range m {
			col[i] = m[i][j]
		}
		dst[j] = floats.LogSumExp(col)
	}
}

// LogSoftmax writes x - LogSumExp(x) into dst.
func LogSoftmax(dst, xs []float64) {
	lse := LogSumExp(xs)
	for i, x := range xs {
		dst[i] = x - lse
	}
}

// Softmax writes the normalized probabilities of xs into dst.
func Softmax(dst, xs []float64) {
	LogSoftmax(dst, xs)
	for i, v := range dst {
		dst[i] = math.Exp(v)
	}
}

// argmax returns the index of the first maximum element.
func argmax(xs []float64) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}
