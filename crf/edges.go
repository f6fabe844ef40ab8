package crf

// EdgeScores is a dense (seqLen, batch, T', T') tensor with
// Edge[t,b,from,to] = Emission[b,t,to] + Trans(from, to).
type EdgeScores struct {
	SeqLen int
	Batch  int
	Size   int
	data   []float64
}

// BuildEdges combines emissions with the transition matrix. The emissions
// are assumed validated against tr.Size().
func BuildEdges(em Emissions, tr *Transitions) *EdgeScores {
	batch, seqLen, _ := em.Shape()
	size := tr.Size()
	trans := tr.rows()
	e := &EdgeScores{
		SeqLen: seqLen,
		Batch:  batch,
		Size:   size,
		data:   make([]float64, seqLen*batch*size*size),
	}
	for t := range seqLen {
		for b := range batch {
			flat := e.Flat(t, b)
			emit := em[b][t]
			for from := range size {
				row := flat[from*size : (from+1)*size]
				for to := range size {
					row[to] = emit[to] + trans[from][to]
				}
			}
		}
	}
	return e
}

// At returns Edge[t,b,from,to].
func (e *EdgeScores) At(t, b, from, to int) float64 {
	return e.data[((t*e.Batch+b)*e.Size+from)*e.Size+to]
}

// Row returns the scores of leaving `from` at step t, indexed by the tag
// entered. The slice aliases the tensor.
func (e *EdgeScores) Row(t, b, from int) []float64 {
	off := ((t*e.Batch+b)*e.Size + from) * e.Size
	return e.data[off : off+e.Size]
}

// Flat returns the T'×T' block of step t, batch element b, flattened so that
// index EncodeEdge(from, to, Size) addresses Edge[t,b,from,to]. The slice
// aliases the tensor.
func (e *EdgeScores) Flat(t, b int) []float64 {
	n := e.Size * e.Size
	off := (t*e.Batch + b) * n
	return e.data[off : off+n]
}

// EncodeEdge flattens a (from, to) pair into one index of a size×size grid.
func EncodeEdge(from, to, size int) int {
	return from*size + to
}

// DecodeEdge is the inverse of EncodeEdge.
func DecodeEdge(flat, size int) (from, to int) {
	return flat / size, flat % size
}
