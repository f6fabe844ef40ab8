package crf

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

type decodeMode uint8

const (
	decodeViterbi decodeMode = 1 << iota
	decodeSample
	decodeBeam

	decodeAll = decodeViterbi | decodeSample | decodeBeam
)

// Decoding bundles the results of a combined decode.
type Decoding struct {
	Viterbi *ViterbiResult
	Sample  *SampleResult
	Beam    *BeamResult
}

// Decode runs Viterbi, the stochastic sampler and the beam search in a
// single pass over time. The sampler draws before the beam at every step,
// both from src.
func (c *CRF) Decode(em Emissions, mask Mask, src rand.Source) (*Decoding, error) {
	return c.decode("decode", em, mask, src, decodeAll)
}

func (c *CRF) decode(op string, em Emissions, mask Mask, src rand.Source, mode decodeMode) (*Decoding, error) {
	edges, lengths, err := c.prepare(op, em, mask)
	if err != nil {
		return nil, err
	}
	begin := time.Now()

	batch, seqLen, size := edges.Batch, edges.SeqLen, edges.Size
	start, stop := c.Trans.Start(), c.Trans.Stop()
	trans := c.Trans.rows()

	out := &Decoding{}
	if mode&decodeViterbi != 0 {
		out.Viterbi = &ViterbiResult{
			History: make([][][]float64, batch),
			Tags:    make(Tags, batch),
			Scores:  make([]float64, batch),
		}
	}
	if mode&decodeSample != 0 {
		out.Sample = &SampleResult{Tags: make(Tags, batch), Scores: make([]float64, batch)}
	}
	if mode&decodeBeam != 0 {
		out.Beam = &BeamResult{
			Tags:        make(Tags, batch),
			Scores:      make([]float64, batch),
			NegLogProbs: make([]float64, batch),
		}
	}

	cand := newMatrix(size, size)
	for b := range batch {
		first := edges.Row(0, b, start)
		vit := newViterbiState(edges, b, start)
		var smp *sampleState
		if out.Sample != nil {
			smp = newSampleState(first, seqLen, src)
		}
		var bm *beamState
		if out.Beam != nil {
			bm = newBeamState(first, seqLen)
		}

		for t := 1; t < seqLen; t++ {
			valid := mask[b][t]
			for from := range size {
				row := edges.Row(t, b, from)
				for to := range size {
					cand[from][to] = row[to] + vit.partition[from]
				}
			}
			if smp != nil {
				smp.step(t, cand, valid)
			}
			if bm != nil {
				bm.step(t, edges, b, valid)
			}
			vit.step(t, cand, valid)
		}

		if out.Viterbi != nil {
			tags := make([]int, seqLen)
			out.Viterbi.Scores[b] = vit.finish(lengths[b], trans, stop, tags)
			out.Viterbi.Tags[b] = tags
			out.Viterbi.History[b] = vit.history
		}
		if smp != nil {
			out.Sample.Tags[b] = smp.tags
			out.Sample.Scores[b] = smp.score
		}
		if bm != nil {
			tags := make([]int, seqLen)
			out.Beam.Scores[b], out.Beam.NegLogProbs[b] = bm.finish(src, tags, mask[b])
			out.Beam.Tags[b] = tags
		}
	}

	slog.Debug("CRF decode completed", "op", op, "batch", batch, "seq_len", seqLen, "duration", time.Since(begin))
	return out, nil
}
