package crf

import "log/slog"

// NegLogLikelihood returns log Z - gold score for every sequence. With
// Config.AverageBatch each value is divided by the batch size.
func (c *CRF) NegLogLikelihood(em Emissions, mask Mask, tags Tags) ([]float64, error) {
	edges, lengths, err := c.prepare("nll", em, mask)
	if err != nil {
		return nil, err
	}
	if err := checkTags(tags, mask, c.NumTags()); err != nil {
		return nil, err
	}
	logZ := c.forward(edges, mask)
	gold := c.gold(edges, mask, tags, lengths)
	loss := assembleLoss(logZ, gold, c.config.AverageBatch)
	slog.Debug("CRF negative log-likelihood", "batch", len(loss), "average", c.config.AverageBatch)
	return loss, nil
}

func assembleLoss(logZ, gold []float64, average bool) []float64 {
	loss := make([]float64, len(logZ))
	for b := range logZ {
		loss[b] = logZ[b] - gold[b]
		if average {
			loss[b] /= float64(len(logZ))
		}
	}
	return loss
}

// Sum adds up per-sequence values, typically a loss vector.
func Sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
