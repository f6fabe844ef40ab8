// Package chaincrf tags token sequences with a batched linear-chain CRF.
//
// It wraps the crf package with string labels and model files.
//
//	tg, _ := chaincrf.Load("model.json", crf.DefaultConfig())
//	labels, _ := tg.Tag(emissions) // one row of T+2 scores per token
//	fmt.Println(labels)            // [B-PER I-PER O]
package chaincrf

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/happyhackingspace/chaincrf/crf"
)

// Tagger pairs a label alphabet with a CRF layer.
type Tagger struct {
	model *crf.Model
	layer *crf.CRF
}

// SequenceResult is the decoded label sequence of one batch element,
// trimmed to its true length.
type SequenceResult struct {
	Labels []string `json:"labels"`
	Score  float64  `json:"score"`
}

// DecodeResult holds the output of every decoding strategy for a batch.
type DecodeResult struct {
	Viterbi []SequenceResult `json:"viterbi,omitempty"`
	Sample  []SequenceResult `json:"sample,omitempty"`
	Beam    []SequenceResult `json:"beam,omitempty"`
}

// New creates a tagger with fresh transitions for the given labels.
func New(labels []string, config crf.Config) (*Tagger, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("chaincrf: no labels")
	}
	alpha := crf.AlphabetOf(labels...)
	if alpha.Size() != len(labels) {
		return nil, fmt.Errorf("chaincrf: duplicate labels in %v", labels)
	}
	model, err := crf.NewModel(alpha, config.Sentinel)
	if err != nil {
		return nil, fmt.Errorf("chaincrf: %w", err)
	}
	return &Tagger{model: model, layer: model.CRF(config)}, nil
}

// Find looks for a model file named name in the current directory and its
// parents, stopping at the module root (where go.mod lives).
func Find(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		// Stop at module root
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found", name)
}

// Load reads a tagger from a model file.
func Load(path string, config crf.Config) (*Tagger, error) {
	model, err := crf.LoadModel(path)
	if err != nil {
		return nil, fmt.Errorf("chaincrf: %w", err)
	}
	return &Tagger{model: model, layer: model.CRF(config)}, nil
}

// Save writes the tagger's model file.
func (tg *Tagger) Save(path string) error {
	if err := crf.SaveModel(tg.model, path); err != nil {
		return fmt.Errorf("chaincrf: %w", err)
	}
	return nil
}

// Labels returns the real tag labels in id order.
func (tg *Tagger) Labels() []string {
	return append([]string(nil), tg.model.Labels.ToStr...)
}

// CRF exposes the underlying layer, e.g. for an optimizer.
func (tg *Tagger) CRF() *crf.CRF {
	return tg.layer
}

// Tag returns the best labels of a single sequence given its (seqLen, T+2)
// emission scores.
func (tg *Tagger) Tag(emissions [][]float64) ([]string, error) {
	res, err := tg.TagBatch(crf.Emissions{emissions}, crf.FullMask(1, len(emissions)))
	if err != nil {
		return nil, err
	}
	return res[0].Labels, nil
}

// TagBatch returns the Viterbi labels and scores of every sequence.
func (tg *Tagger) TagBatch(em crf.Emissions, mask crf.Mask) ([]SequenceResult, error) {
	res, err := tg.layer.Viterbi(em, mask)
	if err != nil {
		return nil, fmt.Errorf("chaincrf: %w", err)
	}
	return tg.results(res.Tags, res.Scores, mask), nil
}

// Decode runs every decoding strategy in one pass. src drives the sampler and
// the final beam pick.
func (tg *Tagger) Decode(em crf.Emissions, mask crf.Mask, src rand.Source) (*DecodeResult, error) {
	d, err := tg.layer.Decode(em, mask, src)
	if err != nil {
		return nil, fmt.Errorf("chaincrf: %w", err)
	}
	return &DecodeResult{
		Viterbi: tg.results(d.Viterbi.Tags, d.Viterbi.Scores, mask),
		Sample:  tg.results(d.Sample.Tags, d.Sample.Scores, mask),
		Beam:    tg.results(d.Beam.Tags, d.Beam.Scores, mask),
	}, nil
}

// Sample returns one stochastic path per sequence with its
// negative log-probability score.
func (tg *Tagger) Sample(em crf.Emissions, mask crf.Mask, src rand.Source) ([]SequenceResult, error) {
	res, err := tg.layer.Sample(em, mask, src)
	if err != nil {
		return nil, fmt.Errorf("chaincrf: %w", err)
	}
	return tg.results(res.Tags, res.Scores, mask), nil
}

// BeamSearch returns the hypothesis picked from the final beam of every
// sequence with its cumulative score.
func (tg *Tagger) BeamSearch(em crf.Emissions, mask crf.Mask, src rand.Source) ([]SequenceResult, error) {
	res, err := tg.layer.Beam(em, mask, src)
	if err != nil {
		return nil, fmt.Errorf("chaincrf: %w", err)
	}
	return tg.results(res.Tags, res.Scores, mask), nil
}

// Loss returns the negative log-likelihood of gold label sequences. Each
// labels row covers only the valid positions of its sequence.
func (tg *Tagger) Loss(em crf.Emissions, mask crf.Mask, labels [][]string) ([]float64, error) {
	tags, err := tg.TagIDs(labels, mask)
	if err != nil {
		return nil, err
	}
	loss, err := tg.layer.NegLogLikelihood(em, mask, tags)
	if err != nil {
		return nil, fmt.Errorf("chaincrf: %w", err)
	}
	return loss, nil
}

// TagIDs converts label rows into a padded tag tensor shaped like mask.
// Every row must label exactly the valid positions of its sequence.
func (tg *Tagger) TagIDs(labels [][]string, mask crf.Mask) (crf.Tags, error) {
	if len(labels) != len(mask) {
		return nil, fmt.Errorf("chaincrf: %d label rows for a batch of %d", len(labels), len(mask))
	}
	lengths := mask.Lengths()
	tags := make(crf.Tags, len(labels))
	for b, row := range labels {
		if len(row) != lengths[b] {
			return nil, fmt.Errorf("chaincrf: labels[%d] has %d entries for a sequence of %d", b, len(row), lengths[b])
		}
		tags[b] = make([]int, len(mask[b]))
		for t, l := range row {
			id := tg.model.Labels.Get(l)
			if id < 0 {
				return nil, fmt.Errorf("chaincrf: unknown label %q at [%d][%d]", l, b, t)
			}
			tags[b][t] = id
		}
	}
	return tags, nil
}

func (tg *Tagger) results(tags crf.Tags, scores []float64, mask crf.Mask) []SequenceResult {
	lengths := mask.Lengths()
	out := make([]SequenceResult, len(tags))
	for b, row := range tags {
		labels := make([]string, lengths[b])
		for t := range labels {
			labels[t] = tg.label(row[t])
		}
		out[b] = SequenceResult{Labels: labels, Score: scores[b]}
	}
	return out
}

// label names real tags from the alphabet and the virtual ones by role.
func (tg *Tagger) label(id int) string {
	switch id {
	case tg.layer.Trans.Start():
		return "<START>"
	case tg.layer.Trans.Stop():
		return "<STOP>"
	}
	return tg.model.Labels.Label(id)
}

// Evaluation summarizes how well a tagger fits labeled sequences.
type Evaluation struct {
	Loss            float64 `json:"loss"` // summed negative log-likelihood
	Sequences       int     `json:"sequences"`
	SequenceCorrect int     `json:"sequence_correct"`
	Tokens          int     `json:"tokens"`
	TokenCorrect    int     `json:"token_correct"`
}

// Add accumulates other into e.
func (e *Evaluation) Add(other Evaluation) {
	e.Loss += other.Loss
	e.Sequences += other.Sequences
	e.SequenceCorrect += other.SequenceCorrect
	e.Tokens += other.Tokens
	e.TokenCorrect += other.TokenCorrect
}

// TokenAccuracy returns the share of correctly tagged tokens.
func (e Evaluation) TokenAccuracy() float64 {
	if e.Tokens == 0 {
		return 0
	}
	return float64(e.TokenCorrect) / float64(e.Tokens)
}

// SequenceAccuracy returns the share of sequences tagged without error.
func (e Evaluation) SequenceAccuracy() float64 {
	if e.Sequences == 0 {
		return 0
	}
	return float64(e.SequenceCorrect) / float64(e.Sequences)
}

// Evaluate scores gold labels and compares them with the Viterbi labels.
func (tg *Tagger) Evaluate(em crf.Emissions, mask crf.Mask, labels [][]string) (Evaluation, error) {
	loss, err := tg.Loss(em, mask, labels)
	if err != nil {
		return Evaluation{}, err
	}
	pred, err := tg.TagBatch(em, mask)
	if err != nil {
		return Evaluation{}, err
	}
	ev := Evaluation{Loss: crf.Sum(loss), Sequences: len(pred)}
	for b, res := range pred {
		correct := 0
		for t, l := range res.Labels {
			if l == labels[b][t] {
				correct++
			}
		}
		ev.Tokens += len(res.Labels)
		ev.TokenCorrect += correct
		if correct == len(res.Labels) {
			ev.SequenceCorrect++
		}
	}
	return ev, nil
}
