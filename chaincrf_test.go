package chaincrf

import (
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/happyhackingspace/chaincrf/crf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTagger(t *testing.T) *Tagger {
	t.Helper()
	tg, err := New([]string{"O", "B-PER", "I-PER"}, crf.DefaultConfig())
	require.NoError(t, err)
	tr := tg.CRF().Trans
	tr.Set(1, 2, 3)  // B-PER → I-PER
	tr.Set(0, 2, -5) // O → I-PER
	return tg
}

func TestNewRejectsBadLabels(t *testing.T) {
	_, err := New(nil, crf.DefaultConfig())
	assert.Error(t, err)
	_, err = New([]string{"A", "B", "A"}, crf.DefaultConfig())
	assert.Error(t, err)
}

func TestTag(t *testing.T) {
	tg := newTestTagger(t)
	em := [][]float64{
		{0, 4, 0, 0, 0},
		{0, 0, 1, 0, 0},
		{3, 0, 0, 0, 0},
	}
	labels, err := tg.Tag(em)
	require.NoError(t, err)
	assert.Equal(t, []string{"B-PER", "I-PER", "O"}, labels)
}

func TestTagBatchTrimsPadding(t *testing.T) {
	tg := newTestTagger(t)
	em := crf.Emissions{
		{{5, 0, 0, 0, 0}, {5, 0, 0, 0, 0}, {5, 0, 0, 0, 0}},
		{{0, 5, 0, 0, 0}, {0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}},
	}
	res, err := tg.TagBatch(em, crf.MaskFromLengths([]int{3, 1}, 3))
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, []string{"O", "O", "O"}, res[0].Labels)
	assert.Equal(t, []string{"B-PER"}, res[1].Labels)
	assert.InDelta(t, 15.0, res[0].Score, 1e-9)
}

func TestLoss(t *testing.T) {
	tg := newTestTagger(t)
	em := crf.Emissions{{{2, 0, 0, 0, 0}, {0, 1, 0, 0, 0}}}
	mask := crf.FullMask(1, 2)

	loss, err := tg.Loss(em, mask, [][]string{{"O", "B-PER"}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, loss[0], 0.0)

	_, err = tg.Loss(em, mask, [][]string{{"O", "X"}})
	assert.ErrorContains(t, err, `unknown label "X"`)
	_, err = tg.Loss(em, mask, [][]string{{"O", "O", "O"}})
	assert.Error(t, err)
}

func TestLossRejectsShortLabelRows(t *testing.T) {
	tg := newTestTagger(t)
	em := crf.Emissions{{{0, 2, 0, 0, 0}, {1, 0, 0, 0, 0}, {1, 0, 0, 0, 0}}}

	// One label for three valid positions must not be padded with tag 0.
	_, err := tg.Loss(em, crf.FullMask(1, 3), [][]string{{"B-PER"}})
	assert.ErrorContains(t, err, "labels[0] has 1 entries for a sequence of 3")

	// Labels covering exactly the valid prefix are accepted.
	loss, err := tg.Loss(em, crf.MaskFromLengths([]int{1}, 3), [][]string{{"B-PER"}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, loss[0], 0.0)

	_, err = tg.TagIDs([][]string{{"O", "O"}}, crf.MaskFromLengths([]int{1}, 3))
	assert.Error(t, err)
}

func TestDecodeSeeded(t *testing.T) {
	tg := newTestTagger(t)
	em := crf.Emissions{
		{{1, 2, 0, 0, 0}, {0, 0, 2, 0, 0}, {1, 0, 0, 0, 0}},
		{{0, 0, 0, 0, 0}, {2, 0, 0, 0, 0}, {0, 0, 0, 0, 0}},
	}
	mask := crf.MaskFromLengths([]int{3, 2}, 3)

	first, err := tg.Decode(em, mask, rand.NewPCG(7, 7))
	require.NoError(t, err)
	second, err := tg.Decode(em, mask, rand.NewPCG(7, 7))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, results := range [][]SequenceResult{first.Viterbi, first.Sample, first.Beam} {
		require.Len(t, results, 2)
		assert.Len(t, results[0].Labels, 3)
		assert.Len(t, results[1].Labels, 2)
	}

	sample, err := tg.Sample(em, mask, rand.NewPCG(7, 7))
	require.NoError(t, err)
	assert.Len(t, sample, 2)
	beam, err := tg.BeamSearch(em, mask, rand.NewPCG(7, 7))
	require.NoError(t, err)
	assert.Len(t, beam, 2)
}

func TestSaveLoad(t *testing.T) {
	tg := newTestTagger(t)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, tg.Save(path))

	loaded, err := Load(path, crf.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, tg.Labels(), loaded.Labels())
	assert.Equal(t, 3.0, loaded.CRF().Trans.Score(1, 2))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), crf.DefaultConfig())
	assert.Error(t, err)
}

func TestFindMissing(t *testing.T) {
	_, err := Find("no-such-model-file.json")
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	tg := newTestTagger(t)
	em := crf.Emissions{
		{{0, 4, 0, 0, 0}, {0, 0, 1, 0, 0}, {3, 0, 0, 0, 0}},
		{{5, 0, 0, 0, 0}, {5, 0, 0, 0, 0}, {0, 0, 0, 0, 0}},
	}
	mask := crf.MaskFromLengths([]int{3, 2}, 3)
	labels := [][]string{{"B-PER", "I-PER", "O"}, {"O", "B-PER"}}

	ev, err := tg.Evaluate(em, mask, labels)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Sequences)
	assert.Equal(t, 1, ev.SequenceCorrect)
	assert.Equal(t, 5, ev.Tokens)
	assert.Equal(t, 4, ev.TokenCorrect)
	assert.InDelta(t, 0.8, ev.TokenAccuracy(), 1e-12)
	assert.InDelta(t, 0.5, ev.SequenceAccuracy(), 1e-12)
	assert.Greater(t, ev.Loss, 0.0)

	var total Evaluation
	total.Add(ev)
	total.Add(ev)
	assert.Equal(t, 10, total.Tokens)
	assert.Equal(t, 0.0, Evaluation{}.TokenAccuracy())

	_, err = tg.Evaluate(em, mask, [][]string{{"B-PER", "I-PER", "O"}, {"O"}})
	assert.Error(t, err)
}
