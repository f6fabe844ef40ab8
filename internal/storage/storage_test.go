package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyhackingspace/chaincrf/crf"
)

func TestGetDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://example.org/page", "example"},
		{"https://foo.example.co.uk/path", "example"},
		{"http://www.google.com", "google"},
		{"example.org", "example"},
		{"http://localhost:8080/path", "localhost"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetDomain(tt.url), "GetDomain(%q)", tt.url)
	}
}

func TestParseBatchMaskForms(t *testing.T) {
	em := `[[[1,0,0,0],[0,1,0,0]],[[0,1,0,0],[0,0,0,0]]]`
	want := crf.Mask{{true, true}, {true, false}}
	tests := []struct {
		name string
		json string
		want crf.Mask
	}{
		{"bool mask", `{"emissions":` + em + `,"mask":[[true,true],[true,false]]}`, want},
		{"numeric mask", `{"emissions":` + em + `,"mask":[[1,1],[1,0]]}`, want},
		{"lengths", `{"emissions":` + em + `,"lengths":[2,1]}`, want},
		{"no mask", `{"emissions":` + em + `}`, crf.FullMask(2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBatch([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Mask)
			assert.Equal(t, 2, b.Size())
			assert.False(t, b.Labeled())
		})
	}
}

func TestParseBatchRejectsBadShapes(t *testing.T) {
	em := `[[[1,0,0,0],[0,1,0,0]],[[0,1,0,0],[0,0,0,0]]]`
	tests := []struct {
		name string
		json string
	}{
		{"no emissions", `{"emissions":[]}`},
		{"mask value", `{"emissions":` + em + `,"mask":[[2,1],[1,0]]}`},
		{"mask rows", `{"emissions":` + em + `,"mask":[[1,1]]}`},
		{"mask steps", `{"emissions":` + em + `,"mask":[[1,1,0],[1,0,0]]}`},
		{"short mask row", `{"emissions":` + em + `,"mask":[[1,1],[1]]}`},
		{"lengths count", `{"emissions":` + em + `,"lengths":[2]}`},
		{"length past width", `{"emissions":` + em + `,"lengths":[7,1]}`},
		{"zero length", `{"emissions":` + em + `,"lengths":[2,0]}`},
		{"negative length", `{"emissions":` + em + `,"lengths":[-1,2]}`},
		{"label rows", `{"emissions":` + em + `,"labels":[["A","B"]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBatch([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestSaveLoadBatch(t *testing.T) {
	b := &Batch{
		Emissions: crf.Emissions{{{1, 2, 0, 0}, {3, 4, 0, 0}}},
		Mask:      crf.Mask{{true, false}},
		Labels:    [][]string{{"A"}},
	}
	path := filepath.Join(t.TempDir(), "b.json")
	require.NoError(t, SaveBatch(b, path))
	got, err := LoadBatch(path)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func writeFile(t *testing.T, dir, name, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0644))
}

func TestIterBatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{"labels":["O","PER"],"NA_value":"?","simplify_map":{"B-PER":"PER"}}`)
	writeFile(t, dir, "index.json", `{
		"b.json": {"source": "https://www.zeta.com/doc", "split": "train"},
		"a.json": {"source": "https://news.alpha.co.uk/x", "split": "train"},
		"c.json": {"source": "https://alpha.co.uk/y", "split": "test"},
		"broken.json": {"source": "https://beta.org", "split": "train"}
	}`)
	em := `[[[1,0,0,0]],[[0,1,0,0]],[[1,0,0,0]]]`
	writeFile(t, dir, "a.json", `{"emissions":`+em+`,"labels":[["O"],["B-PER"],["O"]]}`)
	writeFile(t, dir, "b.json", `{"emissions":[[[0,0,0,0]]],"labels":[["?"]]}`)
	writeFile(t, dir, "c.json", `{"emissions":[[[0,2,0,0]]],"labels":[["PER"]]}`)
	writeFile(t, dir, "broken.json", `{not json`)

	s := NewStorage(dir)
	items, err := s.IterBatches(DefaultIterOptions())
	require.NoError(t, err)
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	// b.json only holds an NA sequence; broken.json is skipped.
	require.Equal(t, []string{"a.json", "c.json"}, paths)

	a := items[0].Batch
	assert.Equal(t, 2, a.Size(), "duplicate sequence kept")
	assert.Equal(t, [][]string{{"O"}, {"PER"}}, a.Labels)
	assert.Equal(t, "alpha", items[0].Domain)

	items, err = s.IterBatches(IterOptions{Split: "test"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c.json", items[0].Path)

	schema, err := s.GetSchema()
	require.NoError(t, err)
	assert.Equal(t, []string{"O", "PER"}, schema.Labels)
	assert.Equal(t, "PER", schema.Simplify("B-PER"))
}

func TestIterBatchesWithoutIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2.json", `{"emissions":[[[0,0,0]]]}`)
	writeFile(t, dir, "1.json", `{"emissions":[[[0,0,0]],[[1,0,0]]]}`)
	writeFile(t, dir, "notes.txt", `ignored`)

	s := NewStorage(dir)
	items, err := s.IterBatches(IterOptions{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1.json", items[0].Path)
	assert.Equal(t, "2.json", items[1].Path)
	assert.Equal(t, 2, items[0].Batch.Size())

	schema, err := s.GetSchema()
	assert.NoError(t, err)
	assert.Nil(t, schema)
}
