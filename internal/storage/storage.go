package storage

import (
	"crypto/md5"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/net/publicsuffix"
)

// Storage wraps a dataset folder of batch files.
//
// The folder holds an optional config.json with the label schema and an
// optional index.json mapping batch files to their source documents. Without
// an index every *.json file other than those two is a batch.
type Storage struct {
	Folder string
}

// NewStorage creates a Storage for the given data folder.
func NewStorage(folder string) *Storage {
	return &Storage{Folder: folder}
}

// configJSON is the structure of config.json.
type configJSON struct {
	Labels      []string          `json:"labels"`
	NAValue     string            `json:"NA_value"`
	SimplifyMap map[string]string `json:"simplify_map"`
}

// indexEntry represents a single entry in index.json.
type indexEntry struct {
	Source string `json:"source"`
	Split  string `json:"split"`
}

// Item is one batch file read from the folder.
type Item struct {
	Path   string // relative to the folder
	Source string
	Domain string
	Split  string
	Batch  *Batch
}

// GetConfig reads the config file.
func (s *Storage) GetConfig() (*configJSON, error) {
	data, err := os.ReadFile(filepath.Join(s.Folder, "config.json"))
	if err != nil {
		return nil, err
	}
	var config configJSON
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// GetSchema returns the label schema, or nil if the folder has no config.
func (s *Storage) GetSchema() (*LabelSchema, error) {
	config, err := s.GetConfig()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &LabelSchema{
		Labels:      config.Labels,
		NAValue:     config.NAValue,
		SimplifyMap: config.SimplifyMap,
	}, nil
}

// GetIndex reads the index file. A missing index lists every batch file in
// the folder with no source.
func (s *Storage) GetIndex() (map[string]indexEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.Folder, "index.json"))
	if os.IsNotExist(err) {
		return s.scanFolder()
	}
	if err != nil {
		return nil, err
	}
	var index map[string]indexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *Storage) scanFolder() (map[string]indexEntry, error) {
	entries, err := os.ReadDir(s.Folder)
	if err != nil {
		return nil, err
	}
	index := make(map[string]indexEntry)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || name == "index.json" || name == "config.json" {
			continue
		}
		index[name] = indexEntry{}
	}
	return index, nil
}

// IterBatches reads every batch of the folder in a deterministic order:
// grouped by source domain, then by path.
func (s *Storage) IterBatches(opts IterOptions) ([]Item, error) {
	schema, err := s.GetSchema()
	if err != nil {
		return nil, fmt.Errorf("get schema: %w", err)
	}
	index, err := s.GetIndex()
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}

	sorted := make([]Item, 0, len(index))
	for path, info := range index {
		if opts.Split != "" && info.Split != opts.Split {
			continue
		}
		sorted = append(sorted, Item{Path: path, Source: info.Source, Domain: GetDomain(info.Source), Split: info.Split})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Domain != sorted[j].Domain {
			return sorted[i].Domain < sorted[j].Domain
		}
		return sorted[i].Path < sorted[j].Path
	})

	seen := make(map[string]bool)
	items := make([]Item, 0, len(sorted))
	for _, it := range sorted {
		b, err := LoadBatch(filepath.Join(s.Folder, it.Path))
		if err != nil {
			slog.Warn("Cannot read batch file", "path", it.Path, "error", err)
			continue
		}

		keep := make([]int, 0, b.Size())
		for row := range b.Size() {
			if b.Labeled() {
				labels := b.Labels[row]
				if opts.SimplifyLabels {
					for t, l := range labels {
						labels[t] = schema.Simplify(l)
					}
				}
				if opts.DropNA && schema != nil && schema.NAValue != "" && hasLabel(labels, schema.NAValue) {
					continue
				}
			}
			// Deduplication by sequence content hash
			if opts.DropDuplicates {
				hash := sequenceHash(b, row)
				if seen[hash] {
					continue
				}
				seen[hash] = true
			}
			keep = append(keep, row)
		}
		if len(keep) == 0 {
			if opts.Verbose {
				slog.Debug("Batch file has no sequences left", "path", it.Path)
			}
			continue
		}
		if len(keep) < b.Size() {
			b = b.Select(keep)
		}
		it.Batch = b
		items = append(items, it)
	}
	return items, nil
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// sequenceHash hashes the valid emissions and labels of one sequence.
func sequenceHash(b *Batch, row int) string {
	h := md5.New()
	for t, valid := range b.Mask[row] {
		if !valid {
			break
		}
		fmt.Fprint(h, b.Emissions[row][t], ";")
	}
	if b.Labeled() {
		fmt.Fprint(h, b.Labels[row])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// IterOptions controls batch iteration behavior.
type IterOptions struct {
	DropDuplicates bool
	DropNA         bool
	SimplifyLabels bool
	Split          string // only read batches of this split, if set
	Verbose        bool
}

// DefaultIterOptions returns the default options for iterating batches.
func DefaultIterOptions() IterOptions {
	return IterOptions{
		DropDuplicates: true,
		DropNA:         true,
		SimplifyLabels: true,
	}
}

// GetDomain extracts the domain name from a source URL (for grouped
// cross-validation). It returns "" for an empty source.
func GetDomain(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	// Extract host from URL
	host := rawURL
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}

	// Use publicsuffix to find the eTLD+1, then extract just the domain
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	// domain is like "example.co.uk", we want just "example"
	if idx := strings.Index(domain, "."); idx >= 0 {
		return domain[:idx]
	}
	return domain
}
