package crf

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Model is the persisted form of a CRF: its label alphabet and transition
// matrix.
type Model struct {
	Labels      *Alphabet    `json:"labels"`
	Transitions *Transitions `json:"transitions"`
}

// NewModel creates a model with fresh transitions for the given labels.
func NewModel(labels *Alphabet, sentinel float64) (*Model, error) {
	tr, err := NewTransitions(labels.Size(), sentinel)
	if err != nil {
		return nil, err
	}
	return &Model{Labels: labels, Transitions: tr}, nil
}

// CRF returns a CRF layer backed by the model's transitions. Updates made
// through the layer are visible in the model.
func (m *Model) CRF(config Config) *CRF {
	return FromTransitions(m.Transitions, config)
}

func (m *Model) validate() error {
	if m.Labels == nil || m.Transitions == nil {
		return errors.New("crf: model is missing labels or transitions")
	}
	if m.Labels.Size() != m.Transitions.NumTags() {
		return errors.Wrapf(ErrShapeMismatch, "model has %d labels and %d tags", m.Labels.Size(), m.Transitions.NumTags())
	}
	return nil
}

// SaveModel serializes the model to JSON.
func SaveModel(model *Model, path string) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadModel deserializes a model from JSON.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalModel(data)
}

// MarshalModel serializes the model to JSON bytes.
func MarshalModel(model *Model) ([]byte, error) {
	return json.Marshal(model)
}

// UnmarshalModel deserializes a model from JSON bytes.
func UnmarshalModel(data []byte) (*Model, error) {
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, err
	}
	if err := model.validate(); err != nil {
		return nil, err
	}
	return &model, nil
}
