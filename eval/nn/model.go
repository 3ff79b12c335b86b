package nn

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/icueval/icueval/eval/modutils"
	"github.com/patrikeh/go-deep"
	"gonum.org/v1/gonum/mat"
)

const dfltClassThreshold = 0.5

type FeatureStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type jsonizedModel struct {
	NeuralNet      *deep.Dump     `json:"neuralNet"`
	DataRanges     []FeatureStats `json:"dataRanges,omitempty"`
	ClassThreshold float64        `json:"classThreshold"`
}

// Model is a feed-forward network with a single sigmoid output
// interpreted as the probability of the positive class.
type Model struct {
	NeuralNet *deep.Neural

	// DataRanges (optional) are used to min-max normalize
	// the input features the same way as during training.
	DataRanges     []FeatureStats
	ClassThreshold float64
}

func (m *Model) DecisionThreshold() float64 {
	return m.ClassThreshold
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf(
		"NN model, layout: #%v, class threshold: %.2f",
		m.NeuralNet.Config.Layout, m.ClassThreshold,
	)
}

func (m *Model) normalizeNNFeats(data []float64) {
	for i := 0; i < len(m.DataRanges) && i < len(data); i++ {
		min := m.DataRanges[i].Min
		max := m.DataRanges[i].Max

		if max == min {
			data[i] = 0.0 // constant feature

		} else {
			data[i] = (data[i] - min) / (max - min)
		}
	}
}

func (m *Model) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if err := modutils.CheckNumFeatures(X, m.NeuralNet.Config.Inputs); err != nil {
		return nil, fmt.Errorf("failed to evaluate NN model: %w", err)
	}
	r, _ := X.Dims()
	ans := make([]float64, r)
	for i := 0; i < r; i++ {
		features := modutils.Row(X, i)
		m.normalizeNNFeats(features)
		ans[i] = m.NeuralNet.Predict(features)[0]
	}
	return ans, nil
}

func (m *Model) Predict(X mat.Matrix) ([]float64, error) {
	scores, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return modutils.ScoresToLabels(scores, m.ClassThreshold), nil
}

func (m *Model) SaveToFile(filePath string) error {
	tmpModel := jsonizedModel{
		NeuralNet:      m.NeuralNet.Dump(),
		DataRanges:     m.DataRanges,
		ClassThreshold: m.ClassThreshold,
	}
	bytes, err := json.Marshal(tmpModel)
	if err != nil {
		return fmt.Errorf("failed to save NN to file: %w", err)
	}
	if err := os.WriteFile(filePath, bytes, 0644); err != nil {
		return fmt.Errorf("failed to save NN model to a file: %w", err)
	}
	return nil
}

func LoadFromFile(filePath string) (*Model, error) {
	data, err := modutils.ReadModelFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Neural Network model from file %s: %w", filePath, err)
	}
	var model jsonizedModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to load Neural Network model from file %s: %w", filePath, err)
	}
	if model.NeuralNet == nil || model.NeuralNet.Config == nil {
		return nil, fmt.Errorf("failed to load Neural Network model from file %s: missing network", filePath)
	}
	if model.ClassThreshold == 0 {
		model.ClassThreshold = dfltClassThreshold
	}
	return &Model{
		NeuralNet:      deep.FromDump(model.NeuralNet),
		DataRanges:     model.DataRanges,
		ClassThreshold: model.ClassThreshold,
	}, nil
}

func NewModel(net *deep.Neural) *Model {
	return &Model{
		NeuralNet:      net,
		ClassThreshold: dfltClassThreshold,
	}
}
