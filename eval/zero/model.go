package zero

import (
	"encoding/json"
	"fmt"

	"github.com/icueval/icueval/eval/modutils"
	"gonum.org/v1/gonum/mat"
)

// ZeroModel is a baseline classifier predicting the most frequent
// class of its training data (survival = 0 for typical ICU data).
// It provides labels only, there is no decision function.
type ZeroModel struct {
	Constant float64 `json:"constant"`
}

func (zm *ZeroModel) Predict(X mat.Matrix) ([]float64, error) {
	r, _ := X.Dims()
	ans := make([]float64, r)
	for i := range ans {
		ans[i] = zm.Constant
	}
	return ans, nil
}

func (zm *ZeroModel) GetInfo() string {
	return fmt.Sprintf("ZeroModel (majority class %.0f)", zm.Constant)
}

// LoadFromFile reads the majority class from a JSON file. An empty
// path produces a model predicting class 0.
func LoadFromFile(filePath string) (*ZeroModel, error) {
	var zm ZeroModel
	if filePath == "" {
		return &zm, nil
	}
	data, err := modutils.ReadModelFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load zero model: %w", err)
	}
	if err := json.Unmarshal(data, &zm); err != nil {
		return nil, fmt.Errorf("failed to load zero model: %w", err)
	}
	if zm.Constant != 0 && zm.Constant != 1 {
		return nil, fmt.Errorf("failed to load zero model: invalid class %v", zm.Constant)
	}
	return &zm, nil
}
