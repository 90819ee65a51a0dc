package forecast

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Params holds offline-trained ridge weights for both targets so the runtime
// does inference only. Weight order matches featureVector: lag_1..lag_n,
// seasonality terms, window mean/std, intercept.
type Params struct {
	LagSteps      int       `json:"lag_steps" yaml:"lag_steps"`
	InflowWeights []float64 `json:"inflow_weights" yaml:"inflow_weights"`
	PriceWeights  []float64 `json:"price_weights" yaml:"price_weights"`
}

// Validate checks weight vector lengths against the lag window.
func (p Params) Validate() error {
	if p.LagSteps <= 0 {
		return fmt.Errorf("forecast params: lag_steps must be positive")
	}
	want := featureDim(p.LagSteps)
	if len(p.InflowWeights) != want || len(p.PriceWeights) != want {
		return fmt.Errorf("forecast params: want %d weights per target, got %d/%d",
			want, len(p.InflowWeights), len(p.PriceWeights))
	}
	return nil
}

// LoadParams loads Params from a JSON or YAML file.
func LoadParams(path string) (Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Params{}, err
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeParams(strings.NewReader(string(b)), ext)
}

// DecodeParams reads from r to decode Params in the given format.
func DecodeParams(r io.Reader, format string) (Params, error) {
	var p Params
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&p); err != nil {
			return p, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&p); err != nil {
			return p, err
		}
	default:
		return p, fmt.Errorf("unsupported format: %s", format)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// SetParams installs offline-trained weights, replacing any fitted model.
func (f *RidgeForecaster) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.LagSteps != f.cfg.LagSteps {
		return fmt.Errorf("forecast params: lag %d does not match configured lag %d", p.LagSteps, f.cfg.LagSteps)
	}
	f.inflow = &ridgeModel{weights: p.InflowWeights}
	f.price = &ridgeModel{weights: p.PriceWeights}
	return nil
}
