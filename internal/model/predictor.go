package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"insightedge/internal/dataset"
)

// ErrMissingFeature indicates the feature vector lacks a column the model was trained on.
var ErrMissingFeature = errors.New("model: missing feature")

const defaultThreshold = 0.5

// Predictor evaluates a pretrained gradient-boosted tree ensemble. It is
// immutable after construction and safe for concurrent use.
type Predictor struct {
	name       string
	features   []string
	categories map[string]map[string]float64
	trees      []compiledTree
	baseMargin float64
	threshold  float64
}

// Load reads the artifact at path and compiles it. A positive threshold
// overrides the one stored in the artifact.
func Load(path string, threshold float64, logger zerolog.Logger) (*Predictor, error) {
	art, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	if threshold > 0 {
		art.Threshold = &threshold
	}
	p, err := New(art)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}

	log := logger.With().Str("component", "model").Logger()
	log.Info().
		Str("name", p.name).
		Int("trees", len(p.trees)).
		Int("features", len(p.features)).
		Float64("threshold", p.threshold).
		Msg("model loaded")
	return p, nil
}

// New compiles an in-memory artifact.
func New(art *Artifact) (*Predictor, error) {
	switch art.Objective {
	case "", ObjectiveLogistic, ObjectiveLogitRaw:
	default:
		return nil, fmt.Errorf("unsupported objective %q", art.Objective)
	}

	trees, err := art.compile()
	if err != nil {
		return nil, err
	}

	p := &Predictor{
		name:       art.Name,
		features:   append([]string(nil), art.FeatureNames...),
		categories: make(map[string]map[string]float64),
		trees:      trees,
		threshold:  defaultThreshold,
	}
	for name, mapping := range defaultCategories {
		p.categories[name] = mapping
	}
	for name, mapping := range art.Categories {
		p.categories[name] = mapping
	}

	if art.Threshold != nil {
		if *art.Threshold <= 0 || *art.Threshold >= 1 {
			return nil, fmt.Errorf("threshold must be within (0, 1), got %v", *art.Threshold)
		}
		p.threshold = *art.Threshold
	}
	if art.BaseScore != nil && art.Objective != ObjectiveLogitRaw {
		score := *art.BaseScore
		if score <= 0 || score >= 1 {
			return nil, fmt.Errorf("base_score must be within (0, 1), got %v", score)
		}
		p.baseMargin = math.Log(score / (1 - score))
	} else if art.BaseScore != nil {
		p.baseMargin = *art.BaseScore
	}
	return p, nil
}

// FeatureNames lists the trained feature schema in order.
func (p *Predictor) FeatureNames() []string {
	return append([]string(nil), p.features...)
}

// Trees reports the ensemble size.
func (p *Predictor) Trees() int {
	return len(p.trees)
}

// Threshold is the probability above which Rise is predicted.
func (p *Predictor) Threshold() float64 {
	return p.threshold
}

// Predict classifies one feature vector.
func (p *Predictor) Predict(vec dataset.FeatureVector) (Prediction, error) {
	row, err := p.encode(vec)
	if err != nil {
		return Prediction{}, err
	}

	margin := p.baseMargin
	for _, tree := range p.trees {
		margin += tree.eval(row)
	}
	prob := 1 / (1 + math.Exp(-margin))

	dir := Fall
	if prob > p.threshold {
		dir = Rise
	}
	return Prediction{Direction: dir, Label: dir.Label(), Probability: prob}, nil
}

func (p *Predictor) encode(vec dataset.FeatureVector) ([]float64, error) {
	row := make([]float64, len(p.features))
	for i, name := range p.features {
		if v, ok := vec.Numeric(name); ok {
			row[i] = v
			continue
		}
		label, ok := vec.Category(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, name)
		}
		code, known := p.categories[name][label]
		if !known {
			row[i] = math.NaN()
			continue
		}
		row[i] = code
	}
	return row, nil
}

func (t compiledTree) eval(row []float64) float64 {
	id := t.root
	for {
		node := t.nodes[id]
		if node.leaf {
			return node.value
		}
		v := row[node.feature]
		switch {
		case math.IsNaN(v):
			id = node.missing
		case v < node.threshold:
			id = node.yes
		default:
			id = node.no
		}
	}
}
