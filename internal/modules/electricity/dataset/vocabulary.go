package dataset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"powerstats-server/internal/modules/electricity/types"
)

const (
	FeatureNetConsumption     = "net consumption"
	FeatureNetGeneration      = "net generation"
	FeatureImports            = "imports"
	FeatureExports            = "exports"
	FeatureInstalledCapacity  = "installed capacity"
	FeatureDistributionLosses = "distribution losses"
)

// Vocabulary names the features each view filters on. Feature values outside
// it still flow through the pipeline untouched.
type Vocabulary struct {
	DefaultFeature string                `yaml:"default_feature"`
	Options        []types.FeatureOption `yaml:"options"`
	BarFeatures    []string              `yaml:"bar_features"`
	LineFeatures   []string              `yaml:"line_features"`
	PieFeatures    []string              `yaml:"pie_features"`
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		DefaultFeature: FeatureNetConsumption,
		Options: []types.FeatureOption{
			{Label: "Net consumption", Value: FeatureNetConsumption},
			{Label: "Net generation", Value: FeatureNetGeneration},
			{Label: "Import", Value: FeatureImports},
			{Label: "Export", Value: FeatureExports},
			{Label: "Installed capacity", Value: FeatureInstalledCapacity},
		},
		BarFeatures:  []string{FeatureImports, FeatureExports},
		LineFeatures: []string{FeatureNetGeneration, FeatureNetConsumption},
		PieFeatures:  []string{FeatureImports, FeatureNetGeneration, FeatureDistributionLosses},
	}
}

// LoadVocabulary reads a YAML override. Keys left out of the file keep their
// defaults; an empty path returns the defaults.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()
	if strings.TrimSpace(path) == "" {
		return v, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	if err := v.Validate(); err != nil {
		return Vocabulary{}, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

func (v Vocabulary) Validate() error {
	if len(v.Options) == 0 {
		return fmt.Errorf("options must not be empty")
	}
	for _, o := range v.Options {
		if strings.TrimSpace(o.Value) == "" {
			return fmt.Errorf("option %q has empty value", o.Label)
		}
	}
	if !v.HasOption(v.DefaultFeature) {
		return fmt.Errorf("default_feature %q is not one of the options", v.DefaultFeature)
	}
	if len(v.BarFeatures) == 0 || len(v.LineFeatures) == 0 || len(v.PieFeatures) == 0 {
		return fmt.Errorf("bar_features, line_features and pie_features must not be empty")
	}
	return nil
}

func (v Vocabulary) HasOption(feature string) bool {
	for _, o := range v.Options {
		if o.Value == feature {
			return true
		}
	}
	return false
}
