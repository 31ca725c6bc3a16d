package search

import (
	"os"

	"gopkg.in/yaml.v3"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

// weightsFile is the optional YAML calibration file shape.
type weightsFile struct {
	FilePathMatch       *float64 `yaml:"file_path_match"`
	HeaderPriority      *float64 `yaml:"header_priority"`
	ImplPenalty         *float64 `yaml:"impl_penalty"`
	CoOccurrencePenalty *float64 `yaml:"co_occurrence_penalty"`
	RichChunkBonus      *float64 `yaml:"rich_chunk_bonus"`
	EntityBoost         *float64 `yaml:"entity_boost"`
	MacroBoost          *float64 `yaml:"macro_boost"`
}

// LoadRuleWeights loads an optional YAML override of the seven rule
// multipliers, falling back to DefaultRuleWeights for any field absent
// from the file, or entirely when the file does not exist.
func LoadRuleWeights(path string) (RuleWeights, error) {
	defaults := DefaultRuleWeights()
	if path == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return defaults, coreerrors.Wrap(coreerrors.KindConfig, "read rule weights file", err)
	}
	var wf weightsFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return defaults, coreerrors.Wrap(coreerrors.KindConfig, "parse rule weights file", err)
	}
	apply := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&defaults.FilePathMatch, wf.FilePathMatch)
	apply(&defaults.HeaderPriority, wf.HeaderPriority)
	apply(&defaults.ImplPenalty, wf.ImplPenalty)
	apply(&defaults.CoOccurrencePenalty, wf.CoOccurrencePenalty)
	apply(&defaults.RichChunkBonus, wf.RichChunkBonus)
	apply(&defaults.EntityBoost, wf.EntityBoost)
	apply(&defaults.MacroBoost, wf.MacroBoost)
	return defaults, nil
}
