package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// QuestionPreset holds the tunable generation settings for one question kind.
type QuestionPreset struct {
	SystemInstruction string  `yaml:"system_instruction"`
	Temperature       float32 `yaml:"temperature"`
	Count             int     `yaml:"count"`
}

// QuestionPresets maps the two question kinds to their presets.
type QuestionPresets struct {
	Custom   QuestionPreset `yaml:"custom"`
	Personal QuestionPreset `yaml:"personal"`
}

// DefaultQuestionPresets returns the built-in presets used when no file is present.
func DefaultQuestionPresets() QuestionPresets {
	return QuestionPresets{
		Custom: QuestionPreset{
			SystemInstruction: "You are an expert interview question generator that creates custom questions based on job requirements and skills.",
			Temperature:       0.7,
			Count:             5,
		},
		Personal: QuestionPreset{
			SystemInstruction: "You are a smart interview assistant that generates personalized interview questions.",
			Temperature:       0.8,
			Count:             5,
		},
	}
}

// LoadQuestionPresets reads presets from a YAML file. A missing file yields the
// defaults; fields left empty in the file keep their default values.
func LoadQuestionPresets(path string) (QuestionPresets, error) {
	presets := DefaultQuestionPresets()
	if path == "" {
		return presets, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return presets, fmt.Errorf("op=config.LoadQuestionPresets: %w", err)
	}
	// #nosec G304 -- Configuration files are expected to be safe
	content, err := os.ReadFile(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return presets, nil
	}
	if err != nil {
		return presets, fmt.Errorf("op=config.LoadQuestionPresets: %w", err)
	}

	var file QuestionPresets
	if err := yaml.Unmarshal(content, &file); err != nil {
		return presets, fmt.Errorf("op=config.LoadQuestionPresets: parse %s: %w", absPath, err)
	}
	merge(&presets.Custom, file.Custom)
	merge(&presets.Personal, file.Personal)
	return presets, nil
}

func merge(dst *QuestionPreset, src QuestionPreset) {
	if src.SystemInstruction != "" {
		dst.SystemInstruction = src.SystemInstruction
	}
	if src.Temperature > 0 {
		dst.Temperature = src.Temperature
	}
	if src.Count > 0 {
		dst.Count = src.Count
	}
}
