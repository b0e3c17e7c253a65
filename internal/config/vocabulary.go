package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

// LoadVocabulary reads a department and project-type vocabulary from a YAML
// file. An empty path returns the built-in defaults, so deployments without a
// custom vocabulary need no file at all.
func LoadVocabulary(path string) (*domain.Vocabulary, error) {
	if path == "" {
		return domain.DefaultVocabulary(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}

	vocab := domain.DefaultVocabulary()
	if err := yaml.Unmarshal(raw, vocab); err != nil {
		return nil, fmt.Errorf("parse vocabulary file: %w", err)
	}
	if len(vocab.Departments) == 0 {
		return nil, fmt.Errorf("vocabulary file %s defines no departments", path)
	}
	vocab.Normalize()
	return vocab, nil
}
