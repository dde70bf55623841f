package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pi-assistant/internal/models"
)

// KnowledgeBase answers from a curated table before the model is asked.
type KnowledgeBase struct {
	entries []models.KnowledgeEntry
	lowered []string
}

func NewKnowledgeBase(entries []models.KnowledgeEntry) *KnowledgeBase {
	kb := &KnowledgeBase{
		entries: entries,
		lowered: make([]string, len(entries)),
	}
	for i, e := range entries {
		kb.lowered[i] = strings.ToLower(e.Prompt)
	}
	return kb
}

// LoadKnowledgeBase reads a JSON array of {prompt, response}; .yaml and .yml
// files are accepted in the same shape.
func LoadKnowledgeBase(path string) ([]models.KnowledgeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var entries []models.KnowledgeEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base %s: %w", filepath.Base(path), err)
	}
	return entries, nil
}

func (kb *KnowledgeBase) Len() int {
	return len(kb.entries)
}

// Match returns the response of the first entry whose prompt contains the
// input, case-insensitively. The direction is intentional: a short input
// like "hi" matches any longer prompt containing it.
func (kb *KnowledgeBase) Match(input string) (string, bool) {
	if kb == nil {
		return "", false
	}
	q := strings.ToLower(strings.TrimSpace(input))
	if q == "" {
		return "", false
	}
	for i, pattern := range kb.lowered {
		if strings.Contains(pattern, q) {
			return kb.entries[i].Response, true
		}
	}
	return "", false
}
