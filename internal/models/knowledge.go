package models

// KnowledgeEntry is a static prompt/response pair that short-circuits the model.
type KnowledgeEntry struct {
	Prompt   string `json:"prompt" yaml:"prompt"`
	Response string `json:"response" yaml:"response"`
}
