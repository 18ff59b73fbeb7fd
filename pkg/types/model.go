package types

// Model describes a model offered by a provider.
type Model struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ProviderID        string `json:"providerID"`
	ContextLength     int    `json:"contextLength"`
	MaxOutputTokens   int    `json:"maxOutputTokens"`
	SupportsTools     bool   `json:"supportsTools"`
	SupportsReasoning bool   `json:"supportsReasoning"`
}

// ModelRef references a specific model from a provider.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}
