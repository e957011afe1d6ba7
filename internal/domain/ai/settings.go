package ai

import "errors"

// DefaultModels is the fallback order used when no list is configured.
func DefaultModels() []string {
	return []string{"gemini-3-flash-preview", "gemini-3-pro-preview", "gemini-2.5-flash"}
}

// Settings holds the user-configurable AI surface. Models must be
// non-empty; Validate enforces this at configuration time so the
// pipeline can rely on the invariant.
type Settings struct {
	APIKey string   `json:"apiKey"`
	Models []string `json:"models"`
}

var ErrNoModels = errors.New("model list must contain at least one entry")

func (s Settings) Validate() error {
	if len(s.Models) == 0 {
		return ErrNoModels
	}
	return nil
}

// SelectModel returns the model at index, clamped: any out-of-range
// index yields the first entry. Failure handling is the caller's
// responsibility.
func SelectModel(models []string, index int) string {
	if len(models) == 0 {
		return ""
	}
	if index < 0 || index >= len(models) {
		return models[0]
	}
	return models[index]
}
