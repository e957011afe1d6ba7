package ai

import "context"

// Vision port: mixed text+image generation against the external model.
// The model identifier is set per call so the fallback policy can walk
// the configured list. Prompt construction is an infra concern.
type Vision interface {
	Generate(ctx context.Context, model string, imageJPEG []byte) (string, error)
}

// Speech port: text-to-speech narration. Failures are non-fatal to the
// analysis result.
type Speech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// VisionFactory builds a client bound to an API key. Settings are
// re-read on every analysis call, so clients are constructed per
// request rather than held for the process lifetime.
type VisionFactory func(apiKey string) Vision

type SpeechFactory func(apiKey string) Speech

// SettingsSource port: credential + model list. Load is called fresh
// on each top-level analysis so a mid-session settings change takes
// effect on the next request.
type SettingsSource interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}
