package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/ngocminh/chudau-catalog/internal/infra/ai/prompt"
)

// Gemini exposes an OpenAI-compatible surface; go-openai talks to it
// with a swapped base URL.
const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

const (
	maxOutputTokens = 4096
	temperature     = 0.7
	ttsModel        = "gemini-2.5-flash-preview-tts"
	ttsVoice        = "Kore"
)

type Client struct {
	*openai.Client
}

// NewClient binds a client to one API key. The pipeline constructs a
// fresh client per request since the key is re-read from settings.
func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, defaultBaseURL)
}

func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{Client: openai.NewClientWithConfig(cfg)}
}

// Generate runs one pattern-analysis attempt against the given model
// with the image inlined as a JPEG data URL.
func (c *Client) Generate(ctx context.Context, model string, imageJPEG []byte) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.PatternAnalysis()},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageJPEG),
						},
					},
				},
			},
		},
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model %s returned no choices", model)
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesize narrates the text as a museum audio guide. Callers treat
// any failure here as non-fatal.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(ttsModel),
		Input: prompt.AudioGuide(text),
		Voice: openai.SpeechVoice(ttsVoice),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()
	return io.ReadAll(resp)
}
