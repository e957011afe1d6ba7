package ai

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey: no credential configured. Surfaced before any
// network call is made.
var ErrMissingAPIKey = errors.New("Vui lòng cấu hình API Key trong cài đặt.")

// ErrEmptyImage indicates an empty image payload
var ErrEmptyImage = errors.New("image data is empty")

// ErrEmptyResponse indicates the model returned an empty body; treated
// as a model-call failure and therefore retried via fallback.
var ErrEmptyResponse = errors.New("API returned empty response")

// ErrorMarker prefixes every terminal analysis error shown to users.
const ErrorMarker = "Đã dừng do lỗi"

// TerminalError wraps the accumulated cause after the model list is
// exhausted.
func TerminalError(cause error) error {
	return fmt.Errorf("%s: %w", ErrorMarker, cause)
}
