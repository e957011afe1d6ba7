package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ngocminh/chudau-catalog/internal/application"
	"github.com/ngocminh/chudau-catalog/internal/domain/ai"
	"github.com/ngocminh/chudau-catalog/internal/domain/catalog"
)

// Fixed Record fields for AI-decoded artifacts, taken over from the
// original catalog conventions.
const (
	titlePrefix     = "Khai thác di sản: "
	titleMaxRunes   = 30
	defaultCategory = "Gốm Chu Đậu"
	defaultStatus   = "Đã giải mã"
	defaultPriority = "Medium"
	audioGuideRunes = 500
)

// Service drives one image through the model-fallback chain to either
// a persisted Record or a terminal error. Safe for concurrent use;
// each request tracks progress independently.
type Service struct {
	Repo      catalog.Repository
	Settings  ai.SettingsSource
	NewVision ai.VisionFactory
	NewSpeech ai.SpeechFactory
	Clock     application.Clock
	Tracker   *Tracker
}

// Result of a completed analysis. SaveErr carries a persistence
// failure without masking the successful analysis text.
type Result struct {
	RequestID   string           `json:"id"`
	Text        string           `json:"result"`
	RecordID    catalog.RecordID `json:"record_id,omitempty"`
	Audio       []byte           `json:"audio,omitempty"`
	SaveErr     string           `json:"save_error,omitempty"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Analyze runs the full pipeline for one image. Settings are loaded
// fresh so a mid-session model-list change applies here. Attempts walk
// the model list strictly in order, one try per entry; the accumulated
// causes surface only after exhaustion.
func (s *Service) Analyze(ctx context.Context, requestID string, imageJPEG []byte) (*Result, error) {
	if len(imageJPEG) == 0 {
		return nil, ai.ErrEmptyImage
	}

	st, err := s.Settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if st.APIKey == "" {
		return nil, ai.ErrMissingAPIKey
	}
	models := st.Models
	if len(models) == 0 {
		models = ai.DefaultModels()
	}

	s.Tracker.Start(requestID)

	vision := s.NewVision(st.APIKey)

	var attempts []error
	for i := range models {
		model := ai.SelectModel(models, i)
		text, err := vision.Generate(ctx, model, imageJPEG)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ai.ErrEmptyResponse
		}
		if err == nil {
			return s.complete(ctx, requestID, st, text)
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", model, err))
		if ctx.Err() != nil {
			break
		}
	}

	s.Tracker.Finish(requestID, false)
	return nil, ai.TerminalError(errors.Join(attempts...))
}

// complete persists the derived Record and fetches the best-effort
// audio guide. A save failure is reported on the Result, never as an
// analysis failure.
func (s *Service) complete(ctx context.Context, requestID string, st ai.Settings, text string) (*Result, error) {
	s.Tracker.Finish(requestID, true)

	res := &Result{
		RequestID:   requestID,
		Text:        text,
		CompletedAt: s.Clock.Now(),
	}

	id, err := s.Repo.CreateRecord(ctx, DeriveRecord(text))
	if err != nil {
		res.SaveErr = err.Error()
	} else {
		res.RecordID = id
	}

	if s.NewSpeech != nil {
		speech := s.NewSpeech(st.APIKey)
		if audio, err := speech.Synthesize(ctx, truncateRunes(text, audioGuideRunes)); err == nil {
			res.Audio = audio
		}
	}

	return res, nil
}

// DeriveRecord builds the persisted fields from a successful result:
// title from the first line, markdown markers stripped, truncated.
func DeriveRecord(text string) catalog.NewRecordFields {
	first := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	first = strings.Map(func(r rune) rune {
		if r == '#' || r == '*' {
			return -1
		}
		return r
	}, first)
	return catalog.NewRecordFields{
		Title:       titlePrefix + truncateRunes(first, titleMaxRunes),
		Category:    defaultCategory,
		Status:      defaultStatus,
		Priority:    defaultPriority,
		Description: text,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
