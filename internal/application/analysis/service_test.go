package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngocminh/chudau-catalog/internal/application"
	"github.com/ngocminh/chudau-catalog/internal/domain/ai"
	"github.com/ngocminh/chudau-catalog/internal/domain/catalog"
)

type fakeVision struct {
	mu      sync.Mutex
	calls   []string // models in call order
	results map[string]string
	errs    map[string]error
}

func (f *fakeVision) Generate(ctx context.Context, model string, imageJPEG []byte) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, model)
	f.mu.Unlock()
	if err, ok := f.errs[model]; ok {
		return "", err
	}
	return f.results[model], nil
}

type fakeSpeech struct {
	audio []byte
	err   error
	calls int
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.calls++
	return f.audio, f.err
}

type fakeRepo struct {
	created []catalog.NewRecordFields
	nextID  catalog.RecordID
	err     error
}

func (f *fakeRepo) Records(ctx context.Context) ([]*catalog.Record, error) { return nil, nil }
func (f *fakeRepo) CreateRecord(ctx context.Context, fields catalog.NewRecordFields) (catalog.RecordID, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, fields)
	f.nextID++
	return f.nextID, nil
}
func (f *fakeRepo) Categories(ctx context.Context) ([]catalog.Category, error) { return nil, nil }
func (f *fakeRepo) Community(ctx context.Context) ([]*catalog.CommunityPost, error) {
	return nil, nil
}
func (f *fakeRepo) CreateCommunityPost(ctx context.Context, fields catalog.NewPostFields) (int64, error) {
	return 0, nil
}

type fakeSettings struct {
	st ai.Settings
}

func (f *fakeSettings) Load(ctx context.Context) (ai.Settings, error) { return f.st, nil }
func (f *fakeSettings) Save(ctx context.Context, s ai.Settings) error { f.st = s; return nil }

func newService(repo *fakeRepo, settings *fakeSettings, vision *fakeVision, speech *fakeSpeech) *Service {
	svc := &Service{
		Repo:      repo,
		Settings:  settings,
		NewVision: func(apiKey string) ai.Vision { return vision },
		Clock:     application.SystemClock{},
		Tracker:   NewTracker(),
	}
	if speech != nil {
		svc.NewSpeech = func(apiKey string) ai.Speech { return speech }
	}
	return svc
}

func TestAnalyzeFallbackThenSuccess(t *testing.T) {
	vision := &fakeVision{
		errs:    map[string]error{"m1": errors.New("quota exceeded")},
		results: map[string]string{"m2": "Hoa văn rồng thời Lê sơ\nChi tiết..."},
	}
	repo := &fakeRepo{}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1", "m2"}}}

	svc := newService(repo, settings, vision, nil)
	res, err := svc.Analyze(context.Background(), "req-1", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Equal(t, "Hoa văn rồng thời Lê sơ\nChi tiết...", res.Text)
	assert.Equal(t, []string{"m1", "m2"}, vision.calls)

	require.Len(t, repo.created, 1)
	rec := repo.created[0]
	assert.Equal(t, "Hoa văn rồng thời Lê sơ\nChi tiết...", rec.Description)
	assert.Equal(t, "Khai thác di sản: Hoa văn rồng thời Lê sơ", rec.Title)
	assert.Equal(t, "Gốm Chu Đậu", rec.Category)
	assert.Equal(t, "Đã giải mã", rec.Status)
	assert.Equal(t, "Medium", rec.Priority)
	assert.Equal(t, catalog.RecordID(1), res.RecordID)
}

func TestAnalyzeExhaustionMakesExactlyNAttempts(t *testing.T) {
	models := []string{"m1", "m2", "m3", "m4"}
	errs := map[string]error{}
	for _, m := range models {
		errs[m] = fmt.Errorf("%s unavailable", m)
	}
	vision := &fakeVision{errs: errs}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: models}}

	svc := newService(&fakeRepo{}, settings, vision, nil)
	_, err := svc.Analyze(context.Background(), "req-1", []byte{1})
	require.Error(t, err)

	// one attempt per model, strictly in order, none repeated
	assert.Equal(t, models, vision.calls)
	assert.Contains(t, err.Error(), ai.ErrorMarker)
	for _, m := range models {
		assert.Contains(t, err.Error(), m+" unavailable")
	}
}

func TestAnalyzeSingleModelTerminalError(t *testing.T) {
	vision := &fakeVision{errs: map[string]error{"m1": errors.New("timeout")}}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1"}}}

	svc := newService(&fakeRepo{}, settings, vision, nil)
	_, err := svc.Analyze(context.Background(), "req-1", []byte{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ai.ErrorMarker)
	assert.Contains(t, err.Error(), "timeout")
	assert.Len(t, vision.calls, 1)
}

func TestAnalyzeMissingAPIKeyFailsBeforeAnyCall(t *testing.T) {
	vision := &fakeVision{}
	settings := &fakeSettings{st: ai.Settings{Models: []string{"m1"}}}

	svc := newService(&fakeRepo{}, settings, vision, nil)
	_, err := svc.Analyze(context.Background(), "req-1", []byte{1})
	require.ErrorIs(t, err, ai.ErrMissingAPIKey)
	assert.Empty(t, vision.calls)
}

func TestAnalyzeEmptyImageRejected(t *testing.T) {
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1"}}}
	svc := newService(&fakeRepo{}, settings, &fakeVision{}, nil)
	_, err := svc.Analyze(context.Background(), "req-1", nil)
	require.ErrorIs(t, err, ai.ErrEmptyImage)
}

func TestAnalyzeEmptyResponseTriggersFallback(t *testing.T) {
	vision := &fakeVision{results: map[string]string{"m1": "   ", "m2": "ok"}}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1", "m2"}}}

	svc := newService(&fakeRepo{}, settings, vision, nil)
	res, err := svc.Analyze(context.Background(), "req-1", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, []string{"m1", "m2"}, vision.calls)
}

func TestAnalyzeSaveFailureDoesNotMaskResult(t *testing.T) {
	vision := &fakeVision{results: map[string]string{"m1": "kết quả"}}
	repo := &fakeRepo{err: errors.New("disk full")}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1"}}}

	svc := newService(repo, settings, vision, nil)
	res, err := svc.Analyze(context.Background(), "req-1", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "kết quả", res.Text)
	assert.Contains(t, res.SaveErr, "disk full")
	assert.Zero(t, res.RecordID)
}

func TestAnalyzeAudioFailureIsSwallowed(t *testing.T) {
	vision := &fakeVision{results: map[string]string{"m1": "kết quả"}}
	speech := &fakeSpeech{err: errors.New("tts down")}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1"}}}

	svc := newService(&fakeRepo{}, settings, vision, speech)
	res, err := svc.Analyze(context.Background(), "req-1", []byte{1})
	require.NoError(t, err)
	assert.Nil(t, res.Audio)
	assert.Equal(t, 1, speech.calls)
}

func TestAnalyzeAudioAttached(t *testing.T) {
	vision := &fakeVision{results: map[string]string{"m1": "kết quả"}}
	speech := &fakeSpeech{audio: []byte("mp3")}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1"}}}

	svc := newService(&fakeRepo{}, settings, vision, speech)
	res, err := svc.Analyze(context.Background(), "req-1", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), res.Audio)
}

func TestAnalyzeReadsSettingsFreshEachCall(t *testing.T) {
	vision := &fakeVision{results: map[string]string{"m1": "a", "m9": "b"}}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1"}}}

	svc := newService(&fakeRepo{}, settings, vision, nil)
	_, err := svc.Analyze(context.Background(), "req-1", []byte{1})
	require.NoError(t, err)

	// mid-session settings change takes effect on the next request
	require.NoError(t, settings.Save(context.Background(), ai.Settings{APIKey: "k", Models: []string{"m9"}}))
	_, err = svc.Analyze(context.Background(), "req-2", []byte{1})
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m9"}, vision.calls)
}

func TestAnalyzeStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	vision := &fakeVision{errs: map[string]error{
		"m1": errors.New("boom"),
		"m2": errors.New("boom"),
	}}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1", "m2"}}}

	svc := newService(&fakeRepo{}, settings, vision, nil)
	cancel()
	_, err := svc.Analyze(ctx, "req-1", []byte{1})
	require.Error(t, err)
	assert.Len(t, vision.calls, 1)
}

func TestDeriveRecordTitleTruncation(t *testing.T) {
	long := strings.Repeat("hoa văn ", 10) // well past 30 runes
	f := DeriveRecord("## " + long + "\nrest")
	title := strings.TrimPrefix(f.Title, "Khai thác di sản: ")
	assert.NotContains(t, title, "#")
	assert.LessOrEqual(t, len([]rune(title)), 30)
}

func TestDeriveRecordStripsMarkdownMarkers(t *testing.T) {
	f := DeriveRecord("**Hoa văn** #rồng\nchi tiết")
	assert.Equal(t, "Khai thác di sản: Hoa văn rồng", f.Title)
	assert.Equal(t, "**Hoa văn** #rồng\nchi tiết", f.Description)
}

func TestAnalyzeConcurrentRequestsTrackIndependently(t *testing.T) {
	vision := &fakeVision{results: map[string]string{"m1": "x"}}
	settings := &fakeSettings{st: ai.Settings{APIKey: "k", Models: []string{"m1"}}}
	svc := newService(&fakeRepo{}, settings, vision, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Analyze(context.Background(), fmt.Sprintf("req-%d", i), []byte{1})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		p := svc.Tracker.Get(fmt.Sprintf("req-%d", i))
		require.NotNil(t, p)
		v, done := p.Value()
		assert.True(t, done)
		assert.Equal(t, 100, v)
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "ab", truncateRunes("ab", 5))
	assert.Equal(t, "Đĩa C", truncateRunes("Đĩa Cổ", 5))
	assert.Equal(t, "", truncateRunes("", 3))
}
