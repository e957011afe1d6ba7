package httpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngocminh/chudau-catalog/internal/application"
	appanalysis "github.com/ngocminh/chudau-catalog/internal/application/analysis"
	appcatalog "github.com/ngocminh/chudau-catalog/internal/application/catalog"
	domai "github.com/ngocminh/chudau-catalog/internal/domain/ai"
	localdb "github.com/ngocminh/chudau-catalog/internal/infra/db/local"
)

type scriptedVision struct {
	text string
	err  error
}

func (s *scriptedVision) Generate(ctx context.Context, model string, imageJPEG []byte) (string, error) {
	return s.text, s.err
}

func newTestServer(t *testing.T, vision domai.Vision) (*httptest.Server, *localdb.Store) {
	t.Helper()
	store, err := localdb.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	n := 0
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store.Now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}

	catalogSvc := &appcatalog.Service{Repo: store}
	analysisSvc := &appanalysis.Service{
		Repo:      store,
		Settings:  store,
		NewVision: func(apiKey string) domai.Vision { return vision },
		Clock:     application.SystemClock{},
		Tracker:   appanalysis.NewTracker(),
	}

	h := NewRouter(catalogSvc, analysisSvc, store, Options{})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestRecordsCreateAndList(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})

	resp := postJSON(t, srv.URL+"/api/records", map[string]string{
		"title":       "Đĩa hoa lam",
		"category":    "Đĩa Cổ",
		"status":      "Đã giải mã",
		"priority":    "Low",
		"description": "mô tả",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &created)
	assert.NotZero(t, created.ID)

	resp2, err := http.Get(srv.URL + "/api/records")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var list []map[string]any
	decodeBody(t, resp2, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Đĩa hoa lam", list[0]["title"])
}

func TestRecordsListEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})
	resp, err := http.Get(srv.URL + "/api/records")
	require.NoError(t, err)
	var list []any
	decodeBody(t, resp, &list)
	assert.Empty(t, list)
}

func TestCategoriesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})
	resp, err := http.Get(srv.URL + "/api/categories")
	require.NoError(t, err)
	var cats []map[string]any
	decodeBody(t, resp, &cats)
	require.Len(t, cats, 4)
	assert.Equal(t, "Bình Tỳ Bà", cats[0]["name"])
}

func TestCommunityCreateAndList(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})

	resp := postJSON(t, srv.URL+"/api/community", map[string]string{
		"title":    "Chia sẻ hiện vật",
		"content":  "Mình mới tìm được chiếc bình này",
		"author":   "Minh",
		"imageUrl": "https://example.com/binh.jpg",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &created)
	assert.NotZero(t, created.ID)

	resp2, err := http.Get(srv.URL + "/api/community")
	require.NoError(t, err)
	var list []map[string]any
	decodeBody(t, resp2, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Chia sẻ hiện vật", list[0]["title"])
}

func TestCommunityValidation(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})

	// missing content
	resp := postJSON(t, srv.URL+"/api/community", map[string]string{"title": "x"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// bad image URL scheme
	resp = postJSON(t, srv.URL+"/api/community", map[string]string{
		"title": "x", "content": "y", "imageUrl": "ftp://example.com/a.jpg",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettingsPutAndGet(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})

	data, _ := json.Marshal(map[string]any{"apiKey": "secret", "models": []string{"m1", "m2"}})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/settings", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/api/settings")
	require.NoError(t, err)
	var got struct {
		Models    []string `json:"models"`
		HasAPIKey bool     `json:"hasApiKey"`
	}
	decodeBody(t, resp2, &got)
	assert.True(t, got.HasAPIKey)
	assert.Equal(t, []string{"m1", "m2"}, got.Models)
}

func TestSettingsRejectEmptyModels(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})

	data, _ := json.Marshal(map[string]any{"apiKey": "secret", "models": []string{}})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/settings", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	srv, store := newTestServer(t, &scriptedVision{text: "Hoa văn rồng trên đĩa cổ\nchi tiết"})
	require.NoError(t, store.Save(context.Background(), domai.Settings{
		APIKey: "k", Models: []string{"m1"},
	}))

	img := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})
	resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{
		"image": "data:image/jpeg;base64," + img,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Analysis-Id"))

	var res struct {
		Text     string `json:"result"`
		RecordID int64  `json:"record_id"`
	}
	decodeBody(t, resp, &res)
	assert.Equal(t, "Hoa văn rồng trên đĩa cổ\nchi tiết", res.Text)
	assert.NotZero(t, res.RecordID)

	// the derived record was persisted automatically
	list, err := store.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Hoa văn rồng trên đĩa cổ\nchi tiết", list[0].Description)
}

func TestAnalyzeWithoutAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{text: "x"})

	img := base64.StdEncoding.EncodeToString([]byte{1})
	resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{"image": img})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeExhaustionIsBadGateway(t *testing.T) {
	srv, store := newTestServer(t, &scriptedVision{err: fmt.Errorf("quota exceeded")})
	require.NoError(t, store.Save(context.Background(), domai.Settings{
		APIKey: "k", Models: []string{"m1", "m2"},
	}))

	img := base64.StdEncoding.EncodeToString([]byte{1})
	resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{"image": img})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestAnalyzeRejectsBadBase64(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})
	resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{"image": "not-base64!!!"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgressUnknownID(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})
	resp, err := http.Get(srv.URL + "/api/analyze/nope/progress")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedVision{})
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	var m map[string]any
	decodeBody(t, resp, &m)
	assert.Contains(t, m, "requests_total")
	assert.Contains(t, m, "analyses_total")
}
