package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go-openimage"
)

type searchCall struct {
	query       string
	entity      openimage.EntityType
	maxResults  int
	requireFace bool
}

type fakeFinder struct {
	calls  []searchCall
	images []openimage.ImageRecord
	status openimage.Status
}

func (f *fakeFinder) FindImagesDetailed(_ context.Context, query string, entity openimage.EntityType, maxResults int, requireFace bool) (*openimage.SearchResult, error) {
	f.calls = append(f.calls, searchCall{query, entity, maxResults, requireFace})
	return &openimage.SearchResult{
		SearchID:          "search-1",
		Query:             query,
		EntityType:        entity,
		Images:            f.images,
		FaceFilterApplied: requireFace,
	}, nil
}

func (f *fakeFinder) Status(context.Context) openimage.Status { return f.status }

func (f *fakeFinder) AvailableSources() []string { return f.status.AvailableSources }

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) (int, response) {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := New(&fakeFinder{}, WithVersion("1.2.3"))
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "OpenImage API", body["service"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestStatusAndSources(t *testing.T) {
	t.Parallel()

	var hooked int
	f := &fakeFinder{status: openimage.Status{
		AvailableSources: []string{"Wikimedia Commons", "Pexels"},
		TotalSources:     4,
		CacheEnabled:     true,
	}}
	s := New(f, WithStatusHook(func(openimage.Status) { hooked++ }))

	code, resp := do(t, s, http.MethodGet, "/api/status", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	var st openimage.Status
	require.NoError(t, json.Unmarshal(resp.Data, &st))
	assert.Equal(t, 4, st.TotalSources)
	assert.Equal(t, 1, hooked)

	code, resp = do(t, s, http.MethodGet, "/api/sources", "", "")
	require.Equal(t, http.StatusOK, code)
	var src struct {
		Sources []string `json:"sources"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &src))
	assert.Equal(t, []string{"Wikimedia Commons", "Pexels"}, src.Sources)
	assert.Equal(t, 2, src.Count)
}

func TestSearch_Defaults(t *testing.T) {
	t.Parallel()

	score := 0.9
	f := &fakeFinder{images: []openimage.ImageRecord{{
		ImageURL: "https://img/1.jpg", ThumbnailURL: "https://img/1t.jpg",
		Source: "Pexels", LicenseType: openimage.LicensePexels, QualityScore: &score,
	}}}
	s := New(f)

	code, resp := do(t, s, http.MethodPost, "/api/search", "application/json", `{"query":"Marie Curie"}`)
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	require.Len(t, f.calls, 1)
	assert.Equal(t, searchCall{"Marie Curie", openimage.EntityPerson, 20, true}, f.calls[0])

	var data searchData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "Marie Curie", data.Query)
	assert.Equal(t, openimage.EntityPerson, data.EntityType)
	assert.Equal(t, 1, data.TotalResults)
	assert.True(t, data.FaceFilterApplied)
	assert.Equal(t, "search-1", data.SearchID)
	require.Len(t, data.Images, 1)
	assert.Equal(t, "Pexels", data.Images[0].Source)
}

func TestSearch_FaceOnlyForPersons(t *testing.T) {
	t.Parallel()

	f := &fakeFinder{}
	s := New(f)

	code, resp := do(t, s, http.MethodPost, "/api/search", "application/json; charset=utf-8",
		`{"query":"Louvre","entity_type":"place","max_results":5,"require_face":true}`)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, f.calls, 1)
	assert.Equal(t, searchCall{"Louvre", openimage.EntityPlace, 5, false}, f.calls[0])

	var data map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, []any{}, data["images"], "empty results encode as an empty list")
}

func TestSearch_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     string
	}{
		{name: "not json", contentType: "text/plain", body: "query=x", wantErr: "Content-Type"},
		{name: "malformed", contentType: "application/json", body: "{", wantErr: "malformed"},
		{name: "missing query", contentType: "application/json", body: `{"entity_type":"person"}`, wantErr: "query is required"},
		{name: "bad entity", contentType: "application/json", body: `{"query":"x","entity_type":"animal"}`, wantErr: "invalid entity type"},
		{name: "too many", contentType: "application/json", body: `{"query":"x","max_results":101}`, wantErr: "max results"},
		{name: "negative", contentType: "application/json", body: `{"query":"x","max_results":-1}`, wantErr: "max results"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := &fakeFinder{}
			code, resp := do(t, New(f), http.MethodPost, "/api/search", tc.contentType, tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tc.wantErr)
			assert.Empty(t, f.calls)
		})
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	code, resp := do(t, New(&fakeFinder{}), http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Endpoint not found", resp.Error)
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "openimage_searches_total 0\n")
	})
	s := New(&fakeFinder{}, WithMetrics(h))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openimage_searches_total")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(&fakeFinder{}).Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
