package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-softball/internal/cache"
	"github.com/albapepper/scoracle-softball/internal/config"
	"github.com/albapepper/scoracle-softball/internal/model"
	"github.com/albapepper/scoracle-softball/internal/store/memstore"
)

const boxScore = `Player,AB,R,H,RBI,BB,SO
Ava Smith,3,1,2,1,0,0
Bea Jones,2,2,1,0,1,1
`

type part struct {
	name string
	data []byte
}

type fixture struct {
	router   *chi.Mux
	store    *memstore.Store
	seasonID int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := &config.Config{
		Backend:             config.BackendMemory,
		CORSAllowOrigins:    []string{"*"},
		CacheEnabled:        true,
		MaxUploadBytes:      1 << 20,
		ExcelScanCeiling:    500,
		ExcelEmptyLookahead: 5,
	}
	s := memstore.New()
	seasonID, err := s.GetOrCreateSeason(context.Background(), 2025, model.Fall, nil)
	require.NoError(t, err)

	c := cache.New(true)
	t.Cleanup(c.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixture{router: NewRouter(s, c, cfg, logger), store: s, seasonID: seasonID}
}

func (f fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, path string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range files {
		fw, err := mw.CreateFormFile("file", p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/", "/health", "/health/db", "/health/cache"} {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.NotEmpty(t, rec.Header().Get("X-Process-Time"), path)
	}
}

func TestPostImports_CSV(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, upload(t, "/api/v1/imports",
		map[string]string{"season_id": fmt.Sprint(f.seasonID), "win_loss": "W", "runs_against": "2"},
		part{"game2_sep6_vipers.csv", []byte(boxScore)}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.Equal(t, "csv", body["file_type"])
	require.Equal(t, float64(2), body["stats_imported"])
	require.Equal(t, float64(1), body["total_games"])
	require.NotEmpty(t, body["import_id"])
	require.Equal(t, body["import_id"], rec.Header().Get("X-Import-Id"))
	require.Empty(t, body["errors"])

	games, err := f.store.GamesInSeason(context.Background(), f.seasonID)
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Equal(t, "W", games[0].WinLoss)
	require.Equal(t, model.Int(2), games[0].RunsAgainst)
}

func TestPostImports_Batch(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, upload(t, "/api/v1/imports",
		map[string]string{"season_id": fmt.Sprint(f.seasonID)},
		part{"game2_sep6_vipers.csv", []byte(boxScore)},
		part{"notes.txt", []byte("hi")}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, float64(2), body["files_processed"])
	require.Equal(t, float64(1), body["files_failed"])
	require.Len(t, body["details"], 2)
}

func TestPostImports_AllFailed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, upload(t, "/api/v1/imports", nil, part{"game2_sep6_vipers.csv", []byte(boxScore)}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	require.Equal(t, []interface{}{"season id required for CSV imports"}, body["errors"])
	require.Zero(t, f.store.Counts().Games)
}

func TestPostImports_BadRequests(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, upload(t, "/api/v1/imports", map[string]string{"season_id": "1"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "MISSING_FILE")

	rec = f.do(t, upload(t, "/api/v1/imports",
		map[string]string{"season_id": "1", "runs_for": "lots"},
		part{"g.csv", []byte(boxScore)}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "runs_for")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(t, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_UPLOAD")
}

func TestPostImportPreview(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, upload(t, "/api/v1/imports/preview", nil,
		part{"game2_sep6_vipers.csv", []byte(boxScore)},
		part{"notes.txt", []byte("hi")}))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Files []struct {
			FileType string `json:"file_type"`
			CSV      *struct {
				Dialect string `json:"format_type"`
			} `json:"csv"`
			Error string `json:"error"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Files, 2)
	require.Equal(t, "csv", body.Files[0].FileType)
	require.Equal(t, "standard", body.Files[0].CSV.Dialect)
	require.Equal(t, "unknown", body.Files[1].FileType)
	require.NotEmpty(t, body.Files[1].Error)
	require.Zero(t, f.store.Counts().Games)
}

func TestReads_CachedAndInvalidatedByImport(t *testing.T) {
	f := newFixture(t)
	path := fmt.Sprintf("/api/v1/seasons/%d/games", f.seasonID)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.Empty(t, decode(t, rec)["games"])
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("If-None-Match", etag)
	rec = f.do(t, req)
	require.Equal(t, http.StatusNotModified, rec.Code)

	rec = f.do(t, upload(t, "/api/v1/imports",
		map[string]string{"season_id": fmt.Sprint(f.seasonID)},
		part{"game2_sep6_vipers.csv", []byte(boxScore)}))
	require.Equal(t, http.StatusOK, rec.Code)
	gameID := int64(decode(t, rec)["game_id"].(float64))

	rec = f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.Len(t, decode(t, rec)["games"], 1)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/games/%d/stats", gameID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Game    model.Game           `json:"game"`
		Batting []model.BattingStats `json:"batting"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, "Vipers", stats.Game.Opponent)
	require.Len(t, stats.Batting, 2)
	require.InDelta(t, 2.0/3.0, stats.Batting[0].BA, 1e-9)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/seasons", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"label":"FALL 2025"`)
}

func TestReads_NotFoundAndBadID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/games/999/stats", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/seasons/999/games", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/seasons/abc/games", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_ID")
}

func TestRateLimit(t *testing.T) {
	h := RateLimitMiddleware(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
