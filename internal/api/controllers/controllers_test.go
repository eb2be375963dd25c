package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"petfinder/internal/encoder"
	"petfinder/internal/models/response_models"
	"petfinder/internal/services"
	"petfinder/pkg/utils"
)

func init() { gin.SetMode(gin.TestMode) }

type stubSearch struct {
	got   services.SearchInput
	calls int
	resp  response_models.SearchResponse
	err   error
}

func (s *stubSearch) Search(_ context.Context, in services.SearchInput) (response_models.SearchResponse, error) {
	s.calls++
	s.got = in
	return s.resp, s.err
}

type stubIndex struct {
	info   response_models.BuildInfo
	status response_models.IndexStatus
	err    error
}

func (s *stubIndex) Rebuild(context.Context) (response_models.BuildInfo, error) { return s.info, s.err }
func (s *stubIndex) Status() response_models.IndexStatus                        { return s.status }

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSearchJSON(t *testing.T) {
	svc := &stubSearch{resp: response_models.SearchResponse{
		SimilarPets: []response_models.SimilarPet{{ID: "a", MatchType: "breed_match"}},
		TotalFound:  1,
	}}
	r := gin.New()
	r.POST("/search", NewSearchController(svc, zap.NewNop()).Search)

	body := `{"image":"data:image/png;base64,AAAA","species":"dog","breed":"husky","breed_confidence":0.9,"features":["collar, scar"]}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data:image/png;base64,AAAA", svc.got.Payload)
	assert.Nil(t, svc.got.Image)
	assert.Equal(t, "dog", svc.got.Species)
	require.NotNil(t, svc.got.BreedConfidence)
	assert.InDelta(t, 0.9, *svc.got.BreedConfidence, 1e-9)
	assert.Equal(t, []string{"collar", "scar"}, svc.got.Features)

	resp := decode(t, w)
	assert.Equal(t, "success", resp.Status)
	data := resp.Data.(map[string]interface{})
	assert.EqualValues(t, 1, data["total_found"])
}

func TestSearchMultipart(t *testing.T) {
	svc := &stubSearch{}
	r := gin.New()
	r.POST("/search", NewSearchController(svc, zap.NewNop()).Search)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("species", "cat"))
	require.NoError(t, mw.WriteField("breed_confidence", "0.75"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/search", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, encoder.RawBytes("not really a png"), svc.got.Image)
	assert.Equal(t, "cat", svc.got.Species)
	require.NotNil(t, svc.got.BreedConfidence)
	assert.InDelta(t, 0.75, *svc.got.BreedConfidence, 1e-9)
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"missing", utils.ErrImageMissing, http.StatusBadRequest, "No image provided"},
		{"base64", utils.ErrImageNotBase64, http.StatusBadRequest, "Image data is not valid base64"},
		{"too large", utils.ErrImageTooLarge, http.StatusBadRequest, "Image is too large, the limit is 10 MB"},
		{"encoder", errors.Join(utils.ErrDependencyUnavailable, errors.New("dial tcp: refused")), http.StatusInternalServerError, "Service temporarily unavailable, please retry"},
		{"unknown", errors.New("secret internals"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/search", NewSearchController(&stubSearch{err: tt.err}, zap.NewNop()).Search)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"image":"x"}`)))

			assert.Equal(t, tt.code, w.Code)
			resp := decode(t, w)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.msg, resp.Message)
			assert.NotContains(t, w.Body.String(), "refused")
			assert.NotContains(t, w.Body.String(), "secret")
		})
	}
}

func TestSearchRejectsOversizedJSON(t *testing.T) {
	svc := &stubSearch{}
	r := gin.New()
	r.POST("/search", NewSearchController(svc, zap.NewNop()).Search)

	body := `{"image":"` + strings.Repeat("A", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Image is too large, the limit is 10 MB", decode(t, w).Message)
	assert.Zero(t, svc.calls)
}

func TestSearchRejectsMalformedJSON(t *testing.T) {
	r := gin.New()
	r.POST("/search", NewSearchController(&stubSearch{}, zap.NewNop()).Search)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"image":`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexEndpoints(t *testing.T) {
	idx := &stubIndex{
		info:   response_models.BuildInfo{Indexed: 4},
		status: response_models.IndexStatus{Count: 4, Dimension: 512},
	}
	ic := NewIndexController(idx, zap.NewNop())
	r := gin.New()
	r.GET("/index/status", ic.Status)
	r.POST("/index/rebuild", ic.Rebuild)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/index/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.EqualValues(t, 4, data["count"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/index/rebuild", nil))
	require.Equal(t, http.StatusOK, w.Code)

	idx.err = utils.ErrIndexBuildInProgress
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/index/rebuild", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", NewHealthController(stubPinger{}, zap.NewNop()).Health)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	r = gin.New()
	r.GET("/health", NewHealthController(stubPinger{err: errors.New("down")}, zap.NewNop()).Health)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
