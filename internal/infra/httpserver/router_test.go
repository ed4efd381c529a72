package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/sheetqa/internal/application"
	appdocs "github.com/bryanwahyu/sheetqa/internal/application/documents"
	appqa "github.com/bryanwahyu/sheetqa/internal/application/qa"
	"github.com/bryanwahyu/sheetqa/internal/domain/qa"
	"github.com/bryanwahyu/sheetqa/internal/infra/ai/prompt"
	"github.com/bryanwahyu/sheetqa/internal/infra/spreadsheet"
	"github.com/bryanwahyu/sheetqa/internal/infra/storage"
	"github.com/bryanwahyu/sheetqa/internal/middleware"
)

type stubClient struct {
	calls atomic.Int32
	err   error
}

func (c *stubClient) Ask(context.Context, string, string) (qa.Reply, error) {
	c.calls.Add(1)
	if c.err != nil {
		return qa.Reply{}, c.err
	}
	return qa.Reply{Text: "Some reasoning.\nAnswer: 3 rows"}, nil
}

type testServer struct {
	handler http.Handler
	client  *stubClient
	store   *storage.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := storage.NewMemoryStore()
	client := &stubClient{}
	docs := &appdocs.Service{
		Store:  store,
		Parser: spreadsheet.NewParser(),
		Clock:  application.SystemClock{},
	}
	qaSvc := &appqa.Service{
		Documents:   docs,
		Client:      client,
		Mode:        qa.AnswerModeExtract,
		Extract:     prompt.ExtractAnswer,
		Concurrency: 1,
		FailFast:    true,
	}
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := NewRouter(t.Context(), docs, qaSvc, Options{Log: log})
	return &testServer{handler: h, client: client, store: store}
}

func (s *testServer) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"a", "b"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{1, 2}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func uploadRequest(t *testing.T, target, field, filename string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func askRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

type uploadResponse struct {
	Message         string           `json:"message"`
	File            string           `json:"file"`
	DocumentContent []map[string]any `json:"documentContent"`
}

func TestUpload_StoresWithOriginalExtension(t *testing.T) {
	s := newTestServer(t)

	w := s.do(uploadRequest(t, "/uploads", "file", "sales.xlsx", workbookBytes(t)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "File uploaded successfully", resp.Message)
	assert.Regexp(t, regexp.MustCompile(`^\d+\.xlsx$`), resp.File)
	assert.Nil(t, resp.DocumentContent)

	ids, err := s.store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{resp.File}, ids)
}

func TestUpload_MissingFile(t *testing.T) {
	s := newTestServer(t)

	w := s.do(uploadRequest(t, "/uploads", "attachment", "sales.xlsx", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(httptest.NewRequest(http.MethodPost, "/uploads", strings.NewReader("plain")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_ParseFlag(t *testing.T) {
	s := newTestServer(t)

	w := s.do(uploadRequest(t, "/uploads?parse=true", "file", "sales.xlsx", workbookBytes(t)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"documentContent":[{"a":1,"b":2}]`)
}

func TestUpload_ParseFlagBadWorkbookKeepsFile(t *testing.T) {
	s := newTestServer(t)

	w := s.do(uploadRequest(t, "/uploads?parse=true", "file", "broken.xlsx", []byte("not a workbook")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "zip")

	ids, err := s.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestListUploads(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/uploads", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"files":[]}`, w.Body.String())

	_, err := s.store.Put(context.Background(), "1.xlsx", bytes.NewReader(workbookBytes(t)))
	require.NoError(t, err)
	w = s.do(httptest.NewRequest(http.MethodGet, "/uploads", nil))
	assert.JSONEq(t, `{"files":["1.xlsx"]}`, w.Body.String())
}

func TestAsk_EmptyStore(t *testing.T) {
	s := newTestServer(t)

	w := s.do(askRequest(`{"question":"how many rows?"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, s.client.calls.Load())
}

func TestAsk_MissingQuestion(t *testing.T) {
	s := newTestServer(t)
	_, err := s.store.Put(context.Background(), "1.xlsx", bytes.NewReader(workbookBytes(t)))
	require.NoError(t, err)

	for _, body := range []string{`{}`, `{"question":"  "}`, `{"question":"\u0000"}`, `not json`} {
		w := s.do(askRequest(body))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Zero(t, s.client.calls.Load())
}

func TestAsk_OneSpreadsheet(t *testing.T) {
	s := newTestServer(t)

	up := s.do(uploadRequest(t, "/uploads", "file", "sales.xlsx", workbookBytes(t)))
	require.Equal(t, http.StatusOK, up.Code)
	var uploaded uploadResponse
	require.NoError(t, json.Unmarshal(up.Body.Bytes(), &uploaded))

	w := s.do(askRequest(`{"question":"how many rows?"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Answers []qa.Answer `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, uploaded.File, resp.Answers[0].File)
	assert.Equal(t, "3 rows", resp.Answers[0].Answer)
}

func TestAsk_IgnoresNonSpreadsheets(t *testing.T) {
	s := newTestServer(t)
	_, err := s.store.Put(context.Background(), "1.csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)

	w := s.do(askRequest(`{"question":"q"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAsk_UpstreamFailureIsGeneric(t *testing.T) {
	s := newTestServer(t)
	s.client.err = errors.New("status 403: API key leaked-key invalid")
	_, err := s.store.Put(context.Background(), "1.xlsx", bytes.NewReader(workbookBytes(t)))
	require.NoError(t, err)

	w := s.do(askRequest(`{"question":"q"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "leaked-key")
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	s.do(uploadRequest(t, "/uploads", "file", "a.xlsx", workbookBytes(t)))
	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.EqualValues(t, 1, m["uploads_total"])
}

func TestCORSAndRequestID(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/uploads", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := s.do(r)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestUpload_DistinctNames(t *testing.T) {
	s := newTestServer(t)
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		w := s.do(uploadRequest(t, "/uploads", "file", "a.xlsx", workbookBytes(t)))
		require.Equal(t, http.StatusOK, w.Code)
		var resp uploadResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		seen[resp.File] = true
		time.Sleep(time.Millisecond)
	}
	assert.Len(t, seen, 3)
}

func TestWrap_EncodeFailureWritesSingleResponse(t *testing.T) {
	r := &Router{log: slog.New(slog.NewJSONHandler(io.Discard, nil))}
	h := r.wrap(func(w http.ResponseWriter, _ *http.Request) error {
		return writeJSON(w, http.StatusOK, map[string]any{"bad": make(chan int)})
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/uploads", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}
