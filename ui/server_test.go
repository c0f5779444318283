package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/adapters/excel"
	"statlab/adapters/llm/heuristic"
	"statlab/adapters/postgres"
	"statlab/adapters/stats/engine"
	"statlab/app"
	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/internal/errors"
	"statlab/internal/usage"
	"statlab/ports"
)

const scoresCSV = "group,score\na,1\na,2\na,3\na,4\na,5\nb,6\nb,7\nb,8\nb,9\nb,10\n"

const independentT = `{
	"testType": "Independent_T",
	"dependentVariables": ["score"],
	"groupingVariable": "group",
	"data": [
		{"group": "a", "score": 1}, {"group": "a", "score": 2}, {"group": "a", "score": 3},
		{"group": "a", "score": 4}, {"group": "a", "score": 5}, {"group": "b", "score": 6},
		{"group": "b", "score": 7}, {"group": "b", "score": 8}, {"group": "b", "score": 9},
		{"group": "b", "score": 10}
	],
	"options": {}
}`

func newTestServer(t *testing.T, caps analysis.Capabilities, maxUpload int64) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := postgres.Open(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := app.NewAnalysisService(engine.New(), heuristic.NewNarrator(), postgres.NewAnalysisRepository(db),
		caps, app.Limits{MaxRows: 100, MaxConcurrentAnalyses: 2}, nil)
	srv, err := NewServer(svc, excel.NewDataReader(excel.DefaultReaderConfig(100), nil), Options{MaxUploadBytes: maxUpload}, nil)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndIndex(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 0)

	w := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "one-way-anova")
	assert.Contains(t, w.Body.String(), `class="locked"`)
}

func TestTestsEndpoint(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 0)

	w := do(t, srv, http.MethodGet, "/api/tests", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 18, body["count"])

	available := map[string]bool{}
	for _, item := range body["tests"].([]interface{}) {
		entry := item.(map[string]interface{})
		available[entry["testType"].(string)] = entry["available"].(bool)
	}
	assert.True(t, available["descriptives"])
	assert.False(t, available["factor-analysis"])
}

func TestDatasetUpload(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "scores.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(scoresCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "scores.csv", body["name"])
	assert.Equal(t, []interface{}{"group", "score"}, body["columns"])
	assert.Len(t, body["rows"], 10)
}

func TestDatasetUploadRequiresFile(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "scores"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.CodeInvalidInput, decode(t, w)["code"])
}

func TestRunAnalysisStoresAndReports(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 0)

	w := do(t, srv, http.MethodPost, "/api/analyses?dataset=scores.csv", independentT)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "independent-t", body["testType"])
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	narrative := body["narrative"].(map[string]interface{})
	assert.Equal(t, "heuristic", narrative["source"])
	assert.Contains(t, narrative["text"], "statistically significant")

	w = do(t, srv, http.MethodGet, "/api/analyses", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = do(t, srv, http.MethodGet, "/api/analyses/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode(t, w)
	assert.Equal(t, "scores.csv", rec["datasetName"])
	assert.EqualValues(t, 10, rec["rowCount"])

	w = do(t, srv, http.MethodGet, "/api/analyses/"+id+"/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Independent Samples Test")

	w = do(t, srv, http.MethodDelete, "/api/analyses/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, srv, http.MethodGet, "/api/analyses/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunAnalysisWithoutPersist(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 0)

	w := do(t, srv, http.MethodPost, "/api/analyses?persist=false&narrate=false", independentT)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Nil(t, body["id"])
	assert.Nil(t, body["narrative"])

	w = do(t, srv, http.MethodGet, "/api/analyses", "")
	assert.EqualValues(t, 0, decode(t, w)["count"])
}

func TestRunAnalysisErrorMapping(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 0)

	cases := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"unknown variable", `{"testType":"descriptives","dependentVariables":["age"],"data":[{"score":1},{"score":2}]}`,
			http.StatusUnprocessableEntity, core.KindInvalidVariable},
		{"unsupported test", `{"testType":"manova","data":[{"score":1}]}`,
			http.StatusBadRequest, core.KindUnsupportedTest},
		{"advanced test on basic plan", `{"testType":"factor-analysis","dependentVariables":["a","b","c"],"data":[{"a":1,"b":2,"c":3}],"capabilities":{"advanced":true}}`,
			http.StatusForbidden, core.KindCapability},
		{"malformed body", `{"testType":`, http.StatusBadRequest, ""},
		{"empty body", ``, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/api/analyses", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			body := decode(t, w)
			assert.NotEmpty(t, body["error"])
			if tc.kind != "" {
				assert.Equal(t, tc.kind, body["kind"])
			} else {
				assert.Nil(t, body["kind"])
			}
		})
	}
}

func TestRequestBodyLimit(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 64)

	w := do(t, srv, http.MethodPost, "/api/analyses", independentT)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, errors.CodeTooLarge, decode(t, w)["code"])
}

func TestAssumptionsEndpoint(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 0)

	w := do(t, srv, http.MethodPost, "/api/assumptions", independentT)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "independent-t", body["testType"])
	assert.NotEmpty(t, body["assumptions"])
}

func TestGetAnalysisRejectsBadID(t *testing.T) {
	srv := newTestServer(t, analysis.Capabilities{}, 0)

	w := do(t, srv, http.MethodGet, "/api/analyses/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsageEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracker := usage.NewTracker(nil)
	tracker.RecordUsage(context.Background(), usage.OperationNarrative, &ports.UsageData{Model: "gpt-test", TotalTokens: 12})

	svc := app.NewAnalysisService(engine.New(), nil, nil, analysis.Capabilities{}, app.Limits{}, nil)
	srv, err := NewServer(svc, excel.NewDataReader(excel.DefaultReaderConfig(100), nil), Options{Usage: tracker}, nil)
	require.NoError(t, err)

	w := do(t, srv, http.MethodGet, "/api/usage", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 12, decode(t, w)["totalTokens"])

	w = do(t, newTestServer(t, analysis.Capabilities{}, 0), http.MethodGet, "/api/usage", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
