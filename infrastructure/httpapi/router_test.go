package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ballot/infrastructure/aggregators"
	"github.com/ahrav/go-ballot/infrastructure/middleware"
	"github.com/ahrav/go-ballot/internal/application"
	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/testutils"
)

const adminToken = "admin-secret"

func init() { gin.SetMode(gin.TestMode) }

type fixture struct {
	router *gin.Engine
	store  *testutils.MemoryStore
	reg    *prometheus.Registry
}

func newFixture(t *testing.T, limiter *middleware.ClientLimiter, names ...string) fixture {
	t.Helper()

	catalog, err := domain.NewCatalog(names)
	require.NoError(t, err)
	store := testutils.NewMemoryStore()

	seq := 0
	survey, err := application.NewSurveyService(application.SurveyDeps{
		Catalog:     catalog,
		Judgments:   store,
		Respondents: store,
		Sessions:    store,
		NewID: func() string {
			seq++
			return fmt.Sprintf("r-%d", seq)
		},
		BlockDuplicateIP: true,
	})
	require.NoError(t, err)

	agg, err := aggregators.NewMeanRank(aggregators.DefaultConfig())
	require.NoError(t, err)
	results, err := application.NewAggregationService(application.AggregationDeps{
		Catalog:     catalog,
		Respondents: store,
		Aggregator:  agg,
		Gate:        middleware.NewTokenGate(adminToken),
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	router, err := NewRouter(Config{
		Survey:   survey,
		Results:  results,
		Limiter:  limiter,
		Metrics:  middleware.NewPrometheusMetrics(reg),
		Gatherer: reg,
	})
	require.NoError(t, err)

	return fixture{router: router, store: store, reg: reg}
}

type request struct {
	method string
	path   string
	body   string
	cookie string
	header map[string]string
	ip     string
}

func (f fixture) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if r.body != "" {
		body = bytes.NewReader([]byte(r.body))
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.cookie != "" {
		req.AddCookie(&http.Cookie{Name: RespondentCookie, Value: r.cookie})
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}
	if r.ip != "" {
		req.RemoteAddr = r.ip + ":4000"
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func respondentCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == RespondentCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", RespondentCookie)
	return nil
}

func TestNewRouter_RequiresServices(t *testing.T) {
	_, err := NewRouter(Config{})
	assert.ErrorIs(t, err, domain.ErrEmptyValue)
}

func TestRouter_Health(t *testing.T) {
	f := newFixture(t, nil, "A", "B")
	w := f.do(t, request{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_Items(t *testing.T) {
	f := newFixture(t, nil, "경희 한의", "서울 약학")
	w := f.do(t, request{method: http.MethodGet, path: "/v1/items"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[{"index":0,"name":"경희 한의"},{"index":1,"name":"서울 약학"}]}`, w.Body.String())
}

func TestRouter_SurveyFlow(t *testing.T) {
	f := newFixture(t, nil, "A", "B")

	w := f.do(t, request{method: http.MethodPost, path: "/v1/survey/start", ip: "192.0.2.10"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	cookie := respondentCookie(t, w)
	assert.Equal(t, "r-1", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.False(t, cookie.Secure)

	started := decode[stepResponse](t, w)
	assert.Equal(t, "r-1", started.RespondentID)
	assert.False(t, started.Complete)
	require.NotNil(t, started.Pair)
	assert.Equal(t, domain.Item{Index: 0, Name: "A"}, started.Pair.A)
	assert.Equal(t, domain.Item{Index: 1, Name: "B"}, started.Pair.B)
	assert.Equal(t, 2, started.Progress.Clusters)

	w = f.do(t, request{method: http.MethodGet, path: "/v1/survey", cookie: "r-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, started.Pair, decode[stepResponse](t, w).Pair)

	w = f.do(t, request{
		method: http.MethodPost,
		path:   "/v1/survey",
		cookie: "r-1",
		body:   `{"a":0,"b":1,"result":"b_before_a"}`,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	done := decode[stepResponse](t, w)
	assert.True(t, done.Complete)
	assert.Nil(t, done.Pair)
	assert.Equal(t, []rankedItem{
		{Item: 1, Name: "B", Rank: 1},
		{Item: 0, Name: "A", Rank: 2},
	}, done.Ranking)

	w = f.do(t, request{method: http.MethodGet, path: "/v1/survey", cookie: "r-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, middleware.StatusStateError, decode[errorBody](t, w).Code)
	assert.Equal(t, 1, f.store.JudgmentCount())
}

func TestRouter_StartRejectsDuplicates(t *testing.T) {
	f := newFixture(t, nil, "A", "B")

	w := f.do(t, request{method: http.MethodPost, path: "/v1/survey/start", ip: "192.0.2.10"})
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name   string
		cookie string
		ip     string
	}{
		{name: "same cookie", cookie: "r-1", ip: "192.0.2.99"},
		{name: "same address", ip: "192.0.2.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, request{method: http.MethodPost, path: "/v1/survey/start", cookie: tt.cookie, ip: tt.ip})
			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Equal(t, middleware.StatusDuplicate, decode[errorBody](t, w).Code)
		})
	}
}

func TestRouter_SubmitErrors(t *testing.T) {
	f := newFixture(t, nil, "A", "B", "C")
	w := f.do(t, request{method: http.MethodPost, path: "/v1/survey/start", ip: "192.0.2.10"})
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name      string
		cookie    string
		body      string
		wantCode  int
		wantLabel string
		wantField string
	}{
		{
			name:      "malformed body",
			cookie:    "r-1",
			body:      `{"a":`,
			wantCode:  http.StatusBadRequest,
			wantLabel: middleware.StatusInputError,
			wantField: "body",
		},
		{
			name:      "missing item",
			cookie:    "r-1",
			body:      `{"a":0,"result":"tie"}`,
			wantCode:  http.StatusBadRequest,
			wantLabel: middleware.StatusInputError,
			wantField: "body",
		},
		{
			name:      "unknown result",
			cookie:    "r-1",
			body:      `{"a":0,"b":1,"result":"maybe"}`,
			wantCode:  http.StatusBadRequest,
			wantLabel: middleware.StatusInputError,
			wantField: "result",
		},
		{
			name:      "out of range",
			cookie:    "r-1",
			body:      `{"a":0,"b":9,"result":"tie"}`,
			wantCode:  http.StatusBadRequest,
			wantLabel: middleware.StatusInputError,
		},
		{
			name:      "no cookie",
			body:      `{"a":0,"b":1,"result":"tie"}`,
			wantCode:  http.StatusConflict,
			wantLabel: middleware.StatusStateError,
		},
		{
			name:      "unknown respondent",
			cookie:    "r-404",
			body:      `{"a":0,"b":1,"result":"tie"}`,
			wantCode:  http.StatusConflict,
			wantLabel: middleware.StatusStateError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, request{method: http.MethodPost, path: "/v1/survey", cookie: tt.cookie, body: tt.body})
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())

			body := decode[errorBody](t, w)
			assert.Equal(t, tt.wantLabel, body.Code)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body.Field)
			}
		})
	}

	assert.Equal(t, 0, f.store.JudgmentCount(), "rejected judgments are never logged")
}

func TestRouter_SubmitInconsistentRanking(t *testing.T) {
	f := newFixture(t, nil, "A", "B", "C")
	w := f.do(t, request{method: http.MethodPost, path: "/v1/survey/start", ip: "192.0.2.10"})
	require.Equal(t, http.StatusCreated, w.Code)

	// A before B, then B before A, leaves the two in a cycle.
	for _, body := range []string{
		`{"a":0,"b":1,"result":"a_before_b"}`,
		`{"a":1,"b":0,"result":"a_before_b"}`,
	} {
		w = f.do(t, request{method: http.MethodPost, path: "/v1/survey", cookie: "r-1", body: body})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = f.do(t, request{method: http.MethodPost, path: "/v1/survey", cookie: "r-1", body: `{"a":0,"b":2,"result":"a_before_b"}`})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	body := decode[errorBody](t, w)
	assert.Equal(t, middleware.StatusConsistencyError, body.Code)
	assert.Equal(t, []int{0, 1, 2}, body.Unranked)
}

func TestRouter_Summary(t *testing.T) {
	f := newFixture(t, nil, "A", "B", "C")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.store.PutRespondent(domain.Respondent{
		ID: "r1", CreatedAt: at, FinalizedAt: &at,
		Ranking: domain.RankAssignment{0: 1, 1: 2, 2: 2},
	})
	f.store.PutRespondent(domain.Respondent{
		ID: "r2", CreatedAt: at, FinalizedAt: &at,
		Ranking: domain.RankAssignment{0: 2, 1: 1, 2: 1},
	})

	w := f.do(t, request{method: http.MethodGet, path: "/v1/results/summary"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[summaryResponse](t, w)
	assert.Equal(t, "mean", resp.Method)
	assert.Equal(t, 2, resp.Respondents)
	require.Len(t, resp.Items, 3)

	assert.Equal(t, 3, resp.Items[0].SumOfRanks)
	assert.Equal(t, "1.50", resp.Items[0].Display)
	assert.Equal(t, "1.50", resp.Items[1].Display)
	assert.Equal(t, "1.50", resp.Items[2].Display)
}

func TestRouter_SummaryWithoutData(t *testing.T) {
	f := newFixture(t, nil, "A")

	w := f.do(t, request{method: http.MethodGet, path: "/v1/results/summary"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[summaryResponse](t, w)
	require.Len(t, resp.Items, 1)
	assert.Nil(t, resp.Items[0].Average)
	assert.Equal(t, "no data", resp.Items[0].Display)
	assert.Contains(t, w.Body.String(), `"average":null`)
}

func TestRouter_Detail(t *testing.T) {
	f := newFixture(t, nil, "A", "B")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.store.PutRespondent(domain.Respondent{
		ID: "r1", CreatedAt: at, FinalizedAt: &at,
		Ranking: domain.RankAssignment{0: 2, 1: 1},
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"bearer token", "Bearer " + adminToken, http.StatusOK},
		{"lowercase scheme", "bearer " + adminToken, http.StatusOK},
		{"wrong token", "Bearer nope", http.StatusForbidden},
		{"wrong scheme", "Basic " + adminToken, http.StatusForbidden},
		{"missing header", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request{method: http.MethodGet, path: "/v1/results/detail"}
			if tt.header != "" {
				req.header = map[string]string{"Authorization": tt.header}
			}
			w := f.do(t, req)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, middleware.StatusForbidden, decode[errorBody](t, w).Code)
				return
			}

			resp := decode[struct {
				Respondents []detailRow `json:"respondents"`
			}](t, w)
			require.Len(t, resp.Respondents, 1)
			assert.Equal(t, "r1", resp.Respondents[0].RespondentID)
			assert.Equal(t, []rankedItem{
				{Item: 1, Name: "B", Rank: 1},
				{Item: 0, Name: "A", Rank: 2},
			}, resp.Respondents[0].Ranking)
		})
	}
}

func TestRouter_InternalErrorsAreHidden(t *testing.T) {
	f := newFixture(t, nil, "A", "B")
	f.store.FailList = fmt.Errorf("disk on fire")

	w := f.do(t, request{method: http.MethodGet, path: "/v1/results/summary"})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	body := decode[errorBody](t, w)
	assert.Equal(t, middleware.StatusError, body.Code)
	assert.NotContains(t, body.Error, "disk")
}

func TestRouter_RateLimit(t *testing.T) {
	f := newFixture(t, middleware.NewClientLimiter(1, 2), "A", "B")

	for range 2 {
		w := f.do(t, request{method: http.MethodGet, path: "/v1/items", ip: "192.0.2.7"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.do(t, request{method: http.MethodGet, path: "/v1/items", ip: "192.0.2.7"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decode[errorBody](t, w).Code)

	w = f.do(t, request{method: http.MethodGet, path: "/v1/items", ip: "192.0.2.8"})
	assert.Equal(t, http.StatusOK, w.Code, "buckets are per client")

	w = f.do(t, request{method: http.MethodGet, path: "/healthz", ip: "192.0.2.7"})
	assert.Equal(t, http.StatusOK, w.Code, "health checks are not limited")
}

func TestRouter_Metrics(t *testing.T) {
	f := newFixture(t, nil, "A", "B")
	f.do(t, request{method: http.MethodGet, path: "/v1/items"})

	w := f.do(t, request{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `ballot_http_request_duration_seconds_count{code="200",method="GET",route="/v1/items"} 1`),
		w.Body.String())
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":     "abc",
		"  Bearer  abc ": "abc",
		"BEARER abc":     "abc",
		"Token abc":      "",
		"Bearer":         "",
		"":               "",
	}
	for header, want := range tests {
		assert.Equal(t, want, bearerToken(header), "header %q", header)
	}
}

func TestFormatAverage(t *testing.T) {
	avg := 1.6666
	assert.Equal(t, "1.67", FormatAverage(&avg))
	whole := 2.0
	assert.Equal(t, "2.00", FormatAverage(&whole))
	assert.Equal(t, "no data", FormatAverage(nil))
}
