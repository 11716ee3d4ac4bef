package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"insightedge/internal/dataset"
	"insightedge/internal/metrics"
	"insightedge/internal/model"
	"insightedge/internal/narrative"
	"insightedge/internal/view"
)

const testCSV = `Date,Close,sentiment_label,avg_sentiment,headline_count,rsi,macd,target
2024-01-02,101.50,positive,0.42,7,55.2,1.3,1
2024-01-03,102.25,negative,-0.31,4,48.1,-0.4,0
2024-01-04,100.00,neutral,0.05,3,61,0.1,
`

type stubPredictor struct{}

func (stubPredictor) Predict(vec dataset.FeatureVector) (model.Prediction, error) {
	if label, _ := vec.Category(dataset.ColumnSentimentLabel); label == "positive" {
		return model.Prediction{Direction: model.Rise, Label: 1, Probability: 0.75}, nil
	}
	return model.Prediction{Direction: model.Fall, Label: 0, Probability: 0.25}, nil
}

type stubNarrator struct {
	err error
}

func (s stubNarrator) Generate(context.Context, narrative.Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "Outlook remains <b>constructive</b>.", nil
}

func newTestServer(t *testing.T, narratorErr error, failOnError bool) (*Server, *metrics.Recorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ds, err := dataset.ReadCSV(context.Background(), "test.csv", strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	rec := metrics.New()
	dash, err := view.NewDashboard(view.Options{
		Dataset:              ds,
		Predictor:            stubPredictor{},
		Narrator:             stubNarrator{err: narratorErr},
		FailOnNarrativeError: failOnError,
		Observer:             rec,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDashboard: %v", err)
	}
	srv, err := New(Options{
		Mode:           gin.TestMode,
		MetricsEnabled: true,
		ChartWidth:     640,
		ChartHeight:    320,
	}, dash, rec, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, rec
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRootRedirectsToInsight(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)
	rec := get(t, srv, "/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/insight" {
		t.Fatalf("期望重定向到 /insight, 实际 %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestInsightPage(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)
	rec := get(t, srv, "/insight?date=2024-01-02")
	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Insight for 2024-01-02", "<strong>Rise</strong>", "75.0%", "&lt;b&gt;constructive&lt;/b&gt;", view.Footer} {
		if !strings.Contains(body, want) {
			t.Fatalf("页面缺少 %q", want)
		}
	}
}

func TestDataPageNoData(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)
	rec := get(t, srv, "/data?date=2024-03-15")
	if rec.Code != http.StatusOK {
		t.Fatalf("无数据应返回 200, 实际 %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), view.NoDataWarning) {
		t.Fatal("页面缺少无数据警告")
	}
}

func TestDataPageHasPickerBounds(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)
	body := get(t, srv, "/data").Body.String()
	if !strings.Contains(body, `min="2024-01-02"`) || !strings.Contains(body, `max="2024-01-04"`) || !strings.Contains(body, `value="2024-01-04"`) {
		t.Fatalf("日期选择器范围不正确:\n%s", body)
	}
}

func TestUnknownPageAndBadDate(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)
	if rec := get(t, srv, "/settings"); rec.Code != http.StatusNotFound {
		t.Fatalf("未知页面期望 404, 实际 %d", rec.Code)
	}
	if rec := get(t, srv, "/api/settings"); rec.Code != http.StatusNotFound {
		t.Fatalf("未知 API 页面期望 404, 实际 %d", rec.Code)
	}
	if rec := get(t, srv, "/insight?date=tomorrow"); rec.Code != http.StatusBadRequest {
		t.Fatalf("错误日期期望 400, 实际 %d", rec.Code)
	}
}

func TestAPIInsight(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)
	rec := get(t, srv, "/api/insight?date=2024-01-03")
	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d", rec.Code)
	}
	var out struct {
		Page    string `json:"page"`
		Insight struct {
			Direction string  `json:"direction"`
			Label     int     `json:"label"`
			Prob      float64 `json:"probability"`
		} `json:"insight"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("解析 JSON 失败: %v", err)
	}
	if out.Page != "insight" || out.Insight.Direction != "Fall" || out.Insight.Label != 0 {
		t.Fatalf("JSON 内容不正确: %+v", out)
	}
}

func TestNarrativeFailureModes(t *testing.T) {
	degraded, _ := newTestServer(t, &narrative.Error{Kind: narrative.KindService, Status: 500}, false)
	rec := get(t, degraded, "/insight?date=2024-01-02")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "returned an error") {
		t.Fatalf("降级模式应返回 200 和提示, 实际 %d", rec.Code)
	}

	strict, _ := newTestServer(t, &narrative.Error{Kind: narrative.KindNetwork}, true)
	if rec := get(t, strict, "/api/insight?date=2024-01-02"); rec.Code != http.StatusBadGateway {
		t.Fatalf("严格模式期望 502, 实际 %d", rec.Code)
	}
}

func TestChartEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)

	png := get(t, srv, "/trend/chart.png")
	if png.Code != http.StatusOK || png.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("PNG 响应不正确: %d %s", png.Code, png.Header().Get("Content-Type"))
	}
	svg := get(t, srv, "/trend/chart.svg")
	if svg.Code != http.StatusOK || !strings.Contains(svg.Body.String(), "<svg") {
		t.Fatalf("SVG 响应不正确: %d", svg.Code)
	}
	if !strings.Contains(get(t, srv, "/trend").Body.String(), `src="/trend/chart.svg"`) {
		t.Fatal("趋势页面应引用图表")
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)

	if rec := get(t, srv, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz 期望 200, 实际 %d", rec.Code)
	}
	ready := get(t, srv, "/readyz")
	if ready.Code != http.StatusOK || !strings.Contains(ready.Body.String(), `"records":3`) {
		t.Fatalf("readyz 不正确: %s", ready.Body.String())
	}

	get(t, srv, "/about")
	body := get(t, srv, "/metrics").Body.String()
	if !strings.Contains(body, `insightedge_views_rendered_total{outcome="ok",page="about"} 1`) {
		t.Fatalf("指标缺少视图计数:\n%s", body)
	}
	if !strings.Contains(body, `insightedge_http_requests_total{method="GET",route="/readyz",status="200"} 1`) {
		t.Fatalf("指标缺少 HTTP 计数:\n%s", body)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)

	rec := get(t, srv, "/healthz")
	if _, err := uuid.Parse(rec.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("应分配 UUID 请求 ID: %q", rec.Header().Get(requestIDHeader))
	}

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != id {
		t.Fatal("应沿用传入的请求 ID")
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, nil, false)
	srv.srv.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run 返回错误: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run 未在取消后退出")
	}
}
