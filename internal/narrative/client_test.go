package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(url string) *Client {
	return NewClient(Options{
		BaseURL:     url,
		APIKey:      "test-key",
		Model:       "command-r-plus",
		MaxTokens:   300,
		Temperature: 0.6,
		Timeout:     time.Second,
		UserAgent:   "insightedge-test",
	}, zerolog.Nop())
}

func TestGenerateSuccess(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" || r.Method != http.MethodPost {
			t.Errorf("意外请求 %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("缺少 Authorization 头: %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("User-Agent") != "insightedge-test" {
			t.Errorf("User-Agent 不正确: %q", r.Header.Get("User-Agent"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "gen-1",
			"generations": []map[string]string{{"id": "g0", "text": "\n  The market looks constructive.  \n"}},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	text, err := c.Generate(context.Background(), c.Defaults("hello"))
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if text != "The market looks constructive." {
		t.Fatalf("文本应去除首尾空白, 实际 %q", text)
	}
	if got.Model != "command-r-plus" || got.Prompt != "hello" || got.MaxTokens != 300 || got.Temperature != 0.6 {
		t.Fatalf("请求体不正确: %+v", got)
	}
}

func TestGenerateAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid api token"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("401 应为 ErrAuth, 实际 %v", err)
	}
	var nerr *Error
	if !errors.As(err, &nerr) || nerr.Status != http.StatusUnauthorized || nerr.Message != "invalid api token" {
		t.Fatalf("错误细节不正确: %+v", nerr)
	}
}

func TestGenerateMissingKey(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL}, zerolog.Nop())
	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("缺少 key 应为 ErrAuth, 实际 %v", err)
	}
	if calls != 0 {
		t.Fatalf("缺少 key 时不应发出请求")
	}
}

func TestGenerateServiceFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"500": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		},
		"429": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		},
		"no generations": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"gen-1","generations":[]}`))
		},
	}
	for name, handler := range cases {
		srv := httptest.NewServer(handler)
		_, err := newTestClient(srv.URL).Generate(context.Background(), Request{Prompt: "x"})
		srv.Close()
		if !errors.Is(err, ErrService) {
			t.Fatalf("%s: 应为 ErrService, 实际 %v", name, err)
		}
		if KindOf(err) != KindService {
			t.Fatalf("%s: KindOf 不正确: %q", name, KindOf(err))
		}
	}
}

func TestGenerateNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("连接失败应为 ErrNetwork, 实际 %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond}, zerolog.Nop())
	start := time.Now()
	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("超时应为 ErrNetwork, 实际 %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("超时未生效")
	}
}

func TestNoticeByKind(t *testing.T) {
	if !strings.Contains(Notice(networkError(errors.New("dial"))), "could not be reached") {
		t.Fatal("网络错误提示不正确")
	}
	if !strings.Contains(Notice(&Error{Kind: KindAuth}), "API key") {
		t.Fatal("鉴权错误提示不正确")
	}
	if Notice(errors.New("other")) != "Narrative unavailable." {
		t.Fatal("未知错误提示不正确")
	}
}

func TestErrorMessageDoesNotLeakKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "secret-value", Timeout: time.Second}, zerolog.Nop())
	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	if err == nil || strings.Contains(err.Error(), "secret-value") {
		t.Fatalf("错误信息不应包含 key: %v", err)
	}
}
