package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testJudge(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGemini("test-key", "test-model", 5*time.Second)
	g.baseURL = srv.URL
	return g
}

func judgeResponse(t *testing.T, verdicts []verdict) []byte {
	t.Helper()
	inner, err := json.Marshal(map[string]any{"results": verdicts})
	if err != nil {
		t.Fatal(err)
	}
	outer, err := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]string{{"text": string(inner)}},
			},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return outer
}

func TestGeminiValidate(t *testing.T) {
	var gotBody geminiRequest

	g := testJudge(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if !strings.Contains(r.URL.Path, "test-model") {
			t.Errorf("path %q missing model", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("missing api key")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write(judgeResponse(t, []verdict{
			{Category: "حيوان", Answer: "سمكة", IsValid: true},
			{Category: "نبات", Answer: "سيارة", IsValid: false},
		}))
	})

	items := []Item{
		{Category: "حيوان", Answer: "سمكة"},
		{Category: "نبات", Answer: "سيارة"},
	}
	got, err := g.Validate(context.Background(), "س", items)
	if err != nil {
		t.Fatal(err)
	}

	if !got[items[0]] {
		t.Error("valid answer judged invalid")
	}
	if got[items[1]] {
		t.Error("invalid answer judged valid")
	}

	if gotBody.Config.ResponseMIMEType != "application/json" {
		t.Errorf("responseMimeType = %q", gotBody.Config.ResponseMIMEType)
	}
	prompt := gotBody.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "س") || !strings.Contains(prompt, "سمكة") {
		t.Error("prompt missing letter or answers")
	}
}

func TestGeminiEmptyBatchSkipsCall(t *testing.T) {
	g := testJudge(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty batch must not hit the judge")
	})

	got, err := g.Validate(context.Background(), "س", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty map", got)
	}
}

func TestGeminiNoAPIKey(t *testing.T) {
	g := NewGemini("", "test-model", time.Second)

	_, err := g.Validate(context.Background(), "س", []Item{{Category: "حيوان", Answer: "سمكة"}})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestGeminiServerError(t *testing.T) {
	g := testJudge(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := g.Validate(context.Background(), "س", []Item{{Category: "حيوان", Answer: "سمكة"}})
	if err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestGeminiMalformedVerdict(t *testing.T) {
	g := testJudge(t, func(w http.ResponseWriter, r *http.Request) {
		outer, _ := json.Marshal(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]string{{"text": "not json at all"}},
				},
			}},
		})
		w.Write(outer)
	})

	_, err := g.Validate(context.Background(), "س", []Item{{Category: "حيوان", Answer: "سمكة"}})
	if err == nil {
		t.Fatal("expected error on unparseable verdict")
	}
}

func TestGeminiNoCandidates(t *testing.T) {
	g := testJudge(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := g.Validate(context.Background(), "س", []Item{{Category: "حيوان", Answer: "سمكة"}})
	if err == nil {
		t.Fatal("expected error on empty candidates")
	}
}
