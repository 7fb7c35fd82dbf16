package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		RetryDelay: time.Millisecond,
	})
	c.sleep = func(time.Duration) {}
	return c, srv
}

func completionBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, content)
}

func TestGenerate_ReadsFirstChoice(t *testing.T) {
	var gotAuth string
	var gotPayload wirePayload
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		fmt.Fprint(w, completionBody("A noite caía."))
	})

	text, err := c.Generate(context.Background(), Request{
		Messages:    []Message{{Role: "user", Content: "continue"}},
		Temperature: 0.8,
		MaxTokens:   200,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "A noite caía." {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotPayload.Model != "test-model" || gotPayload.Temperature != 0.8 || gotPayload.MaxTokens != 200 {
		t.Errorf("payload = %+v", gotPayload)
	}
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, completionBody("enfim"))
	})

	text, err := c.Generate(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "enfim" || calls.Load() != 3 {
		t.Errorf("text=%q calls=%d", text, calls.Load())
	}
}

func TestGenerate_ExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	})

	_, err := c.Generate(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("err = %v, want ErrGeneration", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestGenerate_EmptyCompletionIsTransient(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, completionBody("   "))
			return
		}
		fmt.Fprint(w, completionBody("texto"))
	})

	text, err := c.Generate(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if err != nil || text != "texto" {
		t.Fatalf("text=%q err=%v", text, err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGenerate_AssemblesStreamFragments(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"A noite \"}}]}\n\n")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"caía.\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	text, err := c.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "x"}},
		Stream:   true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "A noite caía." {
		t.Errorf("text = %q", text)
	}
}

func TestGenerateJSON_RepairsMangledOutput(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody("Claro! Aqui está: {\"ok\": True, \"lista\": [1, 2,],}"))
	})

	data, err := c.GenerateJSON(context.Background(), "gere json")
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	var out struct {
		OK    bool  `json:"ok"`
		Lista []int `json:"lista"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal repaired: %v (%s)", err, data)
	}
	if !out.OK || len(out.Lista) != 2 {
		t.Errorf("out = %+v", out)
	}
}

func TestGenerateJSON_RerequestsOnceAtLowerTemperature(t *testing.T) {
	var calls atomic.Int32
	var temps []float64
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p wirePayload
		json.NewDecoder(r.Body).Decode(&p)
		temps = append(temps, p.Temperature)
		if calls.Add(1) == 1 {
			fmt.Fprint(w, completionBody("desculpe, não consigo"))
			return
		}
		fmt.Fprint(w, completionBody(`{"ok": true}`))
	})

	data, err := c.GenerateJSON(context.Background(), "gere json")
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if string(data) != `{"ok": true}` {
		t.Errorf("data = %s", data)
	}
	if len(temps) != 2 || temps[1] >= temps[0] {
		t.Errorf("temperatures = %v, want a lower second request", temps)
	}
}

func TestGenerateJSON_BothAttemptsMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody("nada de json por aqui"))
	})

	_, err := c.GenerateJSON(context.Background(), "gere json")
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestRepairJSON(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{`{"a": 1}`, true},
		{"texto antes {\"a\": 1} texto depois", true},
		{`{"a": True, "b": False, "c": None}`, true},
		{`{"a": [1, 2,], "b": {"c": 3,},}`, true},
		{"{“a”: 1}", true},
		{"sem chaves", false},
		{"} invertido {", false},
	}
	for _, tc := range cases {
		data, ok := RepairJSON(tc.in)
		if ok != tc.valid {
			t.Errorf("RepairJSON(%q) ok=%v, want %v", tc.in, ok, tc.valid)
			continue
		}
		if ok && !json.Valid(data) {
			t.Errorf("RepairJSON(%q) produced invalid JSON: %s", tc.in, data)
		}
	}
}
