package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/medscribe/internal/config"
)

const testKeyEnv = "MEDSCRIBE_SERVICES_TEST_KEY"

// fakeAPI is an OpenAI-compatible server that records requests and answers with
// canned content.
type fakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   []map[string]interface{}
	headers  []http.Header
	forms    []map[string]string
	reply    string
	status   int
	delay    time.Duration
	rawError string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{reply: "ok", status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", f.chat)
	mux.HandleFunc("/v1/audio/transcriptions", f.transcription)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) wait(r *http.Request) bool {
	if f.delay == 0 {
		return true
	}
	select {
	case <-time.After(f.delay):
		return true
	case <-r.Context().Done():
		return false
	}
}

func (f *fakeAPI) fail(w http.ResponseWriter) bool {
	if f.status == http.StatusOK {
		return false
	}
	if f.rawError != "" {
		w.WriteHeader(f.status)
		fmt.Fprint(w, f.rawError)
		return true
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	fmt.Fprintf(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	return true
}

func (f *fakeAPI) chat(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.headers = append(f.headers, r.Header.Clone())
	f.mu.Unlock()
	if !f.wait(r) || f.fail(w) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   body["model"],
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": f.reply},
			"finish_reason": "stop",
		}},
	})
}

func (f *fakeAPI) transcription(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{}
	if err := r.ParseMultipartForm(32 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		if fh, ok := r.MultipartForm.File["file"]; ok {
			form["filename"] = fh[0].Filename
			form["size"] = fmt.Sprint(fh[0].Size)
		}
	}
	f.mu.Lock()
	f.forms = append(f.forms, form)
	f.headers = append(f.headers, r.Header.Clone())
	f.mu.Unlock()
	if !f.wait(r) || f.fail(w) {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, f.reply+"\n")
}

func (f *fakeAPI) lastBody(t *testing.T) map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		t.Fatal("no chat request received")
	}
	return f.bodies[len(f.bodies)-1]
}

func (f *fakeAPI) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies) + len(f.forms)
}

// service returns a config pointing at the fake with a key set in the environment.
func (f *fakeAPI) service(t *testing.T, model string) config.ServiceConfig {
	t.Helper()
	t.Setenv(testKeyEnv, "sk-test")
	temp := float32(0.2)
	return config.ServiceConfig{
		BaseURL:     f.URL + "/v1",
		Model:       model,
		APIKeyEnv:   testKeyEnv,
		Timeout:     5 * time.Second,
		Temperature: &temp,
		MaxTokens:   100,
	}
}
