package sttbatch

import (
	"context"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCloudBackendTranscribe(t *testing.T) {
	var gotHeader, gotModel, gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("xi-api-key")
		ct := r.Header.Get("Content-Type")
		mediaType, params, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "multipart/form-data" {
			t.Fatalf("unexpected content type %q: %v", ct, err)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		gotModel = r.FormValue("model_id")
		gotFormat = r.FormValue("file_format")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("expected a file part: %v", err)
		}
		_ = params
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello from the cloud"}`))
	}))
	defer server.Close()

	backend := &CloudBackend{apiKey: "test-key", url: server.URL, httpClient: server.Client()}
	clip := Clip{SampleRateHz: 16000, Samples: []float32{0, 0.1, -0.1}}

	result, err := backend.Transcribe(context.Background(), clip, "scribe_v1", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "hello from the cloud" {
		t.Errorf("text = %q", result.Text)
	}
	if result.ProviderTag != "cloud" || result.ModelTag != "scribe_v1" {
		t.Errorf("unexpected tags: %+v", result)
	}
	if gotHeader != "test-key" {
		t.Errorf("xi-api-key header = %q", gotHeader)
	}
	if gotModel != "scribe_v1" {
		t.Errorf("model_id field = %q", gotModel)
	}
	if gotFormat != "pcm_s16le_16" {
		t.Errorf("file_format field = %q", gotFormat)
	}
	if backend.Name() != "cloud_elevenlabs" {
		t.Errorf("Name() = %q", backend.Name())
	}
}

func TestCloudBackendStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"bad key"}`))
	}))
	defer server.Close()

	backend := &CloudBackend{apiKey: "bad", url: server.URL, httpClient: server.Client()}
	_, err := backend.Transcribe(context.Background(), Clip{SampleRateHz: 16000, Samples: []float32{0}}, "scribe_v1", "")

	var statusErr *StatusError
	if err == nil {
		t.Fatal("expected an error")
	}
	if !asStatusError(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", statusErr.Status)
	}
}

func asStatusError(err error, target **StatusError) bool {
	se, ok := err.(*StatusError)
	if !ok {
		return false
	}
	*target = se
	return true
}

func TestNormalizeRealtimeModel(t *testing.T) {
	cases := map[string]string{
		"scribe_v1_realtime": "scribe_v1",
		"scribe_v1":          "scribe_v1",
		"other_model":        "other_model",
	}
	for in, want := range cases {
		if got := NormalizeRealtimeModel(in); got != want {
			t.Errorf("NormalizeRealtimeModel(%q) = %q, want %q", in, got, want)
		}
	}
}
