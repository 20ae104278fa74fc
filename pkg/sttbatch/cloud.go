package sttbatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Clouder0/voicewin/pkg/audio"
)

const cloudSttURL = "https://api.elevenlabs.io/v1/speech-to-text"

// CloudBackend sends a captured clip to the ElevenLabs speech-to-text
// endpoint as a multipart/form-data POST, the cloud counterpart to
// LocalBackend.
type CloudBackend struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

// NewCloudBackend builds a CloudBackend with the given API key and a
// 60 second request timeout.
func NewCloudBackend(apiKey string) *CloudBackend {
	return &CloudBackend{
		apiKey:     apiKey,
		url:        cloudSttURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *CloudBackend) Name() string { return "cloud_elevenlabs" }

func (c *CloudBackend) Transcribe(ctx context.Context, clip Clip, model, language string) (Transcript, error) {
	wavData := audio.NewFloat32WavBuffer(clip.Samples, clip.SampleRateHz)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"model_id":              model,
		"temperature":           "0.0",
		"timestamps_granularity": "none",
		"diarize":               "false",
		"tag_audio_events":      "false",
		"file_format":           "pcm_s16le_16",
	}
	if language != "" {
		fields["language_code"] = language
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return Transcript{}, fmt.Errorf("sttbatch: write field %s: %w", k, err)
		}
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return Transcript{}, fmt.Errorf("sttbatch: create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return Transcript{}, fmt.Errorf("sttbatch: write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Transcript{}, fmt.Errorf("sttbatch: close multipart writer: %w", err)
	}

	url := c.url
	if url == "" {
		url = cloudSttURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return Transcript{}, fmt.Errorf("sttbatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("sttbatch: cloud request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Transcript{}, &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Transcript{}, fmt.Errorf("sttbatch: decode response: %w", err)
	}

	return Transcript{Text: result.Text, ProviderTag: "cloud", ModelTag: model}, nil
}
