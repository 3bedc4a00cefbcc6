package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config carries the provider coordinates. BaseURL is overridable so tests
// can point the client at a local server.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// FileHandle is the provider-assigned identity of an uploaded file, usable
// as a part in a subsequent generation call.
type FileHandle struct {
	Name     string
	URI      string
	MIMEType string
}

type FileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

// Part is either inline text or a reference to an uploaded file.
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"file_data,omitempty"`
}

type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type GenerateResult struct {
	Text  string
	Usage Usage
}

type GeminiClient struct {
	httpClient *http.Client
}

func NewGeminiClient(timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &GeminiClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UploadFile transmits a stored file to the provider and returns its handle.
// Every call performs a fresh upload; handles are not cached.
func (c *GeminiClient) UploadFile(ctx context.Context, cfg Config, path, mimeType string) (*FileHandle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file failed: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat upload file failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/upload/v1beta/files?key=" + cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, file)
	if err != nil {
		return nil, fmt.Errorf("build upload request failed: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-File-Name", filepath.Base(path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		File struct {
			Name     string `json:"name"`
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType"`
		} `json:"file"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse upload json failed: %w", err)
	}
	if parsed.File.URI == "" {
		return nil, fmt.Errorf("upload response missing file uri")
	}

	handle := &FileHandle{
		Name:     parsed.File.Name,
		URI:      parsed.File.URI,
		MIMEType: parsed.File.MIMEType,
	}
	if handle.MIMEType == "" {
		handle.MIMEType = mimeType
	}
	return handle, nil
}

// GenerateContent submits the assembled turn sequence and returns the model
// text plus token usage.
func (c *GeminiClient) GenerateContent(ctx context.Context, cfg Config, contents []Content) (*GenerateResult, error) {
	reqBody := map[string]interface{}{
		"contents": contents,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request failed: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(cfg.BaseURL, "/"), cfg.Model, cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build generate request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generate response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generate response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse generate json failed: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("empty generate candidates")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	return &GenerateResult{
		Text: text.String(),
		Usage: Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
