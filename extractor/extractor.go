// Package extractor implements the Document Extractor (C3): turning an
// uploaded file into plain text via an external OCR/layout service for
// PDFs, or a generic reader for everything else. Grounded on
// original_source/services/llm_whisper_processor.py's LLMWhisperProcessor.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghiac/chatforge/apperr"
)

// Timeout bounds how long a whisper job is awaited before giving up,
// mirroring the original's wait_timeout=180.
const Timeout = 180 * time.Second

// DefaultBaseURL is used when LLMWHISPERER_BASE_URL is unset.
const DefaultBaseURL = "https://llmwhisperer-api.us-central.unstract.com/api/v2"

// Client wraps the LLMWhisperer HTTP API for PDF extraction, falling back
// to a plain-text read for every other extension.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New builds a Client. An empty apiKey disables PDF extraction: Extract
// returns a Config-kind error for PDFs, while other files are still read
// as plain text.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: Timeout},
	}
}

// Extract turns filePath into plain text. PDFs are routed through
// LLMWhisperer; every other extension is read as-is. rawResponse carries
// the full whisperer payload for the llmwhisperer_output artifact (empty
// for non-PDF extraction).
func (c *Client) Extract(ctx context.Context, filePath string) (text string, rawResponse string, err error) {
	if strings.EqualFold(filepath.Ext(filePath), ".pdf") {
		return c.extractPDF(ctx, filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", "", apperr.WrapStoreError(err, "read file %s", filePath)
	}
	return string(data), "", nil
}

func (c *Client) extractPDF(ctx context.Context, filePath string) (string, string, error) {
	if c.apiKey == "" {
		return "", "", apperr.Config("LLMWHISPERER_API_KEY is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fileWriter, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", "", apperr.WrapProviderError(err, "build whisperer upload")
	}
	f, err := os.Open(filePath)
	if err != nil {
		return "", "", apperr.WrapStoreError(err, "open %s", filePath)
	}
	defer f.Close()
	if _, err := io.Copy(fileWriter, f); err != nil {
		return "", "", apperr.WrapProviderError(err, "copy %s into whisperer upload", filePath)
	}
	if err := writer.Close(); err != nil {
		return "", "", apperr.WrapProviderError(err, "close whisperer upload")
	}

	url := fmt.Sprintf("%s/whisper?mode=high_quality&output_mode=text&wait_for_completion=true&wait_timeout=%d",
		c.baseURL, int(Timeout.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", "", apperr.WrapProviderError(err, "build whisperer request")
	}
	req.Header.Set("unstract-key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", apperr.WrapProviderError(err, "call whisperer for %s", filePath)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", apperr.WrapProviderError(err, "read whisperer response")
	}
	if resp.StatusCode >= 400 {
		return "", string(respBody), apperr.ProviderError("whisperer returned status %d for %s", resp.StatusCode, filePath)
	}

	var parsed whispererResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", string(respBody), apperr.WrapProviderError(err, "parse whisperer response")
	}

	text := parsed.extractedText()
	if text == "" {
		return "", string(respBody), apperr.ProviderError("no extracted text found in whisperer result for %s", filePath)
	}
	return text, string(respBody), nil
}

// whispererResponse mirrors the handful of shapes the original's robust
// extraction fallback handles: a bare string, or one of several known keys
// inside a nested "extraction" object.
type whispererResponse struct {
	Extraction json.RawMessage `json:"extraction"`
}

func (w whispererResponse) extractedText() string {
	if len(w.Extraction) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(w.Extraction, &asString); err == nil {
		return asString
	}
	var asObject map[string]any
	if err := json.Unmarshal(w.Extraction, &asObject); err == nil {
		for _, key := range []string{"result_text", "extracted_text", "layout_preserved_text", "text"} {
			if v, ok := asObject[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}
