package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghiac/chatforge/apperr"
)

func TestExtract_PlainTextFileIsReadAsIs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("alpha beta gamma"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New("", "")
	text, raw, err := c.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "alpha beta gamma" {
		t.Fatalf("expected passthrough text, got %q", text)
	}
	if raw != "" {
		t.Fatalf("expected empty raw response for a non-PDF file, got %q", raw)
	}
}

func TestExtract_PDFWithoutAPIKeyFailsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New("", "")
	_, _, err := c.Extract(context.Background(), path)
	if apperr.KindOf(err) != apperr.KindConfig {
		t.Fatalf("expected Config error when LLMWHISPERER_API_KEY is unset, got %v", err)
	}
}

func TestExtract_PDFCallsWhispererAndParsesNestedExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("unstract-key") != "test-key" {
			t.Errorf("expected unstract-key header to be forwarded")
		}
		w.Write([]byte(`{"extraction":{"result_text":"alpha beta gamma"}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New("test-key", srv.URL)
	text, raw, err := c.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "alpha beta gamma" {
		t.Fatalf("expected extracted text from nested result_text, got %q", text)
	}
	if raw == "" {
		t.Fatal("expected the raw whisperer payload to be returned")
	}
}

func TestExtract_PDFEmptyExtractionFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"extraction":{}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644)

	c := New("test-key", srv.URL)
	_, _, err := c.Extract(context.Background(), path)
	if apperr.KindOf(err) != apperr.KindProviderError {
		t.Fatalf("expected ProviderError when whisperer returns no usable text, got %v", err)
	}
}
