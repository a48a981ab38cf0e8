package models

import (
	"bytes"
	"strings"
	"testing"
)

func TestCategoryForMime(t *testing.T) {
	cases := []struct {
		mime string
		want FileCategory
	}{
		{"image/png", CategoryImage},
		{"image/jpeg", CategoryImage},
		{"video/mp4", CategoryVideo},
		{"audio/webm", CategoryAudio},
		{"audio/mpeg", CategoryAudio},
		{"application/pdf", CategoryDocument},
		{"text/plain", CategoryDocument},
		{"application/octet-stream", CategoryDocument},
		{"", CategoryDocument},
	}
	for _, c := range cases {
		if got := CategoryForMime(c.mime); got != c.want {
			t.Fatalf("CategoryForMime(%q) = %s, want %s", c.mime, got, c.want)
		}
	}
}

func TestNewFileRecord(t *testing.T) {
	content := []byte("contrato de trabalho")
	rec := NewFileRecord("contrato.pdf", "application/pdf", content)

	if rec.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("expected a fresh id")
	}
	if rec.Category != CategoryDocument {
		t.Fatalf("expected document category, got %s", rec.Category)
	}
	if !strings.HasPrefix(rec.Base64, "data:application/pdf;base64,") {
		t.Fatalf("expected data URL, got %q", rec.Base64)
	}
	if rec.Size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", rec.Size, len(content))
	}

	decoded, err := DecodeDataURL(rec.Base64)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, content) {
		t.Fatalf("decoded payload differs from original")
	}
}

func TestDecodeDataURLBarePayload(t *testing.T) {
	decoded, err := DecodeDataURL("aGVsbG8=")
	if err != nil {
		t.Fatalf("decode bare base64: %v", err)
	}
	if string(decoded) != "hello" {
		t.Fatalf("got %q, want %q", decoded, "hello")
	}
}

func TestDecodeDataURLRejectsGarbage(t *testing.T) {
	if _, err := DecodeDataURL("data:text/plain;base64,%%%%"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
}
