package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileCategory is the coarse classification of an uploaded evidence file.
type FileCategory string

const (
	CategoryDocument FileCategory = "document"
	CategoryImage    FileCategory = "image"
	CategoryVideo    FileCategory = "video"
	CategoryAudio    FileCategory = "audio"
)

// FileRecord is a self-contained in-memory copy of an uploaded evidence
// file. Records live only inside a wizard session; they are consumed by
// dossier generation and never written to the database.
type FileRecord struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	MimeType  string       `json:"mime_type"`
	Base64    string       `json:"base64"`
	Category  FileCategory `json:"category"`
	Size      int64        `json:"size"`
	CreatedAt time.Time    `json:"created_at"`
}

// CategoryForMime classifies a MIME type by prefix. Anything that is not
// image, video or audio counts as a document.
func CategoryForMime(mimeType string) FileCategory {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	case strings.HasPrefix(mimeType, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return CategoryAudio
	default:
		return CategoryDocument
	}
}

// NewFileRecord builds a FileRecord from raw file content, assigning a fresh
// id and encoding the payload as a self-describing data URL.
func NewFileRecord(name, mimeType string, content []byte) FileRecord {
	return FileRecord{
		ID:        uuid.New(),
		Name:      name,
		MimeType:  mimeType,
		Base64:    EncodeDataURL(mimeType, content),
		Category:  CategoryForMime(mimeType),
		Size:      int64(len(content)),
		CreatedAt: time.Now(),
	}
}

// EncodeDataURL encodes content as "data:<mime>;base64,<payload>".
func EncodeDataURL(mimeType string, content []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(content))
}

// DecodeDataURL returns the raw bytes of a data URL. A bare base64 string
// (no "data:...," prefix) is accepted as well.
func DecodeDataURL(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, nil
}
