// Package storage provides a disk-backed attachment store. It stands in for
// the hosted image service the relay treats as an external collaborator.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type DiskAttachmentStore struct {
	dir string
	log *slog.Logger
}

func NewDiskAttachmentStore(dir string, log *slog.Logger) (*DiskAttachmentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment directory: %w", err)
	}
	return &DiskAttachmentStore{dir: dir, log: log}, nil
}

// Upload writes the attachment bytes and returns the file reference.
// The extension is derived from the sniffed MIME subtype.
func (s *DiskAttachmentStore) Upload(_ context.Context, data []byte, mimeType string) (string, error) {
	name := uuid.NewString() + extensionFor(mimeType)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	s.log.Debug("Attachment stored", "ref", name, "bytes", len(data))
	return name, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
