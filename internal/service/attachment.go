package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	appErrors "github.com/noah-isme/gema-grading-api/pkg/errors"
)

const maxAttachmentBytes int64 = 25 * 1024 * 1024

var allowedAttachmentTypes = []string{
	"application/pdf",
	"application/zip",
	"text/plain",
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
}

// buildAttachments validates declared file metadata and converts it to models.
func buildAttachments(files []dto.FileRequest) ([]models.File, error) {
	out := make([]models.File, 0, len(files))
	for idx, file := range files {
		name := sanitizeFileName(file.Filename)
		if name == "" {
			return nil, appErrors.Validation(fmt.Sprintf("file %d: filename is required", idx))
		}
		if file.Size <= 0 || file.Size > maxAttachmentBytes {
			return nil, appErrors.Validation(fmt.Sprintf("file %q: size must be between 1 byte and 25 MiB", name))
		}
		path := strings.TrimSpace(file.Path)
		if path == "" {
			return nil, appErrors.Validation(fmt.Sprintf("file %q: path is required", name))
		}

		contentType, ok := normalizeAttachmentType(file.ContentType)
		if !ok {
			return nil, appErrors.Validation(fmt.Sprintf("file %q: content type %q not allowed", name, file.ContentType))
		}

		out = append(out, models.File{
			Filename:    name,
			Size:        file.Size,
			Path:        path,
			ContentType: contentType,
		})
	}
	return out, nil
}

// normalizeAttachmentType resolves aliases through the mimetype tree and checks the allow-list.
func normalizeAttachmentType(declared string) (string, bool) {
	value := strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	if value == "" {
		return "", false
	}

	mime := mimetype.Lookup(value)
	if mime == nil {
		return "", false
	}
	for _, allowed := range allowedAttachmentTypes {
		if mime.Is(allowed) {
			return allowed, true
		}
	}
	return "", false
}

func sanitizeFileName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" {
		return ""
	}
	return strings.ReplaceAll(base, " ", "_")
}
