// Package validation checks uploaded workbook files before they reach the
// loader: extension, size, and sniffed content type.
package validation

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apierrors "loanlens/internal/errors"
)

// xlsx files are zip containers; a mislabelled zip still opens in excelize,
// so both types are accepted and the loader has the final say.
var allowedMIMEs = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/zip": true,
}

var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

// UploadValidator validates uploaded workbook files
type UploadValidator struct {
	logger   *slog.Logger
	maxBytes int64
}

// NewUploadValidator creates a new upload validator
func NewUploadValidator(logger *slog.Logger, maxBytes int64) *UploadValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadValidator{
		logger:   logger.With(slog.String("component", "upload_validator")),
		maxBytes: maxBytes,
	}
}

// ValidateWorkbook checks the filename, declared size, and sniffed content
// type of an upload. The reader is rewound before returning so the loader
// reads from the start.
func (v *UploadValidator) ValidateWorkbook(filename string, size int64, file io.ReadSeeker) error {
	if err := v.validateFilename(filename); err != nil {
		return err
	}

	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("upload exceeds size limit",
			slog.String("filename", filename),
			slog.Int64("size", size),
			slog.Int64("limit", v.maxBytes))
		return apierrors.ErrValidation("file",
			fmt.Sprintf("File exceeds maximum size of %d bytes", v.maxBytes))
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return apierrors.ErrValidation("file", "Could not read uploaded file")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind upload: %w", err)
	}

	if !allowedMIMEs[mtype.String()] {
		v.logger.Warn("upload rejected by content sniff",
			slog.String("filename", filename),
			slog.String("detected", mtype.String()))
		return apierrors.ErrValidation("file",
			fmt.Sprintf("File content is %s, expected an xlsx workbook", mtype.String()))
	}

	return nil
}

func (v *UploadValidator) validateFilename(filename string) error {
	if filename == "" {
		return apierrors.ErrValidation("file", "Filename is required")
	}
	if strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		return apierrors.ErrValidation("file", "Filename must not contain path separators")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return apierrors.ErrValidation("file",
			fmt.Sprintf("Unsupported file extension %q, expected .xlsx", ext))
	}
	return nil
}
