// Package restore runs one photo restoration: upload validation, job
// submission, completion polling and result mapping.
package restore

import (
	"errors"
	"fmt"
	"strings"

	"photorestore/internal/domain"
)

type inputCode int

const (
	codeNoImage inputCode = iota + 1
	codeTooLarge
	codeBadType
)

// InputError is a client-correctable upload problem. Message is safe to
// return to the caller as is.
type InputError struct {
	code    inputCode
	Message string
}

func (e *InputError) Error() string { return e.Message }

// Is matches domain.ErrInvalidInput and any InputError of the same kind.
func (e *InputError) Is(target error) bool {
	if target == domain.ErrInvalidInput {
		return true
	}
	var other *InputError
	return errors.As(target, &other) && other.code == e.code
}

var (
	ErrNoImage          = &InputError{code: codeNoImage, Message: "No image provided"}
	ErrImageTooLarge    = &InputError{code: codeTooLarge, Message: "File too large"}
	ErrInvalidImageType = &InputError{code: codeBadType, Message: "Invalid file type. Only images are allowed"}
)

// ValidateUpload checks presence, then size, then media type. The first
// violation wins.
func ValidateUpload(img *domain.UploadedImage, maxBytes int64, typePrefix string) error {
	if img == nil || len(img.Data) == 0 {
		return ErrNoImage
	}
	if img.Size() > maxBytes {
		return SizeLimitError(maxBytes)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(img.MediaType)), strings.ToLower(typePrefix)) {
		return ErrInvalidImageType
	}
	return nil
}

// SizeLimitError reports an upload over maxBytes. It matches ErrImageTooLarge.
func SizeLimitError(maxBytes int64) error {
	return &InputError{
		code:    codeTooLarge,
		Message: fmt.Sprintf("File too large. Maximum size is %s", formatMB(maxBytes)),
	}
}

func formatMB(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/mb)
}
