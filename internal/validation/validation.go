// Package validation screens candidate uploads before any external call is made.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes is the upload limit used when none is configured (10 MiB).
const DefaultMaxBytes int64 = 10 << 20

// DefaultAllowedContentTypes lists the image types accepted by default.
var DefaultAllowedContentTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// ErrInvalidContent is matched by every ValidationError.
var ErrInvalidContent = errors.New("invalid content")

// ValidationError describes why an upload was rejected.
// Message is safe to show to the uploader as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets callers test with errors.Is(err, ErrInvalidContent).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidContent
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var signatures = [][]byte{
	{0xFF, 0xD8},             // JPEG
	{0x89, 0x50, 0x4E, 0x47}, // PNG
	{0x47, 0x49, 0x46},       // GIF
	{0x52, 0x49, 0x46, 0x46}, // RIFF (WebP)
}

// Validator accepts or rejects uploads. It holds no mutable state and is safe for concurrent use.
type Validator struct {
	allowed  map[string]struct{}
	maxBytes int64
}

// New builds a Validator. Empty inputs fall back to the defaults.
func New(allowedContentTypes []string, maxBytes int64) *Validator {
	if len(allowedContentTypes) == 0 {
		allowedContentTypes = DefaultAllowedContentTypes
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	allowed := make(map[string]struct{}, len(allowedContentTypes))
	for _, ct := range allowedContentTypes {
		ct = strings.ToLower(strings.TrimSpace(ct))
		if ct != "" {
			allowed[ct] = struct{}{}
		}
	}
	return &Validator{allowed: allowed, maxBytes: maxBytes}
}

// MaxBytes returns the configured upload limit.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate checks payload, declared content type and declared size.
// The signature check runs even when the declared type is allowed.
func (v *Validator) Validate(payload []byte, contentType string, declaredSize int64) error {
	if len(payload) == 0 {
		return invalid("file", "file cannot be empty")
	}
	if declaredSize > v.maxBytes || int64(len(payload)) > v.maxBytes {
		return invalid("file", "file size exceeds maximum allowed size of %d bytes", v.maxBytes)
	}
	if _, ok := v.allowed[strings.ToLower(contentType)]; !ok {
		return invalid("content_type", "invalid file type %q: allowed types are %s", contentType, v.allowedList())
	}
	if !hasImageSignature(payload) {
		return invalid("file", "file content does not match an image format (detected %s)", mimetype.Detect(payload).String())
	}
	return nil
}

func (v *Validator) allowedList() string {
	out := make([]string, 0, len(v.allowed))
	for _, ct := range DefaultAllowedContentTypes {
		if _, ok := v.allowed[ct]; ok {
			out = append(out, ct)
		}
	}
	for ct := range v.allowed {
		if !contains(DefaultAllowedContentTypes, ct) {
			out = append(out, ct)
		}
	}
	return strings.Join(out, ", ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasImageSignature(payload []byte) bool {
	for _, sig := range signatures {
		if bytes.HasPrefix(payload, sig) {
			return true
		}
	}
	return false
}
