package validation

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegPayload = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngPayload  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	gifPayload  = []byte("GIF89a....")
	webpPayload = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
)

func TestValidator_Validate(t *testing.T) {
	v := New(nil, 0)

	tests := []struct {
		name         string
		payload      []byte
		contentType  string
		declaredSize int64
		wantField    string
	}{
		{name: "jpeg", payload: jpegPayload, contentType: "image/jpeg", declaredSize: 10},
		{name: "png", payload: pngPayload, contentType: "image/png", declaredSize: 8},
		{name: "gif", payload: gifPayload, contentType: "image/gif"},
		{name: "webp", payload: webpPayload, contentType: "image/webp"},
		{name: "content type is case-insensitive", payload: jpegPayload, contentType: "IMAGE/JPEG"},
		{name: "declared type need not match signature", payload: pngPayload, contentType: "image/jpeg"},
		{name: "empty payload", payload: nil, contentType: "image/jpeg", wantField: "file"},
		{name: "declared size too large", payload: jpegPayload, contentType: "image/jpeg", declaredSize: DefaultMaxBytes + 1, wantField: "file"},
		{name: "text/plain rejected", payload: jpegPayload, contentType: "text/plain", wantField: "content_type"},
		{name: "image/jpg alias not allowed by default", payload: jpegPayload, contentType: "image/jpg", wantField: "content_type"},
		{name: "content type with parameters is not an exact match", payload: jpegPayload, contentType: "image/jpeg; charset=binary", wantField: "content_type"},
		{name: "bad signature with allowed type", payload: []byte("hello world"), contentType: "image/png", wantField: "file"},
		{name: "single signature byte is not enough", payload: []byte{0xFF}, contentType: "image/jpeg", wantField: "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.payload, tt.contentType, tt.declaredSize)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidContent))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
			assert.NotEmpty(t, verr.Message)
		})
	}
}

func TestValidator_OversizedPayloadRejectedRegardlessOfType(t *testing.T) {
	v := New(nil, 0)
	payload := bytes.Repeat([]byte{0x00}, int(DefaultMaxBytes)+1)
	copy(payload, jpegPayload)

	err := v.Validate(payload, "image/jpeg", 0)

	assert.ErrorIs(t, err, ErrInvalidContent)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestValidator_SignatureMessageNamesDetectedType(t *testing.T) {
	v := New(nil, 0)

	err := v.Validate([]byte("just some text"), "image/png", 14)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "text/plain")
}

func TestNew_CustomConfiguration(t *testing.T) {
	v := New([]string{" Image/PNG "}, 4)

	assert.Equal(t, int64(4), v.MaxBytes())
	assert.NoError(t, v.Validate(pngPayload[:4], "image/png", 4))
	assert.ErrorIs(t, v.Validate(jpegPayload[:4], "image/jpeg", 4), ErrInvalidContent)
	assert.ErrorIs(t, v.Validate(pngPayload, "image/png", 8), ErrInvalidContent)
}
