package githubapi

import (
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"
)

var ErrNotText = errors.New("content is not valid UTF-8 text")

// DecodeContent decodes the base64 payload of a contents envelope. Blobs that
// are not UTF-8 text are rejected with a KindDecode error.
func DecodeContent(envelope ContentEnvelope) (string, error) {
	if envelope.Encoding != "" && envelope.Encoding != "base64" {
		return "", &FetchError{Kind: KindDecode, URL: envelope.Path, Err: errors.New("unsupported encoding " + envelope.Encoding)}
	}

	// GitHub wraps the payload at 60 columns
	payload := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, envelope.Content)

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", &FetchError{Kind: KindDecode, URL: envelope.Path, Err: err}
	}
	if !utf8.Valid(raw) {
		return "", &FetchError{Kind: KindDecode, URL: envelope.Path, Err: ErrNotText}
	}
	return string(raw), nil
}
