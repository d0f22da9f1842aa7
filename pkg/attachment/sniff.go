package attachment

import (
	"encoding/base64"

	"github.com/gabriel-vasile/mimetype"
)

const fallbackMIME = "image/jpeg"

// SniffMIME inspects the leading bytes of a raw base64 payload and returns
// the matching image MIME type, defaulting to the lossy format when the
// magic bytes are unrecognized.
func SniffMIME(b64 string) string {
	header := b64
	if len(header) > 32 {
		header = header[:32]
	}
	raw, err := base64.StdEncoding.DecodeString(trimToQuantum(header))
	if err != nil || len(raw) == 0 {
		return fallbackMIME
	}
	mt := mimetype.Detect(raw)
	for _, candidate := range []string{"image/png", "image/jpeg", "image/webp", "image/gif"} {
		if mt.Is(candidate) {
			return candidate
		}
	}
	return fallbackMIME
}

// DataURI reconstructs a displayable URI from a raw base64 payload. Inputs
// that already carry a scheme pass through untouched.
func DataURI(b64 string) string {
	if b64 == "" {
		return ""
	}
	if len(b64) > 5 && b64[:5] == "data:" {
		return b64
	}
	return "data:" + SniffMIME(b64) + ";base64," + b64
}

// trimToQuantum cuts a base64 fragment to a decodable 4-character multiple.
func trimToQuantum(s string) string {
	return s[:len(s)-len(s)%4]
}
