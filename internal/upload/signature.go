package upload

import "bytes"

// signature is a magic-number prefix expected at a fixed offset
type signature struct {
	offset int
	prefix []byte
}

// signatures maps declared mime types to their known magic numbers. A type
// absent from this table is exempt from the byte-level check: formats like
// audio/wav or video/webm have no single reliable universal prefix. That
// exemption is a known gap — a payload declared as an unmapped type bypasses
// signature verification entirely. HasSignature exposes the mapping so
// callers and tests can account for it.
var signatures = map[string][]signature{
	"image/jpeg": {
		{offset: 0, prefix: []byte{0xFF, 0xD8, 0xFF}},
	},
	"image/png": {
		{offset: 0, prefix: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	},
	"image/gif": {
		{offset: 0, prefix: []byte("GIF8")},
	},
	"image/webp": {
		{offset: 0, prefix: []byte("RIFF")},
	},
	"application/pdf": {
		{offset: 0, prefix: []byte("%PDF")},
	},
	"audio/mpeg": {
		{offset: 0, prefix: []byte{0xFF, 0xFB}},
		{offset: 0, prefix: []byte("ID3")},
	},
	"video/mp4": {
		{offset: 4, prefix: []byte("ftyp")},
	},
}

// HasSignature reports whether a magic-number entry exists for the declared
// mime type, i.e. whether MatchesSignature actually verifies anything for it
func HasSignature(mimeType string) bool {
	_, ok := signatures[mimeType]
	return ok
}

// MatchesSignature checks the file's leading bytes against the magic-number
// table for the declared mime type. Types without an entry pass. When
// entries exist, at least one must match byte for byte at its offset.
func MatchesSignature(leading []byte, mimeType string) bool {
	candidates, ok := signatures[mimeType]
	if !ok {
		return true
	}

	for _, sig := range candidates {
		end := sig.offset + len(sig.prefix)
		if end <= len(leading) && bytes.Equal(leading[sig.offset:end], sig.prefix) {
			return true
		}
	}
	return false
}
