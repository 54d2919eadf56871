package format

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// DecodeUTF16 decodes UTF-16LE bytes to a UTF-8 string.
//
// NTFS names are overwhelmingly plain ASCII, so an allocation-light fast
// path extracts those directly. Everything else (surrogate pairs, non-Latin
// scripts) goes through the x/text decoder, which also tolerates unpaired
// surrogates by substituting U+FFFD rather than failing.
func DecodeUTF16(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	allASCII := len(data)%2 == 0
	if allASCII {
		for i := 0; i < len(data); i += 2 {
			if data[i+1] != 0 || data[i] >= UTF16ASCIIThreshold {
				allASCII = false
				break
			}
		}
	}

	if allASCII {
		var b strings.Builder
		b.Grow(len(data) / 2)
		for i := 0; i < len(data); i += 2 {
			b.WriteByte(data[i])
		}
		return b.String()
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(data)
	if err != nil {
		// The decoder substitutes rather than erroring for all malformed
		// input we feed it; a hard failure means an odd trailing byte.
		out, _ = dec.Bytes(data[:len(data)&^1])
	}
	return string(out)
}

// EncodeUTF16 converts a UTF-8 string to UTF-16LE bytes. Used by test
// fixtures that build synthetic records.
func EncodeUTF16(s string) []byte {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil
	}
	return out
}
