package legacy

import (
	"strings"

	"github.com/tphakala/gallery-migrate/internal/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Decoder converts legacy text to UTF-8.
type Decoder func(string) string

var charsets = map[string]encoding.Encoding{
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// NewDecoder returns a Decoder for the named charset. UTF-8 (or an empty
// name) yields an identity decoder.
func NewDecoder(charset string) (Decoder, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" || name == "utf-8" || name == "utf8" {
		return func(s string) string { return s }, nil
	}

	enc, ok := charsets[name]
	if !ok {
		return nil, errors.Newf("unsupported source charset %q", charset).
			Component("source").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return func(s string) string {
		out, err := enc.NewDecoder().String(s)
		if err != nil {
			// Single-byte charmaps decode every byte; keep the input if not.
			return s
		}
		return out
	}, nil
}
