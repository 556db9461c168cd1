package sampquery

import (
	"fmt"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// asciiName is reported for text decoded with the 7-bit fallback.
const asciiName = "US-ASCII"

// codePages are the single-byte Windows code pages tried, in order, when
// encoding outbound text. The first one that accepts every character wins.
var codePages = []*charmap.Charmap{
	charmap.Windows1250,
	charmap.Windows1251,
	charmap.Windows1252,
	charmap.Windows1253,
	charmap.Windows1254,
	charmap.Windows1255,
	charmap.Windows1256,
	charmap.Windows1257,
	charmap.Windows1258,
}

// Detector guesses the charset of a byte sequence. The server never declares
// how its text is encoded, so inbound strings are sniffed. Implementations
// return an IANA/WHATWG charset name such as "windows-1251".
type Detector interface {
	Detect(data []byte) (charset string, err error)
}

type chardetDetector struct {
	det *chardet.Detector
}

func newChardetDetector() Detector {
	return &chardetDetector{det: chardet.NewTextDetector()}
}

func (d *chardetDetector) Detect(data []byte) (string, error) {
	result, err := d.det.DetectBest(data)
	if err != nil {
		return "", err
	}
	return result.Charset, nil
}

// decodeText decodes raw server bytes using det and reports the charset name
// that was used. Inconclusive detection or an unknown charset name falls back
// to 7-bit ASCII.
func decodeText(data []byte, det Detector) (text, charset string) {
	if len(data) == 0 {
		return "", asciiName
	}
	name, err := det.Detect(data)
	if err == nil {
		if enc, lookupErr := htmlindex.Get(name); lookupErr == nil {
			if decoded, decodeErr := enc.NewDecoder().Bytes(data); decodeErr == nil {
				return string(decoded), name
			}
		}
	}
	return decodeASCII(data), asciiName
}

// decodeASCII keeps 7-bit bytes and substitutes '?' for the rest.
func decodeASCII(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c < 0x80 {
			b.WriteByte(c)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// encodeText encodes outbound text under the first code page that represents
// every character of s.
func encodeText(s string) ([]byte, error) {
	for _, page := range codePages {
		encoded, err := page.NewEncoder().Bytes([]byte(s))
		if err == nil {
			return encoded, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnencodableText, s)
}
