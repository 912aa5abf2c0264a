// Package encoding turns uploaded text of unknown encoding into UTF-8.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names reported by Detect.
const (
	UTF8        = "UTF-8"
	UTF16LE     = "UTF-16LE"
	UTF16BE     = "UTF-16BE"
	Windows1252 = "windows-1252"
	ISO8859_9   = "ISO-8859-9"
)

const sniffLen = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decoders maps chardet results we trust to their decoders.
var decoders = map[string]struct {
	name string
	enc  encoding.Encoding
}{
	"ISO-8859-1":   {Windows1252, charmap.Windows1252},
	"windows-1252": {Windows1252, charmap.Windows1252},
	"ISO-8859-9":   {ISO8859_9, charmap.ISO8859_9},
}

// Detect sniffs the start of r and returns a reader producing UTF-8 along
// with the name of the charset it decoded from. A UTF-8 BOM is dropped.
// Input that is neither valid UTF-8 nor confidently recognised is read as
// Windows-1252, the usual encoding of spreadsheet exports.
func Detect(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sniffLen)

	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peeking input: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, UTF8, nil
	case bytes.HasPrefix(head, bomUTF16LE):
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), UTF16LE, nil
	case bytes.HasPrefix(head, bomUTF16BE):
		return transform.NewReader(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()), UTF16BE, nil
	case validUTF8Prefix(head, len(head) == sniffLen):
		return br, UTF8, nil
	}

	if res, err := chardet.NewTextDetector().DetectBest(head); err == nil {
		if res.Charset == UTF8 {
			return br, UTF8, nil
		}

		if d, ok := decoders[res.Charset]; ok {
			return transform.NewReader(br, d.enc.NewDecoder()), d.name, nil
		}
	}

	return transform.NewReader(br, charmap.Windows1252.NewDecoder()), Windows1252, nil
}

// validUTF8Prefix tolerates a multi-byte rune cut off by the sniff window
// when the input was longer than the window.
func validUTF8Prefix(b []byte, truncated bool) bool {
	if !truncated {
		return utf8.Valid(b)
	}

	for range utf8.UTFMax {
		if utf8.Valid(b) {
			return true
		}

		if len(b) == 0 {
			return false
		}

		b = b[:len(b)-1]
	}

	return utf8.Valid(b)
}

// NewUTF8Reader is Detect without the charset name.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	out, _, err := Detect(r)
	return out, err
}
