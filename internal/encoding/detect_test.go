package encoding_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/MrJamesThe3rd/pocketbook/internal/encoding"
)

const sample = "Descrição;Montante\nCafé;12,50\nOperação;-3,00\n"

func TestDetect(t *testing.T) {
	latin1, err := charmap.Windows1252.NewEncoder().Bytes([]byte(sample))
	require.NoError(t, err)

	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(sample))
	require.NoError(t, err)

	type testCase struct {
		name        string
		input       []byte
		wantCharset []string
	}

	tests := []testCase{
		{name: "UTF8", input: []byte(sample), wantCharset: []string{encoding.UTF8}},
		{name: "UTF8BOM", input: append([]byte{0xEF, 0xBB, 0xBF}, sample...), wantCharset: []string{encoding.UTF8}},
		{name: "UTF16LE", input: utf16le, wantCharset: []string{encoding.UTF16LE}},
		// Both single-byte charsets agree on every character in the sample.
		{name: "Latin1", input: latin1, wantCharset: []string{encoding.Windows1252, encoding.ISO8859_9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, charset, err := encoding.Detect(bytes.NewReader(tt.input))
			require.NoError(t, err)
			assert.Contains(t, tt.wantCharset, charset)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, sample, string(got))
		})
	}
}

func TestDetect_RuneSplitBySniffWindow(t *testing.T) {
	// 4095 ASCII bytes put the two-byte "ç" across the 4096 byte window.
	input := strings.Repeat("a", 4095) + "ção\n"

	r, charset, err := encoding.Detect(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8, charset)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(got))
}

func TestDetect_ShortLatin1Tail(t *testing.T) {
	r, err := encoding.NewUTF8Reader(bytes.NewReader([]byte("Caf\xe9")))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Café", string(got))
}

func TestDetect_Empty(t *testing.T) {
	r, charset, err := encoding.Detect(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8, charset)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}
