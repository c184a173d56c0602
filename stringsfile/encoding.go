package stringsfile

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding identifies the byte encoding a .strings file was stored in.
// Xcode historically wrote UTF-16; modern projects use UTF-8.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF8BOM
	UTF16LE
	UTF16BE
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "UTF-8"
	case UTF8BOM:
		return "UTF-8 (BOM)"
	case UTF16LE:
		return "UTF-16LE"
	case UTF16BE:
		return "UTF-16BE"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode detects the encoding of data by its byte order mark and returns
// the text as a Go string. Without a BOM the data must be valid UTF-8.
func Decode(data []byte) (string, Encoding, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
		if err := validUTF8(data); err != nil {
			return "", UTF8BOM, err
		}
		return string(data), UTF8BOM, nil

	case bytes.HasPrefix(data, bomUTF16LE):
		text, err := decodeUTF16(data, unicode.LittleEndian)
		return text, UTF16LE, err

	case bytes.HasPrefix(data, bomUTF16BE):
		text, err := decodeUTF16(data, unicode.BigEndian)
		return text, UTF16BE, err
	}

	if err := validUTF8(data); err != nil {
		return "", UTF8, err
	}
	return string(data), UTF8, nil
}

func decodeUTF16(data []byte, endian unicode.Endianness) (string, error) {
	if len(data)%2 != 0 {
		return "", errors.New("truncated UTF-16 data: odd byte count")
	}
	out, _, err := transform.Bytes(unicode.UTF16(endian, unicode.ExpectBOM).NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decoding UTF-16: %w", err)
	}
	return string(out), nil
}

func validUTF8(data []byte) error {
	if utf8.Valid(data) {
		return nil
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return fmt.Errorf("invalid UTF-8 byte 0x%02x at offset %d", data[i], i)
		}
		i += size
	}
	return nil
}

// Encode converts text to bytes in the given encoding. The text itself must
// be valid UTF-8.
func Encode(text string, enc Encoding) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, errors.New("text is not valid UTF-8")
	}

	switch enc {
	case UTF8:
		return []byte(text), nil
	case UTF8BOM:
		return append(append([]byte{}, bomUTF8...), text...), nil
	case UTF16LE, UTF16BE:
		endian := unicode.LittleEndian
		if enc == UTF16BE {
			endian = unicode.BigEndian
		}
		out, _, err := transform.Bytes(unicode.UTF16(endian, unicode.UseBOM).NewEncoder(), []byte(text))
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", enc, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported encoding %s", enc)
}
