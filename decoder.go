package polish

import (
	"unicode/utf8"

	"github.com/Laisky/errors/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// streamDecoder turns a sequence of byte chunks into UTF-8 text.
// A multi-byte character split across chunks is held back until the rest arrives.
type streamDecoder struct {
	t       transform.Transformer
	pending []byte
}

func newStreamDecoder() *streamDecoder {
	return &streamDecoder{t: unicode.UTF8.NewDecoder()}
}

// Decode returns the text completed by chunk. Incomplete trailing bytes are kept.
func (d *streamDecoder) Decode(chunk []byte) (string, error) {
	return d.run(chunk, false)
}

// Flush emits whatever is still pending. Bytes that never formed a character
// become U+FFFD.
func (d *streamDecoder) Flush() (string, error) {
	return d.run(nil, true)
}

func (d *streamDecoder) run(chunk []byte, atEOF bool) (string, error) {
	src := append(d.pending, chunk...)
	d.pending = nil
	if len(src) == 0 {
		return "", nil
	}

	// Invalid bytes expand to a 3-byte replacement character.
	dst := make([]byte, len(src)*3+utf8.UTFMax)
	nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
	switch {
	case err == nil:
	case errors.Is(err, transform.ErrShortSrc) && !atEOF:
		d.pending = append([]byte(nil), src[nSrc:]...)
	default:
		return "", errors.Wrap(err, "decode stream chunk")
	}
	return string(dst[:nDst]), nil
}
