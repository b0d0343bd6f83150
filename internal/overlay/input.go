package overlay

import (
	"bufio"
	"context"
	"errors"
	"io"
	"unicode/utf8"
)

const (
	keyCtrlC     = 0x03
	keyBackspace = 0x08
	keyLF        = 0x0a
	keyCR        = 0x0d
	keyCtrlU     = 0x15
	keyEscape    = 0x1b
	keyDelete    = 0x7f
)

// ReadPassword reads keystrokes from a terminal in raw mode. onLength is
// called with the number of typed characters after every edit. Enter calls
// submit; when submit accepts the credential the buffer is cleared.
// Ctrl-C and escape sequences are swallowed. ReadPassword returns nil at
// EOF or once ctx is cancelled.
func ReadPassword(ctx context.Context, r io.Reader, onLength func(int), submit func(string) bool) error {
	br := bufio.NewReader(r)
	var buf []byte

	for {
		if ctx.Err() != nil {
			return nil
		}

		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch {
		case c == keyCR || c == keyLF:
			if len(buf) == 0 {
				continue
			}
			if submit(string(buf)) {
				clear(buf)
				buf = buf[:0]
				onLength(0)
			}

		case c == keyDelete || c == keyBackspace:
			if len(buf) == 0 {
				continue
			}
			_, size := utf8.DecodeLastRune(buf)
			buf = buf[:len(buf)-size]
			onLength(utf8.RuneCount(buf))

		case c == keyCtrlU:
			clear(buf)
			buf = buf[:0]
			onLength(0)

		case c == keyEscape:
			// Drop a CSI sequence such as an arrow key
			if next, err := br.Peek(1); err == nil && next[0] == '[' {
				_, _ = br.ReadByte()
				for {
					b, err := br.ReadByte()
					if err != nil || (b >= 0x40 && b <= 0x7e) {
						break
					}
				}
			}

		case c == keyCtrlC || c < 0x20:
			// Control keys never reach the password

		default:
			buf = append(buf, c)
			onLength(utf8.RuneCount(buf))
		}
	}
}
