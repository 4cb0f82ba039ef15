package upbeat

import (
	"io"

	"hallway/src/lib/arena"
)

// HexDigits is the lookup table for nibble to character.
const HexDigits = "0123456789abcdef"

// AppendHexByte appends b as exactly two hex digits.
func AppendHexByte(dst []byte, b byte) []byte {
	return append(dst, HexDigits[b>>4], HexDigits[b&0xf])
}

// AppendHex32 appends d in hex with no leading zeros (0 is "0").
func AppendHex32(dst []byte, d uint32) []byte {
	if d == 0 {
		return append(dst, '0')
	}
	var buf [8]byte
	i := len(buf)
	for d != 0 {
		i--
		buf[i] = HexDigits[d&0xf]
		d >>= 4
	}
	return append(dst, buf[i:]...)
}

// AppendHex32Padded appends d as exactly eight hex digits.
func AppendHex32Padded(dst []byte, d uint32) []byte {
	for rb := 32; rb > 0; {
		rb -= 4
		dst = append(dst, HexDigits[(d>>uint(rb))&0xf])
	}
	return dst
}

// Dump writes size bytes starting at addr, 16 to a line: address, hex
// bytes in groups of four, then the printable characters. Bytes that
// cannot be read show as "??" and ".".
func Dump(w io.Writer, mem arena.Reader, addr arena.Addr, size uint32) error {
	var line []byte
	for a := uint32(0); a < size; a += 16 {
		line = line[:0]
		line = AppendHex32Padded(line, uint32(addr.Add(a)))
		line = append(line, ':', ' ')
		var text [16]byte
		for b := uint32(0); b < 16; b++ {
			if a+b >= size {
				line = append(line, ' ', ' ', ' ')
				text[b] = ' '
			} else if c, err := mem.ReadU8(addr.Add(a + b)); err != nil {
				line = append(line, '?', '?', ' ')
				text[b] = '.'
			} else {
				line = AppendHexByte(line, c)
				line = append(line, ' ')
				if c < 32 || c > 126 {
					text[b] = '.'
				} else {
					text[b] = c
				}
			}
			if b%4 == 3 {
				line = append(line, ' ')
			}
		}
		line = append(line, text[:]...)
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
