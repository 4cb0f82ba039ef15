package hallway

import (
	"strconv"
	"strings"
)

// field is input[offset:offset+length], clamped to the input.
func field(input string, offset, length int) string {
	if offset < 0 || offset >= len(input) {
		return ""
	}
	end := offset + length
	if end > len(input) {
		end = len(input)
	}
	return input[offset:end]
}

// parseToken reads a hex number with an optional 0x in front.
func parseToken(s string) (uint32, bool) {
	for strings.HasPrefix(s, "0x") {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// parseField parses the hex number in input[offset:offset+length] and
// falls back to def when there isn't one.
func parseField(input string, offset, length int, def uint32) uint32 {
	if v, ok := parseToken(field(input, offset, length)); ok {
		return v
	}
	return def
}

// byteToken decides how wide the write token at offset is: four
// characters if the second one is the 'x' of a 0x, otherwise two.
func byteToken(input string, offset int) int {
	if offset+1 < len(input) && input[offset+1] == 'x' {
		return 4
	}
	return 2
}

func saturate(v uint32) byte {
	if v > 0xff {
		return 0xff
	}
	return byte(v)
}
