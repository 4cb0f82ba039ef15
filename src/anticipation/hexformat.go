// Package anticipation reads and writes Intel HEX, the format kernel images
// come in. Decoding feeds a ByteBuster, which decides what "writing a byte"
// means; on the board that is a store into RAM.
package anticipation

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"
)

// MaxDataLine is the most bytes one data record can carry.
const MaxDataLine = 0xff

// EncodeDecodeError is a malformed line.
type EncodeDecodeError struct {
	s string
}

func NewEncodeDecodeError(format string, a ...interface{}) error {
	return &EncodeDecodeError{fmt.Sprintf(format, a...)}
}

func (d *EncodeDecodeError) Error() string {
	return d.s
}

// HexLineType is the record type. Type 3 (start segment address) is an
// x86 real mode thing and is not supported.
type HexLineType int

const (
	DataLine               HexLineType = 0
	EndOfFile              HexLineType = 1
	ExtendedSegmentAddress HexLineType = 2
	ExtendedLinearAddress  HexLineType = 4
	StartLinearAddress     HexLineType = 5
)

func (hlt HexLineType) String() string {
	switch hlt {
	case DataLine:
		return "DataLine"
	case EndOfFile:
		return "EndOfFile"
	case ExtendedSegmentAddress:
		return "ExtendedSegmentAddress"
	case ExtendedLinearAddress:
		return "ExtendedLinearAddress"
	case StartLinearAddress:
		return "StartLinearAddress"
	}
	return "unknown"
}

///////////////////////////////////////////////////////////////////////////////////
// DECODE
///////////////////////////////////////////////////////////////////////////////////

// ProcessLine applies one decoded record to bb. It reports whether the
// record was the end of file.
func ProcessLine(t HexLineType, converted []byte, bb ByteBuster) (bool, error) {
	if len(converted) < 5 || len(converted) < 5+int(converted[0]) {
		return false, NewEncodeDecodeError("record too short (%d bytes)", len(converted))
	}
	length := converted[0]
	switch t {
	case DataLine:
		offset := uint32(converted[1])<<8 | uint32(converted[2])
		base := bb.BaseAddress() + offset
		for i := uint32(0); i < uint32(length); i++ {
			if !bb.Write(base+i, converted[4+i]) {
				return false, NewEncodeDecodeError("unable to write byte at %08x", base+i)
			}
		}
		return false, nil
	case EndOfFile:
		return true, nil
	case ExtendedSegmentAddress: //16 bit addr
		if length != 2 {
			return false, NewEncodeDecodeError("ESA record has %d bytes, not 2", length)
		}
		esa := uint32(converted[4])<<8 | uint32(converted[5])
		bb.SetBaseAddr(esa << 4) //segment, so a multiple of 16
		return false, nil
	case ExtendedLinearAddress: //top 16 bits of a 32 bit addr
		if length != 2 {
			return false, NewEncodeDecodeError("ELA record has %d bytes, not 2", length)
		}
		ela := uint32(converted[4])<<8 | uint32(converted[5])
		bb.SetBaseAddr(ela << 16)
		Logger().Debug("extended linear address", zap.Uint32("base", bb.BaseAddress()))
		return false, nil
	case StartLinearAddress: //32 bit addr
		if length != 4 {
			return false, NewEncodeDecodeError("SLA record has %d bytes, not 4", length)
		}
		sla := uint32(converted[4])<<24 | uint32(converted[5])<<16 | uint32(converted[6])<<8 | uint32(converted[7])
		bb.SetEntryPoint(sla)
		Logger().Debug("start linear address", zap.Uint32("entry", sla))
		return false, nil
	}
	return false, NewEncodeDecodeError("unable to understand line type %d", int(t))
}

// DecodeAndCheckStringToBytes converts one line and checks its length and
// checksum. For data lines the 16 bit offset is returned too.
func DecodeAndCheckStringToBytes(s string) ([]byte, HexLineType, uint32, error) {
	converted := ConvertBuffer(len(s), []byte(s))
	if converted == nil {
		return nil, DataLine, 0, NewEncodeDecodeError("unable to convert line: %s", s)
	}
	if len(converted) < 4 {
		return nil, DataLine, 0, NewEncodeDecodeError("line too short: %s", s)
	}
	lt, ok := ExtractLineType(converted)
	if !ok {
		return nil, DataLine, 0, NewEncodeDecodeError("unable to extract line type from: %s", s)
	}
	var addr uint32
	if lt == DataLine {
		addr = uint32(converted[1])<<8 | uint32(converted[2])
	}
	if !ValidBufferLength(len(s), converted) {
		return nil, lt, addr, NewEncodeDecodeError("bad buffer length: %s", s)
	}
	if !CheckChecksum(len(s), converted) {
		return nil, lt, addr, NewEncodeDecodeError("bad checksum: %s", s)
	}
	return converted, lt, addr, nil
}

// ValidBufferLength checks that a line of l characters is exactly as long
// as its length byte says.
func ValidBufferLength(l int, converted []byte) bool {
	total := 11 //colon, 2 len chars, 4 addr chars, 2 type chars, 2 checksum chars
	if l < total {
		Logger().Debug("line shorter than framing", zap.Int("length", l))
		return false
	}
	total += int(converted[0]) * 2
	if l != total {
		Logger().Debug("bad line length", zap.Int("expected", total), zap.Int("got", l))
		return false
	}
	return true
}

// CheckChecksum is true when every byte of the line, checksum included,
// sums to zero.
func CheckChecksum(l int, converted []byte) bool {
	sum := uint8(0)
	limit := (l - 1) / 2
	for i := 0; i < limit && i < len(converted); i++ {
		sum += converted[i]
	}
	if sum != 0 {
		Logger().Debug("bad checksum", zap.Uint8("sum", sum))
		return false
	}
	return true
}

// ExtractLineType reads the record type out of a converted line.
func ExtractLineType(converted []byte) (HexLineType, bool) {
	switch converted[3] {
	case 0:
		return DataLine, true
	case 1:
		return EndOfFile, true
	case 2:
		return ExtendedSegmentAddress, true
	case 4:
		return ExtendedLinearAddress, true
	case 5:
		return StartLinearAddress, true
	case 3:
		Logger().Debug("unimplemented line type StartSegmentAddress")
		return DataLine, false
	default:
		Logger().Debug("bad line type", zap.Uint8("type", converted[3]))
		return DataLine, false
	}
}

// ConvertBuffer turns the l characters of raw after the colon into bytes,
// two hex digits each. Nil means an odd count or a character that isn't
// hex.
func ConvertBuffer(l int, raw []byte) []byte {
	if l < 1 || l > len(raw) || raw[0] != ':' {
		return nil
	}
	//l-1 because the colon is skipped
	if (l-1)%2 == 1 {
		Logger().Debug("odd number of hex digits", zap.Int("digits", l-1))
		return nil
	}
	converted := make([]byte, (l-1)/2)
	for i := 1; i < l; i += 2 {
		hi, ok := nibble(raw[i])
		if !ok {
			return nil
		}
		lo, ok := nibble(raw[i+1])
		if !ok {
			return nil
		}
		converted[(i-1)/2] = hi<<4 | lo
	}
	return converted
}

func nibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	Logger().Debug("bad character in payload", zap.Uint8("char", c))
	return 0, false
}

///////////////////////////////////////////////////////////////////////////////////
// ENCODING
///////////////////////////////////////////////////////////////////////////////////

// EncodeDataBytes is a data record for raw at offset.
func EncodeDataBytes(raw []byte, offset uint16) (string, error) {
	if len(raw) > MaxDataLine {
		return "", NewEncodeDecodeError("a data record holds at most 0xff bytes, not %x", len(raw))
	}
	buf := bytes.Buffer{}
	buf.WriteString(fmt.Sprintf(":%02X%04X%02X", len(raw), offset, int(DataLine)))
	for _, b := range raw {
		buf.WriteString(fmt.Sprintf("%02X", b))
	}
	buf.WriteString(fmt.Sprintf("%02X", createChecksum(raw, offset, DataLine)))
	return buf.String(), nil
}

// EncodeSLA is a start linear address (entry point) record.
func EncodeSLA(addr uint32) string {
	raw := []byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}
	return fmt.Sprintf(":040000%02X%08X%02X", int(StartLinearAddress), addr,
		createChecksum(raw, 0, StartLinearAddress))
}

// EncodeELA takes only the most significant 16 bits of the 32 bit base.
func EncodeELA(base uint16) string {
	raw := []byte{byte(base >> 8), byte(base)}
	return fmt.Sprintf(":020000%02X%04X%02X", int(ExtendedLinearAddress), base,
		createChecksum(raw, 0, ExtendedLinearAddress))
}

// EncodeESA takes the top 16 bits of a 20 bit segment base.
func EncodeESA(base uint16) string {
	raw := []byte{byte(base >> 8), byte(base)}
	return fmt.Sprintf(":020000%02X%04X%02X", int(ExtendedSegmentAddress), base,
		createChecksum(raw, 0, ExtendedSegmentAddress))
}

// EncodeEOF is the end of file record.
func EncodeEOF() string {
	return fmt.Sprintf(":000000%02X%02X", int(EndOfFile), createChecksum(nil, 0, EndOfFile))
}

// tricky: offset only used by the data record since everything else has 0 offset
func createChecksum(raw []byte, offset uint16, hlt HexLineType) uint8 {
	sum := uint8(len(raw))
	sum += uint8(offset) + uint8(offset>>8)
	sum += uint8(hlt)
	for _, v := range raw {
		sum += v
	}
	return -sum
}
