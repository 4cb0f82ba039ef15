package anticipation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"hallway/src/debug/markers"
	"hallway/src/lib/arena"
)

// EntryMarker is the marker registered for an image's start address.
const EntryMarker = "entry"

// ErrNoEOF means the input ran out before the end of file record.
var ErrNoEOF = errors.New("image ended without an end of file record")

// Image summarizes a load.
type Image struct {
	Lines    int
	Bytes    int
	Entry    arena.Addr
	HasEntry bool
}

// Decode feeds every record in r to bb, stopping at the end of file
// record. Blank lines are skipped. Errors name the offending line.
func Decode(r io.Reader, bb ByteBuster) (Image, error) {
	var img Image
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		img.Lines++
		converted, lt, _, err := DecodeAndCheckStringToBytes(line)
		if err != nil {
			return img, fmt.Errorf("line %d: %w", img.Lines, err)
		}
		done, err := ProcessLine(lt, converted, bb)
		if err != nil {
			return img, fmt.Errorf("line %d: %w", img.Lines, err)
		}
		if lt == DataLine {
			img.Bytes += int(converted[0])
		}
		if done {
			img.Entry, img.HasEntry = arena.Addr(bb.EntryPoint()), bb.EntryPointIsSet()
			return img, nil
		}
	}
	if err := sc.Err(); err != nil {
		return img, err
	}
	return img, ErrNoEOF
}

// Load decodes an image into mem. If it has a start address that becomes
// the entry marker in reg.
func Load(r io.Reader, mem arena.Writer, reg *markers.Registry) (Image, error) {
	img, err := Decode(r, NewArenaByteBuster(mem))
	if err != nil {
		return img, err
	}
	Logger().Info("image loaded",
		zap.Int("lines", img.Lines),
		zap.Int("bytes", img.Bytes),
		zap.Bool("has_entry", img.HasEntry),
		zap.Uint32("entry", uint32(img.Entry)))
	if img.HasEntry && reg != nil {
		reg.Register(EntryMarker, img.Entry)
	}
	return img, nil
}
