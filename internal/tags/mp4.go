package tags

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// dhowden/tag only decodes the ilst atoms it has a name for and keys freeform
// "----" atoms by their bare name with the locale bytes still attached. The
// walker below reads the item list again and recovers what it drops.

const (
	mp4ClassImplicit = 0
	mp4ClassText     = 1
	mp4ClassInteger  = 21

	// Items larger than this (artwork) are never needed here and are skipped.
	maxMP4ItemSize = 1 << 20
)

// mp4Item is one decoded ilst item. Freeform items carry their bare name so
// the library's garbled copy can be replaced.
type mp4Item struct {
	Key   string
	Bare  string
	Value any
}

type mp4Box struct {
	Type       string
	Start, End int64 // payload bounds
}

// readMP4Items walks moov/udta/meta/ilst and decodes text and integer items
// plus every freeform item, keyed "----:<mean>:<name>".
func readMP4Items(r io.ReaderAt, size int64) ([]mp4Item, error) {
	path := []string{"moov", "udta", "meta", "ilst"}
	parent := mp4Box{Start: 0, End: size}
	for _, typ := range path {
		start := parent.Start
		if parent.Type == "meta" {
			start += 4 // version and flags
		}
		child, ok, err := findMP4Box(r, start, parent.End, typ)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		parent = child
	}

	var items []mp4Item
	err := eachMP4Box(r, parent.Start, parent.End, func(b mp4Box) error {
		if b.End-b.Start > maxMP4ItemSize {
			return nil
		}
		payload := make([]byte, b.End-b.Start)
		if _, err := r.ReadAt(payload, b.Start); err != nil {
			return fmt.Errorf("read %q: %w", b.Type, err)
		}
		if item, ok := decodeMP4Item(b.Type, payload); ok {
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

func findMP4Box(r io.ReaderAt, start, end int64, typ string) (mp4Box, bool, error) {
	var found mp4Box
	var ok bool
	err := eachMP4Box(r, start, end, func(b mp4Box) error {
		if !ok && b.Type == typ {
			found, ok = b, true
		}
		return nil
	})
	return found, ok, err
}

func eachMP4Box(r io.ReaderAt, start, end int64, fn func(mp4Box) error) error {
	for off := start; off+8 <= end; {
		var hdr [8]byte
		if _, err := r.ReadAt(hdr[:], off); err != nil {
			return fmt.Errorf("read atom header: %w", err)
		}
		size := int64(binary.BigEndian.Uint32(hdr[:4]))
		b := mp4Box{Type: string(hdr[4:8]), Start: off + 8}
		switch size {
		case 0:
			size = end - off
		case 1:
			var ext [8]byte
			if _, err := r.ReadAt(ext[:], off+8); err != nil {
				return fmt.Errorf("read atom size: %w", err)
			}
			size = int64(binary.BigEndian.Uint64(ext[:])) //#nosec G115 -- bounds checked below
			b.Start += 8
		}
		b.End = off + size
		if size < b.Start-off || b.End > end {
			return fmt.Errorf("atom %q out of bounds", b.Type)
		}
		if err := fn(b); err != nil {
			return err
		}
		off = b.End
	}
	return nil
}

type mp4SubAtom struct {
	Type string
	Data []byte
}

// splitMP4Atoms splits an in-memory payload into its child atoms.
func splitMP4Atoms(b []byte) []mp4SubAtom {
	var out []mp4SubAtom
	for len(b) >= 8 {
		size := int(binary.BigEndian.Uint32(b[:4]))
		if size < 8 || size > len(b) {
			break
		}
		out = append(out, mp4SubAtom{Type: string(b[4:8]), Data: b[8:size]})
		b = b[size:]
	}
	return out
}

func decodeMP4Item(name string, payload []byte) (mp4Item, bool) {
	subs := splitMP4Atoms(payload)
	if name == "----" {
		return decodeFreeform(subs)
	}
	for _, s := range subs {
		if s.Type != "data" || len(s.Data) < 8 {
			continue
		}
		class := int(binary.BigEndian.Uint32(s.Data[:4]) & 0x00ffffff)
		value := s.Data[8:]
		switch class {
		case mp4ClassText:
			return mp4Item{Key: name, Value: string(value)}, true
		case mp4ClassInteger, mp4ClassImplicit:
			if n, ok := beInt(value); ok {
				return mp4Item{Key: name, Value: n}, true
			}
		}
		return mp4Item{}, false
	}
	return mp4Item{}, false
}

func decodeFreeform(subs []mp4SubAtom) (mp4Item, bool) {
	var mean, name string
	var values []string
	for _, s := range subs {
		switch s.Type {
		case "mean", "name":
			if len(s.Data) < 4 {
				continue
			}
			if s.Type == "mean" {
				mean = string(s.Data[4:])
			} else {
				name = string(s.Data[4:])
			}
		case "data":
			// class (4 bytes), locale (4 bytes), value
			if len(s.Data) >= 8 {
				values = append(values, string(s.Data[8:]))
			}
		}
	}
	if mean == "" || name == "" || len(values) == 0 {
		return mp4Item{}, false
	}
	return mp4Item{
		Key:   "----:" + mean + ":" + name,
		Bare:  name,
		Value: strings.Join(values, "; "),
	}, true
}

// beInt decodes a big-endian signed integer of 1, 2, 4 or 8 bytes.
func beInt(b []byte) (int64, bool) {
	switch len(b) {
	case 1:
		return int64(int8(b[0])), true
	case 2:
		return int64(int16(binary.BigEndian.Uint16(b))), true //#nosec G115 -- two's complement reinterpretation
	case 4:
		return int64(int32(binary.BigEndian.Uint32(b))), true //#nosec G115 -- two's complement reinterpretation
	case 8:
		return int64(binary.BigEndian.Uint64(b)), true //#nosec G115 -- two's complement reinterpretation
	default:
		return 0, false
	}
}

// mergeMP4Items folds walked items into the library's raw map. Freeform items
// replace the library's bare-named copy; other items only fill gaps.
func mergeMP4Items(raw map[string]interface{}, items []mp4Item) {
	for _, it := range items {
		if it.Bare != "" {
			delete(raw, it.Bare)
			raw[it.Key] = it.Value
			continue
		}
		if _, ok := raw[it.Key]; !ok {
			raw[it.Key] = it.Value
		}
	}
}
