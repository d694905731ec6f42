package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
)

// Ensure jpegFile implements the interface.
var _ driven.MetadataFile = (*jpegFile)(nil)

// Metadata segment payload headers.
var (
	exifHeader = []byte("Exif\x00\x00")
	xmpHeader  = []byte("http://ns.adobe.com/xap/1.0/\x00")
	psHeader   = []byte("Photoshop 3.0\x00")
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1
	markerAPP13 = 0xED
)

// segment is one marker segment of the JPEG header area.
type segment struct {
	marker byte
	data   []byte
}

// jpegFile holds one parsed JPEG. Segments before the scan data are kept
// individually; the scan data itself is carried verbatim in tail. Writes
// mutate only the recognized metadata segments, so everything else
// round-trips byte-identically.
type jpegFile struct {
	path     string
	segments []segment
	tail     []byte
	dirty    bool
}

func openJPEG(path string) (*jpegFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrFileAccess)
	}
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("%s: not a JPEG: %w", path, domain.ErrUnsupportedFormat)
	}

	f := &jpegFile{path: path}
	pos := 2
	for {
		// Fill bytes before a marker are legal.
		for pos < len(data) && data[pos] == 0xFF && pos+1 < len(data) && data[pos+1] == 0xFF {
			pos++
		}
		if pos+2 > len(data) {
			return nil, fmt.Errorf("%s: truncated JPEG: %w", path, domain.ErrUnsupportedFormat)
		}
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("%s: invalid JPEG marker: %w", path, domain.ErrUnsupportedFormat)
		}
		marker := data[pos+1]

		// Scan data and everything after it are preserved verbatim.
		if marker == markerSOS || marker == markerEOI {
			f.tail = data[pos:]
			break
		}

		if pos+4 > len(data) {
			return nil, fmt.Errorf("%s: truncated JPEG segment: %w", path, domain.ErrUnsupportedFormat)
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			return nil, fmt.Errorf("%s: JPEG segment out of bounds: %w", path, domain.ErrUnsupportedFormat)
		}
		f.segments = append(f.segments, segment{
			marker: marker,
			data:   data[pos+4 : pos+2+length],
		})
		pos += 2 + length
	}
	return f, nil
}

// findSegment returns the index of the first segment with the given
// marker and payload header, or -1.
func (f *jpegFile) findSegment(marker byte, header []byte) int {
	for i, seg := range f.segments {
		if seg.marker == marker && bytes.HasPrefix(seg.data, header) {
			return i
		}
	}
	return -1
}

// setSegment replaces the payload of an existing metadata segment or
// inserts a new one at the conventional position.
func (f *jpegFile) setSegment(marker byte, header []byte, payload []byte) error {
	if len(payload)+2 > 0xFFFF {
		return fmt.Errorf("metadata payload of %d bytes exceeds JPEG segment size", len(payload))
	}
	if i := f.findSegment(marker, header); i >= 0 {
		f.segments[i].data = payload
		return nil
	}

	// New metadata segments go after any APP0 (JFIF) and any metadata
	// segment that conventionally precedes this one.
	insert := 0
	for i, seg := range f.segments {
		if seg.marker == markerAPP0 {
			insert = i + 1
		}
		if seg.marker == markerAPP1 && !bytes.Equal(header, exifHeader) {
			insert = i + 1
		}
	}
	f.segments = append(f.segments, segment{})
	copy(f.segments[insert+1:], f.segments[insert:])
	f.segments[insert] = segment{marker: marker, data: payload}
	return nil
}

// Read returns the current table of one namespace.
func (f *jpegFile) Read(ns domain.Namespace) (domain.TagTable, error) {
	switch ns {
	case domain.NamespaceExif:
		if i := f.findSegment(markerAPP1, exifHeader); i >= 0 {
			tiff, err := parseTIFF(f.segments[i].data[len(exifHeader):])
			if err != nil {
				return nil, err
			}
			return tiff.table(), nil
		}
	case domain.NamespaceXmp:
		if i := f.findSegment(markerAPP1, xmpHeader); i >= 0 {
			packet, err := parseXMPPacket(f.segments[i].data[len(xmpHeader):])
			if err != nil {
				return nil, err
			}
			return packet.table(), nil
		}
	case domain.NamespaceIptc:
		if i := f.findSegment(markerAPP13, psHeader); i >= 0 {
			block, err := parsePhotoshopBlock(f.segments[i].data[len(psHeader):])
			if err != nil {
				return nil, err
			}
			return block.table(), nil
		}
	}
	return domain.TagTable{}, nil
}

// Write merges tags into one namespace's segment, creating the segment
// if the file has none yet. Existing unrelated tags are preserved.
func (f *jpegFile) Write(ns domain.Namespace, tags domain.TagTable) error {
	if len(tags) == 0 {
		return nil
	}
	var payload []byte

	switch ns {
	case domain.NamespaceExif:
		tiff := newTIFF()
		if i := f.findSegment(markerAPP1, exifHeader); i >= 0 {
			var err error
			if tiff, err = parseTIFF(f.segments[i].data[len(exifHeader):]); err != nil {
				return err
			}
		}
		if err := tiff.apply(tags); err != nil {
			return err
		}
		payload = append(append([]byte(nil), exifHeader...), tiff.encode()...)
		return f.set(markerAPP1, exifHeader, payload)

	case domain.NamespaceXmp:
		packet := newXMPPacket()
		if i := f.findSegment(markerAPP1, xmpHeader); i >= 0 {
			var err error
			if packet, err = parseXMPPacket(f.segments[i].data[len(xmpHeader):]); err != nil {
				return err
			}
		}
		if err := packet.apply(tags); err != nil {
			return err
		}
		payload = append(append([]byte(nil), xmpHeader...), packet.encode()...)
		return f.set(markerAPP1, xmpHeader, payload)

	case domain.NamespaceIptc:
		block := newPhotoshopBlock()
		if i := f.findSegment(markerAPP13, psHeader); i >= 0 {
			var err error
			if block, err = parsePhotoshopBlock(f.segments[i].data[len(psHeader):]); err != nil {
				return err
			}
		}
		if err := block.apply(tags); err != nil {
			return err
		}
		payload = append(append([]byte(nil), psHeader...), block.encode()...)
		return f.set(markerAPP13, psHeader, payload)
	}
	return fmt.Errorf("namespace %q: %w", ns, domain.ErrUnknownNamespace)
}

func (f *jpegFile) set(marker byte, header, payload []byte) error {
	if err := f.setSegment(marker, header, payload); err != nil {
		return err
	}
	f.dirty = true
	return nil
}

// Close commits buffered writes, if any, atomically.
func (f *jpegFile) Close() error {
	if !f.dirty {
		return nil
	}
	var out bytes.Buffer
	out.Write([]byte{0xFF, markerSOI})
	for _, seg := range f.segments {
		out.Write([]byte{0xFF, seg.marker})
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(seg.data)+2))
		out.Write(lenBuf[:])
		out.Write(seg.data)
	}
	out.Write(f.tail)

	if err := commit(f.path, out.Bytes()); err != nil {
		return err
	}
	f.dirty = false
	return nil
}
