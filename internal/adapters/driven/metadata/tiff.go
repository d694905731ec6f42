package metadata

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// EXIF group prefixes, matching the IFD an entry lives in.
const (
	groupImage     = "Image"
	groupPhoto     = "Photo"
	groupGPS       = "GPSInfo"
	groupThumbnail = "Thumbnail"
)

// IFD pointer tags, maintained by the codec and never exposed as table
// entries.
const (
	tagExifIFD    = 0x8769
	tagGPSIFD     = 0x8825
	tagInteropIFD = 0xA005

	tagThumbOffset = 0x0201
	tagThumbLength = 0x0202
)

// TIFF value types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7
)

var typeSizes = map[uint16]int{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

// XP tags carry UCS-2 little-endian text as BYTE arrays (Windows
// Explorer convention). Multiple values join with ";".
var xpTags = map[uint16]bool{
	0x9C85: true, // XPTitle
	0x9C9C: true, // XPComment
	0x9C9D: true, // XPAuthor
	0x9C9E: true, // XPKeywords
	0x9C9F: true, // XPSubject
}

var exifImageTagNames = map[uint16]string{
	0x0103: "Compression",
	0x010E: "ImageDescription",
	0x010F: "Make",
	0x0110: "Model",
	0x0112: "Orientation",
	0x011A: "XResolution",
	0x011B: "YResolution",
	0x0128: "ResolutionUnit",
	0x0131: "Software",
	0x0132: "DateTime",
	0x013B: "Artist",
	0x0201: "JPEGInterchangeFormat",
	0x0202: "JPEGInterchangeFormatLength",
	0x8298: "Copyright",
	0x9C85: "XPTitle",
	0x9C9C: "XPComment",
	0x9C9D: "XPAuthor",
	0x9C9E: "XPKeywords",
	0x9C9F: "XPSubject",
}

var exifPhotoTagNames = map[uint16]string{
	0x829A: "ExposureTime",
	0x829D: "FNumber",
	0x8827: "ISOSpeedRatings",
	0x9003: "DateTimeOriginal",
	0x9004: "DateTimeDigitized",
	0x920A: "FocalLength",
	0x9286: "UserComment",
	0xA002: "PixelXDimension",
	0xA003: "PixelYDimension",
}

var exifGPSTagNames = map[uint16]string{
	0x0001: "GPSLatitudeRef",
	0x0002: "GPSLatitude",
	0x0003: "GPSLongitudeRef",
	0x0004: "GPSLongitude",
	0x0005: "GPSAltitudeRef",
	0x0006: "GPSAltitude",
}

// writableShortTags are non-text tags accepted on the write path as
// decimal strings.
var writableShortTags = map[string]bool{
	"Orientation":     true,
	"ResolutionUnit":  true,
	"ISOSpeedRatings": true,
}

// ifdEntry is one IFD directory entry with its value bytes unpacked,
// regardless of whether they were stored inline or behind an offset.
type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

// tiffMeta is one parsed EXIF blob. Unknown entries keep their raw value
// bytes and round-trip unchanged; only offsets are recomputed on encode.
type tiffMeta struct {
	order   binary.ByteOrder
	ifd0    []ifdEntry
	exifIFD []ifdEntry
	gpsIFD  []ifdEntry
	ifd1    []ifdEntry
	thumb   []byte
}

func newTIFF() *tiffMeta {
	return &tiffMeta{order: binary.LittleEndian}
}

func parseTIFF(data []byte) (*tiffMeta, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("EXIF data too short")
	}
	t := &tiffMeta{}
	switch {
	case data[0] == 'I' && data[1] == 'I':
		t.order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		t.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("invalid TIFF byte order")
	}

	ifd0Offset := t.order.Uint32(data[4:8])
	ifd0, next, err := parseIFD(data, ifd0Offset, t.order)
	if err != nil {
		return nil, err
	}

	for _, e := range ifd0 {
		switch e.tag {
		case tagExifIFD:
			if t.exifIFD, _, err = parseIFD(data, pointerValue(e, t.order), t.order); err != nil {
				return nil, err
			}
		case tagGPSIFD:
			if t.gpsIFD, _, err = parseIFD(data, pointerValue(e, t.order), t.order); err != nil {
				return nil, err
			}
		default:
			t.ifd0 = append(t.ifd0, e)
		}
	}
	// Interop pointers inside the Exif IFD would go stale on rewrite.
	t.exifIFD = dropTag(t.exifIFD, tagInteropIFD)

	if next != 0 {
		ifd1, _, err := parseIFD(data, next, t.order)
		if err != nil {
			return nil, err
		}
		for _, e := range ifd1 {
			if e.tag == tagThumbOffset {
				off := pointerValue(e, t.order)
				length := thumbnailLength(ifd1, t.order)
				if off != 0 && length != 0 && int(off+length) <= len(data) {
					t.thumb = data[off : off+length]
				}
			}
		}
		t.ifd1 = ifd1
	}
	return t, nil
}

func parseIFD(data []byte, offset uint32, order binary.ByteOrder) ([]ifdEntry, uint32, error) {
	if int(offset)+2 > len(data) {
		return nil, 0, fmt.Errorf("IFD offset out of bounds")
	}
	numEntries := int(order.Uint16(data[offset : offset+2]))
	pos := int(offset) + 2
	if pos+numEntries*12+4 > len(data) {
		return nil, 0, fmt.Errorf("IFD directory out of bounds")
	}

	entries := make([]ifdEntry, 0, numEntries)
	for i := 0; i < numEntries; i++ {
		raw := data[pos+i*12 : pos+i*12+12]
		e := ifdEntry{
			tag:   order.Uint16(raw[0:2]),
			typ:   order.Uint16(raw[2:4]),
			count: order.Uint32(raw[4:8]),
		}
		size, ok := typeSizes[e.typ]
		if !ok {
			// Unknown type: keep the inline descriptor bytes as-is.
			e.typ, e.count, e.value = typeUndefined, 4, append([]byte(nil), raw[8:12]...)
			entries = append(entries, e)
			continue
		}
		total := size * int(e.count)
		if total <= 4 {
			e.value = append([]byte(nil), raw[8:8+total]...)
		} else {
			valOff := int(order.Uint32(raw[8:12]))
			if valOff+total > len(data) {
				return nil, 0, fmt.Errorf("IFD value out of bounds")
			}
			e.value = append([]byte(nil), data[valOff:valOff+total]...)
		}
		entries = append(entries, e)
	}
	next := order.Uint32(data[pos+numEntries*12 : pos+numEntries*12+4])
	return entries, next, nil
}

func pointerValue(e ifdEntry, order binary.ByteOrder) uint32 {
	if len(e.value) >= 4 {
		return order.Uint32(e.value[:4])
	}
	return 0
}

func thumbnailLength(entries []ifdEntry, order binary.ByteOrder) uint32 {
	for _, e := range entries {
		if e.tag == tagThumbLength {
			return pointerValue(e, order)
		}
	}
	return 0
}

func dropTag(entries []ifdEntry, tag uint16) []ifdEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.tag != tag {
			out = append(out, e)
		}
	}
	return out
}

// table renders every parsed entry under its qualified tag name.
func (t *tiffMeta) table() map[string][]string {
	out := make(map[string][]string)
	groups := []struct {
		group   string
		names   map[uint16]string
		entries []ifdEntry
	}{
		{groupImage, exifImageTagNames, t.ifd0},
		{groupPhoto, exifPhotoTagNames, t.exifIFD},
		{groupGPS, exifGPSTagNames, t.gpsIFD},
		{groupThumbnail, exifImageTagNames, t.ifd1},
	}
	for _, g := range groups {
		for _, e := range g.entries {
			name, ok := g.names[e.tag]
			if !ok {
				name = fmt.Sprintf("0x%04X", e.tag)
			}
			out["Exif."+g.group+"."+name] = t.decodeValue(e)
		}
	}
	return out
}

func (t *tiffMeta) decodeValue(e ifdEntry) []string {
	switch {
	case xpTags[e.tag] && (e.typ == typeByte || e.typ == typeUndefined):
		return splitXP(decodeUCS2(e.value))
	case e.typ == typeASCII:
		s := strings.TrimRight(string(e.value), "\x00")
		return []string{s}
	case e.typ == typeShort:
		return []string{joinNumbers(e.value, 2, t.order)}
	case e.typ == typeLong:
		return []string{joinNumbers(e.value, 4, t.order)}
	case e.typ == typeRational:
		var parts []string
		for i := 0; i+8 <= len(e.value); i += 8 {
			parts = append(parts, fmt.Sprintf("%d/%d",
				t.order.Uint32(e.value[i:i+4]), t.order.Uint32(e.value[i+4:i+8])))
		}
		return []string{strings.Join(parts, " ")}
	default:
		return []string{fmt.Sprintf("(%d bytes)", len(e.value))}
	}
}

func joinNumbers(value []byte, width int, order binary.ByteOrder) string {
	var parts []string
	for i := 0; i+width <= len(value); i += width {
		var n uint32
		if width == 2 {
			n = uint32(order.Uint16(value[i : i+width]))
		} else {
			n = order.Uint32(value[i : i+width])
		}
		parts = append(parts, strconv.FormatUint(uint64(n), 10))
	}
	return strings.Join(parts, " ")
}

// apply merges qualified tag values into the parsed structure,
// overwriting entries for matching tags and preserving all others.
func (t *tiffMeta) apply(tags map[string][]string) error {
	for name, values := range tags {
		group, tagName, err := splitExifName(name)
		if err != nil {
			return err
		}
		id, err := resolveExifTag(group, tagName)
		if err != nil {
			return err
		}
		entry, err := t.encodeEntry(id, tagName, values)
		if err != nil {
			return fmt.Errorf("tag %s: %w", name, err)
		}
		switch group {
		case groupImage:
			t.ifd0 = upsertEntry(t.ifd0, entry)
		case groupPhoto:
			t.exifIFD = upsertEntry(t.exifIFD, entry)
		case groupGPS:
			t.gpsIFD = upsertEntry(t.gpsIFD, entry)
		case groupThumbnail:
			t.ifd1 = upsertEntry(t.ifd1, entry)
		}
	}
	return nil
}

func splitExifName(name string) (group, tag string, err error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 || parts[0] != "Exif" {
		return "", "", fmt.Errorf("invalid EXIF tag name %q", name)
	}
	switch parts[1] {
	case groupImage, groupPhoto, groupGPS, groupThumbnail:
		return parts[1], parts[2], nil
	}
	return "", "", fmt.Errorf("unknown EXIF group in %q", name)
}

func resolveExifTag(group, tagName string) (uint16, error) {
	if strings.HasPrefix(tagName, "0x") {
		id, err := strconv.ParseUint(tagName[2:], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid EXIF tag %q", tagName)
		}
		return uint16(id), nil
	}
	var names map[uint16]string
	switch group {
	case groupPhoto:
		names = exifPhotoTagNames
	case groupGPS:
		names = exifGPSTagNames
	default:
		names = exifImageTagNames
	}
	for id, n := range names {
		if n == tagName {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown EXIF tag %q", tagName)
}

func (t *tiffMeta) encodeEntry(id uint16, tagName string, values []string) (ifdEntry, error) {
	switch {
	case xpTags[id]:
		value := encodeUCS2(strings.Join(values, ";"))
		return ifdEntry{tag: id, typ: typeByte, count: uint32(len(value)), value: value}, nil
	case writableShortTags[tagName]:
		n, err := strconv.ParseUint(strings.Join(values, ""), 10, 16)
		if err != nil {
			return ifdEntry{}, fmt.Errorf("not a number: %q", values)
		}
		value := make([]byte, 2)
		t.order.PutUint16(value, uint16(n))
		return ifdEntry{tag: id, typ: typeShort, count: 1, value: value}, nil
	default:
		value := append([]byte(strings.Join(values, "; ")), 0)
		return ifdEntry{tag: id, typ: typeASCII, count: uint32(len(value)), value: value}, nil
	}
}

func upsertEntry(entries []ifdEntry, entry ifdEntry) []ifdEntry {
	for i, e := range entries {
		if e.tag == entry.tag {
			entries[i] = entry
			return entries
		}
	}
	return append(entries, entry)
}

// encode serializes the structure back to a TIFF blob with all offsets
// recomputed. Section layout: IFD0, Exif IFD, GPS IFD, IFD1, thumbnail.
func (t *tiffMeta) encode() []byte {
	type section struct {
		entries []ifdEntry
		dirOff  uint32
	}

	ifd0 := append([]ifdEntry(nil), t.ifd0...)
	ifd1 := dropTag(dropTag(append([]ifdEntry(nil), t.ifd1...), tagThumbOffset), tagThumbLength)

	// Pointer entries are regenerated with placeholder values and
	// patched once section offsets are known.
	if len(t.exifIFD) > 0 {
		ifd0 = upsertEntry(ifd0, ifdEntry{tag: tagExifIFD, typ: typeLong, count: 1, value: make([]byte, 4)})
	}
	if len(t.gpsIFD) > 0 {
		ifd0 = upsertEntry(ifd0, ifdEntry{tag: tagGPSIFD, typ: typeLong, count: 1, value: make([]byte, 4)})
	}
	if len(t.thumb) > 0 {
		ifd1 = upsertEntry(ifd1, ifdEntry{tag: tagThumbOffset, typ: typeLong, count: 1, value: make([]byte, 4)})
		length := make([]byte, 4)
		t.order.PutUint32(length, uint32(len(t.thumb)))
		ifd1 = upsertEntry(ifd1, ifdEntry{tag: tagThumbLength, typ: typeLong, count: 1, value: length})
	}

	sections := []*section{{entries: sortEntries(ifd0)}}
	var exifSec, gpsSec, ifd1Sec *section
	if len(t.exifIFD) > 0 {
		exifSec = &section{entries: sortEntries(t.exifIFD)}
		sections = append(sections, exifSec)
	}
	if len(t.gpsIFD) > 0 {
		gpsSec = &section{entries: sortEntries(t.gpsIFD)}
		sections = append(sections, gpsSec)
	}
	if len(ifd1) > 0 {
		ifd1Sec = &section{entries: sortEntries(ifd1)}
		sections = append(sections, ifd1Sec)
	}

	// First pass: assign directory and value offsets.
	cur := uint32(8)
	valueOffsets := make([][]uint32, len(sections))
	for i, sec := range sections {
		sec.dirOff = cur
		cur += uint32(2 + 12*len(sec.entries) + 4)
		valueOffsets[i] = make([]uint32, len(sec.entries))
		for j, e := range sec.entries {
			if len(e.value) > 4 {
				if cur%2 == 1 {
					cur++
				}
				valueOffsets[i][j] = cur
				cur += uint32(len(e.value))
			}
		}
	}
	if cur%2 == 1 {
		cur++
	}
	thumbOff := cur

	// Patch pointers now that offsets are known.
	patch := func(entries []ifdEntry, tag uint16, off uint32) {
		for i := range entries {
			if entries[i].tag == tag {
				value := make([]byte, 4)
				t.order.PutUint32(value, off)
				entries[i].value = value
			}
		}
	}
	if exifSec != nil {
		patch(sections[0].entries, tagExifIFD, exifSec.dirOff)
	}
	if gpsSec != nil {
		patch(sections[0].entries, tagGPSIFD, gpsSec.dirOff)
	}
	if ifd1Sec != nil && len(t.thumb) > 0 {
		patch(ifd1Sec.entries, tagThumbOffset, thumbOff)
	}

	// Second pass: serialize.
	size := int(cur) + len(t.thumb)
	out := make([]byte, size)
	if t.order == binary.LittleEndian {
		copy(out, "II")
	} else {
		copy(out, "MM")
	}
	t.order.PutUint16(out[2:4], 42)
	t.order.PutUint32(out[4:8], 8)

	for i, sec := range sections {
		pos := sec.dirOff
		t.order.PutUint16(out[pos:pos+2], uint16(len(sec.entries)))
		pos += 2
		for j, e := range sec.entries {
			t.order.PutUint16(out[pos:pos+2], e.tag)
			t.order.PutUint16(out[pos+2:pos+4], e.typ)
			t.order.PutUint32(out[pos+4:pos+8], e.count)
			if len(e.value) > 4 {
				t.order.PutUint32(out[pos+8:pos+12], valueOffsets[i][j])
				copy(out[valueOffsets[i][j]:], e.value)
			} else {
				copy(out[pos+8:pos+12], e.value)
			}
			pos += 12
		}
		// IFD0 chains to IFD1; all other sections terminate.
		next := uint32(0)
		if i == 0 && ifd1Sec != nil {
			next = ifd1Sec.dirOff
		}
		t.order.PutUint32(out[pos:pos+4], next)
	}
	copy(out[thumbOff:], t.thumb)
	return out
}

func sortEntries(entries []ifdEntry) []ifdEntry {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
	return entries
}

func encodeUCS2(s string) []byte {
	codes := utf16.Encode([]rune(s))
	out := make([]byte, 0, 2*len(codes)+2)
	for _, c := range codes {
		out = append(out, byte(c), byte(c>>8))
	}
	return append(out, 0, 0)
}

func decodeUCS2(b []byte) string {
	codes := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		codes = append(codes, uint16(b[i])|uint16(b[i+1])<<8)
	}
	for len(codes) > 0 && codes[len(codes)-1] == 0 {
		codes = codes[:len(codes)-1]
	}
	return string(utf16.Decode(codes))
}

func splitXP(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
