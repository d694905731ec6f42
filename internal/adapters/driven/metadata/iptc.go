package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Photoshop image resource ID carrying the IPTC-IIM block.
const psIPTCResource = 0x0404

// IPTC record numbers.
const (
	recordEnvelope     = 1
	recordApplication2 = 2
)

// recordVersionDataset is dataset 2:0, mandatory in a record-2 block.
const recordVersionDataset = 0

var iptcApplication2Names = map[byte]string{
	0:   "RecordVersion",
	5:   "ObjectName",
	12:  "Subject",
	15:  "Category",
	20:  "SuppCategory",
	25:  "Keywords",
	40:  "SpecialInstructions",
	55:  "DateCreated",
	80:  "Byline",
	85:  "BylineTitle",
	90:  "City",
	95:  "ProvinceState",
	101: "CountryName",
	105: "Headline",
	110: "Credit",
	115: "Source",
	116: "Copyright",
	120: "Caption",
	122: "Writer",
}

var iptcEnvelopeNames = map[byte]string{
	90: "CharacterSet",
}

// iptcDataset is one IIM dataset (0x1C marker, record, dataset, value).
type iptcDataset struct {
	record  byte
	dataset byte
	data    []byte
}

// psResource is one Photoshop 8BIM image resource. Resources other than
// the IPTC block are preserved verbatim.
type psResource struct {
	id   uint16
	name []byte // raw pascal name bytes, even-padded
	data []byte
}

// psBlock is one parsed APP13 payload.
type psBlock struct {
	resources []psResource
}

func newPhotoshopBlock() *psBlock {
	return &psBlock{}
}

func parsePhotoshopBlock(data []byte) (*psBlock, error) {
	b := &psBlock{}
	pos := 0
	for pos+12 <= len(data) {
		if !bytes.Equal(data[pos:pos+4], []byte("8BIM")) {
			return nil, fmt.Errorf("invalid Photoshop resource signature")
		}
		id := binary.BigEndian.Uint16(data[pos+4 : pos+6])
		pos += 6

		nameLen := int(data[pos])
		namePadded := 1 + nameLen
		if namePadded%2 == 1 {
			namePadded++
		}
		if pos+namePadded+4 > len(data) {
			return nil, fmt.Errorf("truncated Photoshop resource name")
		}
		name := data[pos : pos+namePadded]
		pos += namePadded

		size := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+size > len(data) {
			return nil, fmt.Errorf("truncated Photoshop resource data")
		}
		b.resources = append(b.resources, psResource{
			id:   id,
			name: append([]byte(nil), name...),
			data: append([]byte(nil), data[pos:pos+size]...),
		})
		pos += size
		if size%2 == 1 {
			pos++ // resources are even-padded
		}
	}
	return b, nil
}

func (b *psBlock) iptcResource() []byte {
	for _, r := range b.resources {
		if r.id == psIPTCResource {
			return r.data
		}
	}
	return nil
}

func parseIPTCDatasets(data []byte) ([]iptcDataset, error) {
	var out []iptcDataset
	pos := 0
	for pos+5 <= len(data) {
		if data[pos] != 0x1C {
			return nil, fmt.Errorf("invalid IPTC dataset marker 0x%02X", data[pos])
		}
		record, dataset := data[pos+1], data[pos+2]
		length := int(binary.BigEndian.Uint16(data[pos+3 : pos+5]))
		pos += 5

		if length&0x8000 != 0 {
			// Extended dataset: the low bits give the size of the
			// length field itself.
			lenSize := length & 0x7FFF
			if lenSize > 4 || pos+lenSize > len(data) {
				return nil, fmt.Errorf("unsupported IPTC extended dataset")
			}
			length = 0
			for _, by := range data[pos : pos+lenSize] {
				length = length<<8 | int(by)
			}
			pos += lenSize
		}
		if pos+length > len(data) {
			return nil, fmt.Errorf("truncated IPTC dataset")
		}
		out = append(out, iptcDataset{
			record:  record,
			dataset: dataset,
			data:    append([]byte(nil), data[pos:pos+length]...),
		})
		pos += length
	}
	return out, nil
}

// table renders the IPTC block under qualified tag names. Repeated
// datasets of the same kind accumulate as one multi-valued tag.
func (b *psBlock) table() map[string][]string {
	out := make(map[string][]string)
	datasets, err := parseIPTCDatasets(b.iptcResource())
	if err != nil {
		return out
	}
	for _, ds := range datasets {
		name := iptcTagName(ds.record, ds.dataset)
		var value string
		if ds.record == recordApplication2 && ds.dataset == recordVersionDataset && len(ds.data) == 2 {
			value = strconv.Itoa(int(binary.BigEndian.Uint16(ds.data)))
		} else {
			value = string(ds.data)
		}
		out[name] = append(out[name], value)
	}
	return out
}

func iptcTagName(record, dataset byte) string {
	var group string
	var names map[byte]string
	switch record {
	case recordEnvelope:
		group, names = "Envelope", iptcEnvelopeNames
	case recordApplication2:
		group, names = "Application2", iptcApplication2Names
	default:
		return fmt.Sprintf("Iptc.Record%d.0x%02X", record, dataset)
	}
	if name, ok := names[dataset]; ok {
		return "Iptc." + group + "." + name
	}
	return fmt.Sprintf("Iptc.%s.0x%02X", group, dataset)
}

func resolveIptcTag(name string) (record, dataset byte, err error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 || parts[0] != "Iptc" {
		return 0, 0, fmt.Errorf("invalid IPTC tag name %q", name)
	}
	var names map[byte]string
	switch parts[1] {
	case "Envelope":
		record, names = recordEnvelope, iptcEnvelopeNames
	case "Application2":
		record, names = recordApplication2, iptcApplication2Names
	default:
		return 0, 0, fmt.Errorf("unknown IPTC record in %q", name)
	}
	if strings.HasPrefix(parts[2], "0x") {
		n, perr := strconv.ParseUint(parts[2][2:], 16, 8)
		if perr != nil {
			return 0, 0, fmt.Errorf("invalid IPTC dataset %q", parts[2])
		}
		return record, byte(n), nil
	}
	for num, n := range names {
		if n == parts[2] {
			return record, num, nil
		}
	}
	return 0, 0, fmt.Errorf("unknown IPTC tag %q", name)
}

// apply merges qualified tag values into the IPTC block: every dataset
// of a written kind is replaced by the supplied values, one dataset per
// value; all other datasets are preserved in order.
func (b *psBlock) apply(tags map[string][]string) error {
	datasets, err := parseIPTCDatasets(b.iptcResource())
	if err != nil {
		// A corrupt block is rebuilt from scratch rather than lost.
		datasets = nil
	}

	type key struct{ record, dataset byte }
	replaced := make(map[key]bool)
	var additions []iptcDataset

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		record, dataset, err := resolveIptcTag(name)
		if err != nil {
			return err
		}
		replaced[key{record, dataset}] = true
		for _, v := range tags[name] {
			if len(v) > 0x7FFF {
				return fmt.Errorf("tag %s: value exceeds IPTC dataset size", name)
			}
			additions = append(additions, iptcDataset{record: record, dataset: dataset, data: []byte(v)})
		}
	}

	kept := datasets[:0]
	hasVersion := false
	for _, ds := range datasets {
		if replaced[key{ds.record, ds.dataset}] {
			continue
		}
		if ds.record == recordApplication2 && ds.dataset == recordVersionDataset {
			hasVersion = true
		}
		kept = append(kept, ds)
	}
	if !hasVersion {
		kept = append([]iptcDataset{{
			record:  recordApplication2,
			dataset: recordVersionDataset,
			data:    []byte{0x00, 0x04},
		}}, kept...)
	}
	b.setIPTCResource(encodeIPTCDatasets(append(kept, additions...)))
	return nil
}

func encodeIPTCDatasets(datasets []iptcDataset) []byte {
	var out bytes.Buffer
	for _, ds := range datasets {
		out.WriteByte(0x1C)
		out.WriteByte(ds.record)
		out.WriteByte(ds.dataset)
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(ds.data)))
		out.Write(lenBuf[:])
		out.Write(ds.data)
	}
	return out.Bytes()
}

func (b *psBlock) setIPTCResource(data []byte) {
	for i := range b.resources {
		if b.resources[i].id == psIPTCResource {
			b.resources[i].data = data
			return
		}
	}
	b.resources = append(b.resources, psResource{
		id:   psIPTCResource,
		name: []byte{0x00, 0x00},
		data: data,
	})
}

// encode serializes every resource back into an APP13 payload.
func (b *psBlock) encode() []byte {
	var out bytes.Buffer
	for _, r := range b.resources {
		out.WriteString("8BIM")
		var idBuf [2]byte
		binary.BigEndian.PutUint16(idBuf[:], r.id)
		out.Write(idBuf[:])
		out.Write(r.name)
		var sizeBuf [4]byte
		binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(r.data)))
		out.Write(sizeBuf[:])
		out.Write(r.data)
		if len(r.data)%2 == 1 {
			out.WriteByte(0x00)
		}
	}
	return out.Bytes()
}
