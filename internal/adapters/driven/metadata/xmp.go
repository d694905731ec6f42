package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	rdfURI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	xURI   = "adobe:ns:meta/"
)

// Schema prefixes known without an xmlns declaration in the source
// document. Parsed documents extend this set with their own
// declarations.
var knownXMPSchemas = map[string]string{
	"dc":        "http://purl.org/dc/elements/1.1/",
	"dcterms":   "http://purl.org/dc/terms/",
	"dwc":       "http://rs.tdwg.org/dwc/terms/",
	"lr":        "http://ns.adobe.com/lightroom/1.0/",
	"photoshop": "http://ns.adobe.com/photoshop/1.0/",
	"xmp":       "http://ns.adobe.com/xap/1.0/",
	"xmpMM":     "http://ns.adobe.com/xap/1.0/mm/",
	"exif":      "http://ns.adobe.com/exif/1.0/",
	"tiff":      "http://ns.adobe.com/tiff/1.0/",
}

// Array forms used when creating a property that has no existing form.
var xmpArrayDefaults = map[string]string{
	"dc:subject":           "Bag",
	"dc:title":             "Alt",
	"dc:creator":           "Seq",
	"lr:hierarchicalSubject": "Bag",
}

// xmpProp is one XMP property. Simple text and flat rdf arrays are
// modelled as values; richer structures (e.g. xmpMM:History) keep their
// source XML in raw and are re-emitted verbatim on encode.
type xmpProp struct {
	prefix      string
	local       string
	array       string // "", "Bag", "Seq" or "Alt"
	values      []string
	raw         []byte   // verbatim source of an unmodelled structure
	rawPrefixes []string // schema prefixes the raw XML relies on
}

// xmpPacket is one parsed XMP packet. Property order is preserved.
type xmpPacket struct {
	props []xmpProp
	uris  map[string]string // prefix -> namespace URI
}

func newXMPPacket() *xmpPacket {
	uris := make(map[string]string, len(knownXMPSchemas))
	for p, u := range knownXMPSchemas {
		uris[p] = u
	}
	return &xmpPacket{uris: uris}
}

func parseXMPPacket(data []byte) (*xmpPacket, error) {
	p := newXMPPacket()
	uriToPrefix := make(map[string]string)
	for prefix, uri := range p.uris {
		uriToPrefix[uri] = prefix
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing XMP packet: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		collectNamespaces(start, p.uris, uriToPrefix)

		if start.Name.Space == rdfURI && start.Name.Local == "Description" {
			if err := p.parseDescription(dec, start, data, uriToPrefix); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

func collectNamespaces(start xml.StartElement, uris, uriToPrefix map[string]string) {
	for _, attr := range start.Attr {
		if attr.Name.Space == "xmlns" {
			uris[attr.Name.Local] = attr.Value
			uriToPrefix[attr.Value] = attr.Name.Local
		}
	}
}

// parseDescription consumes one rdf:Description element, collecting
// attribute-form and element-form properties.
func (p *xmpPacket) parseDescription(dec *xml.Decoder, start xml.StartElement, data []byte, uriToPrefix map[string]string) error {
	for _, attr := range start.Attr {
		if attr.Name.Space == "" || attr.Name.Space == "xmlns" || attr.Name.Space == rdfURI {
			continue
		}
		if prefix, ok := uriToPrefix[attr.Name.Space]; ok {
			p.setProp(xmpProp{prefix: prefix, local: attr.Name.Local, values: []string{attr.Value}})
		}
	}

	for {
		off := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parsing XMP packet: %w", err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		case xml.StartElement:
			collectNamespaces(t, p.uris, uriToPrefix)
			prefix, ok := uriToPrefix[t.Name.Space]
			if !ok || t.Name.Space == rdfURI {
				// Unknown schema or stray rdf element: skip whole subtree.
				if err := dec.Skip(); err != nil {
					return fmt.Errorf("parsing XMP packet: %w", err)
				}
				continue
			}
			prop, err := p.parsePropElement(dec, t, prefix, data, off, uriToPrefix)
			if err != nil {
				return err
			}
			if prop != nil {
				p.setProp(*prop)
			}
		}
	}
}

// parsePropElement consumes one property element. Simple text and flat
// rdf arrays are modelled; anything richer would lose data if forced
// through the simple model, so its subtree is kept verbatim instead.
func (p *xmpPacket) parsePropElement(
	dec *xml.Decoder,
	start xml.StartElement,
	prefix string,
	data []byte,
	startOff int64,
	uriToPrefix map[string]string,
) (*xmpProp, error) {
	prop := &xmpProp{prefix: prefix, local: start.Name.Local}
	structured := len(start.Attr) > 0
	used := make(map[string]bool)
	noteURIs(start, used)

	var text, liText strings.Builder
	depth := 1
	inLi := false

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing XMP packet: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if inLi {
				liText.Write(t)
			} else if depth == 1 {
				text.Write(t)
			}

		case xml.StartElement:
			collectNamespaces(t, p.uris, uriToPrefix)
			noteURIs(t, used)
			depth++
			switch {
			case t.Name.Space == rdfURI && depth == 2 && prop.array == "" &&
				(t.Name.Local == "Bag" || t.Name.Local == "Seq" || t.Name.Local == "Alt"):
				prop.array = t.Name.Local
			case t.Name.Space == rdfURI && t.Name.Local == "li" && depth == 3 && len(t.Attr) == 0:
				inLi = true
				liText.Reset()
			default:
				// Nested resource, qualified li or parseType form.
				structured = true
			}

		case xml.EndElement:
			depth--
			if inLi && depth == 2 {
				prop.values = append(prop.values, strings.TrimSpace(liText.String()))
				inLi = false
			}
			if depth > 0 {
				continue
			}
			if structured {
				end := dec.InputOffset()
				prop.raw = append([]byte(nil), data[startOff:end]...)
				prop.rawPrefixes = resolvePrefixes(used, uriToPrefix)
				prop.array = ""
				prop.values = nil
				return prop, nil
			}
			if prop.array == "" {
				if v := strings.TrimSpace(text.String()); v != "" {
					prop.values = []string{v}
				}
			}
			if len(prop.values) == 0 {
				return nil, nil
			}
			return prop, nil
		}
	}
}

// noteURIs records the namespace URIs an element mentions.
func noteURIs(start xml.StartElement, used map[string]bool) {
	if start.Name.Space != "" {
		used[start.Name.Space] = true
	}
	for _, attr := range start.Attr {
		if attr.Name.Space != "" && attr.Name.Space != "xmlns" {
			used[attr.Name.Space] = true
		}
	}
}

// resolvePrefixes maps used namespace URIs back to declared prefixes.
// rdf is always declared on the envelope and is skipped.
func resolvePrefixes(used map[string]bool, uriToPrefix map[string]string) []string {
	var prefixes []string
	for uri := range used {
		if uri == rdfURI {
			continue
		}
		if pfx, ok := uriToPrefix[uri]; ok {
			prefixes = append(prefixes, pfx)
		}
	}
	sort.Strings(prefixes)
	return prefixes
}

func (p *xmpPacket) setProp(prop xmpProp) {
	for i := range p.props {
		if p.props[i].prefix == prop.prefix && p.props[i].local == prop.local {
			if prop.array == "" {
				prop.array = p.props[i].array
			}
			p.props[i] = prop
			return
		}
	}
	p.props = append(p.props, prop)
}

// table renders every property under its qualified tag name. Verbatim
// structures have no string rendering and are omitted.
func (p *xmpPacket) table() map[string][]string {
	out := make(map[string][]string, len(p.props))
	for _, prop := range p.props {
		if prop.raw != nil {
			continue
		}
		out["Xmp."+prop.prefix+"."+prop.local] = append([]string(nil), prop.values...)
	}
	return out
}

// apply merges qualified tag values into the packet, overwriting
// matching properties and preserving all others.
func (p *xmpPacket) apply(tags map[string][]string) error {
	for name, values := range tags {
		parts := strings.Split(name, ".")
		if len(parts) != 3 || parts[0] != "Xmp" {
			return fmt.Errorf("invalid XMP tag name %q", name)
		}
		prefix, local := parts[1], parts[2]
		if _, ok := p.uris[prefix]; !ok {
			return fmt.Errorf("unknown XMP schema prefix %q in tag %s", prefix, name)
		}
		prop := xmpProp{
			prefix: prefix,
			local:  local,
			array:  xmpArrayDefaults[prefix+":"+local],
			values: append([]string(nil), values...),
		}
		if prop.array == "" && len(values) > 1 {
			prop.array = "Bag"
		}
		p.setProp(prop)
	}
	return nil
}

// encode serializes the packet. Properties keep insertion order; xmlns
// declarations cover every prefix in use.
func (p *xmpPacket) encode() []byte {
	prefixes := make(map[string]bool)
	for _, prop := range p.props {
		prefixes[prop.prefix] = true
		for _, pfx := range prop.rawPrefixes {
			prefixes[pfx] = true
		}
	}

	var b bytes.Buffer
	b.WriteString("<?xpacket begin=\"\uFEFF\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>\n")
	b.WriteString(`<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="taxatag">` + "\n")
	b.WriteString(` <rdf:RDF xmlns:rdf="` + rdfURI + `">` + "\n")
	b.WriteString(`  <rdf:Description rdf:about=""`)
	for _, prefix := range sortedKeys(prefixes) {
		b.WriteString("\n    xmlns:" + prefix + `="`)
		writeEscaped(&b, p.uris[prefix])
		b.WriteString(`"`)
	}
	b.WriteString(">\n")

	for _, prop := range p.props {
		if prop.raw != nil {
			b.WriteString("   ")
			b.Write(prop.raw)
			b.WriteString("\n")
			continue
		}
		name := prop.prefix + ":" + prop.local
		b.WriteString("   <" + name + ">")
		if prop.array == "" {
			writeEscaped(&b, prop.values[0])
		} else {
			b.WriteString("\n    <rdf:" + prop.array + ">\n")
			for _, v := range prop.values {
				b.WriteString("     <rdf:li>")
				writeEscaped(&b, v)
				b.WriteString("</rdf:li>\n")
			}
			b.WriteString("    </rdf:" + prop.array + ">\n   ")
		}
		b.WriteString("</" + name + ">\n")
	}

	b.WriteString("  </rdf:Description>\n")
	b.WriteString(" </rdf:RDF>\n")
	b.WriteString("</x:xmpmeta>\n")
	b.WriteString(`<?xpacket end="w"?>`)
	return b.Bytes()
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeEscaped(b *bytes.Buffer, s string) {
	_ = xml.EscapeText(b, []byte(s))
}
