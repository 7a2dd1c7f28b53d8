package contract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// ErrEmptyDocument is returned when a document has no root element.
var ErrEmptyDocument = errors.New("contract: document has no root element")

// Parse decodes an XML document into a contract tree.
func Parse(data []byte) (*Contract, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a single XML document from r. Documents declaring an
// encoding other than UTF-8, such as ISO-8859-1 or windows-1252, are
// transcoded while reading.
func Decode(r io.Reader) (*Contract, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	var root, cur *Contract
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("contract: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			c := &Contract{Tag: t.Name.Local}
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == "" && a.Name.Local == "xmlns":
					c.Attrs = append(c.Attrs, Attr{Name: "xmlns", Value: a.Value})
				case a.Name.Space == "xmlns":
					c.Attrs = append(c.Attrs, Attr{Name: "xmlns:" + a.Name.Local, Value: a.Value})
				case a.Name.Space == "":
					c.Attrs = append(c.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
				}
			}
			if cur == nil {
				if root != nil {
					return nil, errors.New("contract: multiple root elements")
				}
				root = c
			} else {
				cur.Add(c)
			}
			cur = c
		case xml.EndElement:
			cur = cur.parent
		}
	}
	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// Marshal serializes c as a UTF-8 XML document fragment.
func Marshal(c *Contract) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes c to w.
func Encode(w io.Writer, c *Contract) error {
	if c == nil {
		return errors.New("contract: nil contract")
	}
	var buf bytes.Buffer
	if err := writeElement(&buf, c); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeElement(buf *bytes.Buffer, c *Contract) error {
	if c.Tag == "" {
		return errors.New("contract: element without tag")
	}
	buf.WriteByte('<')
	buf.WriteString(c.Tag)
	for _, a := range c.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		if err := xml.EscapeText(buf, []byte(a.Value)); err != nil {
			return err
		}
		buf.WriteByte('"')
	}
	if len(c.Children) == 0 {
		buf.WriteString("/>")
		return nil
	}
	buf.WriteByte('>')
	for _, ch := range c.Children {
		if err := writeElement(buf, ch); err != nil {
			return err
		}
	}
	buf.WriteString("</")
	buf.WriteString(c.Tag)
	buf.WriteByte('>')
	return nil
}

// String renders c as XML, or an empty string when it cannot be encoded.
func (c *Contract) String() string {
	b, err := Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}
