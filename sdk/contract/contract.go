// Package contract models oBIX objects ("contracts") as a small XML element
// tree and provides the codecs used to move them on and off the wire.
package contract

import "strings"

// Well-known contract and operation markers.
const (
	Lobby          = "obix:Lobby"
	About          = "obix:About"
	WatchService   = "obix:WatchService"
	BatchIn        = "obix:BatchIn"
	BatchOut       = "obix:BatchOut"
	Read           = "obix:Read"
	Write          = "obix:Write"
	Invoke         = "obix:Invoke"
	BadURIErr      = "obix:BadUriErr"
	UnsupportedErr = "obix:UnsupportedErr"
	PermissionErr  = "obix:PermissionErr"
	Nil            = "obix:Nil"
)

// Element tags.
const (
	TagObj     = "obj"
	TagList    = "list"
	TagBool    = "bool"
	TagInt     = "int"
	TagReal    = "real"
	TagStr     = "str"
	TagAbstime = "abstime"
	TagErr     = "err"
	TagOp      = "op"
	TagRef     = "ref"
	TagURI     = "uri"
)

// Attr is a single attribute. Namespace declarations keep their prefix,
// e.g. "xmlns" or "xmlns:xsi".
type Attr struct {
	Name  string
	Value string
}

// Contract is one oBIX element. Attributes keep document order.
type Contract struct {
	Tag      string
	Attrs    []Attr
	Children []*Contract

	parent *Contract
}

// New returns an empty contract with the given tag.
func New(tag string) *Contract {
	return &Contract{Tag: tag}
}

// Obj returns an obj element implementing the given contract list.
func Obj(is string) *Contract {
	c := New(TagObj)
	if is != "" {
		c.SetAttr("is", is)
	}
	return c
}

// List returns a list element implementing the given contract list.
func List(is string) *Contract {
	c := New(TagList)
	if is != "" {
		c.SetAttr("is", is)
	}
	return c
}

// Attr returns the raw value of the named attribute.
func (c *Contract) Attr(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, a := range c.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute and returns c.
func (c *Contract) SetAttr(name, value string) *Contract {
	for i := range c.Attrs {
		if c.Attrs[i].Name == name {
			c.Attrs[i].Value = value
			return c
		}
	}
	c.Attrs = append(c.Attrs, Attr{Name: name, Value: value})
	return c
}

// RemoveAttr deletes the named attribute if present.
func (c *Contract) RemoveAttr(name string) {
	for i := range c.Attrs {
		if c.Attrs[i].Name == name {
			c.Attrs = append(c.Attrs[:i], c.Attrs[i+1:]...)
			return
		}
	}
}

// obixAttr reads an attribute the way every oBIX accessor does: a nil or
// null contract has no attributes.
func (c *Contract) obixAttr(name string) string {
	if c.IsNull() {
		return ""
	}
	v, _ := c.Attr(name)
	return v
}

func (c *Contract) Name() string        { return c.obixAttr("name") }
func (c *Contract) Href() string        { return c.obixAttr("href") }
func (c *Contract) Is() string          { return c.obixAttr("is") }
func (c *Contract) Val() string         { return c.obixAttr("val") }
func (c *Contract) In() string          { return c.obixAttr("in") }
func (c *Contract) Out() string         { return c.obixAttr("out") }
func (c *Contract) Display() string     { return c.obixAttr("display") }
func (c *Contract) DisplayName() string { return c.obixAttr("displayName") }

// HasVal reports whether the contract carries a non-empty val.
func (c *Contract) HasVal() bool { return c.Val() != "" }

// IsNull reports whether c is nil or marked null="true".
func (c *Contract) IsNull() bool {
	if c == nil {
		return true
	}
	v, _ := c.Attr("null")
	return v == "true"
}

// IsErr reports whether c is an err contract.
func (c *Contract) IsErr() bool {
	return c != nil && c.Tag == TagErr
}

// Implements reports whether the is attribute mentions marker.
func (c *Contract) Implements(marker string) bool {
	is := c.Is()
	return is != "" && strings.Contains(is, marker)
}

// Parent returns the element c is attached to, if any.
func (c *Contract) Parent() *Contract {
	if c == nil {
		return nil
	}
	return c.parent
}

// Add appends children to c and returns c.
func (c *Contract) Add(children ...*Contract) *Contract {
	for _, ch := range children {
		if ch == nil {
			continue
		}
		ch.parent = c
		c.Children = append(c.Children, ch)
	}
	return c
}

// Child returns the first direct child carrying the given name.
func (c *Contract) Child(name string) *Contract {
	if c == nil {
		return nil
	}
	for _, ch := range c.Children {
		if ch.Name() == name {
			return ch
		}
	}
	return nil
}

// Descendants returns every element below c in document order.
func (c *Contract) Descendants() []*Contract {
	var out []*Contract
	c.Walk(func(d *Contract) {
		if d != c {
			out = append(out, d)
		}
	})
	return out
}

// Walk visits c and its descendants depth-first in document order.
func (c *Contract) Walk(fn func(*Contract)) {
	if c == nil {
		return
	}
	fn(c)
	for _, ch := range c.Children {
		ch.Walk(fn)
	}
}

// Clone returns a detached deep copy of c.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := &Contract{Tag: c.Tag}
	if len(c.Attrs) > 0 {
		out.Attrs = append([]Attr(nil), c.Attrs...)
	}
	for _, ch := range c.Children {
		out.Add(ch.Clone())
	}
	return out
}
