package contract

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Named sets name and href on c when they are not empty and returns c.
func (c *Contract) Named(name, href string) *Contract {
	if name != "" {
		c.SetAttr("name", name)
	}
	if href != "" {
		c.SetAttr("href", href)
	}
	return c
}

func scalar(tag, val string) *Contract {
	return New(tag).SetAttr("val", val)
}

func Bool(v bool) *Contract         { return scalar(TagBool, strconv.FormatBool(v)) }
func Int(v int64) *Contract         { return scalar(TagInt, strconv.FormatInt(v, 10)) }
func Real(v float64) *Contract      { return scalar(TagReal, strconv.FormatFloat(v, 'g', -1, 64)) }
func Str(v string) *Contract        { return scalar(TagStr, v) }
func Abstime(v time.Time) *Contract { return scalar(TagAbstime, v.Format(time.RFC3339Nano)) }

// URI returns a uri element pointing at href.
func URI(href string) *Contract { return scalar(TagURI, href) }

// Null returns a null contract with the given tag.
func Null(tag string) *Contract { return New(tag).SetAttr("null", "true") }

// typedVal returns the val of c when it is a non-null element of the given tag.
func (c *Contract) typedVal(tag string) (string, bool) {
	if c == nil || c.Tag != tag {
		return "", false
	}
	v, ok := c.Attr("val")
	return v, ok
}

// BoolValue decodes a bool contract. Any val other than "true" (in any case)
// decodes as false.
func (c *Contract) BoolValue() (bool, bool) {
	v, ok := c.typedVal(TagBool)
	if !ok {
		return false, false
	}
	return strings.EqualFold(v, "true"), true
}

// IntValue decodes an int contract.
func (c *Contract) IntValue() (int64, bool) {
	v, ok := c.typedVal(TagInt)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RealValue decodes a real contract, accepting INF, -INF and NaN.
func (c *Contract) RealValue() (float64, bool) {
	v, ok := c.typedVal(TagReal)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// StrValue decodes a str contract.
func (c *Contract) StrValue() (string, bool) {
	return c.typedVal(TagStr)
}

var abstimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// AbstimeValue decodes an abstime contract. Values without a zone are read
// as UTC.
func (c *Contract) AbstimeValue() (time.Time, bool) {
	v, ok := c.typedVal(TagAbstime)
	if !ok {
		return time.Time{}, false
	}
	v = strings.TrimSpace(v)
	for _, layout := range abstimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseValue builds a contract of the given kind from its textual value.
// Kind is one of bool, int, real, str, abstime, uri or op; the value of an
// op is ignored.
func ParseValue(kind, value string) (*Contract, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case TagBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, err
		}
		return Bool(v), nil
	case TagInt:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, err
		}
		return Int(v), nil
	case TagReal:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		return Real(v), nil
	case TagStr:
		return Str(value), nil
	case TagAbstime:
		c := scalar(TagAbstime, value)
		t, ok := c.AbstimeValue()
		if !ok {
			return nil, fmt.Errorf("contract: invalid abstime %q", value)
		}
		return Abstime(t), nil
	case TagURI:
		return URI(value), nil
	case TagOp:
		return New(TagOp), nil
	}
	return nil, fmt.Errorf("contract: unknown kind %q", kind)
}
