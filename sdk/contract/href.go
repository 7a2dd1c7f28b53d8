package contract

import (
	"errors"
	"net/url"
	"strings"
)

// Resolve turns an href found in a contract into an absolute URL.
//
// Absolute hrefs are used unchanged. Hrefs starting with "/" replace the
// path of base. Anything else is appended to the path of base as a new
// segment, so "x" against "http://h/obix" is "http://h/obix/x".
func Resolve(base *url.URL, href string) (*url.URL, error) {
	if base == nil {
		return nil, errors.New("contract: nil base URL")
	}
	if strings.Contains(href, ":") {
		if u, err := url.Parse(href); err == nil && u.IsAbs() {
			return u, nil
		}
	}
	if strings.HasPrefix(href, "/") {
		ref, err := url.Parse(href)
		if err != nil {
			return nil, err
		}
		return base.ResolveReference(ref), nil
	}
	b := *base
	b.RawQuery = ""
	b.Fragment = ""
	b.RawFragment = ""
	return url.Parse(strings.TrimRight(b.String(), "/") + "/" + strings.TrimLeft(href, "/"))
}

// FullHref joins the hrefs of c and its ancestors. The walk stops at the
// first ancestor whose href is root-relative or carries a scheme.
func (c *Contract) FullHref() string {
	href := c.Href()
	if href == "" {
		return ""
	}
	full := href
	for p := c.parent; p != nil; p = p.parent {
		h := p.Href()
		if h == "" {
			continue
		}
		if !strings.HasSuffix(h, "/") {
			h += "/"
		}
		full = h + full
		if strings.HasPrefix(h, "/") || strings.Contains(h, "://") {
			break
		}
	}
	return full
}
