// Package secret masks credentials before they reach a log line.
package secret

import (
	"net/url"
	"strings"
)

// Mask hides most of s. Strings of up to five bytes are fully masked, up to
// twenty keep their first and last byte, longer ones keep three leading
// bytes and the last one.
func Mask(s string) string {
	n := len(s)
	switch {
	case n == 0:
		return ""
	case n <= 5:
		return strings.Repeat("*", n)
	case n <= 20:
		return s[:1] + strings.Repeat("*", n-2) + s[n-1:]
	default:
		return s[:3] + strings.Repeat("*", n-4) + s[n-1:]
	}
}

// MaskURL masks the password of a URL's user info, e.g. in a redis
// connection string. Values without a password are returned as is.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	start := strings.Index(raw, "://") + len("://")
	end := start + strings.Index(raw[start:], "@")
	user, pw, _ := strings.Cut(raw[start:end], ":")
	return raw[:start] + user + ":" + Mask(pw) + raw[end:]
}
