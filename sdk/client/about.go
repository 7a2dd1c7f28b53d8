package client

import (
	"fmt"

	"github.com/gaspardpetit/obix/sdk/contract"
)

// About is the server metadata published by the obix:About object.
type About struct {
	ObixVersion    string
	ServerName     string
	ServerTime     string
	ServerBootTime string
	VendorName     string
	VendorURL      string
	ProductName    string
	ProductVersion string
	ProductURL     string
}

// ParseAbout flattens the children of an obix:About obj by name. Null
// children and children without a name or val are skipped. It returns
// false when c is not an About object.
func ParseAbout(c *contract.Contract) (*About, bool) {
	if c == nil || c.Tag != contract.TagObj || !c.Implements(contract.About) {
		return nil, false
	}
	a := &About{}
	for _, ch := range c.Children {
		if ch.IsNull() || !ch.HasVal() || ch.Name() == "" {
			continue
		}
		v := ch.Val()
		switch ch.Name() {
		case "obixVersion":
			a.ObixVersion = v
		case "serverName":
			a.ServerName = v
		case "serverTime":
			a.ServerTime = v
		case "serverBootTime":
			a.ServerBootTime = v
		case "vendorName":
			a.VendorName = v
		case "vendorUrl":
			a.VendorURL = v
		case "productName":
			a.ProductName = v
		case "productVersion":
			a.ProductVersion = v
		case "productUrl":
			a.ProductURL = v
		}
	}
	return a, true
}

func (a *About) String() string {
	return fmt.Sprintf("Obix Server v%s: Name=%s Vendor=%s (%s) Product=%s (%s)",
		a.ObixVersion, a.ServerName, a.VendorName, a.VendorURL, a.ProductName, a.ProductURL)
}
