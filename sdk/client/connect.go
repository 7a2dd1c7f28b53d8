package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gaspardpetit/obix/sdk/batch"
	"github.com/gaspardpetit/obix/sdk/contract"
	"github.com/gaspardpetit/obix/sdk/result"
)

type discovery struct {
	lobby *contract.Contract
	about *url.URL
	watch *url.URL
	batch *url.URL
}

// Connect fetches the Lobby, discovers the About, Watch and Batch services
// and reads the About object when one is advertised.
func (c *Client) Connect(ctx context.Context) (status result.Status) {
	defer c.recoverStatus(&status)

	c.mu.RLock()
	tr, connected := c.tr, c.connected
	c.mu.RUnlock()
	if tr == nil || connected {
		return c.errs.Record(component, result.StatusInputError, "client is closed or already connected")
	}

	raw := c.exchange(ctx, tr, opGet, c.lobby, nil)
	if !raw.OK() {
		return raw.Status
	}
	doc, err := contract.Parse(raw.Value)
	if err != nil {
		return c.errs.RecordErr(component, result.StatusXMLParseError, err)
	}

	d, status := c.discover(doc)
	if !status.OK() {
		return status
	}

	var about *About
	if d.about != nil {
		r := c.ReadURI(ctx, d.about)
		if !r.Succeeded() {
			return r.Status
		}
		var ok bool
		if about, ok = ParseAbout(r.Value); !ok {
			return c.errs.Record(component, result.StatusXMLParseError,
				fmt.Sprintf("%s is not an obix:About object", d.about))
		}
	}

	c.mu.Lock()
	c.connected = true
	c.about = about
	c.aboutURL, c.watchURL, c.batchURL = d.about, d.watch, d.batch
	if d.batch != nil {
		c.engine = batch.NewEngine(c, d.batch, c.errs, batch.WithLogger(c.base))
	}
	c.mu.Unlock()

	ev := c.log.Info().Str("lobby", c.lobby.String())
	for name, u := range map[string]*url.URL{"about": d.about, "watch": d.watch, "batch": d.batch} {
		if u != nil {
			ev = ev.Str(name, u.String())
		}
	}
	ev.Msg("connected")
	return result.StatusSuccess
}

// ConnectAsync runs Connect on its own goroutine.
func (c *Client) ConnectAsync(ctx context.Context) <-chan result.Status {
	return async(func() result.Status { return c.Connect(ctx) })
}

// discover walks the Lobby document. Every descendant carrying both is and
// href is considered for the Watch and About services, while the batch
// operation must be a direct child of the Lobby.
func (c *Client) discover(doc *contract.Contract) (discovery, result.Status) {
	var d discovery
	if doc.Tag == contract.TagObj && doc.Implements(contract.Lobby) {
		d.lobby = doc
	}
	for _, el := range doc.Descendants() {
		is, href := el.Is(), el.Href()
		if is == "" || href == "" {
			continue
		}
		switch {
		case el.Implements(contract.Lobby):
			d.lobby = el
		case el.Implements(contract.WatchService):
			d.watch = c.resolve(href)
		case el.Implements(contract.About):
			d.about = c.resolve(href)
		}
	}
	if d.lobby == nil {
		return d, c.errs.Record(component, result.StatusElementNotFound, "could not find the oBIX Lobby in the response")
	}
	for _, ch := range d.lobby.Children {
		if ch.In() == contract.BatchIn && ch.Out() == contract.BatchOut && ch.Href() != "" {
			d.batch = c.resolve(ch.Href())
		}
	}
	return d, result.StatusSuccess
}

func (c *Client) resolve(href string) *url.URL {
	u, err := contract.Resolve(c.lobby, href)
	if err != nil {
		c.log.Warn().Err(err).Str("href", href).Msg("ignoring unresolvable href")
		return nil
	}
	return u
}
