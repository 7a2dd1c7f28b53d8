package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gaspardpetit/obix/sdk/contract"
	"github.com/gaspardpetit/obix/sdk/result"
	"github.com/gaspardpetit/obix/sdk/transport"
)

type verb string

const (
	opGet  verb = http.MethodGet
	opPut  verb = http.MethodPut
	opPost verb = http.MethodPost
)

// ReadURIRaw GETs u and returns the response body.
func (c *Client) ReadURIRaw(ctx context.Context, u *url.URL) (res result.Result[[]byte]) {
	defer recoverResult(c, &res)
	tr := c.currentTransport()
	if tr == nil {
		return result.Fail[[]byte](c.errs, result.NewError(component, result.StatusNotConnected, "no transport"), nil)
	}
	return c.exchange(ctx, tr, opGet, u, nil)
}

// WriteURIRaw PUTs body to u. The session must be connected.
func (c *Client) WriteURIRaw(ctx context.Context, u *url.URL, body []byte) (res result.Result[[]byte]) {
	defer recoverResult(c, &res)
	if len(body) == 0 {
		return result.Fail[[]byte](c.errs, result.NewError(component, result.StatusInputError, "nothing to write"), nil)
	}
	tr, st := c.connectedTransport()
	if !st.OK() {
		return result.From[[]byte](st, nil)
	}
	return c.exchange(ctx, tr, opPut, u, body)
}

// InvokeURIRaw POSTs body, which may be empty, to u. The session must be
// connected.
func (c *Client) InvokeURIRaw(ctx context.Context, u *url.URL, body []byte) (res result.Result[[]byte]) {
	defer recoverResult(c, &res)
	tr, st := c.connectedTransport()
	if !st.OK() {
		return result.From[[]byte](st, nil)
	}
	return c.exchange(ctx, tr, opPost, u, body)
}

// ReadURI reads the contract at u. It only needs a transport, so the Lobby
// and other documents can be read before Connect.
func (c *Client) ReadURI(ctx context.Context, u *url.URL) (res result.Result[*contract.Contract]) {
	defer recoverResult(c, &res)
	raw := c.ReadURIRaw(ctx, u)
	if !raw.OK() {
		return result.From[*contract.Contract](raw.Status, nil)
	}
	return c.decode(u, raw.Value, false)
}

// WriteURI writes payload to u and returns the server's view of the
// written object. A server may answer with an empty body, in which case
// the result is OK without a value.
func (c *Client) WriteURI(ctx context.Context, u *url.URL, payload *contract.Contract) (res result.Result[*contract.Contract]) {
	defer recoverResult(c, &res)
	if u == nil || payload == nil {
		return result.Fail[*contract.Contract](c.errs,
			result.NewError(component, result.StatusInputError, "uri or data to write is missing"), nil)
	}
	body, err := contract.Marshal(payload)
	if err != nil {
		return result.Fail[*contract.Contract](c.errs, result.Wrap(component, result.StatusInputError, err), nil)
	}
	raw := c.WriteURIRaw(ctx, u, body)
	if !raw.OK() {
		return result.From[*contract.Contract](raw.Status, nil)
	}
	return c.decode(u, raw.Value, true)
}

// InvokeURI invokes the operation at u with an optional argument.
func (c *Client) InvokeURI(ctx context.Context, u *url.URL, payload *contract.Contract) (res result.Result[*contract.Contract]) {
	defer recoverResult(c, &res)
	var body []byte
	if payload != nil {
		var err error
		if body, err = contract.Marshal(payload); err != nil {
			return result.Fail[*contract.Contract](c.errs, result.Wrap(component, result.StatusInputError, err), nil)
		}
	}
	raw := c.InvokeURIRaw(ctx, u, body)
	if !raw.OK() {
		return result.From[*contract.Contract](raw.Status, nil)
	}
	return c.decode(u, raw.Value, true)
}

func (c *Client) ReadURIAsync(ctx context.Context, u *url.URL) <-chan result.Result[*contract.Contract] {
	return async(func() result.Result[*contract.Contract] { return c.ReadURI(ctx, u) })
}

func (c *Client) WriteURIAsync(ctx context.Context, u *url.URL, payload *contract.Contract) <-chan result.Result[*contract.Contract] {
	return async(func() result.Result[*contract.Contract] { return c.WriteURI(ctx, u, payload) })
}

func (c *Client) InvokeURIAsync(ctx context.Context, u *url.URL, payload *contract.Contract) <-chan result.Result[*contract.Contract] {
	return async(func() result.Result[*contract.Contract] { return c.InvokeURI(ctx, u, payload) })
}

// SignUp invokes the configured sign-up operation with a device contract.
func (c *Client) SignUp(ctx context.Context, device *contract.Contract) result.Result[*contract.Contract] {
	if c.signUp == nil {
		return result.Fail[*contract.Contract](c.errs,
			result.NewError(component, result.StatusInputError, "no sign-up operation configured"), nil)
	}
	if device == nil {
		return result.Fail[*contract.Contract](c.errs,
			result.NewError(component, result.StatusInputError, "nothing to sign up"), nil)
	}
	return c.InvokeURI(ctx, c.signUp, device)
}

func (c *Client) connectedTransport() (transport.Transport, result.Status) {
	c.mu.RLock()
	tr, connected := c.tr, c.connected
	c.mu.RUnlock()
	if tr == nil || !connected {
		return nil, c.errs.Record(component, result.StatusNotConnected, "")
	}
	return tr, result.StatusSuccess
}

// exchange performs one HTTP round trip and maps transport failures.
func (c *Client) exchange(ctx context.Context, tr transport.Transport, v verb, u *url.URL, body []byte) result.Result[[]byte] {
	if u == nil {
		return result.Fail[[]byte](c.errs, result.NewError(component, result.StatusInputError, "nil uri"), nil)
	}
	var (
		resp *transport.Response
		err  error
	)
	switch v {
	case opGet:
		resp, err = tr.Get(ctx, u)
	case opPut:
		resp, err = tr.Put(ctx, u, body)
	default:
		resp, err = tr.Post(ctx, u, body)
	}
	if err != nil {
		st := result.StatusSocketError
		if transport.IsBodyError(err) {
			st = result.StatusIOError
		}
		return result.Fail[[]byte](c.errs, result.Wrap(component, st, err), nil)
	}
	if !resp.OK() {
		return result.Fail[[]byte](c.errs, result.NewAuxError(component, result.StatusSocketError, resp.StatusCode, resp.Reason), nil)
	}
	body = resp.Body
	if body == nil {
		body = []byte{}
	}
	return result.OK(body)
}

// decode parses a response body. An err root becomes a server failure that
// still carries the contract.
func (c *Client) decode(u *url.URL, body []byte, allowEmpty bool) result.Result[*contract.Contract] {
	if len(bytes.TrimSpace(body)) == 0 {
		if allowEmpty {
			return result.From[*contract.Contract](result.StatusSuccess, nil)
		}
		return result.Fail[*contract.Contract](c.errs,
			result.NewError(component, result.StatusXMLParseError, fmt.Sprintf("empty document at %s", u)), nil)
	}
	doc, err := contract.Parse(body)
	if err != nil {
		return result.Fail[*contract.Contract](c.errs, result.Wrap(component, result.StatusXMLParseError, err), nil)
	}
	if doc.IsErr() {
		return result.Fail(c.errs, result.FromErrContract(component, doc), doc)
	}
	return result.OK(doc)
}

func (c *Client) recoverStatus(st *result.Status) {
	if p := recover(); p != nil {
		*st = c.errs.RecordErr(component, result.StatusClientException, fmt.Errorf("panic: %v", p))
	}
}

func recoverResult[T any](c *Client, res *result.Result[T]) {
	if p := recover(); p != nil {
		var zero T
		*res = result.Fail(c.errs, result.Wrap(component, result.StatusClientException, fmt.Errorf("panic: %v", p)), zero)
	}
}

func async[T any](fn func() T) <-chan T {
	ch := make(chan T, 1)
	go func() {
		ch <- fn()
		close(ch)
	}()
	return ch
}
