package obixsim

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/gaspardpetit/obix/sdk/contract"
	"github.com/gaspardpetit/obix/sdk/metrics"
)

// batch executes an obix:BatchIn list and answers one element per item.
func (s *Server) batch(ctx context.Context, in *contract.Contract) *contract.Contract {
	href := s.href("batch/")
	if in == nil || in.Tag != contract.TagList || !in.Implements(contract.BatchIn) {
		return errContract(contract.UnsupportedErr, href, "Unsupported", "batch expects an obix:BatchIn list")
	}
	out := contract.List(contract.BatchOut).Named("", href)
	for _, item := range in.Children {
		out.Add(s.batchItem(ctx, item))
	}
	metrics.RecordServed("batch", true)
	return out
}

func (s *Server) batchItem(ctx context.Context, item *contract.Contract) *contract.Contract {
	path, ok := s.relPath(item.Val())
	if !ok {
		return errContract(contract.BadURIErr, item.Val(), "Bad URI", "no object at "+item.Val())
	}
	if path == "batch/" {
		return errContract(contract.UnsupportedErr, item.Val(), "Unsupported", "nested batches are not supported")
	}
	var arg *contract.Contract
	if len(item.Children) > 0 {
		arg = item.Children[0]
	}
	var res *contract.Contract
	switch {
	case item.Implements(contract.Read):
		res = s.read(ctx, path)
	case item.Implements(contract.Write):
		res = s.write(ctx, path, arg)
	case item.Implements(contract.Invoke):
		res = s.invoke(ctx, path, arg)
	default:
		return errContract(contract.UnsupportedErr, item.Val(), "Unsupported", "unknown batch operation "+item.Is())
	}
	if res == nil {
		res = contract.Obj(contract.Nil).SetAttr("null", "true")
	}
	return res
}

// relPath maps an href from a batch item to a path relative to the Lobby.
// Hrefs outside the Lobby are rejected.
func (s *Server) relPath(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		return p, true
	}
	if p == s.opts.Prefix || p == s.opts.Prefix+"/" {
		return "", true
	}
	if !strings.HasPrefix(p, s.opts.Prefix+"/") {
		return "", false
	}
	return strings.TrimPrefix(p, s.opts.Prefix+"/"), true
}

// signUp stores a device contract under points/devices/ and returns it with
// its new href.
func (s *Server) signUp(ctx context.Context, in *contract.Contract) *contract.Contract {
	href := s.href("signUp/")
	if in == nil {
		return errContract("", href, "Missing device", "sign up requires a device contract")
	}
	dev := in.Clone()
	dev.RemoveAttr("href")
	rel := "devices/" + uuid.NewString() + "/"
	if err := s.store.Put(ctx, Record{Path: rel, Writable: true, XML: dev.String()}); err != nil {
		return errContract("", href, "Store failure", err.Error())
	}
	s.log.Info().Str("path", rel).Msg("device signed up")
	c, _, errC := s.point(ctx, rel)
	if errC != nil {
		return errC
	}
	return c
}
