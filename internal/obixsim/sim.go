// Package obixsim is a small oBIX server. It publishes a Lobby with About,
// Watch, batch and sign-up entries and serves points from a Store.
package obixsim

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/gaspardpetit/obix/core/logx"
	"github.com/gaspardpetit/obix/sdk/contract"
	"github.com/gaspardpetit/obix/sdk/metrics"
)

const (
	opRead   = "read"
	opWrite  = "write"
	opInvoke = "invoke"
)

// Options configures a simulator.
type Options struct {
	// Prefix is the path of the Lobby, "/obix" by default.
	Prefix         string
	AllowedOrigins []string
	DisableAbout   bool
	DisableWatch   bool
	DisableBatch   bool
	Store          Store
	ServerName     string
	VendorName     string
	VendorURL      string
	ProductVersion string
	// Registry, when set, is exposed on /metrics.
	Registry *prometheus.Registry
}

// Server answers oBIX requests.
type Server struct {
	opts    Options
	store   Store
	started time.Time
	log     zerolog.Logger
}

// New returns a simulator with defaults applied to opts.
func New(opts Options) *Server {
	opts.Prefix = "/" + strings.Trim(opts.Prefix, "/")
	if opts.Prefix == "/" {
		opts.Prefix = "/obix"
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.ServerName == "" {
		opts.ServerName = "obix-sim"
	}
	if opts.VendorName == "" {
		opts.VendorName = "obix"
	}
	if opts.VendorURL == "" {
		opts.VendorURL = "https://github.com/gaspardpetit/obix"
	}
	if opts.ProductVersion == "" {
		opts.ProductVersion = "dev"
	}
	return &Server{opts: opts, store: opts.Store, started: time.Now(), log: logx.Component("obixsim")}
}

// Prefix returns the Lobby path.
func (s *Server) Prefix() string { return s.opts.Prefix }

// Handler constructs the HTTP handler for the simulator.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "PUT", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeContract(w, errContract(contract.BadURIErr, r.URL.Path, "Bad URI", "no object at "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeContract(w, errContract(contract.UnsupportedErr, r.URL.Path, "Unsupported", r.Method+" is not supported"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route(s.opts.Prefix, func(or chi.Router) {
		or.Get("/*", s.handle(opRead))
		or.Put("/*", s.handle(opWrite))
		or.Post("/*", s.handle(opInvoke))
	})
	if s.opts.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handle(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimLeft(strings.TrimPrefix(r.URL.Path, s.opts.Prefix), "/")
		var in *contract.Contract
		if op != opRead {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if len(strings.TrimSpace(string(body))) > 0 {
				if in, err = contract.Parse(body); err != nil {
					writeContract(w, errContract("", r.URL.Path, "Malformed request", err.Error()))
					metrics.RecordServed(op, false)
					return
				}
			}
		}
		out := s.dispatch(r.Context(), op, path, in)
		metrics.RecordServed(op, !out.IsErr())
		s.log.Debug().Str("op", op).Str("path", path).Bool("err", out.IsErr()).Msg("served")
		writeContract(w, out)
	}
}

// dispatch runs one operation against a path relative to the Lobby. A nil
// return means the operation succeeded without a result.
func (s *Server) dispatch(ctx context.Context, op, path string, in *contract.Contract) *contract.Contract {
	switch op {
	case opRead:
		return s.read(ctx, path)
	case opWrite:
		return s.write(ctx, path, in)
	default:
		return s.invoke(ctx, path, in)
	}
}

func (s *Server) href(path string) string {
	return s.opts.Prefix + "/" + path
}

func (s *Server) read(ctx context.Context, path string) *contract.Contract {
	switch {
	case path == "":
		return s.lobby()
	case path == "about/" && !s.opts.DisableAbout:
		return s.about()
	case path == "watchService/" && !s.opts.DisableWatch:
		return contract.Obj(contract.WatchService).Named("", s.href(path)).Add(
			contract.New(contract.TagOp).Named("make", "make/").SetAttr("out", "obix:Watch"),
		)
	case path == "points/":
		return s.pointList(ctx)
	case strings.HasPrefix(path, "points/"):
		c, _, errC := s.point(ctx, strings.TrimPrefix(path, "points/"))
		if errC != nil {
			return errC
		}
		return c
	}
	return s.badURI(path)
}

func (s *Server) write(ctx context.Context, path string, in *contract.Contract) *contract.Contract {
	if !strings.HasPrefix(path, "points/") || path == "points/" {
		if s.read(ctx, path).IsErr() {
			return s.badURI(path)
		}
		return errContract(contract.PermissionErr, s.href(path), "Read only", path+" is not writable")
	}
	if in == nil {
		return errContract("", s.href(path), "Missing value", "write requires a contract")
	}
	rel := strings.TrimPrefix(path, "points/")
	cur, rec, errC := s.point(ctx, rel)
	if errC != nil {
		return errC
	}
	if !rec.Writable {
		return errContract(contract.PermissionErr, s.href(path), "Read only", path+" is not writable")
	}
	if in.Tag != cur.Tag {
		return errContract("", s.href(path), "Type mismatch", "cannot write "+in.Tag+" to "+cur.Tag)
	}
	if v, ok := in.Attr("val"); ok {
		cur.SetAttr("val", v)
		cur.RemoveAttr("null")
	}
	if len(in.Children) > 0 {
		cur.Children = nil
		for _, ch := range in.Children {
			cur.Add(ch.Clone())
		}
	}
	cur.RemoveAttr("href")
	cur.RemoveAttr("writable")
	rec.XML = cur.String()
	if err := s.store.Put(ctx, rec); err != nil {
		return errContract("", s.href(path), "Store failure", err.Error())
	}
	out, _, errC := s.point(ctx, rel)
	if errC != nil {
		return errC
	}
	return out
}

func (s *Server) invoke(ctx context.Context, path string, in *contract.Contract) *contract.Contract {
	switch {
	case path == "batch/" && !s.opts.DisableBatch:
		return s.batch(ctx, in)
	case path == "signUp/":
		return s.signUp(ctx, in)
	case strings.HasPrefix(path, "points/") && path != "points/":
		cur, _, errC := s.point(ctx, strings.TrimPrefix(path, "points/"))
		if errC != nil {
			return errC
		}
		if cur.Tag != contract.TagOp {
			return errContract(contract.UnsupportedErr, s.href(path), "Unsupported", path+" is not an operation")
		}
		if in == nil {
			return nil
		}
		return in.Clone()
	}
	if s.read(ctx, path).IsErr() {
		return s.badURI(path)
	}
	return errContract(contract.UnsupportedErr, s.href(path), "Unsupported", path+" is not an operation")
}

func (s *Server) badURI(path string) *contract.Contract {
	return errContract(contract.BadURIErr, s.href(path), "Bad URI", "no object at "+s.href(path))
}

func errContract(is, href, displayName, display string) *contract.Contract {
	c := contract.New(contract.TagErr)
	if is != "" {
		c.SetAttr("is", is)
	}
	return c.SetAttr("href", href).SetAttr("displayName", displayName).SetAttr("display", display)
}

func writeContract(w http.ResponseWriter, c *contract.Contract) {
	if c == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n")
	_ = contract.Encode(w, c)
}

func (s *Server) lobby() *contract.Contract {
	l := contract.Obj(contract.Lobby).Named("", s.opts.Prefix+"/").
		SetAttr("xmlns", "http://obix.org/ns/schema/1.0")
	if !s.opts.DisableAbout {
		l.Add(contract.New(contract.TagRef).Named("about", "about/").SetAttr("is", contract.About))
	}
	if !s.opts.DisableBatch {
		l.Add(contract.New(contract.TagOp).Named("batch", "batch/").
			SetAttr("in", contract.BatchIn).SetAttr("out", contract.BatchOut))
	}
	if !s.opts.DisableWatch {
		l.Add(contract.New(contract.TagRef).Named("watchService", "watchService/").SetAttr("is", contract.WatchService))
	}
	l.Add(contract.New(contract.TagOp).Named("signUp", "signUp/").SetAttr("in", "obix:obj").SetAttr("out", "obix:obj"))
	l.Add(contract.New(contract.TagRef).Named("points", "points/").SetAttr("is", "obix:list"))
	return l
}

func (s *Server) about() *contract.Contract {
	boot := s.started
	if secs, err := host.BootTime(); err == nil {
		boot = time.Unix(int64(secs), 0)
	}
	return contract.Obj(contract.About).Named("", s.href("about/")).Add(
		contract.Str("1.0").Named("obixVersion", ""),
		contract.Str(s.opts.ServerName).Named("serverName", ""),
		contract.Abstime(time.Now()).Named("serverTime", ""),
		contract.Abstime(boot).Named("serverBootTime", ""),
		contract.Str(s.opts.VendorName).Named("vendorName", ""),
		contract.URI(s.opts.VendorURL).Named("vendorUrl", ""),
		contract.Str("obix-sim").Named("productName", ""),
		contract.Str(s.opts.ProductVersion).Named("productVersion", ""),
		contract.URI(s.opts.VendorURL).Named("productUrl", ""),
	)
}

func (s *Server) pointList(ctx context.Context) *contract.Contract {
	paths, err := s.store.List(ctx)
	if err != nil {
		return errContract("", s.href("points/"), "Store failure", err.Error())
	}
	l := contract.List("").Named("points", s.href("points/")).SetAttr("of", "obix:ref")
	for _, p := range paths {
		l.Add(contract.New(contract.TagRef).Named("", s.href("points/"+p)))
	}
	return l
}

// point loads a stored point and decorates it with its href. When the
// point cannot be served the third result is the err contract to return.
func (s *Server) point(ctx context.Context, rel string) (*contract.Contract, Record, *contract.Contract) {
	rel = normalizePath(rel)
	href := s.href("points/" + rel)
	rec, ok, err := s.store.Get(ctx, rel)
	if err != nil {
		return nil, rec, errContract("", href, "Store failure", err.Error())
	}
	if !ok {
		return nil, rec, errContract(contract.BadURIErr, href, "Bad URI", "no object at "+href)
	}
	c, err := contract.Parse([]byte(rec.XML))
	if err != nil {
		return nil, rec, errContract("", href, "Corrupt point", err.Error())
	}
	c.SetAttr("href", href)
	if rec.Writable {
		c.SetAttr("writable", "true")
	}
	return c, rec, nil
}
