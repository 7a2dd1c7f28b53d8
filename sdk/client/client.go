// Package client implements an oBIX session: Lobby discovery, the About
// snapshot and single Read, Write and Invoke operations.
package client

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gaspardpetit/obix/core/logx"
	"github.com/gaspardpetit/obix/sdk/batch"
	"github.com/gaspardpetit/obix/sdk/contract"
	"github.com/gaspardpetit/obix/sdk/result"
	"github.com/gaspardpetit/obix/sdk/transport"
)

const component = "client"

// Config holds the parameters of a session.
type Config struct {
	// LobbyURL is the absolute address of the server's Lobby.
	LobbyURL string
	// Transport defaults to an HTTP transport built from HTTP.
	Transport transport.Transport
	HTTP      transport.HTTPConfig
	// Errors defaults to a new history of result.DefaultCapacity entries,
	// logging through Logger.
	Errors *result.Stack
	// SignUpPath is the href, relative to the Lobby, of an operation devices
	// use to register themselves.
	SignUpPath string
	// Logger defaults to the shared logx logger. It is handed to the batch
	// engine and to the error history the client creates.
	Logger *zerolog.Logger
}

// Client is an oBIX session. Connect must not be called concurrently.
type Client struct {
	id     string
	lobby  *url.URL
	signUp *url.URL
	errs   *result.Stack
	base   zerolog.Logger
	log    zerolog.Logger

	mu        sync.RWMutex
	tr        transport.Transport
	connected bool
	about     *About
	aboutURL  *url.URL
	watchURL  *url.URL
	batchURL  *url.URL
	engine    *batch.Engine
}

// New validates cfg and returns a disconnected client.
func New(cfg Config) (*Client, error) {
	lobby, err := url.Parse(cfg.LobbyURL)
	if err != nil {
		return nil, fmt.Errorf("lobby url: %w", err)
	}
	if lobby.Scheme != "http" && lobby.Scheme != "https" {
		return nil, fmt.Errorf("lobby url: unsupported scheme %q", lobby.Scheme)
	}
	if lobby.Host == "" {
		return nil, errors.New("lobby url: missing host")
	}
	c := &Client{
		id:    uuid.NewString(),
		lobby: lobby,
		errs:  cfg.Errors,
		tr:    cfg.Transport,
	}
	if c.errs == nil {
		c.errs = result.NewStack(0)
		if cfg.Logger != nil {
			c.errs.SetLogger(*cfg.Logger)
		}
	}
	if c.tr == nil {
		c.tr = transport.NewHTTP(cfg.HTTP)
	}
	if cfg.SignUpPath != "" {
		if c.signUp, err = contract.Resolve(lobby, cfg.SignUpPath); err != nil {
			return nil, fmt.Errorf("sign-up path: %w", err)
		}
	}
	base := logx.Log
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	c.base = base.With().Str("session", c.id).Logger()
	c.log = c.base.With().Str("component", component).Logger()
	return c, nil
}

// Errors returns the session's error history.
func (c *Client) Errors() *result.Stack { return c.errs }

// LobbyURL returns the configured Lobby address.
func (c *Client) LobbyURL() *url.URL { return c.lobby }

// SignUpURL returns the sign-up operation address, or nil.
func (c *Client) SignUpURL() *url.URL { return c.signUp }

func (c *Client) AboutURL() *url.URL {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aboutURL
}

func (c *Client) WatchURL() *url.URL {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.watchURL
}

func (c *Client) BatchURL() *url.URL {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.batchURL
}

// About returns the snapshot taken at connect time, or nil.
func (c *Client) About() *About {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.about
}

// Connected reports whether Connect succeeded and Close was not called.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Batch returns the engine bound to the discovered batch operation.
func (c *Client) Batch() result.Result[*batch.Engine] {
	c.mu.RLock()
	connected, engine := c.connected, c.engine
	c.mu.RUnlock()
	if !connected {
		return result.Fail[*batch.Engine](c.errs, result.NewError(component, result.StatusNotConnected, ""), nil)
	}
	if engine == nil {
		return result.Fail[*batch.Engine](c.errs,
			result.NewError(component, result.StatusBatchUnsupported, "the lobby does not expose an obix:BatchIn operation"), nil)
	}
	return result.OK(engine)
}

// URL resolves href against the Lobby address.
func (c *Client) URL(href string) (*url.URL, error) {
	return contract.Resolve(c.lobby, href)
}

// Close drops the transport and every discovered address. The client cannot
// be reconnected afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	tr := c.tr
	c.tr = nil
	c.connected = false
	c.about = nil
	c.aboutURL, c.watchURL, c.batchURL = nil, nil, nil
	c.engine = nil
	c.mu.Unlock()

	if ic, ok := tr.(interface{ CloseIdleConnections() }); ok {
		ic.CloseIdleConnections()
	}
	c.log.Debug().Msg("session closed")
}

func (c *Client) currentTransport() transport.Transport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tr
}
