package batch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/gaspardpetit/obix/core/logx"
	"github.com/gaspardpetit/obix/sdk/contract"
	"github.com/gaspardpetit/obix/sdk/metrics"
	"github.com/gaspardpetit/obix/sdk/result"
)

// Invoker sends a single oBIX invoke. *client.Client satisfies it.
type Invoker interface {
	InvokeURI(ctx context.Context, u *url.URL, payload *contract.Contract) result.Result[*contract.Contract]
}

// Engine submits batches to a server's batch operation.
type Engine struct {
	inv  Invoker
	uri  *url.URL
	errs *result.Stack
	log  zerolog.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLogger makes the engine log through l instead of the shared logger.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l.With().Str("component", component).Logger()
	}
}

// NewEngine binds an engine to the batch operation at uri. A nil errs gets a
// fresh history.
func NewEngine(inv Invoker, uri *url.URL, errs *result.Stack, opts ...EngineOption) *Engine {
	if errs == nil {
		errs = result.NewStack(0)
	}
	e := &Engine{inv: inv, uri: uri, errs: errs, log: logx.Component(component)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// URI returns the batch operation address.
func (e *Engine) URI() *url.URL { return e.uri }

// NewBatch returns an empty batch recording errors in the engine's history.
func (e *Engine) NewBatch() *Batch {
	b := New()
	b.errs = e.errs
	return b
}

// Submit sends every item of b in one invoke and assigns the responses by
// position. On any failure no item receives a response.
func (e *Engine) Submit(ctx context.Context, b *Batch) (status result.Status) {
	defer func() {
		if p := recover(); p != nil {
			status = e.errs.RecordErr(component, result.StatusClientException, fmt.Errorf("panic: %v", p))
		}
	}()
	if b == nil {
		return e.errs.Record(component, result.StatusInputError, "nil batch")
	}
	if e.inv == nil || e.uri == nil {
		return e.errs.Record(component, result.StatusBatchUnsupported, "no batch operation bound")
	}

	items, agg, err := b.snapshot()
	if err != nil {
		return e.errs.RecordErr(component, result.StatusClientException, err)
	}
	for _, it := range items {
		it.setResponse(nil)
	}

	log := e.log.With().Str("batch", b.ID()).Int("items", len(items)).Logger()
	log.Debug().Str("uri", e.uri.String()).Msg("submitting batch")

	res := e.inv.InvokeURI(ctx, e.uri, agg)
	if !res.OK() {
		metrics.RecordBatch(len(items), false)
		log.Debug().Str("status", res.Status.Name()).Msg("batch invoke failed")
		return res.Status
	}

	out := res.Value
	if out == nil || !out.Implements(contract.BatchOut) {
		metrics.RecordBatch(len(items), false)
		return e.errs.Record(component, result.StatusServerError,
			"the response to the batch operation was not an obix:BatchOut contract")
	}
	if len(out.Children) != len(items) {
		metrics.RecordBatch(len(items), false)
		return e.errs.Record(component, result.StatusXMLParseError,
			fmt.Sprintf("obix:BatchOut holds %d responses for %d requests", len(out.Children), len(items)))
	}

	for i, it := range items {
		it.setResponse(out.Children[i])
		metrics.RecordBatchItem(it.op.String())
	}
	metrics.RecordBatch(len(items), true)
	log.Debug().Msg("batch correlated")
	return result.StatusSuccess
}

// SubmitAsync runs Submit on its own goroutine. The channel receives exactly
// one status.
func (e *Engine) SubmitAsync(ctx context.Context, b *Batch) <-chan result.Status {
	ch := make(chan result.Status, 1)
	go func() {
		ch <- e.Submit(ctx, b)
		close(ch)
	}()
	return ch
}
