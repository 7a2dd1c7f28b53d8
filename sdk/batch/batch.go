// Package batch aggregates Read, Write and Invoke operations into a single
// obix:BatchIn request and correlates the obix:BatchOut response back onto
// the items by position.
package batch

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gaspardpetit/obix/sdk/contract"
	"github.com/gaspardpetit/obix/sdk/result"
)

const component = "batch"

// Op is the operation a batch item performs.
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpInvoke
)

// String returns the oBIX marker of the operation.
func (o Op) String() string {
	switch o {
	case OpRead:
		return contract.Read
	case OpWrite:
		return contract.Write
	case OpInvoke:
		return contract.Invoke
	default:
		return "(unknown)"
	}
}

// ParseOp accepts "read", "write", "invoke" or their obix: markers in any case.
func ParseOp(s string) (Op, bool) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "obix:") {
	case "read":
		return OpRead, true
	case "write":
		return OpWrite, true
	case "invoke":
		return OpInvoke, true
	}
	return 0, false
}

// Item is one operation of a batch. Its response is set by Engine.Submit.
type Item struct {
	op      Op
	uri     string
	request *contract.Contract

	mu       sync.Mutex
	response *contract.Contract
}

func (it *Item) Op() Op                      { return it.op }
func (it *Item) URI() string                 { return it.uri }
func (it *Item) Request() *contract.Contract { return it.request }

// Response returns the contract correlated to this item, or nil before a
// successful submission.
func (it *Item) Response() *contract.Contract {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.response
}

// Status summarizes the response: success for a regular contract, the
// mapped server status for an err contract and StatusUnknownError when no
// response has been correlated.
func (it *Item) Status() result.Status {
	r := it.Response()
	switch {
	case r == nil:
		return result.StatusUnknownError
	case r.IsErr():
		return result.StatusForErrContract(r)
	default:
		return result.StatusSuccess
	}
}

func (it *Item) setResponse(c *contract.Contract) {
	it.mu.Lock()
	it.response = c
	it.mu.Unlock()
}

func (it *Item) String() string {
	return fmt.Sprintf("%s of href %s", it.op, it.uri)
}

// Batch is an ordered list of items. It is safe for concurrent Add calls.
type Batch struct {
	mu    sync.Mutex
	id    string
	items []*Item
	errs  *result.Stack
}

// New returns an empty batch that does not record errors. Use
// Engine.NewBatch to get one bound to a session's error history.
func New() *Batch {
	return &Batch{id: uuid.NewString()}
}

// ID identifies the batch in logs.
func (b *Batch) ID() string { return b.id }

// Add appends an operation. payload may be nil.
func (b *Batch) Add(op Op, uri string, payload *contract.Contract) *Item {
	it := &Item{op: op, uri: uri, request: payload}
	b.mu.Lock()
	b.items = append(b.items, it)
	b.mu.Unlock()
	return it
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Item returns the i-th item or nil when i is out of range.
func (b *Batch) Item(i int) *Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.items) {
		return nil
	}
	return b.items[i]
}

// Items returns a copy of the item list.
func (b *Batch) Items() []*Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Item, len(b.items))
	copy(out, b.items)
	return out
}

// ToAggregateContract builds the obix:BatchIn list for the current items.
// Payloads are copied so the caller's contracts keep their parents.
func (b *Batch) ToAggregateContract() result.Result[*contract.Contract] {
	_, agg, err := b.snapshot()
	if err != nil {
		if b.errs != nil {
			return result.Fail[*contract.Contract](b.errs, result.Wrap(component, result.StatusClientException, err), nil)
		}
		return result.From[*contract.Contract](result.StatusClientException, nil)
	}
	return result.OK(agg)
}

// snapshot copies the item list and builds the aggregate contract under one
// lock so that concurrent Add calls land either fully before or fully after.
func (b *Batch) snapshot() ([]*Item, *contract.Contract, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]*Item, len(b.items))
	copy(items, b.items)
	agg, err := aggregate(items)
	if err != nil {
		return nil, nil, err
	}
	return items, agg, nil
}

func aggregate(items []*Item) (list *contract.Contract, err error) {
	defer func() {
		if p := recover(); p != nil {
			list, err = nil, fmt.Errorf("build batch contract: %v", p)
		}
	}()
	list = contract.List(contract.BatchIn)
	for i, it := range items {
		if it.op < OpRead || it.op > OpInvoke {
			return nil, fmt.Errorf("item %d: unknown operation %d", i, int(it.op))
		}
		u := contract.New(contract.TagURI).
			SetAttr("is", it.op.String()).
			SetAttr("val", it.uri)
		if it.request != nil {
			u.Add(it.request.Clone())
		}
		list.Add(u)
	}
	return list, nil
}
