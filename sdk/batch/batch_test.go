package batch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"

	"github.com/gaspardpetit/obix/sdk/contract"
	"github.com/gaspardpetit/obix/sdk/result"
)

type invokerFunc func(ctx context.Context, u *url.URL, payload *contract.Contract) result.Result[*contract.Contract]

func (f invokerFunc) InvokeURI(ctx context.Context, u *url.URL, payload *contract.Contract) result.Result[*contract.Contract] {
	return f(ctx, u, payload)
}

// echo answers each batch item with an int carrying its index.
func echo(extra int) invokerFunc {
	return func(_ context.Context, _ *url.URL, in *contract.Contract) result.Result[*contract.Contract] {
		out := contract.List(contract.BatchOut)
		for i := 0; i < len(in.Children)+extra; i++ {
			out.Add(contract.Int(int64(i)).Named("", fmt.Sprintf("item%d", i)))
		}
		return result.OK(out)
	}
}

var batchURI, _ = url.Parse("http://h/obix/batch/")

func TestToAggregateContract(t *testing.T) {
	b := New()
	payload := contract.Real(21.5)
	parent := contract.Obj("").Add(payload)
	b.Add(OpRead, "/obix/a/", nil)
	b.Add(OpWrite, "/obix/b/", payload)
	b.Add(OpInvoke, "http://other/op/", nil)

	r := b.ToAggregateContract()
	if !r.Succeeded() {
		t.Fatalf("ToAggregateContract status = %s", r.Status.Name())
	}
	want := contract.List(contract.BatchIn).Add(
		contract.New("uri").SetAttr("is", contract.Read).SetAttr("val", "/obix/a/"),
		contract.New("uri").SetAttr("is", contract.Write).SetAttr("val", "/obix/b/").Add(contract.Real(21.5)),
		contract.New("uri").SetAttr("is", contract.Invoke).SetAttr("val", "http://other/op/"),
	)
	if diff := cmp.Diff(want, r.Value, cmpopts.IgnoreUnexported(contract.Contract{})); diff != "" {
		t.Fatalf("aggregate mismatch (-want +got):\n%s", diff)
	}
	if payload.Parent() != parent {
		t.Fatalf("payload should stay attached to its own parent")
	}
}

func TestToAggregateContractRejectsUnknownOp(t *testing.T) {
	e := NewEngine(echo(0), batchURI, result.NewStack(0))
	b := e.NewBatch()
	b.Add(Op(9), "/x/", nil)
	r := b.ToAggregateContract()
	if r.Status != result.StatusClientException || r.Value != nil {
		t.Fatalf("expected client exception without contract, got %s", r.Status.Name())
	}
	if e.errs.Len() != 1 {
		t.Fatalf("failure should be recorded")
	}
	if st := e.Submit(context.Background(), b); st != result.StatusClientException {
		t.Fatalf("Submit = %s; want ClientException", st.Name())
	}
}

func TestSubmitCorrelatesByPosition(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		e := NewEngine(echo(0), batchURI, nil)
		b := e.NewBatch()
		for i := 0; i < n; i++ {
			b.Add(OpRead, fmt.Sprintf("/p%d/", i), nil)
		}
		if st := e.Submit(context.Background(), b); st != result.StatusSuccess {
			t.Fatalf("n=%d: Submit = %s", n, st.Name())
		}
		for i, it := range b.Items() {
			v, ok := it.Response().IntValue()
			if !ok || v != int64(i) {
				t.Fatalf("n=%d: item %d response = %v", n, i, it.Response())
			}
			if it.Status() != result.StatusSuccess {
				t.Fatalf("item status = %s", it.Status().Name())
			}
		}
	}
}

func TestSubmitCountMismatch(t *testing.T) {
	for _, extra := range []int{-1, 1} {
		e := NewEngine(echo(extra), batchURI, nil)
		b := e.NewBatch()
		b.Add(OpRead, "/a/", nil)
		b.Add(OpRead, "/b/", nil)
		if st := e.Submit(context.Background(), b); st != result.StatusXMLParseError {
			t.Fatalf("extra=%d: Submit = %s; want XMLParseError", extra, st.Name())
		}
		for i, it := range b.Items() {
			if it.Response() != nil {
				t.Fatalf("extra=%d: item %d should not be correlated", extra, i)
			}
		}
	}
}

func TestSubmitRejectsNonBatchOut(t *testing.T) {
	inv := invokerFunc(func(context.Context, *url.URL, *contract.Contract) result.Result[*contract.Contract] {
		return result.OK(contract.List("obix:Something"))
	})
	e := NewEngine(inv, batchURI, nil)
	b := e.NewBatch()
	if st := e.Submit(context.Background(), b); st != result.StatusServerError {
		t.Fatalf("Submit = %s; want ServerError", st.Name())
	}
}

func TestSubmitTransportFailureClearsResponses(t *testing.T) {
	fail := false
	inv := invokerFunc(func(ctx context.Context, u *url.URL, in *contract.Contract) result.Result[*contract.Contract] {
		if fail {
			return result.From[*contract.Contract](result.StatusSocketError, nil)
		}
		return echo(0)(ctx, u, in)
	})
	e := NewEngine(inv, batchURI, nil)
	b := e.NewBatch()
	it := b.Add(OpRead, "/a/", nil)
	if st := e.Submit(context.Background(), b); st != result.StatusSuccess {
		t.Fatalf("first Submit = %s", st.Name())
	}
	fail = true
	if st := e.Submit(context.Background(), b); st != result.StatusSocketError {
		t.Fatalf("second Submit = %s; want SocketError", st.Name())
	}
	if it.Response() != nil || it.Status() != result.StatusUnknownError {
		t.Fatalf("failed submission must leave items without response")
	}
}

func TestSubmitRecoversPanic(t *testing.T) {
	inv := invokerFunc(func(context.Context, *url.URL, *contract.Contract) result.Result[*contract.Contract] {
		panic("boom")
	})
	stack := result.NewStack(0)
	e := NewEngine(inv, batchURI, stack)
	if st := e.Submit(context.Background(), e.NewBatch()); st != result.StatusClientException {
		t.Fatalf("Submit = %s; want ClientException", st.Name())
	}
	if stack.Peek() == nil || stack.Peek().Cause == nil {
		t.Fatalf("panic should be recorded with a cause")
	}
}

func TestSubmitPreconditions(t *testing.T) {
	e := NewEngine(echo(0), batchURI, nil)
	if st := e.Submit(context.Background(), nil); st != result.StatusInputError {
		t.Fatalf("nil batch = %s", st.Name())
	}
	unbound := NewEngine(nil, nil, nil)
	if st := unbound.Submit(context.Background(), New()); st != result.StatusBatchUnsupported {
		t.Fatalf("unbound engine = %s", st.Name())
	}
}

func TestSubmitAsync(t *testing.T) {
	e := NewEngine(echo(0), batchURI, nil)
	b := e.NewBatch()
	b.Add(OpInvoke, "/op/", contract.Obj(""))
	if st := <-e.SubmitAsync(context.Background(), b); st != result.StatusSuccess {
		t.Fatalf("SubmitAsync = %s", st.Name())
	}
	if b.Item(0).Response() == nil {
		t.Fatalf("async submission should correlate")
	}
}

func TestItemErrStatus(t *testing.T) {
	inv := invokerFunc(func(context.Context, *url.URL, *contract.Contract) result.Result[*contract.Contract] {
		out := contract.List(contract.BatchOut).Add(
			contract.New(contract.TagErr).SetAttr("is", contract.BadURIErr),
		)
		return result.OK(out)
	})
	e := NewEngine(inv, batchURI, nil)
	b := e.NewBatch()
	it := b.Add(OpRead, "/missing/", nil)
	if st := e.Submit(context.Background(), b); st != result.StatusSuccess {
		t.Fatalf("Submit = %s", st.Name())
	}
	if it.Status() != result.StatusServerUnknownURI {
		t.Fatalf("item status = %s; want ServerUnknownURI", it.Status().Name())
	}
}

func TestConcurrentAdd(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				b.Add(OpRead, fmt.Sprintf("/%d/%d/", i, j), nil)
			}
		}(i)
	}
	wg.Wait()
	if b.Len() != 200 {
		t.Fatalf("len = %d; want 200", b.Len())
	}
	if b.Item(200) != nil || b.Item(-1) != nil {
		t.Fatalf("out of range items should be nil")
	}
	r := b.ToAggregateContract()
	if len(r.Value.Children) != 200 {
		t.Fatalf("aggregate children = %d", len(r.Value.Children))
	}
}

func TestOpStrings(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Op
	}{{"read", OpRead}, {"obix:Write", OpWrite}, {"INVOKE", OpInvoke}} {
		got, ok := ParseOp(tt.in)
		if !ok || got != tt.want {
			t.Fatalf("ParseOp(%q) = %v %v", tt.in, got, ok)
		}
	}
	if _, ok := ParseOp("delete"); ok {
		t.Fatalf("delete should not parse")
	}
	it := &Item{op: OpWrite, uri: "/x/"}
	if it.String() != "obix:Write of href /x/" {
		t.Fatalf("String() = %q", it.String())
	}
}

func TestEngineWithLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	e := NewEngine(echo(0), batchURI, nil, WithLogger(zerolog.New(&buf).With().Str("session", "s1").Logger()))
	b := e.NewBatch()
	b.Add(OpRead, "/obix/a/", nil)
	if st := e.Submit(context.Background(), b); st != result.StatusSuccess {
		t.Fatalf("Submit = %s", st.Name())
	}
	out := buf.String()
	for _, want := range []string{`"component":"batch"`, `"session":"s1"`, `"message":"batch correlated"`, batchURI.String()} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %s missing %s", out, want)
		}
	}
}
