package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/gaspardpetit/obix/sdk/batch"
	"github.com/gaspardpetit/obix/sdk/client"
	"github.com/gaspardpetit/obix/sdk/contract"
	"github.com/gaspardpetit/obix/sdk/result"
)

const component = "obixctl"

var (
	okColor    = color.New(color.FgGreen).SprintFunc()
	failColor  = color.New(color.FgRed, color.Bold).SprintFunc()
	entryColor = color.New(color.FgYellow).SprintFunc()
	hrefColor  = color.New(color.FgCyan).SprintFunc()
)

type app struct {
	client *client.Client
	out    io.Writer
	errOut io.Writer
}

// dispatch runs one command. The second result is false for an unknown
// command.
func (a *app) dispatch(ctx context.Context, cmd string, args []string) (result.Status, bool) {
	switch cmd {
	case "lobby":
		return a.printResult(a.client.ReadURI(ctx, a.client.LobbyURL())), true
	case "about":
		return a.about(ctx), true
	case "read":
		if len(args) != 1 {
			return a.usage("read <href>"), true
		}
		return a.read(ctx, args[0]), true
	case "write":
		if len(args) != 3 {
			return a.usage("write <href> <kind> <value>"), true
		}
		return a.write(ctx, args[0], args[1], args[2]), true
	case "invoke":
		if len(args) < 1 || len(args) > 2 {
			return a.usage("invoke <href> [xml]"), true
		}
		return a.invoke(ctx, args[0], args[1:]), true
	case "batch":
		if len(args) == 0 {
			return a.usage("batch <op:href[=xml]>..."), true
		}
		return a.batch(ctx, args), true
	case "signup":
		if len(args) != 1 {
			return a.usage("signup <xml>"), true
		}
		return a.signUp(ctx, args[0]), true
	case "errors":
		_ = a.client.Connect(ctx)
		a.printErrors(a.out)
		return result.StatusSuccess, true
	}
	return result.StatusInputError, false
}

func (a *app) usage(text string) result.Status {
	return a.client.Errors().Record(component, result.StatusInputError, "usage: obixctl "+text)
}

func (a *app) about(ctx context.Context) result.Status {
	if st := a.client.Connect(ctx); !st.OK() {
		return st
	}
	ab := a.client.About()
	if ab == nil {
		return a.client.Errors().Record(component, result.StatusElementNotFound, "the lobby does not advertise obix:About")
	}
	_, _ = fmt.Fprintln(a.out, ab.String())
	_, _ = fmt.Fprintf(a.out, "server time %s, booted %s, product version %s\n", ab.ServerTime, ab.ServerBootTime, ab.ProductVersion)
	return result.StatusSuccess
}

func (a *app) read(ctx context.Context, href string) result.Status {
	u, err := a.client.URL(href)
	if err != nil {
		return a.client.Errors().RecordErr(component, result.StatusInputError, err)
	}
	return a.printResult(a.client.ReadURI(ctx, u))
}

func (a *app) write(ctx context.Context, href, kind, value string) result.Status {
	u, err := a.client.URL(href)
	if err != nil {
		return a.client.Errors().RecordErr(component, result.StatusInputError, err)
	}
	payload, err := parsePayload(kind, value)
	if err != nil {
		return a.client.Errors().RecordErr(component, result.StatusInputError, err)
	}
	if st := a.client.Connect(ctx); !st.OK() {
		return st
	}
	return a.printResult(a.client.WriteURI(ctx, u, payload))
}

func (a *app) invoke(ctx context.Context, href string, arg []string) result.Status {
	u, err := a.client.URL(href)
	if err != nil {
		return a.client.Errors().RecordErr(component, result.StatusInputError, err)
	}
	var payload *contract.Contract
	if len(arg) == 1 {
		if payload, err = contract.Parse([]byte(arg[0])); err != nil {
			return a.client.Errors().RecordErr(component, result.StatusInputError, err)
		}
	}
	if st := a.client.Connect(ctx); !st.OK() {
		return st
	}
	return a.printResult(a.client.InvokeURI(ctx, u, payload))
}

func (a *app) signUp(ctx context.Context, doc string) result.Status {
	device, err := contract.Parse([]byte(doc))
	if err != nil {
		return a.client.Errors().RecordErr(component, result.StatusInputError, err)
	}
	if st := a.client.Connect(ctx); !st.OK() {
		return st
	}
	return a.printResult(a.client.SignUp(ctx, device))
}

func (a *app) batch(ctx context.Context, specs []string) result.Status {
	items := make([]batchItem, 0, len(specs))
	for _, s := range specs {
		it, err := parseBatchItem(s)
		if err != nil {
			return a.client.Errors().RecordErr(component, result.StatusInputError, err)
		}
		items = append(items, it)
	}
	if st := a.client.Connect(ctx); !st.OK() {
		return st
	}
	eng := a.client.Batch()
	if !eng.Succeeded() {
		return eng.Status
	}
	b := eng.Value.NewBatch()
	for _, it := range items {
		b.Add(it.op, it.href, it.payload)
	}
	if st := eng.Value.Submit(ctx, b); !st.OK() {
		return st
	}
	for i, it := range b.Items() {
		st := it.Status()
		label := okColor(st.Name())
		if !st.OK() {
			label = failColor(st.Name())
		}
		_, _ = fmt.Fprintf(a.out, "[%d] %s %s: %s\n", i, it.Op(), hrefColor(it.URI()), label)
		_, _ = fmt.Fprintln(a.out, it.Response().String())
	}
	return result.StatusSuccess
}

type batchItem struct {
	op      batch.Op
	href    string
	payload *contract.Contract
}

// parseBatchItem reads "op:href" with an optional "=xml" argument.
func parseBatchItem(s string) (batchItem, error) {
	opText, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return batchItem{}, fmt.Errorf("batch item %q: expected op:href", s)
	}
	op, ok := batch.ParseOp(opText)
	if !ok {
		return batchItem{}, fmt.Errorf("batch item %q: unknown operation %q", s, opText)
	}
	href, doc, hasArg := strings.Cut(rest, "=")
	it := batchItem{op: op, href: href}
	if hasArg {
		c, err := contract.Parse([]byte(doc))
		if err != nil {
			return batchItem{}, fmt.Errorf("batch item %q: %w", s, err)
		}
		it.payload = c
	}
	if op == batch.OpWrite && it.payload == nil {
		return batchItem{}, fmt.Errorf("batch item %q: write needs =<xml>", s)
	}
	return it, nil
}

// parsePayload builds the contract to write. The xml kind takes a whole
// document, other kinds a scalar value.
func parsePayload(kind, value string) (*contract.Contract, error) {
	if strings.EqualFold(kind, "xml") {
		return contract.Parse([]byte(value))
	}
	return contract.ParseValue(kind, value)
}

func (a *app) printResult(r result.Result[*contract.Contract]) result.Status {
	if !r.OK() {
		return r.Status
	}
	if r.Value == nil {
		_, _ = fmt.Fprintln(a.out, okColor("ok")+" (empty response)")
		return r.Status
	}
	_, _ = fmt.Fprintln(a.out, r.Value.String())
	return r.Status
}

func (a *app) printFailure(st result.Status) {
	_, _ = fmt.Fprintf(a.errOut, "%s %s (%d): %s\n", failColor("failed"), st.Name(), st.Code(), st.Message())
	a.printErrors(a.errOut)
}

// printErrors writes the error history, newest first.
func (a *app) printErrors(w io.Writer) {
	entries := a.client.Errors().Entries()
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, okColor("no errors recorded"))
		return
	}
	for _, e := range entries {
		_, _ = fmt.Fprintln(w, entryColor(e.String()))
	}
}
