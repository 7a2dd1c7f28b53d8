package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/gaspardpetit/obix/internal/obixsim"
	"github.com/gaspardpetit/obix/sdk/batch"
)

func startSim(t *testing.T, opts obixsim.Options) string {
	t.Helper()
	color.NoColor = true
	sim := obixsim.New(opts)
	err := sim.Seed(context.Background(), []obixsim.Seed{
		{Path: "temp", Name: "temp", Kind: "real", Value: "20", Writable: true},
		{Path: "reset", Name: "reset", Kind: "op"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	ts := httptest.NewServer(sim.Handler())
	t.Cleanup(ts.Close)
	return ts.URL + "/obix/"
}

func runCmd(t *testing.T, lobby string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	base := []string{"-config", filepath.Join(t.TempDir(), "none.yaml"), "-log-level", "none", "-lobby", lobby}
	code := run(context.Background(), append(base, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestReadWriteCommands(t *testing.T) {
	lobby := startSim(t, obixsim.Options{})

	code, out, errOut := runCmd(t, lobby, "write", "points/temp/", "real", "17.5")
	if code != 0 || !strings.Contains(out, `val="17.5"`) {
		t.Fatalf("write: code=%d out=%q err=%q", code, out, errOut)
	}
	code, out, _ = runCmd(t, lobby, "read", "points/temp/")
	if code != 0 || !strings.Contains(out, `val="17.5"`) || !strings.Contains(out, `name="temp"`) {
		t.Fatalf("read: code=%d out=%q", code, out)
	}
	code, out, _ = runCmd(t, lobby, "invoke", "points/reset/")
	if code != 0 || !strings.Contains(out, "empty response") {
		t.Fatalf("invoke: code=%d out=%q", code, out)
	}
}

func TestLobbyAndAbout(t *testing.T) {
	lobby := startSim(t, obixsim.Options{ServerName: "cli"})
	code, out, _ := runCmd(t, lobby, "lobby")
	if code != 0 || !strings.Contains(out, "obix:Lobby") {
		t.Fatalf("lobby: code=%d out=%q", code, out)
	}
	code, out, _ = runCmd(t, lobby, "about")
	if code != 0 || !strings.Contains(out, "Name=cli") {
		t.Fatalf("about: code=%d out=%q", code, out)
	}
}

func TestFailuresPrintHistory(t *testing.T) {
	lobby := startSim(t, obixsim.Options{DisableBatch: true})
	code, _, errOut := runCmd(t, lobby, "read", "points/missing/")
	if code != 1 || !strings.Contains(errOut, "failed") || !strings.Contains(errOut, "Error 8") {
		t.Fatalf("read missing: code=%d err=%q", code, errOut)
	}
	code, _, errOut = runCmd(t, lobby, "batch", "read:points/temp/")
	if code != 1 || !strings.Contains(errOut, "Error 11") {
		t.Fatalf("batch unsupported: code=%d err=%q", code, errOut)
	}
	code, _, _ = runCmd(t, lobby, "write", "points/temp/", "real", "warm")
	if code != 1 {
		t.Fatalf("bad value: code=%d", code)
	}
	if code, _, _ = runCmd(t, lobby, "frobnicate"); code != 2 {
		t.Fatalf("unknown command: code=%d", code)
	}
	if code, _, _ = runCmd(t, lobby); code != 2 {
		t.Fatalf("no command: code=%d", code)
	}
}

func TestBatchCommand(t *testing.T) {
	lobby := startSim(t, obixsim.Options{})
	code, out, errOut := runCmd(t, lobby, "batch",
		"read:points/temp/",
		`write:points/temp/=<real val="3"/>`,
		"invoke:points/reset/",
		"read:points/missing/")
	if code != 0 {
		t.Fatalf("batch: code=%d err=%q", code, errOut)
	}
	for _, want := range []string{"[0] obix:Read", `val="20"`, `val="3"`, "[2] obix:Invoke", "ServerUnknownURI"} {
		if !strings.Contains(out, want) {
			t.Fatalf("batch output missing %q:\n%s", want, out)
		}
	}
}

func TestErrorsCommand(t *testing.T) {
	lobby := startSim(t, obixsim.Options{})
	code, out, _ := runCmd(t, lobby, "errors")
	if code != 0 || !strings.Contains(out, "no errors recorded") {
		t.Fatalf("errors: code=%d out=%q", code, out)
	}
}

func TestParseBatchItem(t *testing.T) {
	it, err := parseBatchItem(`write:http://host/obix/a/=<int val="1"/>`)
	if err != nil {
		t.Fatalf("parseBatchItem: %v", err)
	}
	if it.op != batch.OpWrite || it.href != "http://host/obix/a/" || it.payload.Tag != "int" {
		t.Fatalf("item = %+v", it)
	}
	for _, bad := range []string{"read", "fetch:/a/", "write:/a/", "invoke:/a/=<broken"} {
		if _, err := parseBatchItem(bad); err == nil {
			t.Fatalf("parseBatchItem(%q): expected error", bad)
		}
	}
}
