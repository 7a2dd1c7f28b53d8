package contract

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ignoreParent = cmpopts.IgnoreUnexported(Contract{})

const lobbyDoc = `<?xml version="1.0" encoding="UTF-8"?>
<obj is="obix:Lobby" href="/obix/" xmlns="http://obix.org/ns/schema/1.0" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="x">
  <ref name="about" href="about/" is="obix:About"/>
  <op name="batch" href="batch/" in="obix:BatchIn" out="obix:BatchOut"/>
  <obj name="nested" href="nested/">
    <ref name="watchService" href="watchService/" is="obix:WatchService"/>
  </obj>
</obj>`

func TestParseTree(t *testing.T) {
	c, err := Parse([]byte(lobbyDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := &Contract{
		Tag: "obj",
		Attrs: []Attr{
			{"is", "obix:Lobby"},
			{"href", "/obix/"},
			{"xmlns", "http://obix.org/ns/schema/1.0"},
			{"xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance"},
		},
	}
	want.Add(
		New("ref").Named("about", "about/").SetAttr("is", About),
		New("op").Named("batch", "batch/").SetAttr("in", BatchIn).SetAttr("out", BatchOut),
		New("obj").Named("nested", "nested/").Add(
			New("ref").Named("watchService", "watchService/").SetAttr("is", WatchService),
		),
	)
	if diff := cmp.Diff(want, c, ignoreParent); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	if !c.Implements(Lobby) {
		t.Fatalf("expected root to implement %s", Lobby)
	}
	if got := len(c.Descendants()); got != 4 {
		t.Fatalf("descendants = %d; want 4", got)
	}
	ws := c.Child("nested").Child("watchService")
	if ws.Parent().Name() != "nested" {
		t.Fatalf("parent not linked")
	}
}

func TestParseErrors(t *testing.T) {
	for _, doc := range []string{"", "   ", "<obj>", "<obj/><obj/>", "not xml"} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("Parse(%q): expected error", doc)
		}
	}
}

func TestParseDeclaredEncodings(t *testing.T) {
	tests := []struct {
		name string
		doc  []byte
		want string
	}{
		{"latin1", []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><str name=\"room\" val=\"caf\xe9\"/>"), "caf\u00e9"},
		{"windows-1252", []byte("<?xml version=\"1.0\" encoding=\"windows-1252\"?><str name=\"room\" val=\"\x80 cost\"/>"), "\u20ac cost"},
		{"utf-8", []byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?><str name=\"room\" val=\"caf\u00e9\"/>"), "caf\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.doc)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if v, ok := c.StrValue(); !ok || v != tt.want {
				t.Fatalf("val = %q; want %q", v, tt.want)
			}
		})
	}
	if _, err := Parse([]byte(`<?xml version="1.0" encoding="x-no-such-charset"?><obj/>`)); err == nil {
		t.Fatalf("unknown encoding should fail")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c := Obj("obix:Point").Named("temp", "/obix/temp/").Add(
		Real(21.5).Named("value", ""),
		Str(`a "quoted" <value> & more`).Named("note", ""),
	)
	b, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse(%s): %v", b, err)
	}
	if diff := cmp.Diff(c, back, ignoreParent); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if _, err := Marshal(nil); err == nil {
		t.Fatalf("expected error for nil contract")
	}
}

func TestScalarCodecs(t *testing.T) {
	if v, ok := Bool(true).BoolValue(); !ok || !v {
		t.Fatalf("bool true = %v %v", v, ok)
	}
	if v, ok := Bool(false).BoolValue(); !ok || v {
		t.Fatalf("bool false = %v %v", v, ok)
	}
	if v, ok := New(TagBool).SetAttr("val", "TRUE").BoolValue(); !ok || !v {
		t.Fatalf("bool TRUE = %v %v", v, ok)
	}
	if _, ok := New(TagBool).BoolValue(); ok {
		t.Fatalf("bool without val should not decode")
	}
	if _, ok := Str("true").BoolValue(); ok {
		t.Fatalf("str should not decode as bool")
	}

	for _, n := range []int64{0, -1, 42, math.MaxInt64, math.MinInt64} {
		if v, ok := Int(n).IntValue(); !ok || v != n {
			t.Fatalf("int %d = %d %v", n, v, ok)
		}
	}
	if _, ok := New(TagInt).SetAttr("val", "4.5").IntValue(); ok {
		t.Fatalf("int 4.5 should not decode")
	}

	for _, f := range []float64{0, -1.25, 3.141592653589793, 1e300, math.Inf(1), math.Inf(-1)} {
		if v, ok := Real(f).RealValue(); !ok || v != f {
			t.Fatalf("real %v = %v %v", f, v, ok)
		}
	}
	if v, ok := New(TagReal).SetAttr("val", "NaN").RealValue(); !ok || !math.IsNaN(v) {
		t.Fatalf("real NaN = %v %v", v, ok)
	}

	if v, ok := Str("").StrValue(); !ok || v != "" {
		t.Fatalf("empty str = %q %v", v, ok)
	}

	ts := time.Date(2024, 3, 1, 12, 30, 15, 250_000_000, time.FixedZone("EST", -5*3600))
	if v, ok := Abstime(ts).AbstimeValue(); !ok || !v.Equal(ts) {
		t.Fatalf("abstime = %v %v; want %v", v, ok, ts)
	}
	if v, ok := New(TagAbstime).SetAttr("val", "2024-03-01T12:30:15").AbstimeValue(); !ok || v.Hour() != 12 {
		t.Fatalf("zone-less abstime = %v %v", v, ok)
	}
}

func TestNamedAndNull(t *testing.T) {
	c := Int(3).Named("count", "count/")
	if c.Name() != "count" || c.Href() != "count/" {
		t.Fatalf("named attrs = %q %q", c.Name(), c.Href())
	}
	if c := Bool(true).Named("", ""); len(c.Attrs) != 1 {
		t.Fatalf("empty name and href should not be set: %v", c.Attrs)
	}

	n := Null(TagReal).Named("x", "x/")
	if !n.IsNull() {
		t.Fatalf("expected null contract")
	}
	if n.Name() != "" || n.Href() != "" {
		t.Fatalf("null contract should hide attributes")
	}
	var nilC *Contract
	if !nilC.IsNull() || nilC.IsErr() || nilC.Child("x") != nil {
		t.Fatalf("nil contract helpers misbehave")
	}
}

func TestCloneDetaches(t *testing.T) {
	parent := Obj("")
	orig := Obj("a").Add(Int(1))
	parent.Add(orig)
	cp := orig.Clone()
	if cp.Parent() != nil {
		t.Fatalf("clone should be detached")
	}
	cp.Children[0].SetAttr("val", "2")
	if v, _ := orig.Children[0].IntValue(); v != 1 {
		t.Fatalf("clone shares children with original")
	}
	if cp.Children[0].Parent() != cp {
		t.Fatalf("clone children not re-parented")
	}
}

func TestFullHref(t *testing.T) {
	root := Obj("").Named("", "http://h/obix/")
	dev := Obj("").Named("dev", "dev")
	mid := Obj("").Named("group", "")
	pt := Real(1).Named("temp", "temp/")
	root.Add(dev.Add(mid.Add(pt)))
	if got := pt.FullHref(); got != "http://h/obix/dev/temp/" {
		t.Fatalf("FullHref = %q", got)
	}

	rel := Obj("").Named("", "/obix/points/")
	leaf := Int(1).Named("p", "p1")
	rel.Add(leaf)
	Obj("").Named("", "ignored/").Add(rel)
	if got := leaf.FullHref(); got != "/obix/points/p1" {
		t.Fatalf("FullHref = %q", got)
	}
	if Int(1).FullHref() != "" {
		t.Fatalf("no href should yield empty path")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		kind, value string
		want        string
	}{
		{"bool", "true", `<bool val="true"/>`},
		{"INT", "-4", `<int val="-4"/>`},
		{"real", "2.5", `<real val="2.5"/>`},
		{"str", "a<b", `<str val="a&lt;b"/>`},
		{"abstime", "2024-03-01T10:00:00Z", `<abstime val="2024-03-01T10:00:00Z"/>`},
		{"uri", "/obix/x/", `<uri val="/obix/x/"/>`},
		{"op", "ignored", `<op/>`},
	}
	for _, tt := range tests {
		c, err := ParseValue(tt.kind, tt.value)
		if err != nil {
			t.Fatalf("ParseValue(%q, %q): %v", tt.kind, tt.value, err)
		}
		if got := c.String(); got != tt.want {
			t.Fatalf("ParseValue(%q, %q) = %s; want %s", tt.kind, tt.value, got, tt.want)
		}
	}
	for _, bad := range [][2]string{{"int", "x"}, {"bool", "maybe"}, {"abstime", "yesterday"}, {"blob", "1"}} {
		if _, err := ParseValue(bad[0], bad[1]); err == nil {
			t.Fatalf("ParseValue(%q, %q): expected error", bad[0], bad[1])
		}
	}
}
