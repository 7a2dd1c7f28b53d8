package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterAndRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	before := testutil.ToFloat64(clientRequests.WithLabelValues("GET", "success"))
	RecordRequest("GET", true)
	if got := testutil.ToFloat64(clientRequests.WithLabelValues("GET", "success")); got != before+1 {
		t.Fatalf("requests = %v; want %v", got, before+1)
	}

	beforeErr := testutil.ToFloat64(clientRequests.WithLabelValues("PUT", "error"))
	RecordRequest("PUT", false)
	if got := testutil.ToFloat64(clientRequests.WithLabelValues("PUT", "error")); got != beforeErr+1 {
		t.Fatalf("error requests = %v; want %v", got, beforeErr+1)
	}

	beforeBatch := testutil.ToFloat64(batchSubmits.WithLabelValues("success"))
	RecordBatch(3, true)
	if got := testutil.ToFloat64(batchSubmits.WithLabelValues("success")); got != beforeBatch+1 {
		t.Fatalf("batch submits = %v; want %v", got, beforeBatch+1)
	}

	beforeStatus := testutil.ToFloat64(clientErrors.WithLabelValues("SocketError"))
	RecordError("SocketError")
	if got := testutil.ToFloat64(clientErrors.WithLabelValues("SocketError")); got != beforeStatus+1 {
		t.Fatalf("errors = %v; want %v", got, beforeStatus+1)
	}

	ObserveRequestDuration("GET", 15*time.Millisecond)
	if n := testutil.CollectAndCount(clientRequestDuration); n == 0 {
		t.Fatalf("expected duration series")
	}

	SetBuildInfo("obixctl", "dev", "abc", "today")
	if got := testutil.ToFloat64(buildInfo.WithLabelValues("obixctl", "today", "abc", "dev")); got != 1 {
		t.Fatalf("build info = %v; want 1", got)
	}
}
