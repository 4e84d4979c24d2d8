package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordMsg(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordMsg("invest", 1.5, "")
	c.RecordMsg("invest", 2.0, "6")

	if got := testutil.ToFloat64(c.MsgsTotal.WithLabelValues("invest", "ok")); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.MsgsTotal.WithLabelValues("invest", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.MsgFailures.WithLabelValues("invest", "6")); got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
}

func TestRecordContribution(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordContribution("1", 1)
	c.RecordContribution("1", 2)

	if got := testutil.ToFloat64(c.Contributions.WithLabelValues("1")); got != 2 {
		t.Errorf("contributions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.InvestorCount.WithLabelValues("1")); got != 2 {
		t.Errorf("investor count = %v, want 2", got)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	// must not panic
	c.RecordMsg("invest", 1, "")
	c.RecordPoolCreated()
	c.RecordTransition("active", "target_reached")
	c.RecordWithdrawal("paid")
	c.RecordWSConnection(1)
}
