package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordersUpdateRegistry(t *testing.T) {
	before := testutil.ToFloat64(cacheHits)
	RecordCacheHit()
	if got := testutil.ToFloat64(cacheHits); got != before+1 {
		t.Fatalf("expected cache hits %v, got %v", before+1, got)
	}

	RecordTierSoftFailure("remote")
	if got := testutil.ToFloat64(tierSoftFailures.WithLabelValues("remote")); got < 1 {
		t.Fatalf("expected remote soft failure recorded, got %v", got)
	}

	RecordRecompute("CS", 12, 3)
	if got := testutil.ToFloat64(rankedStudents.WithLabelValues("CS")); got != 12 {
		t.Fatalf("expected 12 ranked students, got %v", got)
	}

	families, err := Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected metric families in registry")
	}
}
