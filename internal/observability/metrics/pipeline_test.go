package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDelivery(t *testing.T) {
	before := testutil.ToFloat64(DeliveriesTotal.WithLabelValues("@test", "success"))

	RecordDelivery("@test", true)
	RecordDelivery("@test", true)
	RecordDelivery("@test", false)

	assert.Equal(t, before+2,
		testutil.ToFloat64(DeliveriesTotal.WithLabelValues("@test", "success")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(DeliveriesTotal.WithLabelValues("@test", "failure")))
}

func TestRecordTokenCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(TokenCacheLookupsTotal.WithLabelValues("hit"))
	RecordTokenCacheLookup("hit")
	assert.Equal(t, before+1,
		testutil.ToFloat64(TokenCacheLookupsTotal.WithLabelValues("hit")))
}

func TestRecordPipelineRun(t *testing.T) {
	before := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("failure"))
	RecordPipelineRun(false)
	assert.Equal(t, before+1,
		testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("failure")))
}

func TestRecordGenerationDuration_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordGenerationDuration(1500 * time.Millisecond)
		RecordEnrichment("wikipedia", "found")
		RecordImageAcquired("fallback")
	})
}
