package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestCounters(t *testing.T) {
	Init()

	before := testutil.ToFloat64(quoteOutcomes.WithLabelValues("eligible"))
	IncQuote("eligible")
	IncQuote("eligible")
	assert.Equal(t, before+2, testutil.ToFloat64(quoteOutcomes.WithLabelValues("eligible")))

	before = testutil.ToFloat64(quoteOutcomes.WithLabelValues("unknown"))
	IncQuote("")
	assert.Equal(t, before+1, testutil.ToFloat64(quoteOutcomes.WithLabelValues("unknown")))

	before = testutil.ToFloat64(refdataLoads.WithLabelValues(ResultError))
	ObserveRefdataLoad(errors.New("x"), time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(refdataLoads.WithLabelValues(ResultError)))

	before = testutil.ToFloat64(emailSends.WithLabelValues("customer", ResultSuccess))
	ObserveEmail("customer", nil, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(emailSends.WithLabelValues("customer", ResultSuccess)))

	before = testutil.ToFloat64(leadsCaptured.WithLabelValues("true"))
	IncLeadCaptured(true)
	assert.Equal(t, before+1, testutil.ToFloat64(leadsCaptured.WithLabelValues("true")))

	before = testutil.ToFloat64(crmForwards.WithLabelValues("notion", ResultError))
	IncCRMForward("notion", errors.New("x"))
	assert.Equal(t, before+1, testutil.ToFloat64(crmForwards.WithLabelValues("notion", ResultError)))

	before = testutil.ToFloat64(httpRequests.WithLabelValues("/api/simulate", "POST", "200"))
	ObserveHTTP("/api/simulate", "POST", 200, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("/api/simulate", "POST", "200")))
}
