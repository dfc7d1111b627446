package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/id"
)

func TestStartSpanInheritsTrace(t *testing.T) {
	tracer := New("test", zap.NewNop())
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "navigate")
	child, _ := tracer.StartSpan(ctx, "swap_out")

	assert.True(t, id.Valid(parent.TraceID.String(), id.TracePrefix))
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
}

func TestInjectExtractRoundTrip(t *testing.T) {
	tracer := New("test", nil)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(context.Background(), "op")
	headers := map[string]string{}
	InjectTraceContext(ctx, headers)

	traceID, spanID := ExtractTraceContext(headers)
	assert.Equal(t, span.TraceID, traceID)
	assert.Equal(t, span.SpanID, spanID)
}

func TestCloseDrainsSpans(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := New("test", zap.New(core))

	span, _ := tracer.StartSpan(context.Background(), "crash_sweep")
	span.SetError(errors.New("boom"))
	span.Finish()
	tracer.Submit(span)
	tracer.Close()

	require.Equal(t, 1, logs.FilterMessage("span completed with error").Len())
	assert.NotPanics(t, func() { tracer.Submit(span) })
}

func TestSubmitRacesClose(t *testing.T) {
	tracer := New("test", zap.NewNop())

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				span, _ := tracer.StartSpan(context.Background(), "navigate")
				span.Finish()
				tracer.Submit(span)
			}
		}()
	}
	close(start)
	tracer.Close()
	wg.Wait()

	tracer.mu.RLock()
	defer tracer.mu.RUnlock()
	assert.True(t, tracer.closed)
}

func TestHTTPMiddlewarePropagatesHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("test", nil)
	defer tracer.Close()

	var seen id.TraceID
	r := gin.New()
	r.Use(HTTPMiddleware(tracer))
	r.GET("/health", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderTraceID, "trc_fixed")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, id.TraceID("trc_fixed"), seen)
	assert.Equal(t, "trc_fixed", w.Header().Get(HeaderTraceID))
	assert.NotEmpty(t, w.Header().Get(HeaderSpanID))
}
