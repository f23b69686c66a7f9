package hertzclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"arenacore/internal/app/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: url, Timeout: timeout}, nil)
	require.NoError(t, err)
	return c
}

func TestGenerate_PostsRequestAndDecodesResponse(t *testing.T) {
	var got ports.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Defend","tokens_used":7,"processing_time_ms":12,"model_name":"llama2:7b","request_id":"r-1"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/", time.Second)
	resp, err := c.Generate(context.Background(), ports.GenerateRequest{
		Model:         "llama2:7b",
		Prompt:        "state",
		MaxTokens:     150,
		Temperature:   0.7,
		TopP:          0.9,
		StopSequences: []string{"\n"},
		SystemPrompt:  "sys",
	})
	require.NoError(t, err)
	assert.Equal(t, "Defend", resp.Text)
	assert.Equal(t, 7, resp.TokensUsed)
	assert.Equal(t, int64(12), resp.ProcessingTimeMS)
	assert.Equal(t, "r-1", resp.RequestID)

	assert.Equal(t, "llama2:7b", got.Model)
	assert.Equal(t, []string{"\n"}, got.StopSequences)
	assert.Equal(t, "sys", got.SystemPrompt)
}

func TestGenerate_NonSuccessStatusIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("model loading"))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, time.Second).Generate(context.Background(), ports.GenerateRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrService))
	var svcErr *ports.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.StatusCode)
	assert.Equal(t, "model loading", svcErr.Body)
}

func TestGenerate_SlowServerIsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := newClient(t, srv.URL, 100*time.Millisecond).Generate(context.Background(), ports.GenerateRequest{})
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, ports.IsDegradingFailure(err))
}

func TestGenerate_UnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url, time.Second).Generate(context.Background(), ports.GenerateRequest{})
	require.Error(t, err)
	assert.True(t, ports.IsDegradingFailure(err))
}

func TestHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, time.Second)
	assert.NoError(t, c.Health(context.Background()))
	healthy.Store(false)
	assert.True(t, errors.Is(c.Health(context.Background()), ports.ErrService))
}

func TestGenerate_InFlightCapHonoursContext(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"text":"Wait"}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, MaxInFlight: 1}, nil)
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := c.Generate(context.Background(), ports.GenerateRequest{})
		first <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Generate(ctx, ports.GenerateRequest{})
	assert.True(t, errors.Is(err, ports.ErrTimeout))
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	assert.NoError(t, <-first)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.True(t, errors.Is(err, ports.ErrConfiguration))
}
