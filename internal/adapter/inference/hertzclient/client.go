package hertzclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"arenacore/internal/app/ports"
	"arenacore/internal/platform/logger"

	"github.com/cloudwego/hertz/pkg/app/client"
	errs "github.com/cloudwego/hertz/pkg/common/errors"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxInFlight       int
}

// Client is a GenerationService over HTTP: POST {base}/generate and
// GET {base}/health. One Client is shared by every inference agent, so
// outbound concurrency and request rate are limited here.
type Client struct {
	base    string
	timeout time.Duration
	hc      *client.Client
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	log     logrus.FieldLogger
}

var _ ports.GenerationService = (*Client)(nil)

func New(cfg Config, log logrus.FieldLogger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, &ports.ConfigError{Field: "inference.service_url", Reason: "must not be empty"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	hc, err := client.NewClient(
		client.WithDialTimeout(cfg.Timeout),
		client.WithClientReadTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("build hertz client: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}
	c := &Client{
		base:    base,
		timeout: cfg.Timeout,
		hc:      hc,
		log:     log.WithField("component", "generation_client"),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.MaxInFlight > 0 {
		c.sem = semaphore.NewWeighted(int64(cfg.MaxInFlight))
	}
	return c, nil
}

func (c *Client) Generate(ctx context.Context, in ports.GenerateRequest) (ports.GenerateResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return ports.GenerateResponse{}, fmt.Errorf("%w: encode request: %v", ports.ErrTransport, err)
	}
	if err := c.admit(ctx); err != nil {
		return ports.GenerateResponse{}, err
	}
	if c.sem != nil {
		defer c.sem.Release(1)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(c.base + "/generate")
	req.SetMethod(consts.MethodPost)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.SetBody(body)

	if err := c.hc.DoDeadline(ctx, req, resp, c.deadline(ctx)); err != nil {
		return ports.GenerateResponse{}, c.transportError(ctx, err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return ports.GenerateResponse{}, &ports.ServiceError{StatusCode: status, Body: truncate(string(resp.Body()))}
	}

	var out ports.GenerateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return ports.GenerateResponse{}, &ports.ServiceError{StatusCode: resp.StatusCode(), Body: "invalid response body: " + err.Error()}
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) error {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(c.base + "/health")
	req.SetMethod(consts.MethodGet)
	if err := c.hc.DoDeadline(ctx, req, resp, c.deadline(ctx)); err != nil {
		return c.transportError(ctx, err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return &ports.ServiceError{StatusCode: status, Body: truncate(string(resp.Body()))}
	}
	return nil
}

// admit waits for the rate limiter and an in-flight slot, giving up when
// ctx ends.
func (c *Client) admit(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.transportError(ctx, err)
		}
	}
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return c.transportError(ctx, err)
		}
	}
	return nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(err, errs.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ports.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ports.ErrTransport, err)
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody]
}
