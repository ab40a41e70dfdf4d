// Package client talks to the xstar game API on behalf of one account. The
// executor applies a fixed timeout, a fixed-wait retry policy, the account's
// device fingerprint headers, optional proxy binding and per-account pacing.
// An HTTP 400 means the wire contract itself has changed; no recovery is
// attempted and the whole process is brought down through the fatal hook.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"xstar_farm/internal/fingerprint"
	"xstar_farm/internal/logbus"
	"xstar_farm/internal/model"
)

// ErrContractBreak is returned after the fatal hook fires on an HTTP 400.
// Callers only see it when the hook has been overridden (tests); by default
// the process is already gone.
var ErrContractBreak = errors.New("server contract changed")

type Options struct {
	BaseURL     string
	GameBaseURL string
	Timeout     time.Duration
	RetryCount  int
	RetryWait   time.Duration
	Proxy       string
	Fingerprint model.Fingerprint
	Limiter     *rate.Limiter
	Log         *logbus.AccountLogger
	// Fatal runs when the upstream answers 400. Defaults to exiting the
	// process with code 0.
	Fatal func()
}

type Client struct {
	http *resty.Client
	opts Options

	mu    sync.Mutex
	token string
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 3 * time.Second
	}
	if opts.Fatal == nil {
		opts.Fatal = func() { os.Exit(0) }
	}

	httpc := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			if r == nil {
				return true
			}
			if r.StatusCode() == http.StatusBadRequest {
				return false
			}
			return r.IsError()
		})

	if opts.Proxy != "" {
		httpc.SetProxy(opts.Proxy)
	}
	if opts.Fingerprint.UserAgent != "" {
		httpc.SetHeader("User-Agent", opts.Fingerprint.UserAgent)
		httpc.SetHeader("sec-ch-ua", fingerprint.SecChUA(opts.Fingerprint.Platform))
		httpc.SetHeader("sec-ch-ua-platform", opts.Fingerprint.Platform)
	}
	httpc.SetHeader("Content-Type", "application/json")

	return &Client{http: httpc, opts: opts}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// post issues one call through the retry policy and decodes the response
// envelope's data field into out.
func (c *Client) post(ctx context.Context, url string, body any, auth bool, out any) error {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req := c.http.R().SetContext(ctx)
	if body == nil {
		body = struct{}{}
	}
	req.SetBody(body)
	if auth {
		if tok := c.Token(); tok != "" {
			req.SetHeader("Authorization", "Bearer "+tok)
		}
	}

	resp, err := req.Post(url)
	if err != nil {
		return fmt.Errorf("request failed: %s: %w", url, err)
	}
	if resp.StatusCode() == http.StatusBadRequest {
		if c.opts.Log != nil {
			c.opts.Log.Error("Invalid request for %s, the server contract may have changed, update required", url)
		}
		c.opts.Fatal()
		return ErrContractBreak
	}
	if resp.IsError() {
		return fmt.Errorf("request failed: %s: status %d", url, resp.StatusCode())
	}

	var env apiEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("decode response: %s: %w", url, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("response missing data: %s", url)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %s: %w", url, err)
		}
	}
	return nil
}
