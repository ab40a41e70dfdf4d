package client

import (
	"context"
	"errors"

	"github.com/go-resty/resty/v2"

	"xstar_farm/internal/config"
)

// Endpoints is the resolved API root for a full run, shared read-only by all
// accounts.
type Endpoints struct {
	BaseURL string
	Message string
}

type endpointsDoc struct {
	XStar     string `json:"xstar"`
	Copyright string `json:"copyright"`
}

// CheckBaseURL resolves the API root once per run. With advanced
// anti-detection on, the remote endpoints document is authoritative and a
// missing root aborts the run; otherwise the statically configured root is
// used as-is.
func CheckBaseURL(ctx context.Context, cfg config.EndpointConfig) (Endpoints, error) {
	if !cfg.AdvancedAntiDetection {
		return Endpoints{BaseURL: cfg.BaseURL, Message: "using configured endpoint"}, nil
	}

	var doc endpointsDoc
	resp, err := resty.New().
		SetTimeout(cfg.Timeout()).
		R().
		SetContext(ctx).
		SetResult(&doc).
		Get(cfg.CheckURL)
	if err != nil {
		return Endpoints{}, err
	}
	if resp.IsError() {
		return Endpoints{}, errors.New("endpoints document unavailable")
	}
	if doc.XStar == "" {
		return Endpoints{}, errors.New("no usable api root in endpoints document")
	}
	return Endpoints{BaseURL: doc.XStar, Message: doc.Copyright}, nil
}

// ipCheckURL is a var so tests can point the proxy check at a local server.
var ipCheckURL = "https://api.ipify.org?format=json"

// CheckProxyIP resolves the egress IP seen through the client's proxy. Used
// in proxy mode to verify an account's binding before its session runs.
func (c *Client) CheckProxyIP(ctx context.Context) (string, error) {
	var out struct {
		IP string `json:"ip"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(ipCheckURL)
	if err != nil {
		return "", err
	}
	if resp.IsError() || out.IP == "" {
		return "", errors.New("cannot resolve proxy egress IP")
	}
	if c.opts.Log != nil {
		c.opts.Log.SetProxyIP(out.IP)
	}
	return out.IP, nil
}
