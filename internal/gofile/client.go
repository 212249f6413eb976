// Package gofile is the HTTP client for the gofile.io account, asset and contents endpoints.
package gofile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nahucai95/GoFile-Direct-Link/internal/errs"
	"github.com/nahucai95/GoFile-Direct-Link/internal/metrics"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/protocol"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/retry"
)

const (
	// AssetPath is the script asset that carries the verification token.
	AssetPath = "/dist/js/global.js"

	wtMarker = `appdata.wt = "`
)

// Config holds client configuration.
type Config struct {
	APIURL    string
	SiteURL   string
	UserAgent string
	Timeout   time.Duration

	// HTTPClient overrides the transport; tests leave it nil.
	HTTPClient *http.Client
}

// Client talks to the provider. It holds no credentials; callers pass them per request.
type Client struct {
	http    *resty.Client
	apiURL  string
	siteURL string
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json, text/javascript, */*")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{
		http:    rc,
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		siteURL: strings.TrimRight(cfg.SiteURL, "/"),
	}
}

// CreateAccount creates an anonymous account and returns its API token.
func (c *Client) CreateAccount(ctx context.Context) (string, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		Post(c.apiURL + "/accounts")
	if err != nil {
		metrics.RecordProviderRequest("accounts", time.Since(start), false)
		return "", &errs.AuthError{Msg: "cannot get token", Err: retry.Retryable(err)}
	}

	var acct protocol.AccountResponse
	if resp.IsError() || json.Unmarshal(resp.Body(), &acct) != nil ||
		acct.Status != protocol.StatusOK || acct.Data.Token == "" {
		metrics.RecordProviderRequest("accounts", time.Since(start), false)
		return "", &errs.AuthError{Msg: "cannot get token"}
	}

	metrics.RecordProviderRequest("accounts", time.Since(start), true)
	return acct.Data.Token, nil
}

// FetchVerificationToken scrapes the wt token from the site's script asset.
func (c *Client) FetchVerificationToken(ctx context.Context) (string, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.siteURL + AssetPath)
	if err != nil {
		metrics.RecordProviderRequest("asset", time.Since(start), false)
		return "", &errs.AuthError{Msg: "cannot get wt", Err: retry.Retryable(err)}
	}
	if resp.IsError() {
		metrics.RecordProviderRequest("asset", time.Since(start), false)
		return "", &errs.AuthError{Msg: "cannot get wt", Err: fmt.Errorf("asset returned %d", resp.StatusCode())}
	}

	wt, ok := ExtractVerificationToken(resp.String())
	if !ok {
		metrics.RecordProviderRequest("asset", time.Since(start), false)
		return "", &errs.AuthError{Msg: "cannot get wt"}
	}

	metrics.RecordProviderRequest("asset", time.Since(start), true)
	return wt, nil
}

// ExtractVerificationToken returns the quoted value after the wt marker.
func ExtractVerificationToken(script string) (string, bool) {
	idx := strings.Index(script, wtMarker)
	if idx < 0 {
		return "", false
	}
	rest := script[idx+len(wtMarker):]
	end := strings.IndexByte(rest, '"')
	if end <= 0 {
		return "", false
	}
	return rest[:end], true
}

// GetContent fetches one content node. passwordHash is the hex digest or empty.
//
// Password mismatches, non-ok statuses, malformed payloads and request timeouts
// come back as node-local errors (*errs.PasswordError, *errs.ProviderError).
// Rejected credentials are *errs.AuthError. Other transport failures are marked
// retryable and must abort the resolution.
func (c *Client) GetContent(ctx context.Context, id, token, wt, passwordHash string) (Node, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("id", id).
		SetQueryParams(map[string]string{
			"wt":       wt,
			"cache":    "true",
			"password": passwordHash,
		}).
		Get(c.apiURL + "/contents/{id}")
	if err != nil {
		metrics.RecordProviderRequest("contents", time.Since(start), false)
		if isTimeout(err) && ctx.Err() == nil {
			return nil, &errs.ProviderError{ContentID: id, Timeout: true, Err: err}
		}
		return nil, retry.Retryable(fmt.Errorf("get content %s: %w", id, err))
	}

	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		metrics.RecordProviderRequest("contents", time.Since(start), false)
		return nil, &errs.AuthError{Msg: "token rejected", Err: fmt.Errorf("contents returned %d", resp.StatusCode())}
	}

	var content protocol.ContentResponse
	if err := json.Unmarshal(resp.Body(), &content); err != nil {
		metrics.RecordProviderRequest("contents", time.Since(start), false)
		if resp.IsError() {
			err = fmt.Errorf("contents returned %d", resp.StatusCode())
		}
		return nil, &errs.ProviderError{ContentID: id, Err: err}
	}
	if content.Status != protocol.StatusOK {
		metrics.RecordProviderRequest("contents", time.Since(start), false)
		return nil, &errs.ProviderError{ContentID: id, Status: content.Status}
	}
	metrics.RecordProviderRequest("contents", time.Since(start), true)

	if ps := content.Data.PasswordStatus; ps != "" && ps != protocol.PasswordOK {
		return nil, &errs.PasswordError{ContentID: id, Status: ps}
	}

	return decodeNode(id, content.Data)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
