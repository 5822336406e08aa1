// Package registry is a typed client for the Client Registry API.
//
// Every failure is a core/errors error: non-2xx answers carry the code derived
// from the status, transport failures are UNAVAILABLE (DEADLINE_EXCEEDED on
// timeouts) and undecodable bodies are DATA_LOSS.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.eggybyte.com/carddesk/clientx"
	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/internal/model"
)

// Route templates, relative to the base URL.
const (
	RouteList         = "/get-all"
	RouteCreate       = "/card-request"
	RouteDelete       = "/{oib}"
	RouteUpdateStatus = "/edit-status/{oib}"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// Client calls the registry. It is safe for concurrent use.
type Client struct {
	base string
	http *http.Client
}

// New creates a client rooted at baseURL, e.g. http://localhost:8081/api/v1.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "registry.New", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf(errors.CodeInvalidArgument, "registry base URL %q must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base
}

// List fetches every client in registry order.
func (c *Client) List(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := c.do(ctx, "registry.List", http.MethodGet, RouteList, RouteList, nil, &clients); err != nil {
		return nil, err
	}
	if clients == nil {
		clients = []model.Client{}
	}
	return clients, nil
}

// Create submits a card request and returns the stored record with its id.
func (c *Client) Create(ctx context.Context, form model.NewClientForm) (model.Client, error) {
	var created model.Client
	err := c.do(ctx, "registry.Create", http.MethodPost, RouteCreate, RouteCreate, form, &created)
	return created, err
}

// Delete removes the client identified by oib. The response body is ignored.
func (c *Client) Delete(ctx context.Context, oib string) error {
	return c.do(ctx, "registry.Delete", http.MethodDelete, RouteDelete, "/"+url.PathEscape(oib), nil, nil)
}

// UpdateStatus sets the card status of oib and returns the full updated record.
func (c *Client) UpdateStatus(ctx context.Context, oib string, status model.CardStatus) (model.Client, error) {
	var updated model.Client
	path := "/edit-status/" + url.PathEscape(oib)
	err := c.do(ctx, "registry.UpdateStatus", http.MethodPut, RouteUpdateStatus, path,
		model.StatusUpdate{CardStatus: status}, &updated)
	return updated, err
}

func (c *Client) do(ctx context.Context, op, method, route, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(clientx.WithRoute(ctx, route), method, c.base+path, body)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fmt.Sprintf("%s %s: status %d", method, route, resp.StatusCode)
		if s := strings.TrimSpace(string(snippet)); s != "" {
			msg += ": " + s
		}
		return &errors.E{Code: errors.FromHTTPStatus(resp.StatusCode), Op: op, Msg: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(errors.CodeDataLoss, op, err, "decode %s response", route)
	}
	return nil
}

func transportError(ctx context.Context, op string, err error) error {
	if code := errors.CodeOf(err); code != "" {
		return errors.Wrap(code, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return errors.Wrap(errors.CodeDeadlineExceeded, op, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return errors.Wrap(errors.CodeDeadlineExceeded, op, err)
	}
	return errors.Wrap(errors.CodeUnavailable, op, err)
}

// HealthChecker reports the registry unready when listing fails.
type HealthChecker struct {
	Client *Client
}

// Name implements runtimex.HealthChecker.
func (h HealthChecker) Name() string { return "registry" }

// Check implements runtimex.HealthChecker.
func (h HealthChecker) Check(ctx context.Context) error {
	_, err := h.Client.List(ctx)
	return err
}
