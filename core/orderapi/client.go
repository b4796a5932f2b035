// Package orderapi is the HTTP client for the external Order API: the
// system of record for product orders, which this scheduler polls for work
// and reports task status back to. It mirrors
// original_source/scheduler/espa.py's APIServer, translated into Go's
// explicit-error idiom, with github.com/hashicorp/go-retryablehttp backing
// the two calls whose failure would otherwise silently strand a product in
// the wrong status: a short bounded retry for update_status and a slower,
// more patient one for set_product_error.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pborman/uuid"

	"github.com/cgaustin/espa-scheduler/common/logger"
)

// Client talks to the Order API's configured base URL. Failures are never
// panicked: the fail-safe calls (MesosTasksDisabled, GetProductsToProcess,
// HandleOrders) log them and return "assume disabled", "no work available"
// or nothing, and every other call returns them to its caller.
type Client struct {
	baseURL       string
	processingLoc string
	log           *logger.Logger

	http *http.Client

	// statusRetry backs update_status: a status report that never lands
	// leaves the Order API's view of a product stale, but the offer loop
	// that calls it can't stall long waiting for one call to land.
	statusRetry *retryablehttp.Client
	// errorRetry backs set_product_error: a task's terminal failure is
	// rarer and more important to land than a routine status update, so
	// it gets many more attempts at a slower, fixed cadence.
	errorRetry *retryablehttp.Client
}

// NewClient builds a Client and immediately probes the base URL, matching
// api_connect()'s test_connection()-on-construction behavior: a
// misconfigured Order API should fail the process at startup, not partway
// through the first offer cycle.
func NewClient(baseURL, processingLoc string, log *logger.Logger) (*Client, error) {
	statusRetry := retryablehttp.NewClient()
	statusRetry.RetryMax = 3
	statusRetry.RetryWaitMin = 1 * time.Second
	statusRetry.RetryWaitMax = 5 * time.Second
	statusRetry.HTTPClient.Timeout = 5 * time.Second
	statusRetry.Logger = nil

	errorRetry := retryablehttp.NewClient()
	errorRetry.RetryMax = 10
	errorRetry.RetryWaitMin = 60 * time.Second
	errorRetry.RetryWaitMax = 60 * time.Second
	errorRetry.Logger = nil

	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		processingLoc: processingLoc,
		log:           log,
		http:          &http.Client{Timeout: 30 * time.Second},
		statusRetry:   statusRetry,
		errorRetry:    errorRetry,
	}

	if err := c.TestConnection(context.Background()); err != nil {
		return nil, fmt.Errorf("orderapi: connecting to %s: %w", c.baseURL, err)
	}
	return c, nil
}

// TestConnection fails unless the base URL answers with HTTP 200.
func (c *Client) TestConnection(ctx context.Context) error {
	_, _, err := c.do(ctx, http.MethodGet, "", nil, nil)
	return err
}

// GetConfiguration retrieves a single configuration value from the Order
// API. A request or decode failure is returned as an error; a response that
// lacks the key (or holds a non-string value) yields "" with a nil error.
// Callers that want fail-safe semantics (like MesosTasksDisabled) decide
// what to do with either.
func (c *Client) GetConfiguration(ctx context.Context, key string) (string, error) {
	var resp map[string]interface{}
	if _, err := c.getJSON(ctx, "/configuration/"+key, &resp); err != nil {
		return "", err
	}
	v, ok := resp[key]
	if !ok {
		return "", nil
	}
	s, _ := v.(string)
	return s, nil
}

// MesosTasksDisabled reports whether the admin switch disables scheduling.
// Any failure to reach the Order API, or any value other than the literal
// string "True", is treated as disabled: this is a fail-safe, not a
// fail-open, policy.
func (c *Client) MesosTasksDisabled(ctx context.Context) bool {
	v, err := c.GetConfiguration(ctx, "run_mesos_tasks")
	if err != nil {
		c.log.WithError(err).Warning("could not reach order api for run_mesos_tasks, treating as disabled")
		return true
	}
	if v != "True" {
		c.log.Info("mesos tasks disabled by admin switch")
		return true
	}
	return false
}

// GetProductsToProcess retrieves up to limit work units of the given
// product types. On any failure it logs and returns an empty slice rather
// than an error: the admission loop treats "no work available" and
// "couldn't ask for work" identically, by design.
func (c *Client) GetProductsToProcess(ctx context.Context, productTypes []string, limit int, user, priority string) []WorkUnit {
	q := url.Values{}
	if limit > 0 {
		q.Set("record_limit", strconv.Itoa(limit))
	}
	if user != "" {
		q.Set("for_user", user)
	}
	if priority != "" {
		q.Set("priority", priority)
	}
	if len(productTypes) > 0 {
		q.Set("product_types", pythonListLiteral(productTypes))
	}

	var units []WorkUnit
	if _, err := c.getJSON(ctx, "/products?"+q.Encode(), &units); err != nil {
		c.log.WithError(err).Warning("get_products_to_process failed, returning no work")
		return nil
	}
	return units
}

// pythonListLiteral renders items the way espa.py's
// 'product_types={}'.format(product_type) renders a Python list: single
// quotes around each element, brackets around the whole thing. The Order
// API's query parsing expects this literal shape, not a comma-joined list.
func pythonListLiteral(items []string) string {
	return "['" + strings.Join(items, "','") + "']"
}

// UpdateStatus reports a product's processing status. It retries on
// transient failure with a short bounded backoff: a status update that
// never lands leaves the Order API's view of a product permanently stale.
func (c *Client) UpdateStatus(ctx context.Context, prodID, orderID, status string) error {
	return c.postRetrying(ctx, c.statusRetry, "/update_status", map[string]interface{}{
		"name":           prodID,
		"orderid":        orderID,
		"processing_loc": c.processingLoc,
		"status":         status,
	})
}

// SetToScheduled marks a freshly-dequeued unit as scheduled.
func (c *Client) SetToScheduled(ctx context.Context, unit *WorkUnit) error {
	return c.UpdateStatus(ctx, unit.Scene, unit.OrderID, "scheduled")
}

// SetSceneError reports a task's abnormal terminal state back to the Order
// API, attaching the raw status update as a JSON blob for operator
// diagnosis. Unlike UpdateStatus this retries patiently: a terminal
// failure report is rarer and more important to land than a routine
// status update.
func (c *Client) SetSceneError(ctx context.Context, prodID, orderID string, errorDetail interface{}) error {
	encoded, err := json.Marshal(errorDetail)
	if err != nil {
		return fmt.Errorf("orderapi: encoding error detail for %s/%s: %w", orderID, prodID, err)
	}
	return c.postRetrying(ctx, c.errorRetry, "/set_product_error", map[string]interface{}{
		"name":           prodID,
		"orderid":        orderID,
		"processing_loc": c.processingLoc,
		"error":          string(encoded),
	})
}

// HandleOrders triggers the Order API's periodic order-processing sweep.
// Failures are logged, never returned as fatal: this is a best-effort
// housekeeping nudge, not part of the admission critical path.
func (c *Client) HandleOrders(ctx context.Context) {
	if _, _, err := c.do(ctx, http.MethodGet, "/handle-orders", nil, nil); err != nil {
		c.log.WithError(err).Warning("handle-orders call failed")
	}
}

func (c *Client) getJSON(ctx context.Context, resource string, out interface{}) (int, error) {
	body, status, err := c.do(ctx, http.MethodGet, resource, nil, nil)
	if err != nil {
		return status, err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return status, fmt.Errorf("orderapi: decoding response from %s: %w", resource, err)
		}
	}
	return status, nil
}

func (c *Client) postRetrying(ctx context.Context, retry *retryablehttp.Client, resource string, payload map[string]interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("orderapi: encoding request to %s: %w", resource, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+resource, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("orderapi: building request to %s: %w", resource, err)
	}
	req.Header.Set("Content-Type", "application/json")

	reqID := uuid.NewUUID().String()
	req.Header.Set("X-Request-Id", reqID)

	resp, err := retry.Do(req)
	if err != nil {
		return fmt.Errorf("orderapi: posting to %s [requestId=%s]: %w", resource, reqID, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orderapi: unexpected status %d from %s [requestId=%s]: %s", resp.StatusCode, resource, reqID, body)
	}

	c.log.WithFields(map[string]interface{}{
		"requestId": reqID,
		"resource":  resource,
		"status":    resp.StatusCode,
	}).Debug("order api call succeeded")
	return nil
}

// do performs a single (non-retried) request and returns its body, so
// read-only calls don't pay go-retryablehttp's request-buffering overhead.
// Every request carries a fresh correlation id, logged on failure so a
// single Order API call can be traced across both sides.
func (c *Client) do(ctx context.Context, method, resource string, headers map[string]string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+resource, body)
	if err != nil {
		return nil, 0, fmt.Errorf("orderapi: building request to %s: %w", resource, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	reqID := uuid.NewUUID().String()
	req.Header.Set("X-Request-Id", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("orderapi: requesting %s [requestId=%s]: %w", resource, reqID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("orderapi: reading response from %s [requestId=%s]: %w", resource, reqID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return respBody, resp.StatusCode, fmt.Errorf("orderapi: unexpected status %d from %s [requestId=%s]", resp.StatusCode, resource, reqID)
	}
	return respBody, resp.StatusCode, nil
}
