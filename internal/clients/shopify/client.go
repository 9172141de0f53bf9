package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shelflife-service/internal/clients"
)

// Client talks to the Shopify Admin GraphQL API
type Client struct {
	httpClient  *http.Client
	accessToken string
	apiVersion  string
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier
	breaker     *clients.CircuitBreaker

	// wait between throttled attempts, shortened in tests
	throttleDelay time.Duration

	// baseURL overrides the shop-derived endpoint in tests
	baseURL string
}

// NewClient creates a new Shopify Admin API client
func NewClient(accessToken, apiVersion string, requestsPerSecond, maxRetries int, retryDelay time.Duration) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	retryConfig := clients.DefaultRetryConfig()
	if maxRetries >= 0 {
		retryConfig.MaxRetries = maxRetries
	}
	if retryDelay > 0 {
		retryConfig.InitialBackoff = retryDelay
	}
	return &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		accessToken:   accessToken,
		apiVersion:    apiVersion,
		rateLimiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		retrier:       clients.NewRetrier(retryConfig),
		breaker:       clients.NewCircuitBreaker(5, 30*time.Second),
		throttleDelay: 2 * time.Second,
	}
}

// graphQLRequest is the POST body for the GraphQL endpoint
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphQLError is one error entry in a GraphQL response
type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// graphQLResponse is the envelope every GraphQL response arrives in
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// userError is a mutation-level validation error
type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func userErrorsToError(errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if len(e.Field) > 0 {
			msgs = append(msgs, fmt.Sprintf("%s: %s", strings.Join(e.Field, "."), e.Message))
		} else {
			msgs = append(msgs, e.Message)
		}
	}
	return fmt.Errorf("shopify rejected the mutation: %s", strings.Join(msgs, "; "))
}

func (c *Client) endpoint(shop string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, c.apiVersion)
}

const maxThrottleRetries = 3

// execute runs one GraphQL query or mutation and unmarshals the data
// envelope into out. Throttled responses are retried after the cost bucket
// refills, up to maxThrottleRetries times.
func (c *Client) execute(ctx context.Context, shop, query string, variables map[string]interface{}, out interface{}) error {
	var err error
	for attempt := 0; attempt <= maxThrottleRetries; attempt++ {
		var throttled bool
		throttled, err = c.executeOnce(ctx, shop, query, variables, out)
		if !throttled {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.throttleDelay):
		}
	}
	return fmt.Errorf("shopify throttled after %d retries", maxThrottleRetries)
}

func (c *Client) executeOnce(ctx context.Context, shop, query string, variables map[string]interface{}, out interface{}) (bool, error) {
	if !c.breaker.Allow() {
		return false, fmt.Errorf("shopify circuit breaker is open")
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return false, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, result := c.retrier.DoHTTP(ctx, "shopify graphql", func(ctx context.Context) (*http.Response, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shop), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Shopify-Access-Token", c.accessToken)

		return c.httpClient.Do(req)
	})
	if resp == nil {
		c.breaker.RecordFailure()
		return false, fmt.Errorf("shopify request failed: %w", result.LastError)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		return false, fmt.Errorf("shopify returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.breaker.RecordFailure()
		return false, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		if isThrottled(envelope.Errors) {
			return true, nil
		}
		c.breaker.RecordFailure()
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return false, fmt.Errorf("shopify graphql errors: %s", strings.Join(msgs, "; "))
	}

	c.breaker.RecordSuccess()

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return false, fmt.Errorf("failed to parse data: %w", err)
		}
	}
	return false, nil
}

func isThrottled(errs []graphQLError) bool {
	for _, e := range errs {
		if e.Extensions.Code == "THROTTLED" {
			return true
		}
	}
	return false
}
