package store

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
)

// RESTClient talks to a PostgREST-style endpoint (the hosted store's REST
// surface). Thread-safe for concurrent use.
type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRESTClient(baseURL, apiKey string, timeout time.Duration) (*RESTClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("store base URL is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (c *RESTClient) Select(ctx context.Context, q Query) ([]Row, error) {
	params := url.Values{}
	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	}
	applyFilters(params, q.Filters)
	if q.Order != nil {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}

	headers := map[string]string{}
	if q.Range != nil {
		headers["Range"] = fmt.Sprintf("%d-%d", q.Range.From, q.Range.To)
		headers["Range-Unit"] = "items"
	}

	body, _, err := c.request(ctx, http.MethodGet, q.Table, params, headers, nil)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse select response: %w", err)
	}
	return rows, nil
}

func (c *RESTClient) Count(ctx context.Context, table string, filters []Filter) (int, error) {
	params := url.Values{}
	params.Set("select", "id")
	applyFilters(params, filters)

	headers := map[string]string{
		"Prefer": "count=exact",
		// Only the count header is needed; keep the payload empty.
		"Range":      "0-0",
		"Range-Unit": "items",
	}

	_, resp, err := c.request(ctx, http.MethodGet, table, params, headers, nil)
	if err != nil {
		return 0, err
	}
	return parseContentRangeTotal(resp.Header.Get("Content-Range"))
}

func (c *RESTClient) Insert(ctx context.Context, table string, row Row, returning []string) (Row, error) {
	params := url.Values{}
	if len(returning) > 0 {
		params.Set("select", strings.Join(returning, ","))
	}
	headers := map[string]string{"Prefer": "return=representation"}

	body, _, err := c.request(ctx, http.MethodPost, table, params, headers, row)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse insert response: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no rows", table)
	}
	return rows[0], nil
}

func (c *RESTClient) Update(ctx context.Context, table string, filters []Filter, patch Row, returning []string) ([]Row, error) {
	params := url.Values{}
	if len(returning) > 0 {
		params.Set("select", strings.Join(returning, ","))
	}
	applyFilters(params, filters)
	headers := map[string]string{"Prefer": "return=representation"}

	body, _, err := c.request(ctx, http.MethodPatch, table, params, headers, patch)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse update response: %w", err)
	}
	return rows, nil
}

func (c *RESTClient) Delete(ctx context.Context, table string, filters []Filter) error {
	params := url.Values{}
	applyFilters(params, filters)
	_, _, err := c.request(ctx, http.MethodDelete, table, params, nil, nil)
	return err
}

func (c *RESTClient) request(ctx context.Context, method, table string, params url.Values, headers map[string]string, payload any) ([]byte, *http.Response, error) {
	endpoint := c.baseURL + "/rest/v1/" + table
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, fmt.Errorf("read response body: %w", err)
	}

	// 206 Partial Content is how ranged selects come back.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, fmt.Errorf("store request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}
	return responseBody, resp, nil
}

func applyFilters(params url.Values, filters []Filter) {
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			params.Set(f.Column, fmt.Sprintf("eq.%v", f.Value))
		case OpIn:
			values, _ := f.Value.([]string)
			params.Set(f.Column, "in.("+strings.Join(values, ",")+")")
		case OpIsNull:
			params.Set(f.Column, "is.null")
		}
	}
}

// parseContentRangeTotal extracts the total from "0-24/2230" style headers.
func parseContentRangeTotal(header string) (int, error) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 || idx == len(header)-1 {
		return 0, fmt.Errorf("missing total in Content-Range %q", header)
	}
	total := header[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("store did not report an exact count")
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("parse Content-Range total %q: %w", total, err)
	}
	return n, nil
}
