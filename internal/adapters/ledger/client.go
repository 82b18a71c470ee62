// Package ledger is the HTTP client for the integrity ledger gateway.
// The gateway fronts the chain; this client only speaks its read/write
// contract and knows nothing about transaction fees or consensus.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"candor/internal/domain"
)

// Client talks JSON over HTTP to the ledger gateway. It never retries
// an Anchor on its own: after an ambiguous timeout the caller must
// check GetProof before resubmitting, or the retry will surface as a
// spurious ErrDuplicateHash.
type Client struct {
	baseURL   string
	authToken string
	http      *http.Client
}

// New creates a client for the gateway at baseURL. authToken may be
// empty when the gateway is unauthenticated.
func New(baseURL, authToken string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

type anchorRequest struct {
	ContentHash string `json:"contentHash"`
	Status      string `json:"status"`
	Reporter    string `json:"reporter"`
}

type anchorResponse struct {
	TxHash string `json:"txHash"`
}

func (c *Client) Anchor(ctx context.Context, contentHash, status, reporter string) (string, error) {
	var out anchorResponse
	err := c.do(ctx, http.MethodPost, "/v1/reports", anchorRequest{
		ContentHash: contentHash,
		Status:      status,
		Reporter:    reporter,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.TxHash, nil
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Caller string `json:"caller"`
}

func (c *Client) UpdateStatus(ctx context.Context, contentHash, newStatus, caller string) error {
	path := "/v1/reports/" + url.PathEscape(contentHash) + "/status"
	return c.do(ctx, http.MethodPut, path, updateStatusRequest{Status: newStatus, Caller: caller}, nil)
}

func (c *Client) GetProof(ctx context.Context, contentHash string) (domain.IntegrityRecord, error) {
	var rec domain.IntegrityRecord
	path := "/v1/reports/" + url.PathEscape(contentHash)
	if err := c.do(ctx, http.MethodGet, path, nil, &rec); err != nil {
		return domain.IntegrityRecord{}, err
	}
	return rec, nil
}

func (c *Client) ReportExists(ctx context.Context, contentHash string) (bool, error) {
	_, err := c.GetProof(ctx, contentHash)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}

type reportsByAddressResponse struct {
	ContentHashes []string `json:"contentHashes"`
}

func (c *Client) ReportsByAddress(ctx context.Context, addr string) ([]string, error) {
	var out reportsByAddressResponse
	path := "/v1/addresses/" + url.PathEscape(addr) + "/reports"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.ContentHashes, nil
}

// do sends one request and maps gateway status codes onto the domain
// error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger gateway: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusConflict:
		return domain.ErrDuplicateHash
	case resp.StatusCode == http.StatusForbidden:
		return domain.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		if method == http.MethodPut {
			return domain.ErrNotAnchored
		}
		return domain.ErrNotFound
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ledger gateway: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
