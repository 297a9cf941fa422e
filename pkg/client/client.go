// Package client provides the Go SDK for the evidence custody server: login,
// case and evidence lookups, custody transfers, and chain verification.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotCustodian is returned when a transfer is rejected because the caller
// is not the item's current custodian.
var ErrNotCustodian = errors.New("caller is not the current custodian")

// User is an account profile as returned by the server.
type User struct {
	ID          int64  `json:"user_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	BadgeNumber string `json:"badge_number,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// Case is one investigation case.
type Case struct {
	ID          int64     `json:"case_id"`
	CaseNumber  string    `json:"case_number"`
	Title       string    `json:"case_title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Evidence is the head state of one evidence item.
type Evidence struct {
	ID                 int64     `json:"evidence_id"`
	CaseID             int64     `json:"case_id"`
	ItemName           string    `json:"item_name"`
	Description        string    `json:"description,omitempty"`
	EvidenceType       string    `json:"evidence_type"`
	InitialHash        string    `json:"initial_hash"`
	Status             string    `json:"status"`
	CurrentCustodianID int64     `json:"current_custodian_id"`
	AcquiredAt         time.Time `json:"acquired_at"`
}

// Transfer is one custody hand-off record.
type Transfer struct {
	ID         int64     `json:"transfer_id"`
	EvidenceID int64     `json:"evidence_id"`
	FromUserID int64     `json:"from_user_id"`
	ToUserID   int64     `json:"to_user_id"`
	Timestamp  time.Time `json:"transfer_timestamp"`
	Notes      string    `json:"notes,omitempty"`
	LinkHash   string    `json:"link_hash"`
}

// VerifyResult is the outcome of a chain verification pass.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	BrokenAt int64  `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// CustodyReport is the assembled chain-of-custody view of one item.
type CustodyReport struct {
	Item        *Evidence     `json:"item"`
	Transfers   []*Transfer   `json:"transfers"`
	Verify      *VerifyResult `json:"verification"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Client is the custody server SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, overriding any TLS options.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithToken attaches a pre-obtained session token to every request.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this in development.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			Timeout: 10 * time.Second,
		}
		return nil
	}
}

// New creates a new SDK Client connected to baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Login authenticates with email/password, stores the returned session token
// on the client, and returns it together with the account profile.
func (c *Client) Login(ctx context.Context, email, password string) (string, *User, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		User        *User  `json:"user"`
	}
	if err := c.post(ctx, "/api/v1/auth/login",
		map[string]string{"email": email, "password": password}, &resp); err != nil {
		return "", nil, err
	}
	c.token = resp.AccessToken
	return resp.AccessToken, resp.User, nil
}

// Me returns the profile of the client's session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/api/v1/auth/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListCases returns all cases, newest first.
func (c *Client) ListCases(ctx context.Context) ([]Case, error) {
	var out []Case
	if err := c.get(ctx, "/api/v1/cases", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CaseEvidence returns all evidence items filed under one case.
func (c *Client) CaseEvidence(ctx context.Context, caseID int64) ([]Evidence, error) {
	var out []Evidence
	if err := c.get(ctx, fmt.Sprintf("/api/v1/cases/%d/evidence", caseID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetEvidence returns one item's head state.
func (c *Client) GetEvidence(ctx context.Context, evidenceID int64) (*Evidence, error) {
	var out Evidence
	if err := c.get(ctx, fmt.Sprintf("/api/v1/evidence/%d", evidenceID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chain returns the item's full ordered transfer log.
func (c *Client) Chain(ctx context.Context, evidenceID int64) ([]Transfer, error) {
	var out []Transfer
	if err := c.get(ctx, fmt.Sprintf("/api/v1/evidence/%d/chain", evidenceID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyChain asks the server to recompute every link of the item's chain.
func (c *Client) VerifyChain(ctx context.Context, evidenceID int64) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.get(ctx, fmt.Sprintf("/api/v1/evidence/%d/chain/verify", evidenceID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransferEvidence hands custody of an item to another user. The sender is
// the session's account; the server rejects the call with ErrNotCustodian if
// that account does not currently hold the item.
func (c *Client) TransferEvidence(ctx context.Context, evidenceID, toUserID int64, notes string) (*Transfer, error) {
	var out Transfer
	err := c.post(ctx, "/api/v1/transfers", map[string]any{
		"evidence_id": evidenceID,
		"to_user_id":  toUserID,
		"notes":       notes,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCustodyReport returns the assembled chain-of-custody report for an item.
func (c *Client) GetCustodyReport(ctx context.Context, evidenceID int64) (*CustodyReport, error) {
	var out CustodyReport
	if err := c.get(ctx, fmt.Sprintf("/api/v1/evidence/%d/custody-report", evidenceID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// do executes an HTTP request, attaching the session token if present, and
// decodes the JSON response into out (which may be nil).
func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		msg := string(body)
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("not found: %s", msg)
		case http.StatusUnauthorized:
			return fmt.Errorf("unauthorized: %s", msg)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrNotCustodian, msg)
		default:
			return fmt.Errorf("server error %d: %s", resp.StatusCode, msg)
		}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
