// Package wildapricot is the client for the Wild Apricot membership API:
// contact lookups, transactional email, and the OAuth token lifecycle
// required to call both.
package wildapricot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/uniusa/verify-bot/internal/domain"
	"github.com/uniusa/verify-bot/internal/metrics"
)

// DefaultBaseURL is the Wild Apricot API root.
const DefaultBaseURL = "https://api.wildapricot.org/v2.2"

const emailSubject = "USA Discord Verification Code"

// tokenProvider is the subset of TokenSource the client needs.
// Defined here (point of use) so tests can inject a fake.
type tokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client queries the membership directory and sends verification emails
// through it. Every call obtains a valid bearer token from the token
// provider first, so an expired token is refreshed before the request.
type Client struct {
	baseURL   string
	accountID string
	inviteURL string
	tokens    tokenProvider
	client    *http.Client
	logger    *slog.Logger
}

func NewClient(baseURL, accountID, inviteURL string, tokens tokenProvider, client *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		accountID: accountID,
		inviteURL: inviteURL,
		tokens:    tokens,
		client:    client,
		logger:    logger.With("component", "wildapricot"),
	}
}

type contactRecord struct {
	ID          int64  `json:"Id"`
	DisplayName string `json:"DisplayName"`
	Email       string `json:"Email"`
	Status      string `json:"Status"`
}

// FindActiveMember looks up a member by exact email with Active status.
// Zero matches is a normal outcome and returns (nil, nil). A record
// missing required fields is treated the same way: fail closed rather
// than email an address we cannot trust.
func (c *Client) FindActiveMember(ctx context.Context, email string) (*domain.MemberRecord, error) {
	start := time.Now()
	defer func() {
		metrics.MemberLookupDuration.Observe(time.Since(start).Seconds())
	}()

	q := url.Values{
		"$async":  {"false"},
		"$filter": {fmt.Sprintf("Email eq %s AND Status eq Active", email)},
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/contacts?%s", c.baseURL, c.accountID, q.Encode())

	var body struct {
		Contacts []contactRecord `json:"Contacts"`
	}
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}

	if len(body.Contacts) == 0 {
		return nil, nil
	}

	// There should never be more than one Active record per email.
	rec := body.Contacts[0]
	member := &domain.MemberRecord{
		ID:          rec.ID,
		DisplayName: rec.DisplayName,
		Email:       rec.Email,
		Status:      rec.Status,
	}
	if !member.Complete() {
		c.logger.Warn("contact record missing required fields, treating as not found", "email", email)
		return nil, nil
	}
	return member, nil
}

// SendVerificationEmail dispatches the fixed-template verification email
// to the member through the membership API.
func (c *Client) SendVerificationEmail(ctx context.Context, member *domain.MemberRecord, code string) error {
	if !member.Complete() {
		return domain.ErrIncompleteMember
	}

	payload := map[string]any{
		"Subject":        emailSubject,
		"Body":           emailBody(code, c.inviteURL),
		"ReplyToAddress": "no-reply@uniusa.org",
		"ReplyToName":    "no-reply",
		"Recipients": []map[string]any{
			{
				"Id":    member.ID,
				"Type":  "IndividualContactRecipient",
				"Name":  member.DisplayName,
				"Email": member.Email,
			},
		},
	}

	endpoint := fmt.Sprintf("%s/rpc/%s/email/SendEmail", c.baseURL, c.accountID)
	if err := c.postJSON(ctx, endpoint, payload); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// Send satisfies the email Sender interface so the client can be wired as
// the production email provider directly.
func (c *Client) Send(ctx context.Context, member *domain.MemberRecord, code string) error {
	return c.SendVerificationEmail(ctx, member, code)
}

// Ping verifies the membership API is reachable with valid credentials.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/accounts/%s", c.baseURL, c.accountID)
	var body json.RawMessage
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return fmt.Errorf("ping membership API: %w", err)
	}
	return nil
}

func emailBody(code, inviteURL string) string {
	return fmt.Sprintf(
		`<h2>Welcome to the USA Discord Server!</h2>`+
			`<p>Here is your verification code:</p><br><p>%s</p><br>`+
			`<p>Invite your friends to the Discord: <a href=%q>%s</a></p>`+
			`<p>If you were not expecting this email, you may safely ignore it.</p>`,
		code, inviteURL, inviteURL,
	)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	token, err := c.tokens.Token(req.Context())
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("membership API returned %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body) // drain so the connection can be reused
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
