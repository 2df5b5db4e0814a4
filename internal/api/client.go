// Package api is the REST client for the CRM backend. Every call attaches
// the bearer token from the session and translates non-2xx responses into
// typed failures the views can branch on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/crmdesk/crmctl/internal/model"
	"github.com/crmdesk/crmctl/internal/session"
)

// TokenSource supplies the current bearer token; empty means anonymous.
// The session store implements it.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to a TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client is a thin wrapper over the backend's /api surface. There are no
// retries anywhere: every operation is attempt-once, and the user re-triggers
// on failure.
type Client struct {
	base     string
	http     *http.Client
	tokens   TokenSource
	validate *validator.Validate
	log      *zap.Logger
}

// New builds a client for the backend at baseURL; the /api prefix is
// appended here so callers pass only resource paths.
func New(baseURL string, timeout time.Duration, tokens TokenSource, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:     strings.TrimRight(baseURL, "/") + "/api",
		http:     &http.Client{Timeout: timeout},
		tokens:   tokens,
		validate: validator.New(),
		log:      log,
	}
}

// do performs one request. Non-2xx responses become *StatusError carrying
// the body's message field when present, else fallback. Transport errors are
// returned wrapped but untyped, keeping them distinguishable from
// server-reported failures.
func (c *Client) do(ctx context.Context, method, path string, body, out any, fallback string) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", fallback, err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", fallback, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	reqID := requestID()
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("method", method), zap.String("path", path),
			zap.String("request_id", reqID), zap.Error(err))
		return fmt.Errorf("%s: %w", fallback, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", fallback, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fallback
		var envelope struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Message != "" {
			msg = envelope.Message
		}
		c.log.Debug("server error", zap.String("method", method), zap.String("path", path),
			zap.String("request_id", reqID), zap.Int("status", resp.StatusCode))
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", fallback, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any, fallback string) error {
	return c.do(ctx, http.MethodGet, path, nil, out, fallback)
}

// requestID tags each call for log correlation across client and backend.
func requestID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}

// ---- auth ----

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token and the server's user object.
// Implements session.Authenticator.
func (c *Client) Login(ctx context.Context, username, password string) (session.LoginResult, error) {
	var out struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", credentials{username, password}, &out, "Login failed")
	if err != nil {
		return session.LoginResult{}, err
	}
	return session.LoginResult{Token: out.Token, User: out.User}, nil
}

// Register creates an account and returns the server's user object and
// confirmation message.
func (c *Client) Register(ctx context.Context, username, password string) (model.User, string, error) {
	var out struct {
		User    model.User `json:"user"`
		Message string     `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/register", credentials{username, password}, &out, "Registration failed")
	if err != nil {
		return model.User{}, "", err
	}
	return out.User, out.Message, nil
}

// ---- leads ----

// LeadInput is the write payload for creating or fully updating a lead.
type LeadInput struct {
	FirstName  string           `json:"firstName" validate:"required"`
	LastName   string           `json:"lastName" validate:"required"`
	Company    string           `json:"company"`
	Email      string           `json:"email" validate:"required,email"`
	Status     model.LeadStatus `json:"status" validate:"required,oneof=New Contacted Qualified Closed"`
	Source     string           `json:"source"`
	AssignedTo string           `json:"assignedTo"`
}

func (c *Client) Leads(ctx context.Context) ([]model.Lead, error) {
	var out struct {
		Leads []model.Lead `json:"leads"`
	}
	if err := c.get(ctx, "/leads", &out, "Failed to fetch leads"); err != nil {
		return nil, err
	}
	if out.Leads == nil {
		// a missing collection key is an empty collection, not an error
		out.Leads = []model.Lead{}
	}
	return out.Leads, nil
}

func (c *Client) Lead(ctx context.Context, id string) (model.Lead, error) {
	var out struct {
		Lead model.Lead `json:"lead"`
	}
	err := c.get(ctx, "/leads/"+url.PathEscape(id), &out, "Failed to fetch lead")
	return out.Lead, err
}

func (c *Client) CreateLead(ctx context.Context, in LeadInput) (model.Lead, error) {
	if err := c.checkInput(in); err != nil {
		return model.Lead{}, err
	}
	var out struct {
		Lead model.Lead `json:"lead"`
	}
	err := c.do(ctx, http.MethodPost, "/leads", in, &out, "Failed to create lead")
	return out.Lead, err
}

func (c *Client) UpdateLead(ctx context.Context, id string, in LeadInput) (model.Lead, error) {
	if err := c.checkInput(in); err != nil {
		return model.Lead{}, err
	}
	var out struct {
		Lead model.Lead `json:"lead"`
	}
	err := c.do(ctx, http.MethodPut, "/leads/"+url.PathEscape(id), in, &out, "Failed to update lead")
	return out.Lead, err
}

func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/leads/"+url.PathEscape(id), nil, nil, "Failed to delete lead")
}

// ---- activities ----

// ActivityInput is the write payload for logging an activity on a lead.
type ActivityInput struct {
	ActivityType model.ActivityType `json:"activityType" validate:"required,oneof=Call Email Meeting"`
	Notes        string             `json:"notes"`
}

func (c *Client) Activities(ctx context.Context, leadID string) ([]model.Activity, error) {
	var out struct {
		Activities []model.Activity `json:"activities"`
	}
	if err := c.get(ctx, "/leads/"+url.PathEscape(leadID)+"/activities", &out, "Failed to fetch activities"); err != nil {
		return nil, err
	}
	if out.Activities == nil {
		out.Activities = []model.Activity{}
	}
	return out.Activities, nil
}

func (c *Client) CreateActivity(ctx context.Context, leadID string, in ActivityInput) (model.Activity, error) {
	if err := c.checkInput(in); err != nil {
		return model.Activity{}, err
	}
	var out struct {
		Activity model.Activity `json:"activity"`
	}
	err := c.do(ctx, http.MethodPost, "/leads/"+url.PathEscape(leadID)+"/activities", in, &out, "Failed to create activity")
	return out.Activity, err
}

// ---- users (admin only on the server side) ----

// UserInput is the write payload for creating or updating an account.
// Password is optional on update.
type UserInput struct {
	Username string     `json:"username" validate:"required"`
	Password string     `json:"password,omitempty" validate:"omitempty,min=4"`
	Role     model.Role `json:"role" validate:"required,oneof=admin sales_rep"`
}

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var out struct {
		Users []model.User `json:"users"`
	}
	if err := c.get(ctx, "/users", &out, "Failed to fetch users"); err != nil {
		return nil, err
	}
	if out.Users == nil {
		out.Users = []model.User{}
	}
	return out.Users, nil
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (model.User, error) {
	if err := c.checkInput(in); err != nil {
		return model.User{}, err
	}
	var out struct {
		User model.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/users", in, &out, "Failed to create user")
	return out.User, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, in UserInput) (model.User, error) {
	if err := c.checkInput(in); err != nil {
		return model.User{}, err
	}
	var out struct {
		User model.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), in, &out, "Failed to update user")
	return out.User, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, "Failed to delete user")
}
