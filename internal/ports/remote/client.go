// Package remote implements the repository ports over the expense tracker
// JSON API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

const (
	defaultTimeout   = 15 * time.Second
	categoriesKey    = "categories"
	maxErrorBodySize = 64 << 10
)

// Session supplies the bearer token and is told when the API rejects it.
// *session.Store satisfies it.
type Session interface {
	Token() string
	HandleUnauthorized()
}

// Client is the HTTP-backed ExpenseRepository, CategoryRepository and
// Authenticator.
type Client struct {
	base    *url.URL
	http    *http.Client
	logger  *log.Logger
	session atomic.Pointer[sessionRef]

	cats *cache.LRUCache[[]core.Category]
}

type sessionRef struct{ Session }

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its transport is wrapped
// with bearer injection.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentRemote) }
}

// WithCategoryTTL caches GET /categories for ttl. Zero disables caching.
func WithCategoryTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.cats = nil
			return
		}
		c.cats = cache.NewLRUCache[[]core.Category](1, ttl)
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: log.Nop().WithComponent(log.ComponentRemote),
		cats:   cache.NewLRUCache[[]core.Category](1, 10*time.Minute),
	}
	for _, o := range opts {
		o(c)
	}
	hc := *c.http
	hc.Transport = &bearerTransport{base: hc.Transport, client: c}
	c.http = &hc
	return c, nil
}

// AttachSession connects the client to the session whose token it sends.
// Until then requests go out unauthenticated.
func (c *Client) AttachSession(s Session) {
	if s == nil {
		c.session.Store(nil)
		return
	}
	c.session.Store(&sessionRef{s})
}

func (c *Client) currentSession() Session {
	if ref := c.session.Load(); ref != nil {
		return ref.Session
	}
	return nil
}

func (c *Client) Create(ctx context.Context, req core.ExpenseRequest) (core.Expense, error) {
	var e core.Expense
	err := c.do(ctx, "create expense", http.MethodPost, "/expenses", nil, req, &e)
	return e, err
}

func (c *Client) Get(ctx context.Context, id int64) (core.Expense, error) {
	var e core.Expense
	err := c.do(ctx, "get expense", http.MethodGet, expensePath(id), nil, nil, &e)
	return e, err
}

func (c *Client) Update(ctx context.Context, id int64, req core.ExpenseRequest) (core.Expense, error) {
	var e core.Expense
	err := c.do(ctx, "update expense", http.MethodPut, expensePath(id), nil, req, &e)
	return e, err
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete expense", http.MethodDelete, expensePath(id), nil, nil, nil)
}

func (c *Client) List(ctx context.Context, userID int64, filter core.ExpenseFilter) ([]core.Expense, error) {
	var list []core.Expense
	err := c.do(ctx, "list expenses", http.MethodGet, "/expenses", filter.Query(userID), nil, &list)
	return list, err
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	if c.cats != nil {
		if cats, ok := c.cats.Get(categoriesKey); ok {
			return append([]core.Category(nil), cats...), nil
		}
	}
	var cats []core.Category
	if err := c.do(ctx, "list categories", http.MethodGet, "/categories", nil, nil, &cats); err != nil {
		return nil, err
	}
	if c.cats != nil {
		c.cats.Set(categoriesKey, cats)
	}
	return append([]core.Category(nil), cats...), nil
}

// InvalidateCategories drops the cached category list.
func (c *Client) InvalidateCategories() {
	if c.cats != nil {
		c.cats.Purge()
	}
}

func (c *Client) Signup(ctx context.Context, req core.SignupRequest) (core.AuthResponse, error) {
	var resp core.AuthResponse
	err := c.do(ctx, "signup", http.MethodPost, "/auth/signup", nil, req, &resp)
	return resp, err
}

func (c *Client) Login(ctx context.Context, req core.LoginRequest) (core.AuthResponse, error) {
	var resp core.AuthResponse
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", nil, req, &resp)
	return resp, err
}

func expensePath(id int64) string {
	return "/expenses/" + strconv.FormatInt(id, 10)
}

// do sends one JSON request. Non-2xx answers become *core.TransportError
// carrying the server's message.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &core.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API call",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &core.TransportError{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage pulls the "message" field out of an error body. Plain text
// bodies are used as they are.
func errorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil || len(b) == 0 {
		return ""
	}
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	jsonErr := json.Unmarshal(b, &m)
	if jsonErr == nil {
		if m.Message != "" {
			return m.Message
		}
		return m.Error
	}
	var syn *json.SyntaxError
	if errors.As(jsonErr, &syn) {
		return strings.TrimSpace(string(b))
	}
	return ""
}
