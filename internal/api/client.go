package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/swap"
)

// ErrNotFound matches any *Error the server reported as "not found", either by
// status 404 or by a failed envelope saying so.
var ErrNotFound = errors.New("not found")

const (
	apiSchedule = "/schedule"
	apiGenerate = "/schedule/generate"
	apiSwap     = "/schedule/swap-meals"
	apiMeals    = "/meals"
	apiUsers    = "/users"

	DefaultBaseURL = "http://localhost:5000/api"
)

// Error is a failed call: a non-2xx status or a {success:false} envelope.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Is matches ErrNotFound on a 404 or a "not found" message, unless the
// message names a different missing resource than the op asked for: "User
// not found" from get schedule is not a missing schedule.
func (e *Error) Is(target error) bool {
	if target != ErrNotFound {
		return false
	}
	msg := strings.ToLower(e.Message)
	if want, ok := opResources[e.Op]; ok {
		for _, other := range resources {
			if other != want && (strings.Contains(msg, other+" not found") || strings.Contains(msg, "no "+other+" found")) {
				return false
			}
		}
	}
	return e.Status == http.StatusNotFound || strings.Contains(msg, "not found")
}

var resources = []string{"schedule", "user", "meal"}

// opResources names the resource each lookup op asks for.
var opResources = map[string]string{
	"get schedule":      "schedule",
	"get user":          "user",
	"get user by phone": "user",
	"update user":       "user",
}

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RateLimit is requests per second; zero disables pacing.
	RateLimit float64
	Burst     int
	Logger    *slog.Logger
	// HTTPClient replaces the default client; Timeout is then ignored.
	HTTPClient *http.Client
}

type Client struct {
	http    *http.Client
	base    string
	token   string
	limiter *rate.Limiter
	log     *slog.Logger
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{http: hc, base: base, token: opts.Token, log: logger}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit)
			if burst < 1 {
				burst = 1
			}
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// rawRequest executes the HTTP request and returns the body and status code.
func (c *Client) rawRequest(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, 0, err
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.log.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration", time.Since(start),
	)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// request sends in (if non-nil) as JSON, unwraps the response envelope and
// decodes its data into out (if non-nil). Transport failures come back
// wrapped; server-reported failures come back as *Error.
func (c *Client) request(ctx context.Context, op, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}
	data, status, err := c.rawRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if status < 200 || status >= 300 {
			return &Error{Op: op, Status: status, Message: strings.TrimSpace(string(data))}
		}
		return &Error{Op: op, Status: status, Message: "malformed response: " + err.Error()}
	}
	if status < 200 || status >= 300 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &Error{Op: op, Status: status, Message: msg}
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return &Error{Op: op, Message: msg}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &Error{Op: op, Status: status, Message: "response has no data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Op: op, Status: status, Message: "malformed data: " + err.Error()}
	}
	return nil
}

// GetSchedule fetches the user's schedule covering weeks weeks.
func (c *Client) GetSchedule(ctx context.Context, userID models.ID, weeks int) (*models.Schedule, error) {
	path := fmt.Sprintf("%s/%s?week=%d", apiSchedule, url.PathEscape(userID.String()), weeks)
	var ws wireSchedule
	if err := c.request(ctx, "get schedule", http.MethodGet, path, nil, &ws); err != nil {
		return nil, err
	}
	return ws.normalize(), nil
}

// GenerateSchedule asks the backend to build a new schedule.
func (c *Client) GenerateSchedule(ctx context.Context, userID models.ID, weeks int) (*models.Schedule, error) {
	body := struct {
		UserID models.ID `json:"userId"`
		Weeks  int       `json:"weeks"`
	}{userID, weeks}
	var ws wireSchedule
	if err := c.request(ctx, "generate schedule", http.MethodPost, apiGenerate, body, &ws); err != nil {
		return nil, err
	}
	return ws.normalize(), nil
}

// SwapMeals exchanges the meals of the two slots in p.
func (c *Client) SwapMeals(ctx context.Context, userID models.ID, p swap.Payload) error {
	body := struct {
		UserID models.ID `json:"userId"`
		swap.Payload
	}{userID, p}
	return c.request(ctx, "swap meals", http.MethodPost, apiSwap, body, nil)
}

// ListMeals queries the meal catalog.
func (c *Client) ListMeals(ctx context.Context, q models.MealQuery) ([]models.Meal, error) {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if len(q.DietaryTags) > 0 {
		v.Set("dietary_tags", strings.Join(q.DietaryTags, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	path := apiMeals
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var raw []wireMeal
	if err := c.request(ctx, "list meals", http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	meals := make([]models.Meal, 0, len(raw))
	for _, m := range raw {
		meals = append(meals, m.normalize())
	}
	return meals, nil
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, id models.ID) (*models.User, error) {
	var u models.User
	if err := c.request(ctx, "get user", http.MethodGet, apiUsers+"/"+url.PathEscape(id.String()), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByPhone looks a user up by phone number.
func (c *Client) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var u models.User
	if err := c.request(ctx, "get user by phone", http.MethodGet, apiUsers+"/phone/"+url.PathEscape(phone), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser applies a partial update and returns the stored user.
func (c *Client) UpdateUser(ctx context.Context, id models.ID, upd models.UserUpdate) (*models.User, error) {
	var u models.User
	if err := c.request(ctx, "update user", http.MethodPut, apiUsers+"/"+url.PathEscape(id.String()), upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
