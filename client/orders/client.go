package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	chshare "github.com/openrport/dashnotify/share"
)

const DefaultTimeout = 30 * time.Second

// AuthError is returned when the API refuses the credential.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (%d): %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

type apiOrder struct {
	ID           ID        `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	Customer     string    `json:"customer"`
	CustomerName string    `json:"customerName"`
	Amount       float64   `json:"amount"`
	Status       string    `json:"status"`
}

type listResponse struct {
	Data []apiOrder `json:"data"`
}

// Client reads orders from the dashboard REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RecentOrders returns the first page of orders, most recent first.
func (c *Client) RecentOrders(ctx context.Context, limit int) ([]Order, error) {
	q := url.Values{}
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(limit))
	path := "/orders?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", chshare.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "executing request GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("check the credential for %s", c.baseURL),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("unexpected status %d on GET %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body)))
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, errors.Wrap(err, "decoding orders")
	}

	out := make([]Order, 0, len(list.Data))
	for _, o := range list.Data {
		if o.ID == "" {
			continue
		}
		out = append(out, Order{
			ID:           o.ID,
			Customer:     o.Customer,
			CustomerName: o.CustomerName,
			Amount:       o.Amount,
			Status:       o.Status,
			CreatedAt:    o.CreatedAt,
		})
	}
	return out, nil
}
