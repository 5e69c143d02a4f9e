package diner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
)

// DefaultRequestTimeout bounds every call to the order service.
const DefaultRequestTimeout = 10 * time.Second

// OrderAPI is the order service surface the diner depends on.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	SessionOrders(ctx context.Context, sessionID string) ([]Order, error)
	// SessionBill returns nil, nil while the session has no persisted bill.
	SessionBill(ctx context.Context, sessionID string) (*ServerBill, error)
	RequestPayment(ctx context.Context, sessionID string) (*PaymentAck, error)
}

// HTTPClient talks to the order service REST API. Calls are never retried:
// a failed submission is retried by the diner, not behind their back.
type HTTPClient struct {
	client *apt.HTTPClient
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	client := apt.NewHTTPClient(apt.HTTPClientConfig{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
	})
	// NewHTTPClient reads a zero MaxRetries as "use the default".
	client.MaxRetries = 0
	return &HTTPClient{client: client}
}

func (c *HTTPClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var order Order
	if err := c.post(ctx, "/orders", req, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

func (c *HTTPClient) SessionOrders(ctx context.Context, sessionID string) ([]Order, error) {
	var orders []Order
	if err := c.get(ctx, sessionPath(sessionID, "orders"), &orders); err != nil {
		return nil, fmt.Errorf("list session orders: %w", err)
	}
	return orders, nil
}

func (c *HTTPClient) SessionBill(ctx context.Context, sessionID string) (*ServerBill, error) {
	var bill ServerBill
	err := c.get(ctx, sessionPath(sessionID, "bill"), &bill)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session bill: %w", err)
	}
	return &bill, nil
}

func (c *HTTPClient) RequestPayment(ctx context.Context, sessionID string) (*PaymentAck, error) {
	var ack PaymentAck
	if err := c.post(ctx, sessionPath(sessionID, "payment-request"), nil, &ack); err != nil {
		return nil, fmt.Errorf("request payment: %w", err)
	}
	return &ack, nil
}

// MenuItem implements Catalog.
func (c *HTTPClient) MenuItem(ctx context.Context, id string) (*MenuItem, error) {
	var item MenuItem
	err := c.get(ctx, "/menu-items/"+url.PathEscape(id), &item)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return &item, nil
}

// SendCode asks the service to text a one-time code to phone.
func (c *HTTPClient) SendCode(ctx context.Context, phone string) (string, error) {
	var resp struct {
		Phone string `json:"phone"`
	}
	if err := c.post(ctx, "/auth/otp/send", map[string]string{"phone": phone}, &resp); err != nil {
		return "", fmt.Errorf("send code: %w", err)
	}
	return resp.Phone, nil
}

// VerifyCode exchanges a code for the customer identity and its token.
func (c *HTTPClient) VerifyCode(ctx context.Context, phone, code, name, email string) (*Customer, string, error) {
	body := map[string]string{"phone": phone, "code": code, "name": name, "email": email}
	var resp struct {
		Customer *Customer `json:"customer"`
		Token    string    `json:"token"`
	}
	if err := c.post(ctx, "/auth/otp/verify", body, &resp); err != nil {
		return nil, "", fmt.Errorf("verify code: %w", err)
	}
	if resp.Customer == nil {
		return nil, "", errors.New("verify code: empty customer")
	}
	return resp.Customer, resp.Token, nil
}

// StaffLogin returns a staff token for the admin room.
func (c *HTTPClient) StaffLogin(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.post(ctx, "/admin/login", body, &resp); err != nil {
		return "", fmt.Errorf("staff login: %w", err)
	}
	return resp.Token, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, dest interface{}) error {
	var resp apt.SuccessResponse
	if err := c.client.Get(ctx, path, &resp); err != nil {
		return err
	}
	return decodeSuccessResponse(&resp, dest)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, dest interface{}) error {
	var resp apt.SuccessResponse
	if err := c.client.Post(ctx, path, body, &resp); err != nil {
		return err
	}
	return decodeSuccessResponse(&resp, dest)
}

// decodeSuccessResponse copies the dynamic response payload into dest.
func decodeSuccessResponse(resp *apt.SuccessResponse, dest interface{}) error {
	if resp == nil {
		return errors.New("nil success response")
	}
	if resp.Data == nil || dest == nil {
		return nil
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the order service.
func IsNotFound(err error) bool {
	var httpErr *apt.HTTPError
	return errors.As(err, &httpErr) && httpErr.IsNotFound()
}

// StatusCode returns the HTTP status carried by err, 0 when it has none.
func StatusCode(err error) int {
	var httpErr *apt.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func sessionPath(sessionID, resource string) string {
	return "/sessions/" + url.PathEscape(sessionID) + "/" + resource
}
