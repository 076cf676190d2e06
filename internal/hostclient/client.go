// Package hostclient is the HTTP client used by table terminals and the
// chef console to talk to the host.
package hostclient

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
	"time"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/enum"
	"github.com/autodine/autodine/internal/menu"
)

// ErrRejected is returned when the host answered but refused the request.
var ErrRejected = errors.New("rejected by host")

// Client talks to one host.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the host at baseURL with a per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// --- Terminal calls ---

// SubmitOrder posts an order or append submission.
func (c *Client) SubmitOrder(ctx context.Context, req api.OrderRequest) error {
	return c.post(ctx, "/api/order", req)
}

// TableStatus polls the host for one table. A status or order state the
// terminal does not know is an error, never a silent no-op transition.
func (c *Client) TableStatus(ctx context.Context, tableID int) (api.TableStatus, error) {
	var st api.TableStatus
	q := url.Values{"table_id": {strconv.Itoa(tableID)}}
	if err := c.get(ctx, "/api/table_status?"+q.Encode(), &st); err != nil {
		return api.TableStatus{}, err
	}
	var err error
	if st.Status, err = enum.ParseTableStatus(string(st.Status)); err != nil {
		return api.TableStatus{}, fmt.Errorf("table %d: %w", tableID, err)
	}
	if st.OrderState, err = enum.ParseOrderState(string(st.OrderState)); err != nil {
		return api.TableStatus{}, fmt.Errorf("table %d: %w", tableID, err)
	}
	return st, nil
}

// RequestBill asks the host to generate the table's bill.
func (c *Client) RequestBill(ctx context.Context, tableID int) error {
	return c.post(ctx, "/api/request_bill", api.TableRequest{TableID: tableID})
}

// SendPayment reports the chosen payment method.
func (c *Client) SendPayment(ctx context.Context, tableID int, method string) error {
	return c.post(ctx, "/api/payment", api.PaymentRequest{TableID: tableID, Method: method})
}

// Menu fetches the host catalog.
func (c *Client) Menu(ctx context.Context) (menu.Catalog, error) {
	var items menu.Catalog
	if err := c.get(ctx, "/api/menu", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// --- Chef calls ---

// Accept confirms an order.
func (c *Client) Accept(ctx context.Context, orderID int) error {
	return c.post(ctx, "/api/chef/accept", api.OrderIDRequest{OrderID: orderID})
}

// Decline rejects an order or its latest appended items.
func (c *Client) Decline(ctx context.Context, orderID int) error {
	return c.post(ctx, "/api/chef/decline", api.OrderIDRequest{OrderID: orderID})
}

// FoodPrepared marks an order as ready.
func (c *Client) FoodPrepared(ctx context.Context, orderID int) error {
	return c.post(ctx, "/api/chef/food_prepared", api.OrderIDRequest{OrderID: orderID})
}

// VerifyPayment settles and resets a table.
func (c *Client) VerifyPayment(ctx context.Context, tableID int) error {
	return c.post(ctx, "/api/chef/verify_payment", api.TableRequest{TableID: tableID})
}

// Tables lists every table as the dashboard shows it.
func (c *Client) Tables(ctx context.Context) ([]api.DashboardTable, error) {
	var tables []api.DashboardTable
	if err := c.get(ctx, "/api/dashboard/tables", &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// --- Transport ---

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var res api.Result
	if err := c.do(req, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s: %w: %s", path, ErrRejected, res.Error)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var res api.Result
		msg := http.StatusText(resp.StatusCode)
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&res); err == nil && res.Error != "" {
			msg = res.Error
		}
		return fmt.Errorf("%s %s: %w: %d %s", req.Method, req.URL.Path, ErrRejected, resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
