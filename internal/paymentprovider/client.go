// Package paymentprovider реализует HTTP-клиент платёжного провайдера MercadoPago:
// создание preference и получение платежа по ID.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Client клиент REST API провайдера.
type Client struct {
	accessToken string
	apiURL      string
	httpClient  *http.Client
}

// NewClient создаёт клиент. apiURL без завершающего слэша.
func NewClient(apiURL, accessToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		accessToken: accessToken,
		apiURL:      apiURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr apiError
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("unexpected status %s: %s", resp.Status, apiErr.Message)
		}
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreatePreference создаёт preference для оплаты через checkout провайдера.
func (c *Client) CreatePreference(ctx context.Context, reqParams PreferenceRequest) (*Preference, error) {
	const op = "paymentprovider.CreatePreference"

	req, err := c.newRequest(ctx, http.MethodPost, "/checkout/preferences", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	var pref Preference
	if err := c.do(req, &pref); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &pref, nil
}

// GetPayment возвращает платёж по его ID у провайдера.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	const op = "paymentprovider.GetPayment"

	req, err := c.newRequest(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var p Payment
	if err := c.do(req, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}
