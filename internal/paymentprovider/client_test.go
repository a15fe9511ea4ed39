package paymentprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreatePreference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-TOKEN", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Idempotency-Key"))

		var req PreferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "monthly_3", req.Items[0].ID)
		assert.Equal(t, "7", req.Metadata["user_id"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp/checkout/pref-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TEST-TOKEN", time.Second)
	pref, err := c.CreatePreference(context.Background(), PreferenceRequest{
		Items:    []Item{{ID: "monthly_3", Title: "Plan", Quantity: 1, UnitPrice: 9000, CurrencyID: "ARS"}},
		Metadata: map[string]string{"user_id": "7", "plan_type": "monthly_3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp/checkout/pref-1", pref.InitPoint)
}

func TestClient_GetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/123", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":123,"status":"approved","transaction_amount":9000,
			"currency_id":"ARS","metadata":{"user_id":"7","plan_type":"monthly_3"}}`))
	}))
	defer srv.Close()

	p, err := NewClient(srv.URL, "t", time.Second).GetPayment(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, int64(123), p.ID)
	assert.Equal(t, StatusApproved, p.Status)
	assert.Equal(t, "monthly_3", p.Metadata["plan_type"])
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Payment not found","error":"not_found","status":404}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "t", time.Second).GetPayment(context.Background(), "404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paymentprovider.GetPayment")
	assert.Contains(t, err.Error(), "Payment not found")
}
