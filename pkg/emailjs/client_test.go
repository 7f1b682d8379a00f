package emailjs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_Success(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1.0/email/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewClient("service_x", "pub_key", WithBaseURL(srv.URL+"/"), WithPrivateKey("priv_key"))
	resp, err := c.Send(context.Background(), "template_cliente", map[string]string{
		"to_email": "ana@example.com",
		"elegivel": "Sim",
	})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp)

	assert.Equal(t, "service_x", got.ServiceID)
	assert.Equal(t, "template_cliente", got.TemplateID)
	assert.Equal(t, "pub_key", got.UserID)
	assert.Equal(t, "priv_key", got.AccessToken)
	assert.Equal(t, "ana@example.com", got.TemplateParams["to_email"])
	assert.Equal(t, "Sim", got.TemplateParams["elegivel"])
}

func TestSend_OmitsEmptyAccessToken(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewClient("service_x", "pub_key", WithBaseURL(srv.URL))
	_, err := c.Send(context.Background(), "template_cliente", nil)
	require.NoError(t, err)
	assert.NotContains(t, raw, "accessToken")
}

func TestSend_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		temporary bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"forbidden", http.StatusForbidden, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("The template ID is invalid\n"))
			}))
			defer srv.Close()

			c := NewClient("service_x", "pub_key", WithBaseURL(srv.URL))
			_, err := c.Send(context.Background(), "template_cliente", nil)
			require.Error(t, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, "The template ID is invalid", se.Body)
			assert.Equal(t, tt.temporary, se.Temporary())
		})
	}
}

func TestSend_RequiresTemplate(t *testing.T) {
	c := NewClient("service_x", "pub_key")
	_, err := c.Send(context.Background(), "", nil)
	assert.ErrorContains(t, err, "template id is required")
}

func TestSend_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("service_x", "pub_key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.Send(ctx, "template_cliente", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
