package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPusher_Send(t *testing.T) {
	var got fcmMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPPusher(srv.URL, "secret", srv.Client())
	err := p.Send(context.Background(), Push{Token: "device-1", Title: "Facility Check SLA Breach - BILLING", Body: "Ticket:1 Room:101 Assign SLA Breached"})
	require.NoError(t, err)

	assert.Equal(t, "key=secret", auth)
	assert.Equal(t, "device-1", got.To)
	assert.Equal(t, "high", got.Priority)
	assert.Equal(t, "Facility Check SLA Breach - BILLING", got.Notification.Title)
	assert.Equal(t, "notification", got.Notification.Sound)
	assert.Equal(t, "high_importance_channel", got.Notification.AndroidChannelID)
}

func TestHTTPPusher_Retries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPPusher(srv.URL, "secret", srv.Client())
	p.backoff = time.Millisecond

	require.NoError(t, p.Send(context.Background(), Push{Token: "device-1"}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPPusher_GivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPPusher(srv.URL, "secret", srv.Client())
	p.backoff = time.Millisecond

	err := p.Send(context.Background(), Push{Token: "device-1"})
	require.Error(t, err)
	var nErr *NotificationError
	assert.True(t, errors.As(err, &nErr))
	assert.Equal(t, int32(maxPushAttempts), atomic.LoadInt32(&calls))
}

func TestHTTPPusher_RequiresToken(t *testing.T) {
	p := NewHTTPPusher("http://127.0.0.1:0", "secret", nil)
	assert.ErrorIs(t, p.Send(context.Background(), Push{}), ErrInvalidRecipient)
}

func TestLogPusher(t *testing.T) {
	p := NewLogPusher(zerolog.Nop())
	assert.NoError(t, p.Send(context.Background(), Push{Token: "t", Title: "x"}))
}
