package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationClientPostsMessage(t *testing.T) {
	var got NotificationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewNotificationClient(srv.URL)
	err := client.Notify(context.Background(), "reader@example.com", "Library Notification", "You have returned the book on time.")
	require.NoError(t, err)

	assert.Equal(t, NotificationRequest{
		To:      "reader@example.com",
		Subject: "Library Notification",
		Body:    "You have returned the book on time.",
	}, got)
}

func TestNotificationClientReportsRelayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewNotificationClient(srv.URL).Notify(context.Background(), "a@b.c", "s", "b")
	assert.EqualError(t, err, "unexpected status code: 502")
}
