package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendNotifier_SendsPayload(t *testing.T) {
	var got ResendEmailRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	n := NewResendNotifier("key", "Shelf <noreply@college.edu>")
	n.endpoint = srv.URL

	err := n.Notify(context.Background(), Message{To: "student@college.edu", Subject: "Invited", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, []string{"student@college.edu"}, got.To)
	assert.Equal(t, "Invited", got.Subject)
	assert.Equal(t, "hello", got.Text)
}

func TestResendNotifier_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	n := NewResendNotifier("key", "bad")
	n.endpoint = srv.URL

	err := n.Notify(context.Background(), Message{To: "a@b.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from")

	assert.Error(t, n.Notify(context.Background(), Message{}))
}

func TestNewNotifier_FallsBackToLog(t *testing.T) {
	assert.IsType(t, LogNotifier{}, NewNotifier("", "x"))
	assert.IsType(t, &ResendNotifier{}, NewNotifier("k", "x"))
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), Message{To: "a"}))
}
