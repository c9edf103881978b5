package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:    server.URL,
		ServiceKey: "service-key",
		AnonKey:    "anon-key",
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{ServiceKey: "k"})
	require.Error(t, err)

	_, err = NewClient(ClientConfig{BaseURL: "https://auth.example.com"})
	require.Error(t, err)

	client, err := NewClient(ClientConfig{BaseURL: "https://auth.example.com/", ServiceKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "https://auth.example.com", client.baseURL)
}

func TestWhoAmI(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/user", r.URL.Path)
		require.Equal(t, "Bearer caller-token", r.Header.Get("Authorization"))
		require.Equal(t, "anon-key", r.Header.Get("apikey"))

		writeJSON(w, http.StatusOK, map[string]string{"id": "ref-1", "email": "caller@portal.test"})
	}))

	account, err := client.WhoAmI(context.Background(), "caller-token")
	require.NoError(t, err)
	require.Equal(t, "ref-1", account.Ref)
	require.Equal(t, "caller@portal.test", account.LoginID)
}

func TestWhoAmIRejectionNormalisedToInvalidToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "token expired"})
	}))

	_, err := client.WhoAmI(context.Background(), "stale-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGetByRef(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/admin/users/ref-9", r.URL.Path)
		require.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, map[string]string{"id": "ref-9", "email": "jdoe@portal.test"})
	}))

	account, err := client.GetByRef(context.Background(), "ref-9")
	require.NoError(t, err)
	require.Equal(t, "ref-9", account.Ref)
}

func TestGetByRefNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "user not found"})
	}))

	_, err := client.GetByRef(context.Background(), "ref-gone")
	require.True(t, IsNotFound(err))
}

func TestUpdatePassword(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/admin/users/ref-9", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "new-password", body["password"])

		writeJSON(w, http.StatusOK, map[string]string{"id": "ref-9"})
	}))

	require.NoError(t, client.UpdatePassword(context.Background(), "ref-9", "new-password"))
}

func TestCreateSendsConfirmedEmail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/admin/users", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "jdoe@portal.test", body["email"])
		require.Equal(t, true, body["email_confirm"])

		writeJSON(w, http.StatusOK, map[string]string{"id": "ref-new", "email": "jdoe@portal.test"})
	}))

	account, err := client.Create(context.Background(), "jdoe@portal.test", "fresh-password")
	require.NoError(t, err)
	require.Equal(t, "ref-new", account.Ref)
}

func TestCreateConflictClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]string
	}{
		{"409", http.StatusConflict, map[string]string{"msg": "conflict"}},
		{"422 duplicate", http.StatusUnprocessableEntity, map[string]string{"msg": "email address already registered"}},
		{"400 duplicate", http.StatusBadRequest, map[string]string{"msg": "A user with this email address has already been registered"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))

			_, err := client.Create(context.Background(), "jdoe@portal.test", "fresh-password")
			require.True(t, IsConflict(err), "got %v", err)
		})
	}
}

func TestCreateUnrecognisedFailureStaysInternal(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"msg": "maintenance"})
	}))

	_, err := client.Create(context.Background(), "jdoe@portal.test", "fresh-password")
	require.Error(t, err)
	require.False(t, IsConflict(err))
	require.False(t, IsNotFound(err))

	var status *statusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusServiceUnavailable, status.status)
}

func TestRevivalCallsShapePayloads(t *testing.T) {
	var payloads []map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		payloads = append(payloads, body)
		writeJSON(w, http.StatusOK, map[string]string{"id": "ref-9"})
	}))

	require.NoError(t, client.ClearSoftDelete(context.Background(), "ref-9"))
	require.NoError(t, client.ClearBan(context.Background(), "ref-9"))
	require.NoError(t, client.ClearExternalLoginOnly(context.Background(), "ref-9"))

	require.Len(t, payloads, 3)
	require.Contains(t, payloads[0], "deleted_at")
	require.Nil(t, payloads[0]["deleted_at"])
	require.Equal(t, "none", payloads[1]["ban_duration"])
	require.Contains(t, payloads[2], "app_metadata")
}
