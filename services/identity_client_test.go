package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bounty-board-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newStubIdentityServer(t *testing.T, users map[string]IdentityUser) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccessToken string `json:"access_token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		user, ok := users[req.AccessToken]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(user))
	})

	mux.HandleFunc("GET /api/v1/users/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/v1/users/"):]
		for _, user := range users {
			if user.ID == id {
				require.NoError(t, json.NewEncoder(w).Encode(user))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestVerifyToken(t *testing.T) {
	server := newStubIdentityServer(t, map[string]IdentityUser{
		"good-token": {ID: "did:privy:abc", Name: "Ada", GithubLogin: strPtr("ada")},
	})
	client := NewIdentityClient(server.URL, "app-id", "app-secret")

	t.Run("valid token", func(t *testing.T) {
		user, err := client.VerifyToken("good-token")
		require.NoError(t, err)
		assert.Equal(t, "did:privy:abc", user.ID)
		assert.Equal(t, "Ada", user.Name)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := client.VerifyToken("bad-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestSyncUserCreatesAndUpdates(t *testing.T) {
	db := newTestDB(t)
	client := NewIdentityClient("http://unused", "app-id", "app-secret")

	identityUser := &IdentityUser{
		ID:          "did:privy:abc",
		Name:        "Ada",
		Username:    strPtr("ada"),
		GithubLogin: strPtr("ada"),
	}

	created, err := client.SyncUser(db, identityUser)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ada", created.Name)
	require.NotNil(t, created.LastSyncedAt)

	// Second sync with changed profile updates the same row.
	identityUser.Name = "Ada L."
	identityUser.WalletAddress = strPtr("So1anaWa11et")
	updated, err := client.SyncUser(db, identityUser)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Ada L.", updated.Name)
	require.NotNil(t, updated.WalletAddress)
	assert.Equal(t, "So1anaWa11et", *updated.WalletAddress)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSyncUserDefaultsEmptyName(t *testing.T) {
	db := newTestDB(t)
	client := NewIdentityClient("http://unused", "app-id", "app-secret")

	user, err := client.SyncUser(db, &IdentityUser{ID: "did:privy:noname"})
	require.NoError(t, err)
	assert.Equal(t, "User", user.Name)
}
