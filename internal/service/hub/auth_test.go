package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neohub/internal/config"
	hubModel "neohub/internal/model/hub"
)

func TestAuthServiceStoreFirst(t *testing.T) {
	store := newFakeStore()
	store.apiKeys["db-key"] = &hubModel.APIKeyUser{UserID: "u-1", Name: "ops"}
	auth := NewAuthService(store, &config.AuthConfig{StaticAPIKeys: []string{"static-key"}})

	// 1. Keys in the store validate and resolve their owner
	assert.True(t, auth.ValidateAPIKey("db-key"))
	user := auth.GetUserByAPIKey("db-key")
	require.NotNil(t, user)
	assert.Equal(t, "u-1", user.UserID)

	// 2. Static keys validate but have no owner
	assert.True(t, auth.ValidateAPIKey("static-key"))
	assert.Nil(t, auth.GetUserByAPIKey("static-key"))

	// 3. Unknown keys and the empty key are rejected
	assert.False(t, auth.ValidateAPIKey("nope"))
	assert.False(t, auth.ValidateAPIKey(""))
}

func TestAuthServiceStaticFallbackWhenStoreDown(t *testing.T) {
	store := newFakeStore()
	store.apiKeys["db-key"] = &hubModel.APIKeyUser{UserID: "u-1"}
	store.setConnected(false)
	auth := NewAuthService(store, &config.AuthConfig{StaticAPIKeys: []string{"static-key"}})

	// Store keys are unreachable, static keys keep working
	assert.False(t, auth.ValidateAPIKey("db-key"))
	assert.True(t, auth.ValidateAPIKey("static-key"))
	assert.Nil(t, auth.GetUserByAPIKey("static-key"))
}
