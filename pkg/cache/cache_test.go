package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestService_WithoutRedis(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil)

	assert.False(t, svc.IsAvailable())
	assert.ErrorIs(t, svc.Ping(ctx), ErrUnavailable)

	profiles, err := svc.GetProfiles(ctx, []string{"u1"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, profiles)

	assert.NoError(t, svc.SetProfile(ctx, "u1", map[string]string{"display_name": "Alice"}))
}

func TestProfileKey(t *testing.T) {
	assert.Equal(t, "profile:u1", ProfileKey("u1"))
}
