package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSHandler_CheckOrigin(t *testing.T) {
	open := NewWSHandler(nil, "")
	restricted := NewWSHandler(nil, "https://app.example.com, https://admin.example.com")

	req := httptest.NewRequest(http.MethodGet, "/ws/messages", nil)
	assert.True(t, restricted.checkOrigin(req), "same-origin requests carry no Origin")

	req.Header.Set("Origin", "https://evil.example.com")
	assert.True(t, open.checkOrigin(req))
	assert.False(t, restricted.checkOrigin(req))

	req.Header.Set("Origin", "https://admin.example.com")
	assert.True(t, restricted.checkOrigin(req))
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantDetails bool
	}{
		{"not found", common.ErrNotFound, http.StatusNotFound, true},
		{"invalid reply", common.ErrInvalidReply, http.StatusBadRequest, true},
		{"persistence", fmt.Errorf("x: %w: %w", common.ErrPersistence, errors.New("dsn leaked")), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err, "Could not do it")

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp common.APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, "Could not do it", resp.Error.Message)
			if tt.wantDetails {
				assert.Equal(t, tt.err.Error(), resp.Error.Details)
			} else {
				assert.Nil(t, resp.Error.Details)
			}
		})
	}
}
