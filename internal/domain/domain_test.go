package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRequest_JSON(t *testing.T) {
	var req LoginRequest
	require.NoError(t, json.Unmarshal([]byte(`{"UserName":"alice","Password":"x"}`), &req))
	assert.Equal(t, "alice", req.UserName)
	assert.Equal(t, "x", req.Password)

	var empty LoginRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.Empty(t, empty.UserName)
	assert.Empty(t, empty.Password)
}

func TestLoginRequest_MarshalZerologObject(t *testing.T) {
	tests := []struct {
		name         string
		req          LoginRequest
		wantPassword string
	}{
		{name: "masks password", req: LoginRequest{UserName: "alice", Password: "secret"}, wantPassword: "***"},
		{name: "empty password stays empty", req: LoginRequest{UserName: "bob"}, wantPassword: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)
			logger.Info().Object("request", tt.req).Msg("login")

			var entry struct {
				Request map[string]string `json:"request"`
			}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.req.UserName, entry.Request["UserName"])
			assert.Equal(t, tt.wantPassword, entry.Request["Password"])
			assert.NotContains(t, buf.String(), "secret")
		})
	}
}

func TestHealthy(t *testing.T) {
	body, err := json.Marshal(Healthy())
	require.NoError(t, err)
	assert.JSONEq(t, `{"Status":"Healthy","Version":"1.0.0"}`, string(body))
}

func TestExternalAPIError(t *testing.T) {
	cause := fmt.Errorf("dial tcp: %w", context.DeadlineExceeded)
	err := NewExternalAPIError("GET", "https://example.com", cause)

	assert.Equal(t, "GET https://example.com: dial tcp: context deadline exceeded", err.Error())
	assert.True(t, errors.Is(err, ErrServiceUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrInvalidInput))

	wrapped := fmt.Errorf("process: %w", err)
	var apiErr *ExternalAPIError
	require.True(t, errors.As(wrapped, &apiErr))
	assert.Equal(t, "https://example.com", apiErr.URL)
}
