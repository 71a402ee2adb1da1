package apiclient_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiclient "github.com/Alia5/padmap/apiclient"
	apitypes "github.com/Alia5/padmap/apitypes"
	"github.com/Alia5/padmap/internal/server/api"
	"github.com/Alia5/padmap/internal/server/api/handler"
)

func TestClientAuthentication(t *testing.T) {
	srv := api.New("127.0.0.1:0", api.ServerConfig{
		ConnectionTimeout: 2 * time.Second,
		Password:          "secret",
		LocalAuth:         true,
	}, slog.Default())
	srv.Router().Register("ping", handler.Ping("test"))
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	tests := []struct {
		name       string
		password   string
		wantStatus int
	}{
		{name: "password", password: "secret"},
		{name: "wrong password", password: "guess", wantStatus: 401},
		{name: "no password", wantStatus: 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := apiclient.NewWithPassword(srv.Addr(), tt.password).Ping()
			if tt.wantStatus != 0 {
				var problem *apitypes.ApiError
				require.ErrorAs(t, err, &problem)
				assert.Equal(t, tt.wantStatus, problem.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test", resp.Version)
		})
	}
}

func TestLoopbackSkipsAuthentication(t *testing.T) {
	srv := api.New("127.0.0.1:0", api.ServerConfig{ConnectionTimeout: 2 * time.Second, Password: "secret"}, slog.Default())
	srv.Router().Register("ping", handler.Ping("test"))
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	resp, err := apiclient.New(srv.Addr()).Ping()
	require.NoError(t, err)
	assert.Equal(t, "padmap", resp.Server)

	resp, err = apiclient.NewWithPassword(srv.Addr(), "secret").Ping()
	require.NoError(t, err)
	assert.Equal(t, "padmap", resp.Server)
}
