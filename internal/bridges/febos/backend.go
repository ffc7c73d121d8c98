package febos

import (
	"context"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos/api"
)

// Backend is the cloud collaborator. *api.Client satisfies it.
type Backend interface {
	Login(ctx context.Context) (*api.LoginResult, error)
	PageConfig(ctx context.Context, installationID string) (*api.PageConfig, error)
	Slaves(ctx context.Context, installationID, deviceID string) ([]api.Slave, error)
	RealtimeData(ctx context.Context, installationID string, groups []string) ([]api.RealtimeEntry, error)
}

var _ Backend = (*api.Client)(nil)
