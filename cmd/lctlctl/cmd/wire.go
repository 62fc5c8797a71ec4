package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lustrefs/manager/pkg/api"
	"github.com/lustrefs/manager/pkg/commandplan"
	"github.com/lustrefs/manager/pkg/config"
	"github.com/lustrefs/manager/pkg/logger"
	"github.com/lustrefs/manager/pkg/session"
	"github.com/lustrefs/manager/pkg/transport"
)

// wiredManager builds a Manager from the same config, store, fabric and
// SSH transport types cmd/managerd uses, so a lctlctl invocation talks to
// the same command_plan table a running daemon would. Unlike managerd it
// loads no hosts file: the SSH transport has no host entries, so every
// dispatch to an agent fails. The pool and loaded config are returned too: callers
// close the pool once the command finishes, and watch needs the config's
// poll interval.
func wiredManager(ctx context.Context) (api.Manager, *pgxpool.Pool, *config.Config, error) {
	cfg, err := config.ParseFromFile(configFlag)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.RPCPoolSize)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database pool: %w", err)
	}

	store := commandplan.NewStore(pool)
	fabric := session.NewFabric(nil, cfg.SessionTimeout, logger.Get())
	fabric.SetTransport(transport.NewSSHTransport(transport.Config{}, fabric, logger.Get()))

	return api.NewManager(fabric, store, logger.Get()), pool, cfg, nil
}
