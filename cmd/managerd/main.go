// Command managerd is the control plane daemon: it loads configuration,
// opens the command-plan database pool, wires the RPC fabric over an SSH
// agent transport, and serves the api.Manager facade. Grounded on
// kubexm's cmd/kubexm main.go (a minimal main delegating everything to
// a package-level run).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/lustrefs/manager/pkg/api"
	"github.com/lustrefs/manager/pkg/commandplan"
	"github.com/lustrefs/manager/pkg/config"
	"github.com/lustrefs/manager/pkg/logger"
	"github.com/lustrefs/manager/pkg/session"
	"github.com/lustrefs/manager/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "managerd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("MANAGERD_CONFIG")
	cfg, err := config.ParseFromFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Options{ConsoleLevel: logger.InfoLevel, Development: os.Getenv("MANAGERD_DEV") != ""})
	log := logger.Get()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.RPCPoolSize)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()

	store := commandplan.NewStore(pool)

	hostsPath := os.Getenv("MANAGERD_HOSTS")
	hosts, err := loadHostsFile(hostsPath)
	if err != nil {
		return fmt.Errorf("load hosts file: %w", err)
	}

	fabric := session.NewFabric(nil, cfg.SessionTimeout, log)
	sshTransport := transport.NewSSHTransport(transport.Config{Hosts: hosts}, fabric, log)
	fabric.SetTransport(sshTransport)

	mgr := api.NewManager(fabric, store, log)

	addr := os.Getenv("MANAGERD_LISTEN")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: newMux(mgr, log)}

	go func() {
		log.Infow("managerd started", "addr", addr, "rpcPoolSize", cfg.RPCPoolSize, "sessionTimeout", cfg.SessionTimeout, "pollInterval", cfg.PollInterval)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("http server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	log.Infow("managerd shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// hostsFile is the on-disk shape of MANAGERD_HOSTS: a map of FQDN to SSH
// dial parameters, mirroring kubexm's cluster host inventory but scoped
// to just what the SSH transport needs.
type hostsFile struct {
	Hosts map[string]transport.HostConfig `yaml:"hosts"`
}

func loadHostsFile(path string) (map[string]transport.HostConfig, error) {
	if path == "" {
		return map[string]transport.HostConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var hf hostsFile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return nil, err
	}
	return hf.Hosts, nil
}
