// Package main implements the vault service daemon. It wires the
// savings vault against a live EVM endpoint or the in-memory simulated
// backend and serves the REST API.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/lib/pq"

	"github.com/stablevault/vault_service/internal/app/httpapi"
	"github.com/stablevault/vault_service/internal/app/storage/postgres"
	"github.com/stablevault/vault_service/internal/chain"
	"github.com/stablevault/vault_service/internal/config"
	"github.com/stablevault/vault_service/internal/logging"
	"github.com/stablevault/vault_service/services/base"
	"github.com/stablevault/vault_service/services/vault"
	vaultchain "github.com/stablevault/vault_service/services/vault/chain"
)

// Simulated-mode defaults, used when the config leaves addresses empty.
var (
	defaultOwner = common.HexToAddress("0x0000000000000000000000000000000000000001")
	defaultVault = common.HexToAddress("0x0000000000000000000000000000000000000002")
	defaultAsset = common.HexToAddress("0x0000000000000000000000000000000000000003")
	defaultPool  = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

func main() {
	configPath := flag.String("config", "config/vault.yaml", "Path to configuration file")
	flag.Parse()

	if v := os.Getenv("VAULT_CONFIG"); v != "" {
		*configPath = v
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if err := run(cfg, log); err != nil {
		log.Error("vaultd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vaultCfg, deps, err := buildBackend(ctx, cfg, log)
	if err != nil {
		return err
	}

	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := postgres.Apply(ctx, db); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		deps.Journal = postgres.New(db)
		log.Info("postgres journal enabled")
	}

	svc, err := vault.New(vaultCfg, deps)
	if err != nil {
		return fmt.Errorf("create vault service: %w", err)
	}

	registry := base.NewRegistry()
	if err := registry.Register(svc); err != nil {
		return fmt.Errorf("register vault service: %w", err)
	}
	if err := registry.StartAll(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := registry.StopAll(shutdownCtx); err != nil {
			log.Error("stop services", "error", err)
		}
	}()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      httpapi.NewHandler(svc, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// buildBackend constructs the chain collaborators for the configured
// mode.
func buildBackend(ctx context.Context, cfg *config.Config, log logging.Logger) (vault.Config, vault.Deps, error) {
	switch cfg.Chain.Mode {
	case config.ModeSimulated:
		owner := addressOr(cfg.Chain.Owner, defaultOwner)
		vaultAddr := addressOr(cfg.Chain.VaultAddress, defaultVault)
		asset := addressOr(cfg.Chain.USDCAddress, defaultAsset)
		pool := addressOr(cfg.Chain.AavePoolAddress, defaultPool)

		backend := vaultchain.NewSimulated(vaultAddr, pool, asset)
		log.Info("using simulated backend",
			"asset", asset.Hex(),
			"pool", pool.Hex(),
			"yield_token", backend.ATokenAddress().Hex(),
		)

		return vault.Config{Owner: owner, VaultAddress: vaultAddr, Asset: asset, Pool: pool},
			vault.Deps{
				Asset:    backend.ERC20(asset),
				Venue:    backend,
				NewERC20: backend.ERC20,
				Logger:   log,
			}, nil

	case config.ModeRPC:
		client, err := chain.NewClient(ctx, chain.Config{
			RPCURL:      cfg.Chain.RPCURL,
			OperatorKey: cfg.Chain.OperatorKey,
			GasLimit:    cfg.Chain.GasLimit,
			WaitTimeout: cfg.Chain.WaitTimeout,
		})
		if err != nil {
			return vault.Config{}, vault.Deps{}, fmt.Errorf("connect chain: %w", err)
		}

		operator, err := client.OperatorAddress()
		if err != nil {
			return vault.Config{}, vault.Deps{}, fmt.Errorf("operator address: %w", err)
		}

		asset := common.HexToAddress(cfg.Chain.USDCAddress)
		pool := common.HexToAddress(cfg.Chain.AavePoolAddress)
		owner := addressOr(cfg.Chain.Owner, operator)
		vaultAddr := addressOr(cfg.Chain.VaultAddress, operator)

		log.Info("using rpc backend",
			"rpc", cfg.Chain.RPCURL,
			"chain_id", client.ChainID().String(),
			"operator", operator.Hex(),
		)

		return vault.Config{Owner: owner, VaultAddress: vaultAddr, Asset: asset, Pool: pool},
			vault.Deps{
				Asset: vaultchain.NewERC20(client, asset, vaultAddr),
				Venue: vaultchain.NewAavePool(client, pool),
				NewERC20: func(token common.Address) vault.AssetTransfer {
					return vaultchain.NewERC20(client, token, vaultAddr)
				},
				Logger: log,
			}, nil

	default:
		return vault.Config{}, vault.Deps{}, fmt.Errorf("unknown chain mode %q", cfg.Chain.Mode)
	}
}

func addressOr(s string, fallback common.Address) common.Address {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s)
	}
	return fallback
}
