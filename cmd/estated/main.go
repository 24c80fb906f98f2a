// main.go - Staking ledger daemon.
//
// Boots the confidential property staking ledger as a REST service:
//   - compiles the deposit circuit and loads or generates Groth16 keys
//   - loads or generates the ledger's ElGamal encryption keypair
//   - restores contract state from disk, or creates a fresh contract with
//     the configured seed properties
//   - serves the command and query API, with rate limiting, metrics,
//     health checks and audit logging
//   - persists state periodically and on shutdown
//
// Usage:
//
//	estated -config estated.json

package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DickTrevelyan/shield-stake-estate/internal/confidential"
	"github.com/DickTrevelyan/shield-stake-estate/internal/estate"
	"github.com/DickTrevelyan/shield-stake-estate/internal/transactions/deposit"
)

func main() {
	configPath := flag.String("config", "estated.json", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	auditPath := ""
	if cfg.EnableAudit {
		auditPath = cfg.AuditLogPath
	}
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFile, auditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("compiling deposit circuit")
	ccs, err := deposit.Compile()
	if err != nil {
		logger.Fatal("deposit circuit compilation failed: %v", err)
	}
	pkPath := filepath.Join(cfg.KeyDir, "deposit_pk.bin")
	vkPath := filepath.Join(cfg.KeyDir, "deposit_vk.bin")
	logger.Info("loading Groth16 keys from %s", cfg.KeyDir)
	_, vk, err := deposit.SetupOrLoadKeys(ccs, pkPath, vkPath)
	if err != nil {
		logger.Fatal("Groth16 key setup failed: %v", err)
	}

	keyPath := filepath.Join(cfg.KeyDir, "elgamal.json")
	keys, err := confidential.LoadKeyPair(keyPath)
	if err != nil {
		logger.Info("no encryption keypair at %s, generating", keyPath)
		keys, err = confidential.GenerateKeyPair()
		if err != nil {
			logger.Fatal("encryption keypair generation failed: %v", err)
		}
		if err := confidential.SaveKeyPair(keys, keyPath); err != nil {
			logger.Fatal("encryption keypair save failed: %v", err)
		}
	}

	var contract *estate.Contract
	if _, err := os.Stat(cfg.StatePath); err == nil {
		contract, err = estate.LoadFromFile(cfg.StatePath, keys, vk)
		if err != nil {
			logger.Fatal("state restore from %s failed: %v", cfg.StatePath, err)
		}
		logger.Info("restored state: %d properties", contract.GetPropertyCount())
	} else {
		contract, err = estate.New(estate.Config{
			Address:   common.HexToAddress(cfg.ContractAddress),
			ChainID:   big.NewInt(cfg.ChainID),
			Keys:      keys,
			DepositVK: vk,
			Seed:      cfg.SeedProperties,
		})
		if err != nil {
			logger.Fatal("contract initialization failed: %v", err)
		}
		logger.Info("fresh contract at %s, chain %d, %d seed properties",
			cfg.ContractAddress, cfg.ChainID, len(cfg.SeedProperties))
	}

	health := NewHealthChecker(version)
	health.RegisterComponent("state_file", func() error {
		dir := filepath.Dir(cfg.StatePath)
		_, err := os.Stat(dir)
		return err
	})
	health.RegisterComponent("proving_keys", func() error {
		if _, err := os.Stat(vkPath); err != nil {
			return err
		}
		_, err := os.Stat(pkPath)
		return err
	})

	srv := &server{
		cfg:      cfg,
		logger:   logger,
		metrics:  NewMetricsCollector(),
		limiter:  NewRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefillPerSec, time.Second),
		health:   health,
		contract: contract,
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ListenPort),
		Handler: srv.routes(),
	}

	// Periodic state persistence.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.SaveIntervalSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := contract.SaveToFile(cfg.StatePath); err != nil {
					logger.Error("periodic state save failed: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()

	go func() {
		logger.Info("listening on :%d", cfg.ListenPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("shutdown: %v", err)
	}
	if err := contract.SaveToFile(cfg.StatePath); err != nil {
		logger.Error("final state save failed: %v", err)
	}
	logger.Info("state saved to %s", cfg.StatePath)
}
