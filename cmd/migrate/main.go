// migrate applies, inspects or rolls back the embedded schema migrations.
//
// Usage: go run ./cmd/migrate [-seed] [up|status|down]
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/config"
	"inventory-ledger/internal/db"
	"inventory-ledger/internal/logging"
	"inventory-ledger/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "optional config file")
	seed := flag.Bool("seed", false, "create the default posting accounts after migrating up")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("[CONNECT] %v", err)
	}
	defer pool.Close()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}
	switch cmd {
	case "up":
		err = db.Migrate(ctx, pool, logger)
	case "status":
		err = db.MigrationStatus(ctx, pool, logger)
	case "down":
		err = db.Rollback(ctx, pool, logger)
	default:
		logger.Fatalf("unknown command %q (want up, status or down)", cmd)
	}
	if err != nil {
		logger.Fatalf("[%s] %v", cmd, err)
	}

	if *seed && cmd == "up" {
		svc := app.New(postgres.New(pool), app.Options{
			TxTimeout: cfg.TxTimeout,
			Rules:     cfg.AccountRules(),
			Logger:    logger,
		})
		accounts, err := svc.EnsureDefaultAccounts(ctx)
		if err != nil {
			logger.Fatalf("[SEED] %v", err)
		}
		for _, a := range accounts {
			logger.WithFields(logrus.Fields{"code": a.Code, "type": a.Type}).Info("[SEED] account ready")
		}
	}
	logger.Infof("[DONE] %s", cmd)
}
