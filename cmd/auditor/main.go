package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/tama-audit/auditor/internal/buildinfo"
	"github.com/tama-audit/auditor/internal/cli"
	"github.com/tama-audit/auditor/internal/config"
	"github.com/tama-audit/auditor/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger := logging.NewZapLogger(zl)
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
