package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zapcrmio/zapcrm/config"
	"github.com/zapcrmio/zapcrm/internal/adminapi"
	"github.com/zapcrmio/zapcrm/internal/app"
	"github.com/zapcrmio/zapcrm/internal/webserver"
)

var (
	// populated by -ldflags at release time
	BuildVersion = "dev"

	cfile   = flag.String("c", "zapcrm.yml", "config file")
	showVer = flag.Bool("v", false, "print version and exit")
	initDb  = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println("zapcrm", BuildVersion)
		os.Exit(0)
	}

	cfg := config.LoadConfig(*cfile)
	application := app.NewApplication(cfg)
	application.Init(cfg)

	if *initDb {
		application.DropAll()
		application.InitDb()
		zap.L().Info("database initialized")
		application.Release()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	application.StartBackgroundJobs(ctx)

	adminapi.RegisterAll()
	server := webserver.Init(application)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			zap.L().Error("http server stopped", zap.Error(err))
		}
	case sig := <-sigCh:
		zap.S().Infof("received %s, shutting down", sig)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Echo().Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("shutdown incomplete", zap.Error(err))
	}
	application.Release()
}
