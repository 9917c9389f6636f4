package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/OCAP2/mapdraw/internal/config"
	"github.com/OCAP2/mapdraw/internal/influx"
	"github.com/OCAP2/mapdraw/internal/logging"
	"github.com/OCAP2/mapdraw/internal/monitor"
	"github.com/OCAP2/mapdraw/internal/server"
	"github.com/OCAP2/mapdraw/internal/session"
	"github.com/OCAP2/mapdraw/internal/surface"
	"github.com/OCAP2/mapdraw/internal/tool"
	"github.com/OCAP2/mapdraw/pkg/core"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "mapdraw"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run() error {
	configDir := "."
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	configErr := config.Load(configDir)

	start := time.Now()
	logsDir := config.GetString("logsDir")
	logFile, err := logging.OpenLogFile(logsDir, AppName, start)
	if err != nil {
		return err
	}
	defer logFile.Close()

	graylog := config.GetGraylogConfig()
	graylogAddress := ""
	if graylog.Enabled {
		graylogAddress = graylog.Address
	}
	logger, closeLog, err := logging.Setup(logging.Options{
		Level:          config.GetString("logLevel"),
		File:           logFile,
		GraylogAddress: graylogAddress,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info().Str("version", Version).Str("buildDate", BuildDate).Msg("Starting up")
	if configErr != nil {
		logger.Warn().Err(configErr).Str("dir", configDir).Msg("Using default configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	toolOpts, err := toolOptions()
	if err != nil {
		return err
	}

	sessionOpts := session.Options{Tools: toolOpts}
	mapCfg := config.GetMapConfig()
	sessionOpts.Map = session.MapOptions{
		StyleURL: mapCfg.StyleURL,
		Center:   core.LngLat{Lng: mapCfg.Lng, Lat: mapCfg.Lat},
		Zoom:     mapCfg.Zoom,
	}

	usage := influx.NewManager(config.GetInfluxConfig(), logger, filepath.Join(logsDir, AppName+".usage.lp.gz"))
	switch err := usage.Connect(ctx); {
	case err == nil:
		sessionOpts.Usage = usage
		defer usage.Close()
	case errors.Is(err, influx.ErrDisabled):
		logger.Debug().Msg("Usage metrics disabled")
	default:
		logger.Warn().Err(err).Msg("Usage metrics unavailable")
	}

	srvCfg := config.GetServerConfig()
	srv := server.New(server.Options{
		Server:  srvCfg,
		Session: sessionOpts,
		Logger:  logger,
	})

	if monCfg := config.GetMonitorConfig(); monCfg.Enabled {
		mon := monitor.NewService(monitor.Dependencies{
			Sessions:   srv.Sessions(),
			Usage:      sessionOpts.Usage,
			StatusFile: monCfg.StatusFile,
			Interval:   monCfg.Interval,
			Logger:     logger,
		})
		if err := mon.Start(); err != nil {
			return err
		}
		defer mon.Stop()
	}

	httpSrv := &http.Server{
		Addr:              srvCfg.Address,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", srvCfg.Address).Msg("Listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.CloseAll()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Graceful shutdown failed")
	}
	return nil
}

func toolOptions() ([]tool.Option, error) {
	style, err := config.GetStyleConfig()
	if err != nil {
		return nil, err
	}
	label := config.GetLabelConfig()
	return []tool.Option{
		tool.WithPaints(paint(style.Draft), paint(style.Final)),
		tool.WithLabel(label.Prefix, label.Layout),
	}, nil
}

func paint(p config.PaintConfig) surface.Paint {
	return surface.Paint{Color: p.Color, Width: p.Width, Dash: p.Dash}
}
