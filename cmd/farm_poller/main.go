package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogzap "github.com/samber/slog-zap/v2"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"farm_poller/internal/app/poller"
	"farm_poller/internal/app/service"
	"farm_poller/internal/app/session"
	"farm_poller/internal/app/store"
	apiclient "farm_poller/internal/client"
	"farm_poller/internal/domain/entity"
	"farm_poller/internal/infrastructure/configloader"
	"farm_poller/internal/infrastructure/farmloader"
	clientprovider "farm_poller/internal/infrastructure/network/client"
	networkdefinition "farm_poller/internal/infrastructure/network/definition"
	"farm_poller/internal/infrastructure/restapi"
	"farm_poller/internal/pkg/logger"
	"farm_poller/internal/pkg/metrics"
)

const defaultConfigPath = "config/config.yml"

func newZapLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zapCfg.Level = lvl
	}
	return zapCfg.Build()
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := configloader.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to load config %s: %v\n", configPath, err)
		os.Exit(1)
	}

	zapLogger, err := newZapLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync() //nolint:errcheck

	slogLevel, _ := logger.ParseLevel(cfg.Logging.Level)
	logger.SetHandler(slogzap.Option{Level: slogLevel, Logger: zapLogger}.NewZapHandler())
	appLogger := logger.NewSlogAdapter()

	metrics.MustRegisterMetrics()

	netDefProvider := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.Networks)
	registry := farmloader.NewFarmLoader(cfg.Registry.Dir, time.Duration(cfg.Registry.CacheTTLMinutes)*time.Minute, appLogger)

	evmProvider := clientprovider.NewEVMClientProvider(netDefProvider, cfg.RpcClient, appLogger)
	defer evmProvider.Close()

	var farmsAPI clientprovider.PublicFarmAPI
	if cfg.FarmsAPI.BaseURL != "" {
		farmsAPI = apiclient.NewFarmsAPIClient(
			cfg.FarmsAPI.BaseURL,
			time.Duration(cfg.FarmsAPI.RequestTimeoutMillis)*time.Millisecond,
			zapLogger,
		)
	} else {
		logger.Warn("Farms API base URL not configured; the api flag variant will read from chain")
	}

	dataClient := clientprovider.NewFarmDataClient(
		evmProvider,
		netDefProvider,
		registry,
		farmsAPI,
		service.NewFarmPriceService(appLogger),
		appLogger,
	)

	snapshots := store.NewSnapshotStore(time.Duration(cfg.Cache.UserTTLMinutes)*time.Minute, appLogger)
	sess := session.NewState(
		entity.ChainContext{ChainID: cfg.Session.ChainID, Account: cfg.Session.Account},
		entity.FlagVariant(cfg.Session.Flag),
	)

	farmPoller := poller.New(poller.Config{
		FastInterval: cfg.Poller.FastInterval(),
		APIInterval:  cfg.Poller.APIInterval(),
		SlowInterval: cfg.Poller.SlowInterval(),
		FetchTimeout: cfg.Poller.FetchTimeout(),
	}, sess, dataClient, registry, snapshots, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		if err := farmPoller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Farm poller exited", "error", err)
		}
	}()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := restapi.SetupRouter(
		restapi.NewFarmHandler(snapshots, sess, appLogger),
		restapi.NewStreamHandler(snapshots, appLogger),
		zapLogger,
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	zapLogger.Info("Prometheus metrics endpoint enabled", zap.String("path", "/metrics"))

	pprofRouter := router.Group("/debug/pprof")
	{
		pprofRouter.GET("/", gin.WrapF(pprof.Index))
		pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
		pprofRouter.POST("/symbol", gin.WrapF(pprof.Symbol))
		pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
		pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
		pprofRouter.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
		pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	}

	if cfg.Swagger.Enabled {
		router.StaticFile("/docs/swagger.yaml", cfg.Swagger.Path)
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.yaml")))
		zapLogger.Info("Swagger UI enabled", zap.String("path", "/swagger/index.html"))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	logger.Info("Farm poller running",
		"chain_id", cfg.Session.ChainID,
		"flag", sess.FarmFlag(),
		slog.Int("networks", len(netDefProvider.GetAllNetworkDefinitions())))

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	<-pollerDone
	logger.Info("Farm poller stopped")
}
