package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/catenahq/bridge-backend/internal/api"
	"github.com/catenahq/bridge-backend/internal/bridge"
	"github.com/catenahq/bridge-backend/internal/bridge/evm"
	"github.com/catenahq/bridge-backend/internal/chain"
	"github.com/catenahq/bridge-backend/internal/config"
	"github.com/catenahq/bridge-backend/internal/log"
	"github.com/catenahq/bridge-backend/internal/metrics"
	"github.com/catenahq/bridge-backend/internal/store"
	"github.com/catenahq/bridge-backend/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting bridge API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"home_chain", cfg.Bridge.HomeChain,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("bridge-backend")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Setup Redis cache
	cache, err := store.NewCache(cfg.Cache.RedisAddr, logger, metricsObj)
	if err != nil {
		logger.Fatalw("Failed to setup cache", "error", err)
	}
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cache.Ping(ctx); err != nil {
		logger.Fatalw("Cache ping failed", "error", err)
	}
	cancel()
	logger.Infow("Cache connection established", "in_memory", cache.IsInMemoryMode())

	// Build the chain catalogue and the provider registry from the configured
	// route endpoints.
	chains := chain.NewRegistry()

	routes := make(map[bridge.ChainPair]evm.RouteConfig, len(cfg.Bridge.Routes))
	for key, endpoints := range cfg.Bridge.Routes {
		source, target, ok := strings.Cut(key, ":")
		if !ok {
			logger.Fatalw("Malformed route key", "key", key)
		}
		pair := bridge.ChainPair{Source: chain.ID(source), Target: chain.ID(target)}
		routes[pair] = evm.RouteConfig{
			RPCURL:         cfg.Bridge.RPCURLs[pair.Source],
			RelayerURL:     endpoints.RelayerURL,
			BridgeContract: endpoints.BridgeContract,
		}
	}

	pairs := make([]bridge.ChainPair, 0, len(routes))
	for pair := range routes {
		pairs = append(pairs, pair)
	}

	factory := evm.NewFactory(evm.FactoryConfig{
		Chains: chains,
		Routes: routes,
		Logger: logger,
	})
	registry, err := bridge.NewRegistry(pairs, factory)
	if err != nil {
		logger.Fatalw("Failed to build provider registry", "error", err)
	}
	logger.Infow("Provider registry built", "routes", len(pairs))

	orch := bridge.NewOrchestrator(registry, cfg.HomeChainID(), logger)

	// The service signer is optional. Without it the API serves quotes,
	// status and history but refuses submissions.
	var signer bridge.Signer
	if cfg.Bridge.SignerKey != "" {
		keySigner, err := evm.NewKeySigner(cfg.Bridge.SignerKey)
		if err != nil {
			logger.Fatalw("Invalid signer key", "error", err)
		}
		signer = keySigner
		logger.Infow("Service signer configured", "address", keySigner.Address().Hex())
	} else {
		logger.Warnw("No signer key configured, submission endpoints disabled")
	}

	// Setup WebSocket hub
	wsHub := ws.NewHub(cfg.Security.CORSAllowedOrigins, logger, metricsObj)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go wsHub.Run(hubCtx)

	// Setup API handler and middleware
	handler := api.NewHandler(orch, chains, cache, wsHub, logger, metricsObj, signer,
		bridge.WithPollInterval(cfg.Bridge.PollInterval),
		bridge.WithMaxPollFailures(cfg.Bridge.MaxPollFailures),
	)
	defer handler.Shutdown()
	middleware := api.NewMiddleware(logger, metricsObj)

	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM)
	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Add metrics endpoint
	router.Handle("/metrics", metricsHandler)

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
