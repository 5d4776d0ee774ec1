// Command relaymux runs the local reverse-proxy: one Anthropic-Messages-
// compatible endpoint dispatched across four AI backends (three OAuth-backed,
// one using static API tokens) via per-backend account pools.
//
// Wiring follows the same shape as a daemon entrypoint that loads a flat
// config record, builds its persistence and HTTP layers, and serves with a
// graceful-shutdown signal handler: config -> per-backend pool+client ->
// orchestrator -> chi router -> http.Server -> SIGTERM/SIGINT drains the
// listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tokligence/relaymux/internal/accountpool"
	"github.com/tokligence/relaymux/internal/backend/chatcompletions"
	"github.com/tokligence/relaymux/internal/backend/cloudcode"
	"github.com/tokligence/relaymux/internal/backend/cursor"
	"github.com/tokligence/relaymux/internal/backend/responses"
	"github.com/tokligence/relaymux/internal/config"
	"github.com/tokligence/relaymux/internal/dispatch"
	"github.com/tokligence/relaymux/internal/httpserver"
	"github.com/tokligence/relaymux/internal/logx"
	"github.com/tokligence/relaymux/internal/oauth"
	"github.com/tokligence/relaymux/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println(version.FullInfo())
		return
	}

	cfg, err := config.LoadGatewayConfig(".")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	logger := logx.New(os.Stdout, "relaymux", cfg.LogLevel)

	pools := make(map[config.BackendName]*accountpool.Pool, len(config.AllBackends))
	backends := make(map[config.BackendName]dispatch.Backend, len(config.AllBackends))

	for _, name := range config.AllBackends {
		bc := cfg.Backends[name]
		pool, err := buildPool(name, bc, cfg, logger)
		if err != nil {
			log.Fatalf("build pool for backend %s: %v", name, err)
		}
		pools[name] = pool

		backend, err := buildBackend(name, bc)
		if err != nil {
			log.Fatalf("build backend adapter %s: %v", name, err)
		}
		backends[name] = backend
	}

	orchestrator := dispatch.NewOrchestrator(cfg, pools, backends, logger)
	srv := httpserver.New(cfg, orchestrator, pools, logger)

	httpSrv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming responses must not be cut off mid-SSE
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("relaymux listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// buildPool constructs one backend's account pool: its persistence Store,
// its OAuth refresh function, and loads whatever accounts are already on
// disk. The binary-framed Cursor backend carries a static API-token
// credential rather than an OAuth one, so it skips the refresher and
// authorize-flow machinery entirely.
func buildPool(name config.BackendName, bc config.BackendConfig, cfg config.GatewayConfig, logger *logx.Logger) (*accountpool.Pool, error) {
	store := accountpool.NewStore(bc.PoolFile, logger)

	if name == config.BackendCursor {
		pool := accountpool.NewPool(nil, logger, store)
		newCred := func() accountpool.Credential { return &cursor.Credential{} }
		pool.Initialize(newCred)
		if err := pool.SeedIfEmpty(bc.SeedFile, newCred, time.Now()); err != nil {
			logger.Warnf("account pool %s: seed file %s failed: %v", name, bc.SeedFile, err)
		}
		return pool, nil
	}

	oauthCfg := oauthConfigFor(name, bc, cfg.OAuthCallbackPort)
	oauthClient := oauth.NewClient(oauthCfg, nil)

	refresher := func(ctx context.Context, cred accountpool.Credential) (accountpool.Credential, error) {
		token, ok := cred.(*oauth.Token)
		if !ok || token.RefreshToken == "" {
			return cred, nil
		}
		return oauthClient.Refresh(ctx, token.RefreshToken)
	}

	pool := accountpool.NewPool(refresher, logger, store)
	pool.Initialize(func() accountpool.Credential { return &oauth.Token{} })
	if err := pool.SeedIfEmpty(bc.SeedFile, func() accountpool.Credential { return &oauth.Token{} }, time.Now()); err != nil {
		logger.Warnf("account pool %s: seed file %s failed: %v", name, bc.SeedFile, err)
	}
	return pool, nil
}

// buildBackend constructs the wire-protocol Runner for one backend, ready
// to be handed to the dispatch orchestrator.
func buildBackend(name config.BackendName, bc config.BackendConfig) (dispatch.Backend, error) {
	switch name {
	case config.BackendResponses:
		client := responses.NewClient(http.DefaultClient, responses.Endpoint)
		return responses.NewRunner(client)
	case config.BackendChatCompletions:
		client := chatcompletions.NewClient(http.DefaultClient, chatcompletions.Endpoint, "")
		return chatcompletions.NewRunner(client), nil
	case config.BackendCloudCode:
		client := cloudcode.NewClient(http.DefaultClient, cloudcode.Endpoint)
		return cloudcode.NewRunner(bc.CloudCodeProject, client), nil
	case config.BackendCursor:
		client, err := cursor.NewClient(bc.Endpoint, bc.Vendor)
		if err != nil {
			return nil, err
		}
		return cursor.NewRunner("medium", client), nil
	default:
		return nil, nil
	}
}
