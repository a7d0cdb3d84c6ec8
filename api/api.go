// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"github.com/blinklabs-io/govern/governance"
	"github.com/blinklabs-io/govern/stake"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServiceName is the name reported by the gRPC health and reflection services
const ServiceName = "govern.v0.Governance"

type ApiConfig struct {
	Logger *slog.Logger
	Engine *governance.Engine
	// Stake enables the stake endpoint when DevMode is set
	Stake           *stake.MemoryLedger
	ListenAddress   string
	TlsCertFilePath string
	TlsKeyFilePath  string
	// DevMode exposes contract deployment and stake assignment
	DevMode bool
}

// Api serves the governance engine over HTTP/JSON. Plain-text listeners
// accept HTTP/2 through h2c so gRPC health checks work without TLS
type Api struct {
	config     ApiConfig
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
}

func New(cfg ApiConfig) (*Api, error) {
	if cfg.Engine == nil {
		return nil, errors.New("no governance engine provided")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	return &Api{
		config: cfg,
		logger: cfg.Logger.With("component", "api"),
	}, nil
}

// Handler returns the request multiplexer with every route registered
func (a *Api) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /api/v0/governance", a.handleCounters)
	mux.HandleFunc("GET /api/v0/templates", a.handleListTemplates)
	mux.HandleFunc("GET /api/v0/templates/{id}", a.handleGetTemplate)
	mux.HandleFunc("GET /api/v0/proposals", a.handleListProposals)
	mux.HandleFunc("POST /api/v0/proposals", a.handleCreateProposal)
	mux.HandleFunc("GET /api/v0/proposals/{id}", a.handleGetProposal)
	mux.HandleFunc("GET /api/v0/proposals/{id}/tally", a.handleTally)
	mux.HandleFunc("GET /api/v0/proposals/{id}/receipt", a.handleReceipt)
	mux.HandleFunc("POST /api/v0/proposals/{id}/votes", a.handleVote)
	mux.HandleFunc("GET /api/v0/proposals/{id}/votes/{voter}", a.handleGetVote)
	mux.HandleFunc("DELETE /api/v0/proposals/{id}/votes/{voter}", a.handleCancelVote)
	mux.HandleFunc("GET /api/v0/tasks/{index}", a.handleGetTask)
	mux.HandleFunc("POST /api/v0/tasks/handle", a.handleTasks)
	mux.HandleFunc("GET /api/v0/params", a.handleListParams)
	mux.HandleFunc("PUT /api/v0/params/{name}", a.handleSetParam)
	if a.config.DevMode {
		mux.HandleFunc("POST /api/v0/contracts", a.handleDeploy)
		mux.HandleFunc("GET /api/v0/contracts/{address}", a.handleGetContract)
		if a.config.Stake != nil {
			mux.HandleFunc("POST /api/v0/stake", a.handleSetStake)
		}
	}
	compress1KB := connect.WithCompressMinBytes(1024)
	mux.Handle(
		grpchealth.NewHandler(
			grpchealth.NewStaticChecker(ServiceName),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1(
			grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1Alpha(
			grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName),
			compress1KB,
		),
	)
	return mux
}

// Start binds the listener and serves in the background. The server shuts
// down when ctx is cancelled or Stop is called
func (a *Api) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpServer != nil {
		return errors.New("server already started")
	}
	tlsEnabled := a.config.TlsCertFilePath != "" && a.config.TlsKeyFilePath != ""
	handler := a.Handler()
	if !tlsEnabled {
		// Use h2c so we can serve HTTP/2 without TLS
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	a.httpServer = server
	a.listener = ln
	go func() {
		var err error
		if tlsEnabled {
			err = server.ServeTLS(
				ln,
				a.config.TlsCertFilePath,
				a.config.TlsKeyFilePath,
			)
		} else {
			err = server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("API server error", "error", err)
		}
	}()
	a.logger.Info(
		"API listener started",
		"address", ln.Addr().String(),
		"tls", tlsEnabled,
		"dev_mode", a.config.DevMode,
	)
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or nil before Start
func (a *Api) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Stop gracefully shuts down the HTTP server
func (a *Api) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.listener = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	a.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}
