// Copyright 2024 Yang Xie
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

// Package server exposes the network configuration interface of the
// generator: the operator page, parameter read/update and the trigger.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/service"
)

type Server interface {
	// Run the HTTP server until the given context is cancelled.
	Run(ctx context.Context) error
}

type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	Port int
}

// NewServer creates a new server
func NewServer(conf Config, api service.API, log zerolog.Logger) (Server, error) {
	return &server{
		Config:     conf,
		log:        log.With().Str("component", "server").Logger(),
		requestLog: log.With().Str("component", "server.requests").Logger(),
		api:        api,
	}, nil
}

type server struct {
	Config
	log        zerolog.Logger
	requestLog zerolog.Logger
	api        service.API
}

// Run the HTTP server until the given context is cancelled.
func (s *server) Run(ctx context.Context) error {
	log := s.log

	// Prepare HTTP listener
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Fatal().Err(err).Msgf("failed to listen on address %s", httpAddr)
	}

	// Prepare HTTP server
	httpRouter := echo.New()
	httpRouter.HideBanner = true
	httpRouter.GET("/", s.handleIndex)
	httpRouter.GET("/params", s.handleGetParams)
	httpRouter.POST("/set", s.handleSetParams)
	httpRouter.GET("/trigger", s.handleTrigger)
	httpRouter.GET("/healthz", s.handleHealth)
	httpRouter.GET("/favicon.ico", s.handleFavicon)
	httpRouter.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	httpSrv := http.Server{
		Handler: httpRouter,
	}

	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve HTTP server")
		}
	}()

	// Wait until context closed
	<-ctx.Done()

	log.Debug().Msg("Closing server...")
	return httpSrv.Shutdown(context.Background())
}
