package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/live"
	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ====================================================================================
// Broadcast Ingest Callback Server

/*
BuildIngestAPIServer create the REST API server the broadcast ingest process
calls for streamer authentication and session lifecycle callbacks

	@param httpCfg common.APIServerConfig - HTTP server configuration
	@param auth live.Authenticator - session authenticator
	@param controller live.SessionController - broadcast session controller
	@param dbClient db.PersistenceManager - persistence manager
	@returns HTTP server instance
*/
func BuildIngestAPIServer(
	httpCfg common.APIServerConfig,
	auth live.Authenticator,
	controller live.SessionController,
	dbClient db.PersistenceManager,
) (*http.Server, error) {
	httpHandler, err := NewIngestHandler(auth, controller, dbClient, httpCfg.APIs.RequestLogging)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	mainRouter := registerPathPrefix(router, httpCfg.APIs.Endpoint.PathPrefix, nil)
	v1Router := registerPathPrefix(mainRouter, "/v1", nil)

	// --------------------------------------------------------------------------------
	// Health check
	_ = registerPathPrefix(v1Router, "/alive", map[string]http.HandlerFunc{
		"get": httpHandler.AliveHandler(),
	})
	_ = registerPathPrefix(v1Router, "/ready", map[string]http.HandlerFunc{
		"get": httpHandler.ReadyHandler(),
	})

	// --------------------------------------------------------------------------------
	// Streamer session lifecycle
	stationRouter := registerPathPrefix(v1Router, "/station/{stationID}", nil)
	streamerRouter := registerPathPrefix(stationRouter, "/streamer", nil)

	_ = registerPathPrefix(streamerRouter, "/auth", map[string]http.HandlerFunc{
		"post": httpHandler.AuthenticateStreamerHandler(),
	})
	_ = registerPathPrefix(streamerRouter, "/connect", map[string]http.HandlerFunc{
		"post": httpHandler.StreamerConnectHandler(),
	})
	_ = registerPathPrefix(streamerRouter, "/disconnect", map[string]http.HandlerFunc{
		"post": httpHandler.StreamerDisconnectHandler(),
	})

	// --------------------------------------------------------------------------------
	// Middleware

	router.Use(func(next http.Handler) http.Handler {
		return httpHandler.LoggingMiddleware(next.ServeHTTP)
	})

	// --------------------------------------------------------------------------------
	// HTTP Server

	serverListen := fmt.Sprintf(
		"%s:%d", httpCfg.Server.ListenOn, httpCfg.Server.Port,
	)
	httpSrv := &http.Server{
		Addr:         serverListen,
		WriteTimeout: time.Second * time.Duration(httpCfg.Server.Timeouts.WriteTimeout),
		ReadTimeout:  time.Second * time.Duration(httpCfg.Server.Timeouts.ReadTimeout),
		IdleTimeout:  time.Second * time.Duration(httpCfg.Server.Timeouts.IdleTimeout),
		Handler:      h2c.NewHandler(router, &http2.Server{}),
	}

	return httpSrv, nil
}
