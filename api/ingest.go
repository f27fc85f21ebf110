package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/live"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// IngestHandler REST API interface consulted by the broadcast ingest process
//
// The ingest process calls these endpoints before and during a live streamer
// connection. Denials are part of the contract and reported in the response
// body, not as HTTP errors.
type IngestHandler struct {
	goutils.RestAPIHandler
	validate   *validator.Validate
	auth       live.Authenticator
	controller live.SessionController
	db         db.PersistenceManager
}

/*
NewIngestHandler define a new broadcast ingest callback REST API handler

	@param auth live.Authenticator - session authenticator
	@param controller live.SessionController - broadcast session controller
	@param dbClient db.PersistenceManager - persistence manager
	@param logConfig common.HTTPRequestLogging - handler log settings
	@returns new IngestHandler
*/
func NewIngestHandler(
	auth live.Authenticator,
	controller live.SessionController,
	dbClient db.PersistenceManager,
	logConfig common.HTTPRequestLogging,
) (IngestHandler, error) {
	return IngestHandler{
		RestAPIHandler: buildRestAPIHandler(
			log.Fields{"module": "api", "component": "ingest-handler"}, logConfig,
		),
		validate:   validator.New(),
		auth:       auth,
		controller: controller,
		db:         dbClient,
	}, nil
}

// ====================================================================================
// Streamer authentication

// StreamerAuthRequest streamer credential check parameters
type StreamerAuthRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// StreamerAuthResponse response reporting an authentication decision
type StreamerAuthResponse struct {
	goutils.RestAPIBaseResponse
	// Allowed whether the streamer may broadcast now
	Allowed bool `json:"allowed"`
}

// AuthenticateStreamer godoc
// @Summary Authenticate a streamer
// @Description Check whether a streamer credential may broadcast on a station
// right now. A denial is a valid decision, not an HTTP error.
// @tags ingest
// @Accept json
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Param stationID path string true "Station ID"
// @Param param body StreamerAuthRequest true "Streamer credential"
// @Success 200 {object} StreamerAuthResponse "decision"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/station/{stationID}/streamer/auth [post]
func (h IngestHandler) AuthenticateStreamer(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	stationID, ok := vars["stationID"]
	if !ok {
		msg := "request missing station ID"
		log.WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	params, err := h.parseStreamerAuthRequest(r)
	if err != nil {
		msg := "unable to parse streamer credential from request"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	allowed, err := h.auth.Authenticate(r.Context(), stationID, params.Username, params.Password)
	if err != nil {
		msg := "streamer authentication check failed"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	response = StreamerAuthResponse{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Allowed: allowed,
	}
}

func (h IngestHandler) parseStreamerAuthRequest(r *http.Request) (StreamerAuthRequest, error) {
	var params StreamerAuthRequest
	if r.Body == nil {
		return params, fmt.Errorf("no payload provided for streamer authentication")
	}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		return params, err
	}
	defer func() {
		_ = r.Body.Close()
	}()
	if err := h.validate.Struct(&params); err != nil {
		return params, err
	}
	return params, nil
}

// AuthenticateStreamerHandler Wrapper around AuthenticateStreamer
func (h IngestHandler) AuthenticateStreamerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.AuthenticateStreamer(w, r)
	}
}

// ------------------------------------------------------------------------------------

// StreamerConnectRequest streamer connect callback parameters
type StreamerConnectRequest struct {
	Username string `json:"username" validate:"required"`
}

// StreamerConnectResponse response reporting the station live state after a connect
type StreamerConnectResponse struct {
	goutils.RestAPIBaseResponse
	// Live whether the station transitioned to live
	Live bool `json:"live"`
}

// StreamerConnect godoc
// @Summary Streamer connect callback
// @Description Report that a streamer connected to the station broadcast
// ingest. Opens a new broadcast session; any prior open session is closed.
// @tags ingest
// @Accept json
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Param stationID path string true "Station ID"
// @Param param body StreamerConnectRequest true "Connect parameters"
// @Success 200 {object} StreamerConnectResponse "result"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/station/{stationID}/streamer/connect [post]
func (h IngestHandler) StreamerConnect(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	stationID, ok := vars["stationID"]
	if !ok {
		msg := "request missing station ID"
		log.WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	if r.Body == nil {
		msg := "no payload provided for streamer connect"
		log.WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}
	var params StreamerConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		msg := "unable to parse streamer connect parameters from request"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()
	if err := h.validate.Struct(&params); err != nil {
		msg := "missing required values for streamer connect"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	nowLive, err := h.controller.Connect(r.Context(), stationID, params.Username)
	if err != nil {
		msg := "streamer connect transition failed"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	response = StreamerConnectResponse{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Live: nowLive,
	}
}

// StreamerConnectHandler Wrapper around StreamerConnect
func (h IngestHandler) StreamerConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.StreamerConnect(w, r)
	}
}

// ------------------------------------------------------------------------------------

// StreamerDisconnect godoc
// @Summary Streamer disconnect callback
// @Description Report that the station broadcast ingest lost its streamer.
// Closes all open broadcast sessions; repeating the call is a no-op.
// @tags ingest
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Param stationID path string true "Station ID"
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/station/{stationID}/streamer/disconnect [post]
func (h IngestHandler) StreamerDisconnect(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	stationID, ok := vars["stationID"]
	if !ok {
		msg := "request missing station ID"
		log.WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	if err := h.controller.Disconnect(r.Context(), stationID); err != nil {
		msg := "streamer disconnect transition failed"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	response = h.GetStdRESTSuccessMsg(r.Context())
}

// StreamerDisconnectHandler Wrapper around StreamerDisconnect
func (h IngestHandler) StreamerDisconnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.StreamerDisconnect(w, r)
	}
}

// ====================================================================================
// Utilities

// Alive godoc
// @Summary Ingest API liveness check
// @Description Will return success to indicate ingest REST API module is live
// @tags util,ingest
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/alive [get]
func (h IngestHandler) Alive(w http.ResponseWriter, r *http.Request) {
	logTags := h.GetLogTagsForContext(r.Context())
	if err := h.WriteRESTResponse(
		w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()), nil,
	); err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to form response")
	}
}

// AliveHandler Wrapper around Alive
func (h IngestHandler) AliveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Alive(w, r)
	}
}

// -----------------------------------------------------------------------

// Ready godoc
// @Summary Ingest API readiness check
// @Description Will return success if ingest REST API module is ready for use
// @tags util,ingest
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/ready [get]
func (h IngestHandler) Ready(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()
	if err := h.db.Ready(r.Context()); err != nil {
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(
			r.Context(), http.StatusInternalServerError, "not ready", err.Error(),
		)
	} else {
		respCode = http.StatusOK
		response = h.GetStdRESTSuccessMsg(r.Context())
	}
}

// ReadyHandler Wrapper around Ready
func (h IngestHandler) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Ready(w, r)
	}
}
