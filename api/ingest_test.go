package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alwitt/onair/api"
	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/mocks"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestIngestAuthenticateStreamer(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	mockAuth := mocks.NewAuthenticator(t)
	mockController := mocks.NewSessionController(t)

	uut, err := api.NewIngestHandler(mockAuth, mockController, nil, common.HTTPRequestLogging{
		RequestIDHeader: "X-Request-ID", DoNotLogHeaders: []string{},
	})
	assert.Nil(err)

	stationID := uuid.NewString()
	endpoint := fmt.Sprintf("/v1/station/%s/streamer/auth", stationID)

	newRouter := func() (*mux.Router, *httptest.ResponseRecorder) {
		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc(
			"/v1/station/{stationID}/streamer/auth",
			uut.LoggingMiddleware(uut.AuthenticateStreamerHandler()),
		)
		return router, respRecorder
	}

	// Case 0: no parameters given
	{
		req, err := http.NewRequest("POST", endpoint, nil)
		assert.Nil(err)

		router, respRecorder := newRouter()
		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusBadRequest, respRecorder.Code)
	}

	// Case 1: non-json payload
	{
		req, err := http.NewRequest("POST", endpoint, bytes.NewBufferString(uuid.NewString()))
		assert.Nil(err)

		router, respRecorder := newRouter()
		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusBadRequest, respRecorder.Code)
	}

	// Case 2: missing password
	{
		payload := api.StreamerAuthRequest{Username: "dj-morning"}
		payloadByte, err := json.Marshal(&payload)
		assert.Nil(err)
		req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(payloadByte))
		assert.Nil(err)

		router, respRecorder := newRouter()
		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusBadRequest, respRecorder.Code)
	}

	// Case 3: denied credential reported in the decision, not as an HTTP error
	{
		payload := api.StreamerAuthRequest{Username: "dj-morning", Password: uuid.NewString()}
		payloadByte, err := json.Marshal(&payload)
		assert.Nil(err)
		req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(payloadByte))
		assert.Nil(err)

		router, respRecorder := newRouter()

		mockAuth.On(
			"Authenticate",
			mock.AnythingOfType("*context.valueCtx"),
			stationID,
			payload.Username,
			payload.Password,
		).Return(false, nil).Once()

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
		var decision api.StreamerAuthResponse
		assert.Nil(json.NewDecoder(respRecorder.Body).Decode(&decision))
		assert.False(decision.Allowed)
	}

	// Case 4: allowed credential
	{
		payload := api.StreamerAuthRequest{Username: "dj-morning", Password: uuid.NewString()}
		payloadByte, err := json.Marshal(&payload)
		assert.Nil(err)
		req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(payloadByte))
		assert.Nil(err)

		router, respRecorder := newRouter()

		mockAuth.On(
			"Authenticate",
			mock.AnythingOfType("*context.valueCtx"),
			stationID,
			payload.Username,
			payload.Password,
		).Return(true, nil).Once()

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
		var decision api.StreamerAuthResponse
		assert.Nil(json.NewDecoder(respRecorder.Body).Decode(&decision))
		assert.True(decision.Allowed)
	}

	// Case 5: infrastructure fault maps to 500
	{
		payload := api.StreamerAuthRequest{Username: "dj-morning", Password: uuid.NewString()}
		payloadByte, err := json.Marshal(&payload)
		assert.Nil(err)
		req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(payloadByte))
		assert.Nil(err)

		router, respRecorder := newRouter()

		mockAuth.On(
			"Authenticate",
			mock.AnythingOfType("*context.valueCtx"),
			stationID,
			payload.Username,
			payload.Password,
		).Return(false, fmt.Errorf("dummy error")).Once()

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusInternalServerError, respRecorder.Code)
	}
}

func TestIngestStreamerConnect(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	mockAuth := mocks.NewAuthenticator(t)
	mockController := mocks.NewSessionController(t)

	uut, err := api.NewIngestHandler(mockAuth, mockController, nil, common.HTTPRequestLogging{
		RequestIDHeader: "X-Request-ID", DoNotLogHeaders: []string{},
	})
	assert.Nil(err)

	stationID := uuid.NewString()
	endpoint := fmt.Sprintf("/v1/station/%s/streamer/connect", stationID)

	newRouter := func() (*mux.Router, *httptest.ResponseRecorder) {
		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc(
			"/v1/station/{stationID}/streamer/connect",
			uut.LoggingMiddleware(uut.StreamerConnectHandler()),
		)
		return router, respRecorder
	}

	// Case 0: no parameters given
	{
		req, err := http.NewRequest("POST", endpoint, nil)
		assert.Nil(err)

		router, respRecorder := newRouter()
		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusBadRequest, respRecorder.Code)
	}

	// Case 1: successful connect
	{
		payload := api.StreamerConnectRequest{Username: "dj-morning"}
		payloadByte, err := json.Marshal(&payload)
		assert.Nil(err)
		req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(payloadByte))
		assert.Nil(err)

		router, respRecorder := newRouter()

		mockController.On(
			"Connect",
			mock.AnythingOfType("*context.valueCtx"),
			stationID,
			payload.Username,
		).Return(true, nil).Once()

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
		var result api.StreamerConnectResponse
		assert.Nil(json.NewDecoder(respRecorder.Body).Decode(&result))
		assert.True(result.Live)
	}

	// Case 2: connect resolving to a denial
	{
		payload := api.StreamerConnectRequest{Username: "dj-unknown"}
		payloadByte, err := json.Marshal(&payload)
		assert.Nil(err)
		req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(payloadByte))
		assert.Nil(err)

		router, respRecorder := newRouter()

		mockController.On(
			"Connect",
			mock.AnythingOfType("*context.valueCtx"),
			stationID,
			payload.Username,
		).Return(false, nil).Once()

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
		var result api.StreamerConnectResponse
		assert.Nil(json.NewDecoder(respRecorder.Body).Decode(&result))
		assert.False(result.Live)
	}
}

func TestIngestStreamerDisconnect(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	mockAuth := mocks.NewAuthenticator(t)
	mockController := mocks.NewSessionController(t)

	uut, err := api.NewIngestHandler(mockAuth, mockController, nil, common.HTTPRequestLogging{
		RequestIDHeader: "X-Request-ID", DoNotLogHeaders: []string{},
	})
	assert.Nil(err)

	stationID := uuid.NewString()
	endpoint := fmt.Sprintf("/v1/station/%s/streamer/disconnect", stationID)

	// Case 0: disconnect succeeds
	{
		req, err := http.NewRequest("POST", endpoint, nil)
		assert.Nil(err)

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc(
			"/v1/station/{stationID}/streamer/disconnect",
			uut.LoggingMiddleware(uut.StreamerDisconnectHandler()),
		)

		mockController.On(
			"Disconnect",
			mock.AnythingOfType("*context.valueCtx"),
			stationID,
		).Return(nil).Once()

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
	}

	// Case 1: infrastructure fault maps to 500
	{
		req, err := http.NewRequest("POST", endpoint, nil)
		assert.Nil(err)

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc(
			"/v1/station/{stationID}/streamer/disconnect",
			uut.LoggingMiddleware(uut.StreamerDisconnectHandler()),
		)

		mockController.On(
			"Disconnect",
			mock.AnythingOfType("*context.valueCtx"),
			stationID,
		).Return(fmt.Errorf("dummy error")).Once()

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusInternalServerError, respRecorder.Code)
	}
}
