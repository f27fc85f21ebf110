package api

import (
	"net/http"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/common"
	"github.com/apex/log"
	"github.com/gorilla/mux"
)

// methodHandlers DICT of method-endpoint handler
type methodHandlers map[string]http.HandlerFunc

// registerPathPrefix registers new method handler for a path prefix
func registerPathPrefix(parent *mux.Router, prefix string, handler methodHandlers) *mux.Router {
	router := parent.PathPrefix(prefix).Subrouter()
	for method, handler := range handler {
		router.Methods(method).Path("").HandlerFunc(handler)
	}
	return router
}

// buildRestAPIHandler define the shared base REST handler
func buildRestAPIHandler(
	logTags log.Fields, logConfig common.HTTPRequestLogging,
) goutils.RestAPIHandler {
	return goutils.RestAPIHandler{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		CallRequestIDHeaderField: &logConfig.RequestIDHeader,
		DoNotLogHeaders: func() map[string]bool {
			result := map[string]bool{}
			for _, v := range logConfig.DoNotLogHeaders {
				result[v] = true
			}
			return result
		}(),
		LogLevel: logConfig.LogLevel,
	}
}
