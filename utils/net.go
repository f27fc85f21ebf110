package utils

import (
	"github.com/alwitt/onair/common"
	"github.com/go-resty/resty/v2"
)

/*
DefineHTTPClient define a resty HTTP client for webhook dispatch

	@param config common.HTTPClientConfig - HTTP client config
	@returns new resty client
*/
func DefineHTTPClient(config common.HTTPClientConfig) (*resty.Client, error) {
	return resty.New().
		SetRetryCount(config.Retry.MaxAttempts).
		SetRetryWaitTime(config.Retry.InitWaitTime()).
		SetRetryMaxWaitTime(config.Retry.MaxWaitTime()), nil
}
