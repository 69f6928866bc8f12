package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to a venue's OAuth2 token endpoint and its key discovery
// endpoint. Both URLs are absolute; venues rarely put them under one base.
type SDKClient struct {
	TokenURL   string
	JWKSURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new venue auth client with a 10s HTTP timeout.
func NewSDKClient(tokenURL, jwksURL string) *SDKClient {
	return &SDKClient{
		TokenURL: strings.TrimSpace(tokenURL),
		JWKSURL:  strings.TrimSpace(jwksURL),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}
