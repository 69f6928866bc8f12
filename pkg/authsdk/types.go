package authsdk

import "github.com/aussiebroadwan/tradelink/pkg/jwtx"

// ============================================================================
// Error Response Types
// ============================================================================

// ErrorResponse represents an OAuth2 error response per RFC 6749.
// This is used internally for parsing HTTP error responses.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is the JWT access token presented to the trading channel
	AccessToken string `json:"access_token"`

	// RefreshToken is returned by some venues on the password grant, unused here
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer" per OAuth2 spec
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// ============================================================================
// Health Check Types
// ============================================================================

// HealthResponse represents the response from health check endpoints.
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of the session's dependencies.
type HealthChecks struct {
	// KeySet is "ok" once verification keys have been fetched
	KeySet string `json:"keyset"`

	// Channel is the trading channel state (e.g., "connected")
	Channel string `json:"channel"`

	// Login is "ok" once the venue acknowledged the login
	Login string `json:"login"`

	// Journal is the order journal status, omitted when journaling is off
	Journal string `json:"journal,omitempty"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse represents the JSON Web Key Set response.
// This contains the public keys used to verify JWT access tokens.
type JWKSResponse jwtx.JWKS
