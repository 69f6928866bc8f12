package venuesim

import (
	"net/http/httptest"
	"strings"
	"testing"
)

// Server is a Venue listening on an httptest server.
type Server struct {
	*Venue
	HTTP *httptest.Server

	URL      string
	TokenURL string
	JWKSURL  string
	WSURL    string
}

// NewServer starts a venue for the duration of the test.
func NewServer(tb testing.TB, cfg Config) *Server {
	tb.Helper()

	v, err := New(cfg)
	if err != nil {
		tb.Fatalf("venuesim: %v", err)
	}

	hs := httptest.NewServer(v.Handler())
	tb.Cleanup(func() {
		v.Drop()
		hs.Close()
	})

	return &Server{
		Venue:    v,
		HTTP:     hs,
		URL:      hs.URL,
		TokenURL: hs.URL + TokenPath,
		JWKSURL:  hs.URL + JWKSPath,
		WSURL:    "ws" + strings.TrimPrefix(hs.URL, "http") + WSPath,
	}
}
