package httpingest

import "github.com/bft-labs/digestmail/pkg/digest"

// WithHTTPIngest returns a digest Option that serves the ingest API.
//
// Usage:
//
//	svc, err := digest.New(cfg,
//	    httpingest.WithHTTPIngest(httpingest.Config{Addr: ":5341"}),
//	    digest.WithMetrics(nil),
//	)
func WithHTTPIngest(cfg Config) digest.Option {
	return digest.WithPlugin(New(cfg))
}
