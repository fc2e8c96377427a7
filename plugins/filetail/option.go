package filetail

import "github.com/bft-labs/digestmail/pkg/digest"

// WithFileTail returns a digest Option that tails CLEF files in cfg.Dir.
//
// Usage:
//
//	svc, err := digest.New(cfg,
//	    filetail.WithFileTail(filetail.Config{Dir: "/var/log/app"}),
//	)
func WithFileTail(cfg Config) digest.Option {
	return digest.WithPlugin(New(cfg))
}
