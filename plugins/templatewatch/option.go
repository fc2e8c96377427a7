package templatewatch

import "github.com/bft-labs/digestmail/pkg/digest"

// WithTemplateWatch returns a digest Option that reloads the body template
// whenever the file at cfg.Path changes.
//
// Usage:
//
//	svc, err := digest.New(cfg,
//	    templatewatch.WithTemplateWatch(templatewatch.Config{
//	        Path: "/etc/digestmail/body.hbs",
//	    }),
//	)
func WithTemplateWatch(cfg Config) digest.Option {
	return digest.WithPlugin(New(cfg))
}
