package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bft-labs/digestmail/internal/clef"
	"github.com/bft-labs/digestmail/internal/cliconfig"
	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/internal/payload"
	"github.com/bft-labs/digestmail/internal/render"
)

type previewOptions struct {
	TemplateFile   string
	Subject        string
	AppTitle       string
	InstanceName   string
	ServerURI      string
	BatchSizeLimit int
}

func newRenderCommand() *cobra.Command {
	opts := previewOptions{
		AppTitle:       cliconfig.DefaultAppTitle,
		BatchSizeLimit: domain.DefaultBatchSizeLimit,
	}
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render CLEF events through the body template without sending",
		Long: `Reads newline-delimited CLEF from file, or stdin when no file is given,
and prints each digest the scheduler would send for those events.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return renderPreview(in, cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.TemplateFile, "body-template-file", "", "Handlebars template file (default: built-in template)")
	f.StringVar(&opts.Subject, "subject", "", "email subject")
	f.StringVar(&opts.AppTitle, "app-title", opts.AppTitle, "application title")
	f.StringVar(&opts.InstanceName, "instance-name", "", "instance name")
	f.StringVar(&opts.ServerURI, "server-uri", "", "server link")
	f.IntVar(&opts.BatchSizeLimit, "batch-size-limit", opts.BatchSizeLimit, "maximum events per digest")
	return cmd
}

// renderPreview writes one rendered digest per batch of decoded events.
func renderPreview(r io.Reader, w io.Writer, opts previewOptions) error {
	events, err := clef.DecodeAll(r)
	if err != nil {
		return err
	}

	var source string
	if opts.TemplateFile != "" {
		b, err := os.ReadFile(opts.TemplateFile)
		if err != nil {
			return err
		}
		source = string(b)
	}
	tpl, err := render.Compile(source)
	if err != nil {
		return err
	}

	app := domain.AppInfo{Title: opts.AppTitle}
	host := domain.HostInfo{InstanceName: opts.InstanceName}
	if opts.ServerURI != "" {
		host.ListenURIs = []string{opts.ServerURI}
	}
	subject := payload.Subject(opts.Subject, opts.AppTitle)

	batches := domain.Chunk(events, opts.BatchSizeLimit)
	for i, b := range batches {
		body, err := tpl.Render(payload.Build(b.Events, app, host, subject))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "<!-- digest %d/%d: %s (%d events) -->\n%s\n", i+1, len(batches), subject, b.Size(), body)
	}
	return nil
}
