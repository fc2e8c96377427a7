// Package digest provides an embeddable service that batches events into
// digest emails.
//
// The first event into an empty buffer starts the batch timer. When it
// fires, everything buffered is rendered through a Handlebars template and
// delivered, at most BatchSizeLimit events per email. Later events in the
// same burst do not extend the timer.
//
// # Basic Usage
//
//	svc, err := digest.New(digest.Config{
//	    From:      "seq@example.com",
//	    To:        []string{"ops@example.com"},
//	    BatchTime: time.Minute,
//	    SMTP:      digest.SMTPConfig{Host: "mail.example.com"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	svc.Enqueue(digest.Event{Timestamp: time.Now(), Level: digest.LevelError, RenderedMessage: "disk full"})
//
//	// Stop delivers whatever is still buffered before returning.
//	_ = svc.Stop()
//
// # Delivery failures
//
// A failing digest abandons the rest of its flush cycle. The failure goes
// to the ErrorSink (see [WithErrorSink]) and the undelivered events are
// discarded; nothing is retried.
//
// # Plugins
//
// Event sources are plugins. See plugins/httpingest, plugins/filetail and
// plugins/templatewatch:
//
//	svc, err := digest.New(cfg,
//	    httpingest.WithHTTPIngest(httpingest.Config{Addr: ":5341"}),
//	    filetail.WithFileTail(filetail.Config{Dir: "/var/log/app"}),
//	)
package digest
