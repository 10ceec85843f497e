// Package httpserver runs the storefront HTTP handler with graceful shutdown
// and exposes a readiness handler over named backend probes.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log),
//	    httpserver.WithStopHook(func() { pool.Close() }))
//	if err := srv.Run(ctx, router); err != nil {
//	    return err
//	}
//
// Run returns after ctx is cancelled, SIGINT or SIGTERM arrives, or Shutdown
// is called. Errors from binding or serving wrap ErrStart.
package httpserver
