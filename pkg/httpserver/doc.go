// Package httpserver runs an http.Server with sane timeouts and graceful
// shutdown driven by a context.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server", logger.Error(err))
//	}
//
// LivenessHandler and ReadinessHandler back the /health endpoints; readiness
// runs named dependency checks such as database and blob store pings.
package httpserver
