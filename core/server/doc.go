// Package server wraps the standard http.Server with functional options and
// graceful shutdown, and provides AutoCertServer, which pairs an HTTP
// listener (ACME challenges and HTTPS redirects) with a TLS listener.
//
// # Features
//
//   - Graceful shutdown bounded by a configurable timeout (30s by default)
//   - TLS from a *tls.Config, with preset profiles and TLSConfigOption helpers
//   - Environment-tagged Config for building a Server with NewFromConfig
//   - AutoCertServer with status pages for domains whose certificate is
//     being provisioned or has failed
//
// The package does not route, add middleware, serve health checks or
// handle OS signals; those belong to the handler and the caller.
//
// # Basic Usage
//
// New takes the listen address and options; the handler is passed when the
// server starts:
//
//	import "github.com/vaulth-auth/vaulth/core/server"
//
//	srv := server.New(":8080",
//		server.WithLogger(logger),
//		server.WithShutdownTimeout(15*time.Second),
//	)
//
// Start blocks until ctx is canceled (returning ctx.Err()) or the listener
// fails; it does not stop the listener on cancel. Run returns a func() error
// for errgroup that starts the server, calls Stop once ctx is canceled and
// then returns nil:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, router))
//	if err := g.Wait(); err != nil {
//		log.Fatal(err)
//	}
//
// # TLS Configuration
//
// WithTLS sets a *tls.Config; when one is set, the server serves HTTPS with
// the certificates it holds. NewTLSConfig starts from DefaultTLSConfig and
// applies options, returning the first option error:
//
//	tlsConfig, err := server.NewTLSConfig(
//		server.WithTLSCertificate("cert.pem", "key.pem"),
//		server.WithTLSMinVersion(tls.VersionTLS12),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	srv := server.New(":8443", server.WithTLS(tlsConfig))
//
// # Graceful Shutdown
//
// Stop shuts the server down, letting in-flight requests finish for up to
// the shutdown timeout, and returns immediately when the server is not
// running:
//
//	if err := srv.Stop(); err != nil {
//		log.Printf("shutdown: %v", err)
//	}
//
// # Automatic HTTPS
//
// NewAutoCertServer requires a CertificateManager and a DomainStore:
//
//	acs, err := server.NewAutoCertServer(
//		server.WithCertManager(certManager),
//		server.WithDomainStore(domainStore),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = acs.Run(ctx, appHandler)
//
// The HTTP listener (":80" by default) answers ACME challenges, redirects to
// HTTPS when a certificate exists for the host, and otherwise serves the
// provisioning, failed or not-found page. The HTTPS listener (":443" by
// default) serves the handler, with certificates only for registered domains.
//
// # Best Practices
//
//   - Set appropriate timeouts for your use case
//   - Use TLS for production deployments
//   - Implement proper graceful shutdown
//   - Add health check endpoints for monitoring
//   - Use middleware for cross-cutting concerns
//   - Configure limits to prevent resource exhaustion
//   - Log server events for debugging and monitoring
//   - Handle signals for clean shutdown
//   - Test server configuration under load
//   - Monitor server metrics in production
package server
