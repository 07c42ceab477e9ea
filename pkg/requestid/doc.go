// Package requestid attaches a correlation ID to every HTTP request.
//
// Middleware reuses a client-supplied X-Request-ID header when it is short
// and made of URL-safe characters, and otherwise generates a UUID. The ID is
// stored in the request context, echoed in the response header and exposed
// to structured logs through LoggerExtractor:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
package requestid
