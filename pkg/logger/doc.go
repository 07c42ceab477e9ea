// Package logger builds *slog.Logger instances from functional options.
//
// New picks a JSON or text handler, applies static attributes, and wraps the
// handler with LogHandlerDecorator so values carried in a request context
// (request ID, environment) are attached to every record logged with the
// *Context methods:
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "blackfile"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "transfer issued", logger.Token(token))
//
// The helpers in attr.go keep attribute keys consistent across packages.
package logger
