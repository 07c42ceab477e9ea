// Package environment names the deployment environment (development, staging,
// production) and carries it through request contexts so loggers and error
// renderers can adapt their output.
package environment
