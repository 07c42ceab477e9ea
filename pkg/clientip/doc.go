// Package clientip resolves the originating client address of an HTTP
// request.
//
// The resolved address keys the download rate limiter and is recorded as
// the download origin, so only headers set by a trusted proxy should be
// consulted. GetIP and Middleware use DefaultHeaders (Cloudflare,
// DigitalOcean, X-Forwarded-For, X-Real-IP); NewResolver restricts the list,
// and NewResolver() with no headers trusts RemoteAddr alone.
package clientip
