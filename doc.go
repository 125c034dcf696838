// Package httpcache provides an RFC 2616 §13 compliant, on-disk HTTP
// response cache for a DAP client. Responses are stored under a single
// cache root directory as a pair of files (body and header metadata) per
// entry, indexed in memory by a hash of the request URL and persisted to
// an ASCII index file.
//
// The cache does not perform HTTP requests itself: callers fetch a
// response, hand the headers and body to Cache.CacheResponse, and later
// consult Cache.IsURLValid / Cache.GetConditionalRequestHeaders to decide
// whether a cached representation can be used as-is or must first be
// revalidated with the origin server.
//
// It is only suitable for use as a private, single-process cache: exactly
// one Cache may hold the write lock on a given root directory at a time.
package httpcache
