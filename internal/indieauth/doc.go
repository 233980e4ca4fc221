// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package indieauth verifies Micropub bearer tokens and maps the token's "me"
URL onto a local user.

A Gate moves each request through four states:

	unauthenticated -> token-pending -> verified
	                                 -> error-terminal

Exactly one TokenVerifier call happens per request; there is no retry and no
cache across requests. The resulting AuthContext is stored in the request's
context.Context and is read-only from then on.

Verifiers:

  - IntrospectionVerifier: asks a remote IndieAuth token endpoint, behind a
    circuit breaker that fails fast while the endpoint is down
  - JWTVerifier: validates self-issued HS256 tokens (see scribectl token)
  - StaticVerifier: compares against bcrypt hashes of personal tokens

Errors are sentinels (ErrNoToken, ErrTokenRejected, ErrInvalidToken, ErrNoScope) so the
Micropub layer can translate them into protocol error envelopes with
errors.Is. Any other error is a transport failure and is surfaced as-is.
*/
package indieauth
