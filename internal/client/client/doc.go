// Package client holds the client-side building blocks of the tokenauth CLI:
// the Client API contract, its HTTP/JSON implementation, and bootstrap of
// the local SQLite session database (InitDatabase, RunMigrations).
//
// Transport failures are reported as ErrUnavailable. Error responses from
// the server come back as *APIError; those with status 401 or 403 also
// match ErrUnauthorized under errors.Is.
package client
