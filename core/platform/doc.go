// Package platform is the client for the vendor security-platform API.
//
// It owns the opaque session handshake (Login/Logout), a shared HTTP
// connection pool that is safe for concurrent use by every gather and
// delete worker, and the static endpoint catalogue mapping each device
// type to its method, path, response JSON path, and the 4xx statuses that
// mean "this org has none of these" rather than a real error. That
// distinction is configured per endpoint, never inferred from the response.
//
// All non-2xx responses surface as *StatusError wrapping the status code
// and response body, which the reconcile engine uses for classification.
package platform
