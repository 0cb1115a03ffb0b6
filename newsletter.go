// Package newsletter holds the domain types and service interfaces of the
// GitMesh CE newsletter subsystem: subscriber lifecycle with token-based
// double opt-in, retrying campaign delivery and append-only audit logging.
//
// Storage, transport and HTTP concerns live in adapter packages (bolt,
// sqlite, sendgrid, ses, smtp, http) that implement the interfaces defined
// here.
package newsletter
