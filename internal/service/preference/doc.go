// Package preference implements the unsubscribe preference store.
//
// Every outbound promotional message carries a signed unsubscribe token.
// Redeeming the token records an opt-out for the recipient, scoped either
// to a single scenario or to all mail from the tenant. Tokens are
// self-contained HMAC-signed payloads, so redemption works without a
// per-message database row having been written at send time.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go.
package preference
