// Package bounce implements the bounce ledger.
//
// Delivery failures reported by the transport or by provider webhooks are
// classified by SMTP reply code, accumulated per (recipient, tenant), and
// turned into a blacklist once enough hard failures pile up. The blacklist
// is monotonic: once set it stays set until an operator clears it.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package bounce
