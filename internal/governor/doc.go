// Package governor chains every clearance check a send request must pass
// before the transport may carry it.
//
// The stage order is fixed: blacklist, warmup-derived rate limits,
// unsubscribe preference (promotional traffic only), content analysis, the
// AI safety gate, DKIM signing with self-verification, then the transport.
// The first stage that refuses terminates the evaluation, and every terminal
// outcome is written to the audit trail exactly once.
//
// Requests parked by the AI safety gate re-enter through Resume after a
// reviewer approves them; resume repeats only the signing and transport
// stages, never the checks that already passed.
package governor
