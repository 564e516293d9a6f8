// Package approval implements the human review queue for risky AI sends.
//
// AI-authored messages classified HIGH or CRITICAL are parked here with
// their full send payload. A reviewer approves or rejects exactly once;
// approved requests are then claimed for resumption, and the claim is
// atomic so a request is dispatched at most once even when several
// workers race to resume it.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go.
package approval
