package governor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailguard/internal/aigate"
	"github.com/ignite/mailguard/internal/audit"
	"github.com/ignite/mailguard/internal/dkim"
	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
	"github.com/ignite/mailguard/internal/ratelimit"
	"github.com/ignite/mailguard/internal/service/approval"
	"github.com/ignite/mailguard/internal/service/bounce"
	"github.com/ignite/mailguard/internal/service/preference"
	"github.com/ignite/mailguard/internal/spamcheck"
	"github.com/ignite/mailguard/internal/transport"
	"github.com/ignite/mailguard/internal/warmup"
)

// counterRetryHint is the retry delay reported when the counter store is
// unreachable and the limiter cannot compute a real window rollover.
const counterRetryHint = 30 * time.Second

// Config carries the sending identity the pipeline enforces.
type Config struct {
	// WarmupIdentity names the sending identity whose reputation ramp gates
	// all traffic, typically the From domain.
	WarmupIdentity string
	// FromAddress is the envelope and header From for every send.
	FromAddress string
	// UnsubscribeBaseURL is the public base for one-click unsubscribe links,
	// without a trailing slash. Empty disables List-Unsubscribe headers.
	UnsubscribeBaseURL string
}

// Deps are the stage implementations the governor composes.
type Deps struct {
	Warmup    *warmup.Scheduler
	Limiter   *ratelimit.Limiter
	Bounces   *bounce.Service
	Prefs     *preference.Service
	Analyzer  *spamcheck.Analyzer
	Gate      *aigate.Gate
	Signer    *dkim.Signer
	Approvals *approval.Service
	Audit     *audit.Recorder
	Transport transport.Transport
}

// Governor runs the clearance pipeline. It is safe for concurrent use.
type Governor struct {
	warmup    *warmup.Scheduler
	limiter   *ratelimit.Limiter
	bounces   *bounce.Service
	prefs     *preference.Service
	analyzer  *spamcheck.Analyzer
	gate      *aigate.Gate
	signer    *dkim.Signer
	approvals *approval.Service
	audit     *audit.Recorder
	transport transport.Transport

	cfg Config
	log *logger.Logger
	now func() time.Time
}

// New wires a governor from its dependencies.
func New(deps Deps, cfg Config) *Governor {
	return &Governor{
		warmup:    deps.Warmup,
		limiter:   deps.Limiter,
		bounces:   deps.Bounces,
		prefs:     deps.Prefs,
		analyzer:  deps.Analyzer,
		gate:      deps.Gate,
		signer:    deps.Signer,
		approvals: deps.Approvals,
		audit:     deps.Audit,
		transport: deps.Transport,
		cfg:       cfg,
		log:       logger.Component("Governor"),
		now:       time.Now,
	}
}

// evaluation is the per-request working state threaded through the guard
// chain. Guards deposit measurements here that later guards and the final
// decision need.
type evaluation struct {
	req  domain.SendRequest
	spam domain.SpamAnalysisResult
	risk domain.RiskLevel
}

// guard is one ordered clearance check. A nil decision passes the request to
// the next guard; a non-nil decision is the terminal verdict. An error means
// the guard could not reach a verdict at all.
type guard struct {
	name string
	run  func(ctx context.Context, ev *evaluation) (*domain.SendDecision, error)
}

// guards returns the chain in enforcement order. Order matters: a
// blacklisted recipient must not consume quota, and nothing after the quota
// guard may run on a throttled request.
func (g *Governor) guards() []guard {
	return []guard{
		{"blacklist", g.guardBlacklist},
		{"quota", g.guardQuota},
		{"preference", g.guardPreference},
		{"content", g.guardContent},
		{"ai review", g.guardAIReview},
	}
}

// Evaluate runs a send request through the guard chain and returns its
// terminal decision. Exactly one decision is recorded per call that reaches
// an outcome.
//
// A non-nil error with an empty decision means an infrastructure failure
// stopped the pipeline before any outcome; a non-nil error alongside a
// populated decision means the outcome was reached but could not be written
// to the audit trail.
func (g *Governor) Evaluate(ctx context.Context, req domain.SendRequest) (domain.SendDecision, error) {
	if err := req.Validate(); err != nil {
		return domain.SendDecision{}, fmt.Errorf("invalid send request: %w", err)
	}
	req.Recipient = domain.NormalizeEmail(req.Recipient)
	if req.RequestedAt.IsZero() {
		req.RequestedAt = g.now().UTC()
	}

	ev := &evaluation{req: req}
	for _, gd := range g.guards() {
		verdict, err := gd.run(ctx, ev)
		if err != nil {
			return domain.SendDecision{}, fmt.Errorf("%s guard: %w", gd.name, err)
		}
		if verdict != nil {
			return g.record(ctx, ev.req, *verdict)
		}
	}

	decision := g.signAndSend(ctx, ev.req)
	decision.SpamScore = ev.spam.Score
	decision.SpamRules = ev.spam.TriggeredRules
	decision.RiskLevel = ev.risk
	return g.record(ctx, ev.req, decision)
}

func (g *Governor) guardBlacklist(ctx context.Context, ev *evaluation) (*domain.SendDecision, error) {
	blacklisted, err := g.bounces.IsBlacklisted(ctx, ev.req.Recipient, ev.req.TenantID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return &domain.SendDecision{
			Outcome:    domain.OutcomeRejected,
			ReasonCode: domain.ReasonBlacklisted,
		}, nil
	}
	return nil, nil
}

func (g *Governor) guardQuota(ctx context.Context, ev *evaluation) (*domain.SendDecision, error) {
	now := g.now()
	phase, err := g.warmup.CurrentPhase(ctx, g.cfg.WarmupIdentity, now)
	if err != nil {
		return nil, err
	}
	quota, err := g.limiter.TryConsume(ctx, ev.req.TenantID, ev.req.Scenario, ev.req.AIAuthored(), phase, now)
	if err != nil {
		// counter store down: refusing to send beats over-sending blind
		g.log.Error("counter store unavailable, failing closed",
			"tenant_id", ev.req.TenantID,
			"error", err.Error(),
		)
		return &domain.SendDecision{
			Outcome:           domain.OutcomeRejected,
			ReasonCode:        domain.ReasonRateLimited,
			RetryAfterSeconds: int64(counterRetryHint / time.Second),
		}, nil
	}
	if !quota.Allowed {
		return &domain.SendDecision{
			Outcome:           domain.OutcomeRejected,
			ReasonCode:        domain.ReasonRateLimited,
			RetryAfterSeconds: retrySeconds(quota.RetryAfter),
		}, nil
	}
	return nil, nil
}

// guardPreference enforces opt-outs. Transactional-class mail is exempt: a
// password reset must reach a recipient who opted out of marketing.
func (g *Governor) guardPreference(ctx context.Context, ev *evaluation) (*domain.SendDecision, error) {
	if ev.req.Scenario != domain.ScenarioPromotional {
		return nil, nil
	}
	unsubscribed, err := g.prefs.IsUnsubscribed(ctx, ev.req.Recipient, ev.req.TenantID, ev.req.Scenario)
	if err != nil {
		return nil, err
	}
	if unsubscribed {
		return &domain.SendDecision{
			Outcome:    domain.OutcomeRejected,
			ReasonCode: domain.ReasonUnsubscribed,
		}, nil
	}
	return nil, nil
}

func (g *Governor) guardContent(ctx context.Context, ev *evaluation) (*domain.SendDecision, error) {
	ev.spam = g.analyzer.Score(ev.req.RenderedSubject, ev.req.RenderedHTML, ev.req.RenderedText)
	if g.analyzer.Rejected(ev.spam) {
		return &domain.SendDecision{
			Outcome:    domain.OutcomeRejected,
			ReasonCode: domain.ReasonSpamRejected,
			SpamScore:  ev.spam.Score,
			SpamRules:  ev.spam.TriggeredRules,
		}, nil
	}
	return nil, nil
}

func (g *Governor) guardAIReview(ctx context.Context, ev *evaluation) (*domain.SendDecision, error) {
	if !ev.req.AIAuthored() {
		return nil, nil
	}
	verdict := g.gate.Evaluate(ev.req)
	if verdict.Blocked {
		return &domain.SendDecision{
			Outcome:        domain.OutcomeRejected,
			ReasonCode:     domain.ReasonAIBlocked,
			RiskLevel:      verdict.Level,
			BlockedPattern: verdict.Pattern,
			SpamScore:      ev.spam.Score,
			SpamRules:      ev.spam.TriggeredRules,
		}, nil
	}
	if verdict.Level.RequiresApproval() {
		ar, err := g.approvals.Create(ctx, ev.req, verdict.Level)
		if err != nil {
			return nil, err
		}
		g.log.Info("AI content held for review",
			"approval_id", ar.ID,
			"tenant_id", ev.req.TenantID,
			"risk_level", string(verdict.Level),
		)
		return &domain.SendDecision{
			Outcome:    domain.OutcomePendingApproval,
			ReasonCode: domain.ReasonAIApprovalRequired,
			RiskLevel:  verdict.Level,
			ApprovalID: ar.ID,
			SpamScore:  ev.spam.Score,
			SpamRules:  ev.spam.TriggeredRules,
		}, nil
	}
	ev.risk = verdict.Level
	return nil, nil
}

// Resume dispatches a previously approved request. The claim is atomic, so
// each approval dispatches at most once; the checks that passed at
// evaluation time are not repeated.
func (g *Governor) Resume(ctx context.Context, approvalID string) (domain.SendDecision, error) {
	ar, err := g.approvals.ClaimResume(ctx, approvalID)
	if err != nil {
		return domain.SendDecision{}, err
	}

	req := ar.Request
	req.Recipient = domain.NormalizeEmail(req.Recipient)

	decision := g.signAndSend(ctx, req)
	decision.RiskLevel = ar.RiskLevel
	decision.ApprovalID = ar.ID
	return g.record(ctx, req, decision)
}

// signAndSend runs the delivery stages shared by first evaluation and
// post-approval resume: assemble the message, sign it, hand it to the
// transport.
func (g *Governor) signAndSend(ctx context.Context, req domain.SendRequest) domain.SendDecision {
	messageID := uuid.New().String()

	extra := map[string]string{}
	if req.Scenario == domain.ScenarioPromotional && g.cfg.UnsubscribeBaseURL != "" {
		token := g.prefs.IssueToken(req.Recipient, req.TenantID, nil)
		base := strings.TrimRight(g.cfg.UnsubscribeBaseURL, "/")
		extra["List-Unsubscribe"] = fmt.Sprintf("<%s/unsubscribe/%s>", base, token)
		extra["List-Unsubscribe-Post"] = "List-Unsubscribe=One-Click"
	}

	raw, err := transport.BuildMessage(req, g.cfg.FromAddress, messageID, extra)
	if err != nil {
		g.log.Error("message assembly failed",
			"recipient", req.Recipient,
			"error", err.Error(),
		)
		return domain.SendDecision{
			Outcome:    domain.OutcomeRejected,
			ReasonCode: domain.ReasonTransportFailed,
		}
	}

	signed, didSign, err := g.signer.Sign(raw)
	if err != nil {
		// broken key material; mail signed with it would fail at every
		// receiver, so nothing leaves until it is fixed
		g.log.Error("DKIM signing failed",
			"domain", g.signer.Domain(),
			"selector", g.signer.Selector(),
			"error", err.Error(),
		)
		return domain.SendDecision{
			Outcome:    domain.OutcomeRejected,
			ReasonCode: domain.ReasonDKIMVerificationFailed,
		}
	}

	reason := domain.ReasonAllowed
	if !didSign {
		g.log.Warn("sending unsigned, no DKIM key configured", "domain", g.signer.Domain())
		reason = domain.ReasonDKIMKeyMissing
	}

	providerID, err := g.transport.Send(ctx, g.cfg.FromAddress, req, signed)
	if err != nil {
		g.log.Error("transport send failed",
			"recipient", req.Recipient,
			"error", err.Error(),
		)
		return domain.SendDecision{
			Outcome:    domain.OutcomeRejected,
			ReasonCode: domain.ReasonTransportFailed,
			DKIMSigned: didSign,
		}
	}

	return domain.SendDecision{
		Outcome:    domain.OutcomeAllowed,
		ReasonCode: reason,
		DKIMSigned: didSign,
		MessageID:  providerID,
	}
}

// record finalizes and persists a decision.
func (g *Governor) record(ctx context.Context, req domain.SendRequest, d domain.SendDecision) (domain.SendDecision, error) {
	d.Recipient = req.Recipient
	d.TenantID = req.TenantID
	d.Scenario = req.Scenario
	d.CreatedAt = g.now().UTC()
	if err := g.audit.Record(ctx, &d); err != nil {
		return d, fmt.Errorf("record decision: %w", err)
	}
	return d, nil
}

// retrySeconds rounds a wait up to whole seconds so a caller sleeping the
// advertised time always lands in the next window.
func retrySeconds(wait time.Duration) int64 {
	if wait <= 0 {
		return 0
	}
	return int64((wait + time.Second - 1) / time.Second)
}
