package governor

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ignite/mailguard/internal/aigate"
	"github.com/ignite/mailguard/internal/audit"
	"github.com/ignite/mailguard/internal/counter"
	"github.com/ignite/mailguard/internal/dkim"
	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/ratelimit"
	"github.com/ignite/mailguard/internal/service/approval"
	"github.com/ignite/mailguard/internal/service/bounce"
	"github.com/ignite/mailguard/internal/service/preference"
	"github.com/ignite/mailguard/internal/spamcheck"
	"github.com/ignite/mailguard/internal/warmup"
)

var testNow = time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC)

// testKey is generated once; signing setup dominates test time otherwise.
var testKey = func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}()

type memBounceRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.BounceRecord
}

func newMemBounceRepo() *memBounceRepo {
	return &memBounceRepo{records: map[string]*domain.BounceRecord{}}
}

func bounceKey(recipient, tenantID string) string { return recipient + "|" + tenantID }

func (r *memBounceRepo) Record(_ context.Context, recipient, tenantID string, bounceType domain.BounceType, smtpCode int, countHard bool, at time.Time) (domain.BounceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := bounceKey(recipient, tenantID)
	rec, ok := r.records[key]
	if !ok {
		rec = &domain.BounceRecord{Recipient: recipient, TenantID: tenantID, FirstBounceAt: at}
		r.records[key] = rec
	}
	rec.BounceType = bounceType
	rec.SMTPCode = smtpCode
	rec.LastBounceAt = at
	if countHard {
		rec.BounceCount++
		if rec.BounceCount >= bounce.BlacklistThreshold {
			rec.Blacklisted = true
		}
	}
	return *rec, nil
}

func (r *memBounceRepo) IsBlacklisted(_ context.Context, recipient, tenantID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[bounceKey(recipient, tenantID)]
	return ok && rec.Blacklisted, nil
}

func (r *memBounceRepo) Get(_ context.Context, recipient, tenantID string) (domain.BounceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[bounceKey(recipient, tenantID)]
	if !ok {
		return domain.BounceRecord{}, bounce.ErrNotFound
	}
	return *rec, nil
}

func (r *memBounceRepo) Unblacklist(_ context.Context, recipient, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[bounceKey(recipient, tenantID)]
	if !ok {
		return bounce.ErrNotFound
	}
	rec.Blacklisted = false
	return nil
}

func (r *memBounceRepo) List(_ context.Context, tenantID string, _ bounce.ListFilter) ([]domain.BounceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.BounceRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// seedBlacklisted plants an already-blacklisted recipient.
func (r *memBounceRepo) seedBlacklisted(recipient, tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[bounceKey(recipient, tenantID)] = &domain.BounceRecord{
		Recipient:   recipient,
		TenantID:    tenantID,
		BounceType:  domain.BounceHard,
		BounceCount: bounce.BlacklistThreshold,
		Blacklisted: true,
	}
}

type memPrefRepo struct {
	mu      sync.RWMutex
	byToken map[string]domain.UnsubscribeRecord
}

func newMemPrefRepo() *memPrefRepo {
	return &memPrefRepo{byToken: map[string]domain.UnsubscribeRecord{}}
}

func (r *memPrefRepo) Insert(_ context.Context, rec *domain.UnsubscribeRecord) (domain.UnsubscribeRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byToken[rec.Token]; ok {
		return existing, false, nil
	}
	r.byToken[rec.Token] = *rec
	return *rec, true, nil
}

func (r *memPrefRepo) IsUnsubscribed(_ context.Context, recipient, tenantID string, scenario domain.Scenario) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.byToken {
		if rec.Recipient != recipient || rec.TenantID != tenantID {
			continue
		}
		if rec.Scenario == nil || *rec.Scenario == scenario {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPrefRepo) Delete(_ context.Context, recipient, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := false
	for token, rec := range r.byToken {
		if rec.Recipient == recipient && rec.TenantID == tenantID {
			delete(r.byToken, token)
			deleted = true
		}
	}
	if !deleted {
		return preference.ErrNotFound
	}
	return nil
}

func (r *memPrefRepo) List(_ context.Context, tenantID string, _, _ int) ([]domain.UnsubscribeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.UnsubscribeRecord
	for _, rec := range r.byToken {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memApprovalRepo struct {
	mu       sync.RWMutex
	requests map[string]*domain.ApprovalRequest
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{requests: map[string]*domain.ApprovalRequest{}}
}

func (r *memApprovalRepo) Create(_ context.Context, ar *domain.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ar
	r.requests[ar.ID] = &cp
	return nil
}

func (r *memApprovalRepo) Get(_ context.Context, id string) (domain.ApprovalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ar, ok := r.requests[id]
	if !ok {
		return domain.ApprovalRequest{}, approval.ErrNotFound
	}
	return *ar, nil
}

func (r *memApprovalRepo) Decide(_ context.Context, id string, status domain.ApprovalStatus, decidedBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ar, ok := r.requests[id]
	if !ok {
		return approval.ErrNotFound
	}
	if ar.Status != domain.ApprovalPending {
		return approval.ErrAlreadyDecided
	}
	ar.Status = status
	ar.DecidedBy = decidedBy
	ar.DecidedAt = &at
	return nil
}

func (r *memApprovalRepo) ClaimResume(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ar, ok := r.requests[id]
	if !ok {
		return approval.ErrNotFound
	}
	if ar.Status != domain.ApprovalApproved || ar.ResumedAt != nil {
		return approval.ErrAlreadyResumed
	}
	ar.ResumedAt = &at
	return nil
}

func (r *memApprovalRepo) ListPending(_ context.Context, _ int) ([]domain.ApprovalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ApprovalRequest
	for _, ar := range r.requests {
		if ar.Status == domain.ApprovalPending {
			out = append(out, *ar)
		}
	}
	return out, nil
}

func (r *memApprovalRepo) ListResumable(_ context.Context, _ int) ([]domain.ApprovalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ApprovalRequest
	for _, ar := range r.requests {
		if ar.Status == domain.ApprovalApproved && ar.ResumedAt == nil {
			out = append(out, *ar)
		}
	}
	return out, nil
}

type memAuditRepo struct {
	mu        sync.RWMutex
	decisions []domain.SendDecision
}

func newMemAuditRepo() *memAuditRepo { return &memAuditRepo{} }

func (r *memAuditRepo) Insert(_ context.Context, d *domain.SendDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, *d)
	return nil
}

func (r *memAuditRepo) ListRecent(_ context.Context, f audit.Filter) ([]domain.SendDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SendDecision
	for i := len(r.decisions) - 1; i >= 0; i-- {
		d := r.decisions[i]
		if f.TenantID != "" && d.TenantID != f.TenantID {
			continue
		}
		if f.Outcome != "" && string(d.Outcome) != f.Outcome {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *memAuditRepo) ListUnarchived(_ context.Context, _ int) ([]domain.SendDecision, error) {
	return nil, nil
}

func (r *memAuditRepo) MarkArchived(_ context.Context, _ []string, _ time.Time) error { return nil }

func (r *memAuditRepo) AggregateByDay(_ context.Context, _ time.Time) ([]audit.OutcomeAggregate, error) {
	return nil, nil
}

func (r *memAuditRepo) all() []domain.SendDecision {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.SendDecision(nil), r.decisions...)
}

type memWarmupStore struct {
	mu     sync.Mutex
	states map[string]domain.WarmupState
}

func (s *memWarmupStore) Ensure(_ context.Context, identity string, startedAt time.Time) (domain.WarmupState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[identity]; ok {
		return st, nil
	}
	st := domain.WarmupState{Identity: identity, StartedAt: startedAt}
	s.states[identity] = st
	return st, nil
}

type sentMessage struct {
	From string
	Req  domain.SendRequest
	Raw  []byte
}

type fakeTransport struct {
	mu    sync.Mutex
	sends []sentMessage
	err   error
}

func (t *fakeTransport) Send(_ context.Context, from string, req domain.SendRequest, raw []byte) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, sentMessage{From: from, Req: req, Raw: raw})
	return fmt.Sprintf("msg-%03d", len(t.sends)), nil
}

func (t *fakeTransport) sent() []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sentMessage(nil), t.sends...)
}

// failStore simulates a counter backend outage.
type failStore struct{}

func (failStore) IncrWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}
func (failStore) Decr(context.Context, string) error { return errors.New("connection refused") }
func (failStore) Get(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}
func (failStore) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

type envConfig struct {
	// warmupDay positions the ramp; 0 means fully warmed up.
	warmupDay    int
	unsigned     bool
	transportErr error
	store        counter.Store
}

type testEnv struct {
	gov        *Governor
	bounceRepo *memBounceRepo
	prefRepo   *memPrefRepo
	prefs      *preference.Service
	approvals  *approval.Service
	auditRepo  *memAuditRepo
	transport  *fakeTransport
}

func newTestEnv(t *testing.T, cfg envConfig) *testEnv {
	t.Helper()

	day := cfg.warmupDay
	if day == 0 {
		day = 20
	}
	warmStore := &memWarmupStore{states: map[string]domain.WarmupState{
		"mail.example.com": {
			Identity:  "mail.example.com",
			StartedAt: testNow.Add(-time.Duration(day-1) * 24 * time.Hour),
		},
	}}

	store := cfg.store
	if store == nil {
		store = counter.NewMemoryStore()
	}

	var key *rsa.PrivateKey
	if !cfg.unsigned {
		key = testKey
	}
	signer, err := dkim.NewSigner("mail.example.com", "default", key)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	env := &testEnv{
		bounceRepo: newMemBounceRepo(),
		prefRepo:   newMemPrefRepo(),
		auditRepo:  newMemAuditRepo(),
		transport:  &fakeTransport{err: cfg.transportErr},
	}
	env.prefs = preference.NewService(env.prefRepo, "test-unsubscribe-secret")
	env.approvals = approval.NewService(newMemApprovalRepo())

	env.gov = New(Deps{
		Warmup:    warmup.NewScheduler(warmStore),
		Limiter:   ratelimit.New(store),
		Bounces:   bounce.NewService(env.bounceRepo),
		Prefs:     env.prefs,
		Analyzer:  spamcheck.NewAnalyzer(),
		Gate:      aigate.NewGate([]string{"gov.example.com", "mail.example.com"}),
		Signer:    signer,
		Approvals: env.approvals,
		Audit:     audit.NewRecorder(env.auditRepo),
		Transport: env.transport,
	}, Config{
		WarmupIdentity:     "mail.example.com",
		FromAddress:        "governor@mail.example.com",
		UnsubscribeBaseURL: "https://gov.example.com",
	})
	env.gov.now = func() time.Time { return testNow }
	return env
}

func transactionalReq(recipient string) domain.SendRequest {
	return domain.SendRequest{
		Recipient:       recipient,
		TenantID:        "tenant-a",
		Scenario:        domain.ScenarioTransactional,
		RenderedSubject: "Your password was changed",
		RenderedText:    "The password on your account was updated a moment ago.",
		RequestedAt:     testNow,
	}
}

func promotionalReq(recipient string) domain.SendRequest {
	return domain.SendRequest{
		Recipient:       recipient,
		TenantID:        "tenant-a",
		Scenario:        domain.ScenarioPromotional,
		RenderedSubject: "Product updates for May",
		RenderedText:    "Here is what shipped in May across the platform.",
		RequestedAt:     testNow,
	}
}
