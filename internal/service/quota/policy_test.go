package quota

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CMD-Gremlin/wobble/internal/model"
)

// ========== 测试替身 ==========

type fakePlans struct {
	plan *model.Plan
	err  error
}

func (f *fakePlans) GetPlan(ctx context.Context, userID string) (*model.Plan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

type fakeLedger struct {
	sum       int64
	sumErr    error
	recErr    error
	lastSince time.Time
	records   []*model.UsageRecord
}

func (f *fakeLedger) Record(ctx context.Context, rec *model.UsageRecord) error {
	if f.recErr != nil {
		return f.recErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeLedger) SumSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	f.lastSince = since
	return f.sum, f.sumErr
}

func newTestService(plans *fakePlans, ledger *fakeLedger, limit int) *Service {
	l := NewLimiter(NewMemoryStore(), DefaultWindow, limit)
	n := 0
	return NewService(l, plans, ledger, func() string {
		n++
		return fmt.Sprintf("rec-%d", n)
	})
}

// ========== CheckQuota 测试 ==========

func TestCheckQuota_RateLimited(t *testing.T) {
	svc := newTestService(&fakePlans{}, &fakeLedger{}, 1)
	ctx := context.Background()

	if _, err := svc.CheckQuota(ctx, "9.9.9.9", "", nil); err != nil {
		t.Fatalf("first call error = %v", err)
	}

	_, err := svc.CheckQuota(ctx, "9.9.9.9", "", nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	var qe *QuotaError
	if !errors.As(err, &qe) || qe.Status != 429 {
		t.Errorf("rate limit error should carry status 429")
	}
}

func TestCheckQuota_PreflightReturnsNoInfo(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newTestService(&fakePlans{}, ledger, 10)

	info, err := svc.CheckQuota(context.Background(), "1.1.1.1", "user-1", nil)
	if err != nil {
		t.Fatalf("CheckQuota() error = %v", err)
	}
	if info != nil {
		t.Errorf("preflight call should not compute quota, got %+v", info)
	}
	if len(ledger.records) != 0 {
		t.Error("preflight call should not record usage")
	}
}

func TestCheckQuota_AnonymousSkipsQuotaMath(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newTestService(&fakePlans{}, ledger, 10)

	usage := &Usage{ToolID: "tool-1", Tokens: &Tokens{Prompt: 10, Completion: 5}}
	info, err := svc.CheckQuota(context.Background(), "1.1.1.1", "", usage)
	if err != nil {
		t.Fatalf("CheckQuota() error = %v", err)
	}
	if info != nil {
		t.Errorf("anonymous call should not compute quota, got %+v", info)
	}
	if len(ledger.records) != 0 {
		t.Error("anonymous usage without a user id is a silent no-op")
	}
}

func TestCheckQuota_FreeTierLowWater(t *testing.T) {
	// free 档 100000，已用 95000，本次 2000 → remaining 3000，low=true
	plans := &fakePlans{plan: &model.Plan{UserID: "u1", Tier: model.TierFree, RenewsAt: time.Now().Add(-time.Hour)}}
	ledger := &fakeLedger{sum: 95000}
	svc := newTestService(plans, ledger, 10)

	usage := &Usage{ToolID: "tool-1", Tokens: &Tokens{Prompt: 1500, Completion: 500}}
	info, err := svc.CheckQuota(context.Background(), "1.1.1.1", "u1", usage)
	if err != nil {
		t.Fatalf("CheckQuota() error = %v", err)
	}
	if info.Remaining != 3000 {
		t.Errorf("Remaining = %d, want 3000", info.Remaining)
	}
	if !info.Low {
		t.Error("Low should be true at 3 percent remaining")
	}
	if info.Plan != model.TierFree {
		t.Errorf("Plan = %q, want free", info.Plan)
	}
	if len(ledger.records) != 1 {
		t.Fatalf("expected 1 usage record, got %d", len(ledger.records))
	}
	rec := ledger.records[0]
	if rec.PromptTokens != 1500 || rec.CompletionTokens != 500 {
		t.Errorf("recorded tokens = %d/%d, want 1500/500", rec.PromptTokens, rec.CompletionTokens)
	}
}

func TestCheckQuota_ExceededStillRecordsUsage(t *testing.T) {
	// free 档，已用 99000，本次 2000 → remaining -1000：报错但流水已落库
	plans := &fakePlans{plan: &model.Plan{UserID: "u1", Tier: model.TierFree, RenewsAt: time.Now().Add(-time.Hour)}}
	ledger := &fakeLedger{sum: 99000}
	svc := newTestService(plans, ledger, 10)

	usage := &Usage{ToolID: "tool-1", Tokens: &Tokens{Prompt: 1000, Completion: 1000}}
	_, err := svc.CheckQuota(context.Background(), "1.1.1.1", "u1", usage)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	var qe *QuotaError
	if !errors.As(err, &qe) || qe.Status != 429 {
		t.Error("quota exceeded error should carry status 429")
	}
	if len(ledger.records) != 1 {
		t.Errorf("over-budget attempt must still be recorded, got %d records", len(ledger.records))
	}
}

func TestCheckQuota_UnknownTierFallsBackToFree(t *testing.T) {
	plans := &fakePlans{plan: &model.Plan{UserID: "u1", Tier: "platinum", RenewsAt: time.Now().Add(-time.Hour)}}
	ledger := &fakeLedger{sum: 0}
	svc := newTestService(plans, ledger, 10)

	info, err := svc.CheckQuota(context.Background(), "1.1.1.1", "u1",
		&Usage{ToolID: "t", Tokens: &Tokens{Prompt: 1}})
	if err != nil {
		t.Fatalf("CheckQuota() error = %v", err)
	}
	if info.Remaining != PlanLimits[model.TierFree]-1 {
		t.Errorf("unknown tier should use the free limit, Remaining = %d", info.Remaining)
	}
}

func TestCheckQuota_NoPlanUsesEpoch(t *testing.T) {
	plans := &fakePlans{err: errors.New("record not found")}
	ledger := &fakeLedger{sum: 0}
	svc := newTestService(plans, ledger, 10)

	_, err := svc.CheckQuota(context.Background(), "1.1.1.1", "u1",
		&Usage{ToolID: "t", Tokens: &Tokens{Prompt: 1}})
	if err != nil {
		t.Fatalf("CheckQuota() error = %v", err)
	}
	if !ledger.lastSince.Equal(time.Unix(0, 0)) {
		t.Errorf("without a plan the accounting window starts at epoch, got %v", ledger.lastSince)
	}
}

func TestCheckQuota_TinyTierBlocksImmediately(t *testing.T) {
	plans := &fakePlans{plan: &model.Plan{UserID: "u1", Tier: model.TierTiny}}
	ledger := &fakeLedger{sum: 0}
	svc := newTestService(plans, ledger, 10)

	_, err := svc.CheckQuota(context.Background(), "1.1.1.1", "u1",
		&Usage{ToolID: "t", Tokens: &Tokens{Prompt: 2}})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("tiny tier with 2 tokens should exceed, err = %v", err)
	}
}

// ========== RecordUsage 测试 ==========

func TestRecordUsage_PropagatesStoreError(t *testing.T) {
	storeErr := errors.New("insert failed")
	ledger := &fakeLedger{recErr: storeErr}
	svc := newTestService(&fakePlans{}, ledger, 10)

	err := svc.RecordUsage(context.Background(), &Usage{ToolID: "t", UserID: "u1"})
	if !errors.Is(err, storeErr) {
		t.Errorf("err = %v, want store error to propagate", err)
	}
}

func TestRecordUsage_NilTokens(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newTestService(&fakePlans{}, ledger, 10)

	if err := svc.RecordUsage(context.Background(), &Usage{ToolID: "t", UserID: "u1"}); err != nil {
		t.Fatalf("RecordUsage() error = %v", err)
	}
	if len(ledger.records) != 1 {
		t.Fatal("expected a record")
	}
	if ledger.records[0].PromptTokens != 0 || ledger.records[0].CompletionTokens != 0 {
		t.Error("missing tokens should record as zero")
	}
}

// ========== UsageSummary 测试 ==========

func TestUsageSummary(t *testing.T) {
	renews := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plans := &fakePlans{plan: &model.Plan{UserID: "u1", Tier: model.TierPro, RenewsAt: renews}}
	ledger := &fakeLedger{sum: 250000}
	svc := newTestService(plans, ledger, 10)

	sum, err := svc.UsageSummary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UsageSummary() error = %v", err)
	}
	if sum.Plan != model.TierPro || sum.Limit != 1000000 {
		t.Errorf("summary plan/limit = %s/%d", sum.Plan, sum.Limit)
	}
	if sum.Used != 250000 || sum.Remaining != 750000 {
		t.Errorf("summary used/remaining = %d/%d", sum.Used, sum.Remaining)
	}
	if !sum.RenewsAt.Equal(renews) {
		t.Errorf("RenewsAt = %v, want %v", sum.RenewsAt, renews)
	}
}

// ========== ClientIP 测试 ==========

func TestClientIP_ForwardedFor(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	if ip := ClientIP(req); ip != "203.0.113.7" {
		t.Errorf("ClientIP = %q, want first forwarded segment", ip)
	}
}

func TestClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "192.0.2.4:5555"
	if ip := ClientIP(req); ip != "192.0.2.4" {
		t.Errorf("ClientIP = %q, want 192.0.2.4", ip)
	}
}

func TestClientIP_Unknown(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = ""
	if ip := ClientIP(req); ip != "unknown" {
		t.Errorf("ClientIP = %q, want unknown", ip)
	}
}
