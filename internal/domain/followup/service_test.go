package followup

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/events"
)

// -- Mock Repository --

type mockFollowupRepo struct {
	store map[uuid.UUID]*Followup
	seq   int
}

func newMockFollowupRepo() *mockFollowupRepo {
	return &mockFollowupRepo{store: make(map[uuid.UUID]*Followup)}
}

func (m *mockFollowupRepo) Create(_ context.Context, f *Followup) error {
	f.ID = uuid.New()
	m.seq++
	f.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	f.UpdatedAt = f.CreatedAt
	m.store[f.ID] = f
	return nil
}

func (m *mockFollowupRepo) GetByID(_ context.Context, id uuid.UUID) (*Followup, error) {
	f, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("Follow-up not found")
	}
	return f, nil
}

func (m *mockFollowupRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, completedAt *time.Time) (*Followup, error) {
	f, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("Follow-up not found")
	}
	f.Status = status
	f.CompletedAt = completedAt
	return f, nil
}

func (m *mockFollowupRepo) List(_ context.Context, flt Filter) ([]*Followup, error) {
	var r []*Followup
	for _, f := range m.store {
		if flt.CompanyID != nil && f.CompanyID != *flt.CompanyID {
			continue
		}
		if flt.ClientID != nil && f.ClientID != *flt.ClientID {
			continue
		}
		if flt.Nutritionist != nil && f.Nutritionist() != *flt.Nutritionist {
			continue
		}
		r = append(r, f)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].CreatedAt.Before(r[j].CreatedAt) })
	return r, nil
}

func (m *mockFollowupRepo) DeleteByClient(_ context.Context, clientID int64) (int64, error) {
	var n int64
	for id, f := range m.store {
		if f.ClientID == clientID {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

type notice struct{ forUser, kind, message string }

type fakeNotifier struct {
	sent []notice
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, forUser, kind, message string) error {
	n.sent = append(n.sent, notice{forUser, kind, message})
	return n.err
}

type fakePublisher struct {
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return p.err
}

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockFollowupRepo, *fakeNotifier, *fakePublisher) {
	repo := newMockFollowupRepo()
	n := &fakeNotifier{}
	p := &fakePublisher{}
	svc := NewService(repo, n, p, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, n, p
}

func strp(s string) *string { return &s }

func TestCreate_DefaultsToPending(t *testing.T) {
	svc, _, _, pub := newTestService()
	f := &Followup{CompanyID: 1, ClientID: 7}
	if err := svc.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != StatusPending {
		t.Errorf("expected pending, got %q", f.Status)
	}
	if f.CompletedAt != nil {
		t.Error("expected nil completed_at for pending")
	}
	if f.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.FollowupCreated || pub.events[0].Key != "1:7" {
		t.Errorf("unexpected events: %+v", pub.events)
	}
}

func TestCreate_RejectsInvalidStatus(t *testing.T) {
	svc, repo, _, _ := newTestService()
	err := svc.Create(context.Background(), &Followup{CompanyID: 1, ClientID: 1, Status: "cancelled"})
	if !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(repo.store) != 0 {
		t.Error("expected nothing stored")
	}
}

func TestCreate_AcceptsZeroIDs(t *testing.T) {
	svc, repo, _, _ := newTestService()
	f := &Followup{CompanyID: 0, ClientID: 0}
	if err := svc.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.store) != 1 {
		t.Errorf("expected one stored follow-up, got %d", len(repo.store))
	}
}

func TestCreate_ScheduledAtWinsOverLegacy(t *testing.T) {
	svc, _, _, _ := newTestService()
	a := fixedNow.Add(24 * time.Hour)
	b := fixedNow.Add(48 * time.Hour)
	f := &Followup{CompanyID: 1, ClientID: 1, ScheduledAt: &a, FollowupDate: &b}
	if err := svc.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.FollowupDate != nil {
		t.Error("expected followup_date dropped when scheduled_at is set")
	}
}

func TestCreate_DoneStampsCompletedAt(t *testing.T) {
	svc, _, _, _ := newTestService()
	f := &Followup{CompanyID: 1, ClientID: 1, Status: StatusDone}
	if err := svc.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.CompletedAt == nil || !f.CompletedAt.Equal(fixedNow) {
		t.Errorf("expected completed_at %v, got %v", fixedNow, f.CompletedAt)
	}
}

func TestCreate_NotifiesAssignedNutritionist(t *testing.T) {
	svc, _, n, _ := newTestService()
	at := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	f := &Followup{CompanyID: 2, ClientID: 5, ScheduledAt: &at, AssignedNutritionist: strp("Dr. Rao")}
	if err := svc.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(n.sent))
	}
	if n.sent[0].forUser != "Dr. Rao" || n.sent[0].kind != AlertKindAssigned {
		t.Errorf("unexpected alert: %+v", n.sent[0])
	}
	if n.sent[0].message != "Follow-up scheduled for client 5 (company 2) on 2025-07-01" {
		t.Errorf("unexpected message: %q", n.sent[0].message)
	}
}

func TestCreate_AlertAndEventFailuresAreIgnored(t *testing.T) {
	svc, repo, n, pub := newTestService()
	n.err = errors.New("alerts down")
	pub.err = errors.New("broker down")
	f := &Followup{CompanyID: 1, ClientID: 1, AssignedNutritionist: strp("Asha")}
	if err := svc.Create(context.Background(), f); err != nil {
		t.Fatalf("expected best-effort side effects, got %v", err)
	}
	if len(repo.store) != 1 {
		t.Error("expected follow-up stored")
	}
}

func TestUpdateStatus_OverdueLifecycle(t *testing.T) {
	svc, _, _, pub := newTestService()
	sched := fixedNow.Add(-50 * time.Hour)
	f := &Followup{CompanyID: 1, ClientID: 1, ScheduledAt: &sched}
	if err := svc.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.IsOverdue(fixedNow) {
		t.Fatal("expected pending follow-up 50h old to be overdue")
	}

	updated, err := svc.UpdateStatus(context.Background(), f.ID.String(), StatusDone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.IsOverdue(fixedNow) {
		t.Error("expected done follow-up not overdue")
	}
	if updated.CompletedAt == nil {
		t.Error("expected completed_at set")
	}
	if last := pub.events[len(pub.events)-1]; last.Type != events.FollowupStatusChanged {
		t.Errorf("expected status change event, got %s", last.Type)
	}

	reopened, err := svc.UpdateStatus(context.Background(), f.ID.String(), StatusPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Error("expected completed_at cleared when reopened")
	}
	if !reopened.IsOverdue(fixedNow) {
		t.Error("expected reopened follow-up overdue again")
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, uuid.NewString(), "archived"); !apperr.Is(err, apperr.KindInvalid) {
		t.Errorf("expected invalid input, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, uuid.NewString(), StatusDone); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "not-a-uuid", StatusDone); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found for malformed id, got %v", err)
	}
}

func TestDeleteForClient(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	for _, cl := range []int64{1, 1, 2} {
		if err := svc.Create(ctx, &Followup{CompanyID: 1, ClientID: cl}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := svc.DeleteForClient(ctx, 1)
	if err != nil || n != 2 {
		t.Errorf("expected 2 deleted, got %d %v", n, err)
	}
	if len(repo.store) != 1 {
		t.Errorf("expected 1 remaining, got %d", len(repo.store))
	}
}
