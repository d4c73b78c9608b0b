package client

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellness/wellness/internal/domain/company"
	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/events"
	"github.com/wellness/wellness/internal/platform/httputil"
)

// -- Mock Repositories --

type key struct{ company, client int64 }

type mockClientRepo struct {
	store map[key]*Client
	err   error
}

func newMockClientRepo() *mockClientRepo {
	return &mockClientRepo{store: make(map[key]*Client)}
}

func (m *mockClientRepo) Get(_ context.Context, companyID, clientID int64) (*Client, error) {
	c, ok := m.store[key{companyID, clientID}]
	if !ok {
		return nil, apperr.NotFound("Client not found")
	}
	return c, nil
}

func (m *mockClientRepo) GetByClientID(_ context.Context, clientID int64) (*Client, error) {
	for k, c := range m.store {
		if k.client == clientID {
			return c, nil
		}
	}
	return nil, apperr.NotFound("Client not found")
}

func (m *mockClientRepo) ListByCompany(_ context.Context, companyID int64) ([]*Client, error) {
	var r []*Client
	for k, c := range m.store {
		if k.company == companyID {
			r = append(r, c)
		}
	}
	return r, nil
}

func (m *mockClientRepo) ListAll(context.Context) ([]*Client, error) {
	var r []*Client
	for _, c := range m.store {
		r = append(r, c)
	}
	return r, nil
}

func (m *mockClientRepo) CountByCompany(context.Context) (map[int64]int, error) {
	out := map[int64]int{}
	for k := range m.store {
		out[k.company]++
	}
	return out, nil
}

func (m *mockClientRepo) Upsert(_ context.Context, c *Client) error {
	if m.err != nil {
		return m.err
	}
	m.store[key{c.CompanyID, c.ClientID}] = c
	return nil
}

func (m *mockClientRepo) Patch(_ context.Context, companyID *int64, clientID int64, p ClientPatch) (*Client, error) {
	var first *Client
	for k, c := range m.store {
		if k.client != clientID || (companyID != nil && k.company != *companyID) {
			continue
		}
		patchClient(c, p)
		if first == nil {
			first = c
		}
	}
	if first == nil {
		return nil, apperr.NotFound("Client not found")
	}
	return first, nil
}

func patchClient(c *Client, p ClientPatch) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.ContactInfo != nil {
		c.ContactInfo = p.ContactInfo
	}
	if p.Age.Present {
		c.Age = p.Age.Ptr()
	}
	if p.MedicalHistory != nil {
		c.MedicalHistory = p.MedicalHistory
	}
	if p.CurrentCondition != nil {
		c.CurrentCondition = p.CurrentCondition
	}
	if p.AssignedNutritionist != nil {
		c.AssignedNutritionist = p.AssignedNutritionist
	}
	if p.Notes != nil {
		c.Notes = p.Notes
	}
}

func (m *mockClientRepo) DeleteByClientID(_ context.Context, clientID int64) (int64, error) {
	var n int64
	for k := range m.store {
		if k.client == clientID {
			delete(m.store, k)
			n++
		}
	}
	return n, nil
}

func (m *mockClientRepo) MaxClientID(context.Context) (int64, error) {
	var max int64
	for k := range m.store {
		if k.client > max {
			max = k.client
		}
	}
	return max, nil
}

type mockIntakeRepo struct {
	rows []*Intake
	err  error
}

func (m *mockIntakeRepo) Create(_ context.Context, in *Intake) error {
	if m.err != nil {
		return m.err
	}
	in.ID = uuid.New()
	in.CreatedAt = time.Date(2025, 1, 1, 0, 0, len(m.rows), 0, time.UTC)
	m.rows = append(m.rows, in)
	return nil
}

func (m *mockIntakeRepo) Latest(_ context.Context, companyID, clientID int64) (*Intake, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].CompanyID == companyID && m.rows[i].ClientID == clientID {
			return m.rows[i], nil
		}
	}
	return nil, nil
}

func (m *mockIntakeRepo) ListAll(context.Context) ([]*Intake, error) { return m.rows, nil }

func (m *mockIntakeRepo) PatchLatestByClientID(_ context.Context, clientID int64, p IntakePatch, actor string) (*Intake, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].ClientID == clientID {
			patchIntake(m.rows[i], p, actor)
			return m.rows[i], nil
		}
	}
	return nil, apperr.NotFound("Intake client not found")
}

func (m *mockIntakeRepo) UpsertForKey(ctx context.Context, companyID, clientID int64, p IntakePatch, actor string) error {
	if in, _ := m.Latest(ctx, companyID, clientID); in != nil {
		patchIntake(in, p, actor)
		return nil
	}
	in := &Intake{CompanyID: companyID, ClientID: clientID, CreatedBy: &actor}
	patchIntake(in, p, actor)
	return m.Create(ctx, in)
}

func patchIntake(in *Intake, p IntakePatch, actor string) {
	if p.Name != nil {
		in.Name = p.Name
	}
	if p.ContactInfo != nil {
		in.ContactInfo = p.ContactInfo
	}
	if p.Age.Present {
		in.Age = p.Age.Ptr()
	}
	if p.Status != nil {
		in.Status = p.Status
	}
	if p.FirstFollowupAt != nil {
		in.FirstFollowupAt = p.FirstFollowupAt
	}
	if p.Notes != nil {
		in.Notes = p.Notes
	}
	in.UpdatedBy = &actor
}

func (m *mockIntakeRepo) DeleteByClientID(_ context.Context, clientID int64) (int64, error) {
	var kept []*Intake
	var n int64
	for _, in := range m.rows {
		if in.ClientID == clientID {
			n++
			continue
		}
		kept = append(kept, in)
	}
	m.rows = kept
	return n, nil
}

type fakeCompanies struct{}

func (fakeCompanies) Get(_ context.Context, id int64) (*company.Company, error) {
	if id < 1 || id > 8 {
		return nil, apperr.NotFound("Company not found")
	}
	return &company.Company{CompanyID: id, Name: "Company " + string(rune('0'+id))}, nil
}

func (f fakeCompanies) GetByName(ctx context.Context, name string) (*company.Company, error) {
	if strings.HasPrefix(name, "Company ") && len(name) == 9 {
		return f.Get(ctx, int64(name[8]-'0'))
	}
	return nil, apperr.NotFound("Unknown company: %s", name)
}

type fakeFollowups struct {
	created []*followup.Followup
	deleted []int64
	err     error
}

func (f *fakeFollowups) Create(_ context.Context, fu *followup.Followup) error {
	if f.err != nil {
		return f.err
	}
	if fu.Status == "" {
		fu.Status = followup.StatusPending
	}
	f.created = append(f.created, fu)
	return nil
}

func (f *fakeFollowups) DeleteForClient(_ context.Context, clientID int64) (int64, error) {
	f.deleted = append(f.deleted, clientID)
	return 1, nil
}

type fakePublisher struct{ events []events.Event }

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc       *Service
	clients   *mockClientRepo
	intakes   *mockIntakeRepo
	followups *fakeFollowups
	pub       *fakePublisher
}

func newTestEnv() *testEnv {
	env := &testEnv{
		clients:   newMockClientRepo(),
		intakes:   &mockIntakeRepo{},
		followups: &fakeFollowups{},
		pub:       &fakePublisher{},
	}
	env.svc = NewService(env.clients, env.intakes, fakeCompanies{}, env.followups, env.pub, zerolog.Nop())
	env.svc.now = func() time.Time { return fixedNow }
	return env
}

func strp(s string) *string { return &s }

// -- Tests --

func TestCreateIntake_ByCompanyName(t *testing.T) {
	env := newTestEnv()
	env.clients.store[key{1, 41}] = &Client{CompanyID: 1, ClientID: 41, Name: "Old"}

	res, err := env.svc.CreateIntake(context.Background(), IntakeRequest{
		CompanyName:          "Company 3",
		Name:                 "  Asha Rao ",
		Age:                  httputil.IntOf(34),
		AssignedNutritionist: "Dr. Mehta",
		Requirements:         "low sodium",
	}, "Dr. Mehta")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.CompanyID)
	assert.Equal(t, int64(42), res.ClientID)

	require.Len(t, env.intakes.rows, 1)
	in := env.intakes.rows[0]
	assert.Equal(t, "Asha Rao", *in.Name)
	assert.Equal(t, "Company 3", *in.CompanyName)
	assert.Equal(t, followup.StatusPending, *in.Status)
	assert.Equal(t, "Dr. Mehta", *in.CreatedBy)

	master := env.clients.store[key{3, 42}]
	require.NotNil(t, master)
	assert.Equal(t, "Asha Rao", master.Name)
	assert.Equal(t, int64(34), *master.Age)
	assert.Equal(t, "", *master.ContactInfo)

	require.Len(t, env.followups.created, 1)
	fu := env.followups.created[0]
	assert.Equal(t, fixedNow, *fu.ScheduledAt)
	assert.Equal(t, followup.StatusPending, fu.Status)
	assert.Equal(t, "Dr. Mehta", *fu.AssignedNutritionist)
	assert.Equal(t, "low sodium", *fu.Requirements)

	require.Len(t, env.pub.events, 1)
	assert.Equal(t, events.IntakeCreated, env.pub.events[0].Type)
	assert.Equal(t, "3:42", env.pub.events[0].Key)
}

func TestCreateIntake_FirstFollowupAndExplicitClientID(t *testing.T) {
	env := newTestEnv()
	res, err := env.svc.CreateIntake(context.Background(), IntakeRequest{
		CompanyID:       httputil.IntOf(2),
		ClientID:        httputil.IntOf(7),
		Name:            "Ravi",
		FirstFollowupAt: "2025-07-01T09:30",
		Status:          followup.StatusReachedOut,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.ClientID)
	assert.Equal(t, "system", *env.intakes.rows[0].CreatedBy)

	fu := env.followups.created[0]
	assert.Equal(t, time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC), *fu.ScheduledAt)
	assert.Equal(t, followup.StatusReachedOut, fu.Status)
}

func TestCreateIntake_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  IntakeRequest
		msg  string
	}{
		{"missing name", IntakeRequest{CompanyID: httputil.IntOf(1)}, "name is required"},
		{"no company", IntakeRequest{Name: "A"}, "company_id or company_name is required"},
		{"unknown name", IntakeRequest{Name: "A", CompanyName: "Acme"}, "Unknown company: Acme"},
		{"unknown id", IntakeRequest{Name: "A", CompanyID: httputil.IntOf(99)}, "Unknown company: 99"},
		{"bad status", IntakeRequest{Name: "A", CompanyID: httputil.IntOf(1), Status: "closed"}, "status must be pending | done | reached_out"},
		{"bad date", IntakeRequest{Name: "A", CompanyID: httputil.IntOf(1), FirstFollowupAt: "soon"}, "invalid date: soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			_, err := env.svc.CreateIntake(context.Background(), tt.req, "x")
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindInvalid))
			assert.Equal(t, tt.msg, err.Error())
			assert.Empty(t, env.intakes.rows)
			assert.Empty(t, env.followups.created)
		})
	}
}

func TestCreateIntake_PlanFile(t *testing.T) {
	env := newTestEnv()
	long := strings.Repeat("n", 250)
	_, err := env.svc.CreateIntake(context.Background(), IntakeRequest{
		CompanyID:     httputil.IntOf(1),
		Name:          "A",
		GivenPlanFile: &PlanFileUpload{Name: &long, Base64: strp("QUJDRA==")},
	}, "x")
	require.NoError(t, err)

	pf := env.intakes.rows[0].GivenPlanFile
	require.NotNil(t, pf)
	assert.Len(t, pf.Name, 200)
	assert.Equal(t, "application/octet-stream", pf.Type)
	assert.Equal(t, int64(6), pf.Size)
	assert.Equal(t, fixedNow, pf.UploadedAt)
}

func TestCreateIntake_PlanFileIgnoredWithoutContent(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.CreateIntake(context.Background(), IntakeRequest{
		CompanyID:     httputil.IntOf(1),
		Name:          "A",
		GivenPlanFile: &PlanFileUpload{Name: strp("plan.pdf")},
	}, "x")
	require.NoError(t, err)
	assert.Nil(t, env.intakes.rows[0].GivenPlanFile)
}

func TestCreateIntake_PlanFileTooLarge(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.CreateIntake(context.Background(), IntakeRequest{
		CompanyID: httputil.IntOf(1),
		Name:      "A",
		GivenPlanFile: &PlanFileUpload{
			Name:   strp("plan.pdf"),
			Base64: strp("AAAA"),
			Size:   httputil.FloatOf(MaxPlanFileBytes + 1),
		},
	}, "x")
	require.Error(t, err)
	assert.Equal(t, "File too large. Max 5 MB.", err.Error())
	assert.Empty(t, env.intakes.rows)
}

func TestCreateIntake_PartialFailureKeepsIntake(t *testing.T) {
	env := newTestEnv()
	env.followups.err = errors.New("db down")
	_, err := env.svc.CreateIntake(context.Background(), IntakeRequest{CompanyID: httputil.IntOf(1), Name: "A"}, "x")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Len(t, env.intakes.rows, 1)
	assert.Len(t, env.clients.store, 1)
	assert.Empty(t, env.pub.events)
}

func TestUpdateIntake_MirrorsToMaster(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.CreateIntake(context.Background(), IntakeRequest{CompanyID: httputil.IntOf(1), ClientID: httputil.IntOf(5), Name: "A"}, "x")
	require.NoError(t, err)

	in, err := env.svc.UpdateIntake(context.Background(), 5, IntakePatch{
		Name:        strp("Anita"),
		ContactInfo: strp("555"),
		Notes:       strp("intake only"),
	}, "Dr. Mehta")
	require.NoError(t, err)
	assert.Equal(t, "Anita", *in.Name)
	assert.Equal(t, "Dr. Mehta", *in.UpdatedBy)

	master := env.clients.store[key{1, 5}]
	assert.Equal(t, "Anita", master.Name)
	assert.Equal(t, "555", *master.ContactInfo)
	assert.Nil(t, master.Notes)
}

func TestUpdateIntake_NotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.UpdateIntake(context.Background(), 9, IntakePatch{Name: strp("x")}, "a")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteIntake_KeepsMaster(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.CreateIntake(context.Background(), IntakeRequest{CompanyID: httputil.IntOf(1), ClientID: httputil.IntOf(5), Name: "A"}, "x")
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteIntake(context.Background(), 5))
	assert.Empty(t, env.intakes.rows)
	assert.Len(t, env.clients.store, 1)

	err = env.svc.DeleteIntake(context.Background(), 5)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateClient(t *testing.T) {
	env := newTestEnv()
	env.clients.store[key{2, 8}] = &Client{CompanyID: 2, ClientID: 8, Name: "B"}

	_, err := env.svc.UpdateClient(context.Background(), 8, ClientPatch{})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	c, err := env.svc.UpdateClient(context.Background(), 8, ClientPatch{Name: strp("Bela"), Age: httputil.IntOf(40)})
	require.NoError(t, err)
	assert.Equal(t, "Bela", c.Name)
	assert.Equal(t, int64(40), *c.Age)

	_, err = env.svc.UpdateClient(context.Background(), 99, ClientPatch{Name: strp("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteClient_RemovesFollowups(t *testing.T) {
	env := newTestEnv()
	env.clients.store[key{2, 8}] = &Client{CompanyID: 2, ClientID: 8, Name: "B"}
	env.intakes.rows = []*Intake{{CompanyID: 2, ClientID: 8}}

	require.NoError(t, env.svc.DeleteClient(context.Background(), 8))
	assert.Empty(t, env.clients.store)
	assert.Equal(t, []int64{8}, env.followups.deleted)
	assert.Len(t, env.intakes.rows, 1)

	err := env.svc.DeleteClient(context.Background(), 8)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEditProfileIntake_UpsertsAndMirrors(t *testing.T) {
	env := newTestEnv()
	env.clients.store[key{1, 3}] = &Client{CompanyID: 1, ClientID: 3, Name: "C"}

	err := env.svc.EditProfileIntake(context.Background(), 1, 3, IntakePatch{
		Name:        strp("ignored"),
		ContactInfo: strp("c@example.com"),
		Status:      strp(followup.StatusDone),
	}, "Dr. Mehta")
	require.NoError(t, err)

	require.Len(t, env.intakes.rows, 1)
	in := env.intakes.rows[0]
	assert.Nil(t, in.Name)
	assert.Equal(t, "c@example.com", *in.ContactInfo)
	assert.Equal(t, "Dr. Mehta", *in.CreatedBy)

	master := env.clients.store[key{1, 3}]
	assert.Equal(t, "C", master.Name)
	assert.Equal(t, "c@example.com", *master.ContactInfo)

	err = env.svc.EditProfileIntake(context.Background(), 1, 3, IntakePatch{Notes: strp("n2")}, "Dr. Mehta")
	require.NoError(t, err)
	assert.Len(t, env.intakes.rows, 1)
	assert.Equal(t, "n2", *env.intakes.rows[0].Notes)
}
