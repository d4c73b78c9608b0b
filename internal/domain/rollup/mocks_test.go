package rollup

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/domain/client"
	"github.com/wellness/wellness/internal/domain/company"
	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/domain/identity"
	"github.com/wellness/wellness/internal/domain/questionnaire"
	"github.com/wellness/wellness/internal/platform/apperr"
)

// -- companies --

type fakeCompanies []*company.Company

func (f fakeCompanies) List(context.Context) ([]*company.Company, error) { return f, nil }

func (f fakeCompanies) Get(_ context.Context, id int64) (*company.Company, error) {
	for _, c := range f {
		if c.CompanyID == id {
			return c, nil
		}
	}
	return nil, apperr.NotFound("Company not found")
}

func (f fakeCompanies) GetByName(_ context.Context, name string) (*company.Company, error) {
	for _, c := range f {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, apperr.NotFound("Unknown company: %s", name)
}

// -- follow-ups --

type memFollowups struct {
	items []*followup.Followup
	seq   int
}

func (m *memFollowups) Create(_ context.Context, f *followup.Followup) error {
	f.ID = uuid.New()
	m.seq++
	f.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	m.items = append(m.items, f)
	return nil
}

func (m *memFollowups) GetByID(_ context.Context, id uuid.UUID) (*followup.Followup, error) {
	for _, f := range m.items {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, apperr.NotFound("Follow-up not found")
}

func (m *memFollowups) UpdateStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) (*followup.Followup, error) {
	f, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Status, f.CompletedAt = status, completedAt
	return f, nil
}

func (m *memFollowups) List(_ context.Context, flt followup.Filter) ([]*followup.Followup, error) {
	var out []*followup.Followup
	for _, f := range m.items {
		at := f.EffectiveScheduledAt()
		switch {
		case flt.CompanyID != nil && f.CompanyID != *flt.CompanyID,
			flt.ClientID != nil && f.ClientID != *flt.ClientID,
			flt.Nutritionist != nil && f.Nutritionist() != *flt.Nutritionist,
			flt.From != nil && (at == nil || at.Before(*flt.From)),
			flt.To != nil && (at == nil || at.After(*flt.To)):
			continue
		}
		out = append(out, f)
	}
	sortByEffective(out)
	return out, nil
}

func (m *memFollowups) DeleteByClient(_ context.Context, clientID int64) (int64, error) {
	var kept []*followup.Followup
	for _, f := range m.items {
		if f.ClientID != clientID {
			kept = append(kept, f)
		}
	}
	n := int64(len(m.items) - len(kept))
	m.items = kept
	return n, nil
}

// add stores a follow-up scheduled at the given time (nil leaves it unset).
func (m *memFollowups) add(companyID, clientID int64, status, nutritionist string, at *time.Time) *followup.Followup {
	f := &followup.Followup{CompanyID: companyID, ClientID: clientID, Status: status, ScheduledAt: at}
	if nutritionist != "" {
		f.AssignedNutritionist = &nutritionist
	}
	_ = m.Create(context.Background(), f)
	return f
}

// -- clients and intakes --

type ckey struct{ company, client int64 }

type memClients struct {
	store map[ckey]*client.Client
	gets  int
}

func (m *memClients) Get(_ context.Context, companyID, clientID int64) (*client.Client, error) {
	m.gets++
	if c, ok := m.store[ckey{companyID, clientID}]; ok {
		return c, nil
	}
	return nil, apperr.NotFound("Client not found")
}

func (m *memClients) GetByClientID(_ context.Context, clientID int64) (*client.Client, error) {
	for k, c := range m.store {
		if k.client == clientID {
			return c, nil
		}
	}
	return nil, apperr.NotFound("Client not found")
}

func (m *memClients) sorted() []*client.Client {
	var out []*client.Client
	for _, c := range m.store {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ClientID < out[j].ClientID
	})
	return out
}

func (m *memClients) ListByCompany(_ context.Context, companyID int64) ([]*client.Client, error) {
	var out []*client.Client
	for _, c := range m.sorted() {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memClients) ListAll(context.Context) ([]*client.Client, error) { return m.sorted(), nil }

func (m *memClients) CountByCompany(context.Context) (map[int64]int, error) {
	out := map[int64]int{}
	for k := range m.store {
		out[k.company]++
	}
	return out, nil
}

func (m *memClients) Upsert(_ context.Context, c *client.Client) error {
	m.store[ckey{c.CompanyID, c.ClientID}] = c
	return nil
}

func (m *memClients) Patch(_ context.Context, companyID *int64, clientID int64, p client.ClientPatch) (*client.Client, error) {
	var first *client.Client
	for k, c := range m.store {
		if k.client != clientID || (companyID != nil && k.company != *companyID) {
			continue
		}
		if p.ContactInfo != nil {
			c.ContactInfo = p.ContactInfo
		}
		if p.Age.Present {
			c.Age = p.Age.Ptr()
		}
		if p.AssignedNutritionist != nil {
			c.AssignedNutritionist = p.AssignedNutritionist
		}
		if first == nil {
			first = c
		}
	}
	if first == nil {
		return nil, apperr.NotFound("Client not found")
	}
	return first, nil
}

func (m *memClients) DeleteByClientID(_ context.Context, clientID int64) (int64, error) {
	var n int64
	for k := range m.store {
		if k.client == clientID {
			delete(m.store, k)
			n++
		}
	}
	return n, nil
}

func (m *memClients) MaxClientID(context.Context) (int64, error) {
	var top int64
	for k := range m.store {
		if k.client > top {
			top = k.client
		}
	}
	return top, nil
}

type memIntakes struct{ rows []*client.Intake }

func (m *memIntakes) Create(_ context.Context, in *client.Intake) error {
	in.ID = uuid.New()
	m.rows = append(m.rows, in)
	return nil
}

func (m *memIntakes) Latest(_ context.Context, companyID, clientID int64) (*client.Intake, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].CompanyID == companyID && m.rows[i].ClientID == clientID {
			return m.rows[i], nil
		}
	}
	return nil, nil
}

func (m *memIntakes) ListAll(context.Context) ([]*client.Intake, error) { return m.rows, nil }

func (m *memIntakes) PatchLatestByClientID(_ context.Context, clientID int64, p client.IntakePatch, actor string) (*client.Intake, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].ClientID == clientID {
			applyIntake(m.rows[i], p, actor)
			return m.rows[i], nil
		}
	}
	return nil, apperr.NotFound("Intake client not found")
}

func (m *memIntakes) UpsertForKey(ctx context.Context, companyID, clientID int64, p client.IntakePatch, actor string) error {
	if in, _ := m.Latest(ctx, companyID, clientID); in != nil {
		applyIntake(in, p, actor)
		return nil
	}
	in := &client.Intake{CompanyID: companyID, ClientID: clientID, CreatedBy: &actor}
	applyIntake(in, p, actor)
	return m.Create(ctx, in)
}

func applyIntake(in *client.Intake, p client.IntakePatch, actor string) {
	if p.ContactInfo != nil {
		in.ContactInfo = p.ContactInfo
	}
	if p.Status != nil {
		in.Status = p.Status
	}
	if p.Notes != nil {
		in.Notes = p.Notes
	}
	in.UpdatedBy = &actor
}

func (m *memIntakes) DeleteByClientID(_ context.Context, clientID int64) (int64, error) {
	return 0, nil
}

// -- questionnaire and users --

type fakeSubmissions struct {
	latest      []*questionnaire.Submission
	latestCalls int
	deleted     []uuid.UUID
}

func (f *fakeSubmissions) LatestPerUser(context.Context) ([]*questionnaire.Submission, error) {
	f.latestCalls++
	return f.latest, nil
}

func (f *fakeSubmissions) LatestForUser(_ context.Context, id uuid.UUID) (*questionnaire.Submission, error) {
	for _, s := range f.latest {
		if s.UserID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSubmissions) DeleteForUser(_ context.Context, id uuid.UUID) (int64, error) {
	f.deleted = append(f.deleted, id)
	return 1, nil
}

type fakeUsers map[uuid.UUID]*identity.User

func (f fakeUsers) Get(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User not found")
}

func (f fakeUsers) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*identity.User, error) {
	var out []*identity.User
	for _, id := range ids {
		if u, ok := f[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f fakeUsers) Update(_ context.Context, id uuid.UUID, p identity.UserPatch) (*identity.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	if p.IsEmpty() {
		return nil, apperr.Invalid("No updatable fields provided")
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	return u, nil
}

func (f fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f[id]; !ok {
		return apperr.NotFound("User not found")
	}
	delete(f, id)
	return nil
}

// -- environment --

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func hoursAgo(h int) *time.Time {
	t := fixedNow.Add(-time.Duration(h) * time.Hour)
	return &t
}

func strp(s string) *string { return &s }

type testEnv struct {
	svc         *Service
	companies   fakeCompanies
	followups   *memFollowups
	clients     *memClients
	intakes     *memIntakes
	clientSvc   *client.Service
	submissions *fakeSubmissions
	users       fakeUsers
}

func newTestEnv() *testEnv {
	env := &testEnv{
		companies: fakeCompanies{
			{CompanyID: 1, Name: "Beta Corp"},
			{CompanyID: 2, Name: "acme"},
			{CompanyID: 3, Name: "Gamma"},
		},
		followups:   &memFollowups{},
		clients:     &memClients{store: make(map[ckey]*client.Client)},
		intakes:     &memIntakes{},
		submissions: &fakeSubmissions{},
		users:       fakeUsers{},
	}
	fuSvc := followup.NewService(env.followups, nil, nil, zerolog.Nop())
	env.clientSvc = client.NewService(env.clients, env.intakes, env.companies, fuSvc, nil, zerolog.Nop())
	env.svc = NewService(env.companies, env.clientSvc, env.followups, env.submissions, env.users, zerolog.Nop())
	env.svc.now = func() time.Time { return fixedNow }
	return env
}

func (env *testEnv) addClient(companyID, clientID int64, name, nutritionist string) *client.Client {
	c := &client.Client{CompanyID: companyID, ClientID: clientID, Name: name}
	if nutritionist != "" {
		c.AssignedNutritionist = &nutritionist
	}
	env.clients.store[ckey{companyID, clientID}] = c
	return c
}
