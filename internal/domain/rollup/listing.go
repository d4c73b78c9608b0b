package rollup

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/wellness/wellness/internal/domain/client"
	"github.com/wellness/wellness/internal/domain/company"
	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/auth"
	"github.com/wellness/wellness/pkg/pagination"
)

type ListQuery struct {
	Status string
	Q      string
	From   *time.Time
	To     *time.Time
}

// ClientFollowups is a master client with the follow-ups that passed the
// listing filters, oldest first.
type ClientFollowups struct {
	*client.Client
	Followups []*followup.Followup `json:"followups"`
}

type CompanyClients struct {
	Company *company.Company  `json:"company"`
	Clients []ClientFollowups `json:"clients"`
}

// matchesQuery is a case-insensitive substring match on name or contact, or
// an exact match on the client id when q is numeric.
func matchesQuery(c *client.Client, q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return true
	}
	if id, err := strconv.ParseInt(q, 10, 64); err == nil && id == c.ClientID {
		return true
	}
	lq := strings.ToLower(q)
	if strings.Contains(strings.ToLower(c.Name), lq) {
		return true
	}
	return c.ContactInfo != nil && strings.Contains(strings.ToLower(*c.ContactInfo), lq)
}

// CompanyClients lists a company's clients, each with its follow-ups. Every
// client is listed; nutritionists only see follow-ups assigned to them.
func (s *Service) CompanyClients(ctx context.Context, p auth.Principal, companyID int64, q ListQuery) (*CompanyClients, error) {
	comp, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	clients, err := s.clients.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, apperr.Internal("Failed to load clients", err)
	}
	items, err := s.followups.List(ctx, followup.Filter{
		CompanyID:    &companyID,
		Nutritionist: assignedFilter(p, ""),
		From:         q.From,
		To:           q.To,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to load clients", err)
	}

	now := s.now()
	status := strings.ToLower(strings.TrimSpace(q.Status))
	sortByEffective(items)
	byClient := make(map[int64][]*followup.Followup)
	for _, f := range items {
		switch status {
		case "", "all":
		case "overdue":
			if !f.IsOverdue(now) {
				continue
			}
		default:
			if f.Status != status {
				continue
			}
		}
		byClient[f.ClientID] = append(byClient[f.ClientID], f)
	}

	out := &CompanyClients{Company: comp, Clients: []ClientFollowups{}}
	for _, c := range clients {
		if !matchesQuery(c, q.Q) {
			continue
		}
		fus := byClient[c.ClientID]
		if fus == nil {
			fus = []*followup.Followup{}
		}
		out.Clients = append(out.Clients, ClientFollowups{Client: c, Followups: fus})
	}
	return out, nil
}

type ClientPage struct {
	Clients []*client.Client `json:"clients"`
	Total   int              `json:"total"`
	HasNext bool             `json:"has_next"`
}

// AllClients pages through master clients sorted by name. Nutritionists only
// get clients assigned to them by name.
func (s *Service) AllClients(ctx context.Context, p auth.Principal, page pagination.Params) (*ClientPage, error) {
	all, err := s.clients.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to load clients", err)
	}
	visible := all
	if p.IsNutritionist() {
		core := nameMatcher(NormalizeNameCore(p.Name))
		visible = visible[:0:0]
		for _, c := range all {
			if core.matches(c.AssignedNutritionist) {
				visible = append(visible, c)
			}
		}
	}
	start, end := page.Window(len(visible))
	items := visible[start:end]
	if items == nil {
		items = []*client.Client{}
	}
	return &ClientPage{Clients: items, Total: len(visible), HasNext: page.HasNext(len(visible))}, nil
}
