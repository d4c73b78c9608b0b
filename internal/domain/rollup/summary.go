package rollup

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/auth"
)

type SummaryQuery struct {
	Status       string
	From         *time.Time
	To           *time.Time
	Nutritionist string
}

type CompanyCard struct {
	CompanyID     int64  `json:"company_id"`
	Name          string `json:"name"`
	TotalClients  int    `json:"total_clients"`
	Done          int    `json:"done"`
	Pending       int    `json:"pending"`
	ReachedOut    int    `json:"reached_out"`
	Overdue       int    `json:"overdue"`
	CompletionPct int    `json:"completion_pct"`
}

type Totals struct {
	TotalClients int     `json:"total_clients"`
	Done         int     `json:"done"`
	Pending      int     `json:"pending"`
	Overdue      int     `json:"overdue"`
	Completion   float64 `json:"completion"`
}

type Summary struct {
	Companies []CompanyCard `json:"companies"`
	Totals    Totals        `json:"totals"`
}

// CompletionPct is round(100*done/(done+pending)), or 0 with no denominator.
func CompletionPct(done, pending int) int {
	denom := done + pending
	if denom == 0 {
		return 0
	}
	return int(math.Round(float64(100*done) / float64(denom)))
}

type clientKey struct{ company, client int64 }

// earliestPerClient keeps the first follow-up of each (company, client) in
// items, which must already be ordered by effective time ascending, so the
// first one seen is the earliest.
func earliestPerClient(items []*followup.Followup) []*followup.Followup {
	seen := make(map[clientKey]bool)
	var out []*followup.Followup
	for _, f := range items {
		k := clientKey{f.CompanyID, f.ClientID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// matchesSummaryFilter applies the date window and status filter to a
// client's representative follow-up. A follow-up without any date never
// matches a date window.
func matchesSummaryFilter(f *followup.Followup, q SummaryQuery, now time.Time) bool {
	at := f.EffectiveScheduledAt()
	if q.From != nil && (at == nil || at.Before(*q.From)) {
		return false
	}
	if q.To != nil && (at == nil || at.After(*q.To)) {
		return false
	}
	switch want := strings.ToLower(strings.TrimSpace(q.Status)); want {
	case "", "all":
		return true
	case "overdue":
		return f.IsOverdue(now)
	default:
		return f.Status == want
	}
}

type companyTally struct {
	done, pending, reachedOut, overdue int
	clients                            map[int64]bool
}

// Summary rolls each client's earliest follow-up up into per-company cards.
// Admins get every company with absolute client counts; nutritionists only
// get companies where they have a matching client, counted from that slice.
func (s *Service) Summary(ctx context.Context, p auth.Principal, q SummaryQuery) (*Summary, error) {
	_, companies, err := s.companyNames(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to load summary", err)
	}
	items, err := s.followups.List(ctx, followup.Filter{Nutritionist: assignedFilter(p, q.Nutritionist)})
	if err != nil {
		return nil, apperr.Internal("Failed to load summary", err)
	}

	now := s.now()
	tallies := make(map[int64]*companyTally)
	sortByEffective(items)
	for _, f := range earliestPerClient(items) {
		if !matchesSummaryFilter(f, q, now) {
			continue
		}
		t := tallies[f.CompanyID]
		if t == nil {
			t = &companyTally{clients: make(map[int64]bool)}
			tallies[f.CompanyID] = t
		}
		switch f.Status {
		case followup.StatusDone:
			t.done++
		case followup.StatusReachedOut:
			t.reachedOut++
		default:
			t.pending++
		}
		if f.IsOverdue(now) {
			t.overdue++
		}
		t.clients[f.ClientID] = true
	}

	var counts map[int64]int
	if p.IsAdmin() {
		counts, err = s.clients.CountByCompany(ctx)
		if err != nil {
			return nil, apperr.Internal("Failed to load summary", err)
		}
	} else {
		counts = make(map[int64]int, len(tallies))
		for id, t := range tallies {
			counts[id] = len(t.clients)
		}
	}

	cards := []CompanyCard{}
	for _, c := range companies {
		t, touched := tallies[c.CompanyID]
		if !touched && !p.IsAdmin() {
			continue
		}
		if t == nil {
			t = &companyTally{}
		}
		cards = append(cards, CompanyCard{
			CompanyID:     c.CompanyID,
			Name:          c.Name,
			TotalClients:  counts[c.CompanyID],
			Done:          t.done,
			Pending:       t.pending,
			ReachedOut:    t.reachedOut,
			Overdue:       t.overdue,
			CompletionPct: CompletionPct(t.done, t.pending),
		})
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return strings.ToLower(cards[i].Name) < strings.ToLower(cards[j].Name)
	})

	return &Summary{Companies: cards, Totals: sumCards(cards)}, nil
}

// sumCards derives the footer totals from the cards themselves.
func sumCards(cards []CompanyCard) Totals {
	var t Totals
	for _, c := range cards {
		t.TotalClients += c.TotalClients
		t.Done += c.Done
		t.Pending += c.Pending
		t.Overdue += c.Overdue
	}
	if d := t.Done + t.Pending; d > 0 {
		t.Completion = float64(t.Done) / float64(d) * 100
	}
	return t
}
