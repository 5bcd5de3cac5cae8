package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

type (
	// LabelAmount is an amount aggregated by charge label.
	LabelAmount struct {
		Label  string
		Amount decimal.Decimal
	}

	// MemberSpend is what a member advanced and what their shares add up to.
	MemberSpend struct {
		Member Member
		Paid   decimal.Decimal
		Share  decimal.Decimal
	}

	// PeriodSummary is a compact overview of one month.
	PeriodSummary struct {
		Period   Period
		Total    decimal.Decimal
		Fixed    decimal.Decimal
		Variable decimal.Decimal
		ByLabel  []LabelAmount
		ByMember []MemberSpend
	}
)

// Summarize aggregates charges for a period. Members keep the given order;
// labels are sorted by amount, largest first.
func Summarize(p Period, members []Member, charges []Charge) PeriodSummary {
	s := PeriodSummary{Period: p, Total: decimal.Zero, Fixed: decimal.Zero, Variable: decimal.Zero}
	spend := make(map[Member]*MemberSpend, len(members))
	for _, m := range members {
		s.ByMember = append(s.ByMember, MemberSpend{Member: m, Paid: decimal.Zero, Share: decimal.Zero})
	}
	for i := range s.ByMember {
		spend[s.ByMember[i].Member] = &s.ByMember[i]
	}
	labels := map[string]decimal.Decimal{}

	for _, c := range charges {
		if !p.Contains(c.Date) {
			continue
		}
		s.Total = s.Total.Add(c.Amount)
		if c.Kind == KindFixed {
			s.Fixed = s.Fixed.Add(c.Amount)
		} else {
			s.Variable = s.Variable.Add(c.Amount)
		}
		labels[c.Label] = labels[c.Label].Add(c.Amount)

		if ms, ok := spend[c.Payer]; ok {
			ms.Paid = ms.Paid.Add(c.Amount)
		}
		if len(c.Beneficiaries) > 0 {
			share := c.Amount.Div(decimal.NewFromInt(int64(len(c.Beneficiaries))))
			for _, b := range c.Beneficiaries {
				if ms, ok := spend[b]; ok {
					ms.Share = ms.Share.Add(share)
				}
			}
		}
	}

	for l, a := range labels {
		s.ByLabel = append(s.ByLabel, LabelAmount{Label: l, Amount: a})
	}
	sort.Slice(s.ByLabel, func(i, j int) bool {
		if c := s.ByLabel[i].Amount.Cmp(s.ByLabel[j].Amount); c != 0 {
			return c > 0
		}
		return s.ByLabel[i].Label < s.ByLabel[j].Label
	})
	for i := range s.ByMember {
		s.ByMember[i].Share = s.ByMember[i].Share.Round(2)
	}
	return s
}
