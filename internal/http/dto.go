package http

import (
	"time"

	"homesplit/internal/core"
	"homesplit/internal/services"
	"homesplit/internal/settle"
)

// Amounts cross the wire as decimal strings with two places.

type memberRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type memberJSON struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

type chargeRequest struct {
	Date          string   `json:"date"`
	Description   string   `json:"description"`
	Amount        string   `json:"amount"`
	Payer         string   `json:"payer"`
	Beneficiaries []string `json:"beneficiaries"`
	Label         string   `json:"label,omitempty"`
}

type chargeJSON struct {
	ID            int64     `json:"id"`
	Date          string    `json:"date"`
	Description   string    `json:"description"`
	Amount        string    `json:"amount"`
	Payer         string    `json:"payer"`
	Beneficiaries []string  `json:"beneficiaries"`
	Kind          string    `json:"kind"`
	Label         string    `json:"label,omitempty"`
	RecurringID   int64     `json:"recurring_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type recurringRequest struct {
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date,omitempty"`
	Every         string   `json:"every"`
	Description   string   `json:"description"`
	Amount        string   `json:"amount"`
	Payer         string   `json:"payer"`
	Beneficiaries []string `json:"beneficiaries"`
	Label         string   `json:"label,omitempty"`
}

type recurringJSON struct {
	ID            int64      `json:"id"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date,omitempty"`
	Every         string     `json:"every"`
	Description   string     `json:"description"`
	Amount        string     `json:"amount"`
	Payer         string     `json:"payer"`
	Beneficiaries []string   `json:"beneficiaries"`
	Label         string     `json:"label,omitempty"`
	LastExecution *time.Time `json:"last_execution,omitempty"`
}

type balanceJSON struct {
	Member      string `json:"member"`
	DisplayName string `json:"display_name,omitempty"`
	Balance     string `json:"balance"`
}

type transferJSON struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type labelJSON struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

type spendJSON struct {
	Member string `json:"member"`
	Paid   string `json:"paid"`
	Share  string `json:"share"`
}

type summaryJSON struct {
	Total    string      `json:"total"`
	Fixed    string      `json:"fixed"`
	Variable string      `json:"variable"`
	ByLabel  []labelJSON `json:"by_label"`
	ByMember []spendJSON `json:"by_member"`
}

type reportJSON struct {
	Period     string         `json:"period"`
	Closed     bool           `json:"closed"`
	ClosureID  string         `json:"closure_id,omitempty"`
	Balances   []balanceJSON  `json:"balances"`
	Transfers  []transferJSON `json:"transfers"`
	Summary    summaryJSON    `json:"summary"`
	ComputedAt time.Time      `json:"computed_at"`
}

type settlementJSON struct {
	Period    string         `json:"period"`
	Settled   bool           `json:"settled"`
	Closed    bool           `json:"closed"`
	Transfers []transferJSON `json:"transfers"`
}

type overrideJSON struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type closeRequest struct {
	Period   string        `json:"period"`
	ClosedBy string        `json:"closed_by"`
	Override *overrideJSON `json:"override,omitempty"`
}

type closureJSON struct {
	ID         string         `json:"id"`
	Period     string         `json:"period"`
	ClosedAt   time.Time      `json:"closed_at"`
	ClosedBy   string         `json:"closed_by"`
	Overridden bool           `json:"overridden"`
	Balances   []balanceJSON  `json:"balances"`
	Transfers  []transferJSON `json:"transfers"`
}

func toMemberJSON(p core.MemberProfile) memberJSON {
	return memberJSON{ID: string(p.ID), DisplayName: p.DisplayName, JoinedAt: p.JoinedAt}
}

func memberStrings(ms []core.Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m)
	}
	return out
}

func toChargeJSON(c core.Charge) chargeJSON {
	return chargeJSON{
		ID:            c.ID,
		Date:          c.Date.String(),
		Description:   c.Description,
		Amount:        core.FormatAmount(c.Amount),
		Payer:         string(c.Payer),
		Beneficiaries: memberStrings(c.Beneficiaries),
		Kind:          string(c.Kind),
		Label:         c.Label,
		RecurringID:   c.RecurringID,
		CreatedAt:     c.CreatedAt,
	}
}

func toRecurringJSON(rc core.RecurringCharge) recurringJSON {
	out := recurringJSON{
		ID:            rc.ID,
		StartDate:     rc.StartDate.String(),
		Every:         string(rc.Every),
		Description:   rc.Description,
		Amount:        core.FormatAmount(rc.Amount),
		Payer:         string(rc.Payer),
		Beneficiaries: memberStrings(rc.Beneficiaries),
		Label:         rc.Label,
	}
	if !rc.EndDate.IsZero() {
		out.EndDate = rc.EndDate.String()
	}
	if !rc.LastExecution.IsZero() {
		last := rc.LastExecution
		out.LastExecution = &last
	}
	return out
}

func toBalancesJSON(bs []core.MemberBalance) []balanceJSON {
	out := make([]balanceJSON, len(bs))
	for i, b := range bs {
		out[i] = balanceJSON{Member: string(b.Member), DisplayName: b.DisplayName, Balance: core.FormatAmount(b.Balance)}
	}
	return out
}

func toTransfersJSON(ts []settle.Transfer) []transferJSON {
	out := make([]transferJSON, len(ts))
	for i, t := range ts {
		out[i] = transferJSON{From: string(t.From), To: string(t.To), Amount: core.FormatAmount(t.Amount)}
	}
	return out
}

func toSummaryJSON(s core.PeriodSummary) summaryJSON {
	out := summaryJSON{
		Total:    core.FormatAmount(s.Total),
		Fixed:    core.FormatAmount(s.Fixed),
		Variable: core.FormatAmount(s.Variable),
		ByLabel:  make([]labelJSON, len(s.ByLabel)),
		ByMember: make([]spendJSON, len(s.ByMember)),
	}
	for i, l := range s.ByLabel {
		out.ByLabel[i] = labelJSON{Label: l.Label, Amount: core.FormatAmount(l.Amount)}
	}
	for i, m := range s.ByMember {
		out.ByMember[i] = spendJSON{Member: string(m.Member), Paid: core.FormatAmount(m.Paid), Share: core.FormatAmount(m.Share)}
	}
	return out
}

func toReportJSON(r services.Report) reportJSON {
	return reportJSON{
		Period:     r.Period.String(),
		Closed:     r.Closed,
		ClosureID:  r.ClosureID,
		Balances:   toBalancesJSON(r.Balances),
		Transfers:  toTransfersJSON(r.Transfers),
		Summary:    toSummaryJSON(r.Summary),
		ComputedAt: r.ComputedAt,
	}
}

func toClosureJSON(c core.Closure) closureJSON {
	return closureJSON{
		ID:         c.ID,
		Period:     c.Period.String(),
		ClosedAt:   c.ClosedAt,
		ClosedBy:   string(c.ClosedBy),
		Overridden: c.Overridden,
		Balances:   toBalancesJSON(c.Balances),
		Transfers:  toTransfersJSON(c.Transfers),
	}
}
