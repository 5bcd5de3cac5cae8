// Package sheets turns charges and closures into spreadsheet rows.
package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"homesplit/internal/core"
)

// ChargeHeader names the columns ChargeRow fills.
var ChargeHeader = []any{"ID", "Date", "Description", "Amount", "Payer", "Beneficiaries", "Kind", "Label", "Share"}

// ClosureHeader names the columns ClosureRows fills.
var ClosureHeader = []any{"Period", "Closure", "Closed at", "Closed by", "From", "To", "Amount", "Overridden"}

// ChargeRow renders one charge. Amounts are plain decimal strings so
// USER_ENTERED parsing turns them into numbers whatever the sheet locale.
func ChargeRow(c core.Charge) []any {
	beneficiaries := make([]string, len(c.Beneficiaries))
	for i, b := range c.Beneficiaries {
		beneficiaries[i] = string(b)
	}
	share := ""
	if n := len(c.Beneficiaries); n > 0 {
		share = core.FormatAmount(c.Amount.Div(decimal.NewFromInt(int64(n))))
	}
	return []any{
		strconv.FormatInt(c.ID, 10),
		c.Date.String(),
		c.Description,
		core.FormatAmount(c.Amount),
		string(c.Payer),
		strings.Join(beneficiaries, ", "),
		string(c.Kind),
		c.Label,
		share,
	}
}

// ClosureRows renders one row per transfer. A settled period still gets a
// row so the closure is visible.
func ClosureRows(c core.Closure) [][]any {
	base := func() []any {
		return []any{c.Period.String(), c.ID, c.ClosedAt.UTC().Format("2006-01-02 15:04:05"), string(c.ClosedBy)}
	}
	overridden := "no"
	if c.Overridden {
		overridden = "yes"
	}
	if len(c.Transfers) == 0 {
		return [][]any{append(base(), "", "", "0.00", overridden)}
	}
	rows := make([][]any, 0, len(c.Transfers))
	for _, t := range c.Transfers {
		rows = append(rows, append(base(), string(t.From), string(t.To), core.FormatAmount(t.Amount), overridden))
	}
	return rows
}

// YearPrefixedName returns "<year> <base>" unless base already starts with
// a 4-digit year.
func YearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
