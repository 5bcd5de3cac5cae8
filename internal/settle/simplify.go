package settle

import "github.com/shopspring/decimal"

type position struct {
	member Member
	owed   decimal.Decimal
}

// Simplify turns balances into transfers from debtors to creditors.
//
// Members more than Epsilon below zero are debtors and members more than
// Epsilon above zero are creditors, both kept in the map's member order. Two
// cursors walk the lists: each step moves min(debtor owed, creditor owed) and
// a cursor advances once its side is within Epsilon. Transfers come back in
// emission order with amounts rounded to Places.
func Simplify(balances BalanceMap) []Transfer {
	var debtors, creditors []position
	for _, m := range balances.order {
		v := balances.values[m]
		switch {
		case v.LessThan(Epsilon.Neg()):
			debtors = append(debtors, position{member: m, owed: v.Neg()})
		case v.GreaterThan(Epsilon):
			creditors = append(creditors, position{member: m, owed: v})
		}
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]
		amount := decimal.Min(d.owed, c.owed)

		// both sides are above Epsilon here, so the rounded amount is at least one cent
		transfers = append(transfers, Transfer{From: d.member, To: c.member, Amount: amount.Round(Places)})
		d.owed = d.owed.Sub(amount)
		c.owed = c.owed.Sub(amount)

		if d.owed.LessThanOrEqual(Epsilon) {
			i++
		}
		if c.owed.LessThanOrEqual(Epsilon) {
			j++
		}
	}
	return transfers
}
