package settle

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places amounts are presented with.
const Places int32 = 2

// Epsilon is the tolerance below which a balance counts as settled.
var Epsilon = decimal.New(1, -Places)

type (
	// Member identifies a household participant. It is opaque to this package.
	Member string

	// SharedCharge is an amount advanced by Payer and owed in equal parts by
	// Beneficiaries. The payer may or may not be one of the beneficiaries.
	SharedCharge struct {
		Payer         Member
		Total         decimal.Decimal
		Beneficiaries []Member
	}

	// Transfer is a recommended payment of Amount from From to To.
	Transfer struct {
		From   Member
		To     Member
		Amount decimal.Decimal
	}

	// Settlement bundles the balances of a charge set with the transfers
	// that clear them.
	Settlement struct {
		Balances  BalanceMap
		Transfers []Transfer
	}
)

// BalanceMap maps members to signed balances and remembers the order members
// were introduced in. The zero value is an empty map.
type BalanceMap struct {
	order  []Member
	values map[Member]decimal.Decimal
}

// NewBalanceMap returns a map with a zero balance for every member. Repeated
// members keep their first position.
func NewBalanceMap(members []Member) BalanceMap {
	b := BalanceMap{
		order:  make([]Member, 0, len(members)),
		values: make(map[Member]decimal.Decimal, len(members)),
	}
	for _, m := range members {
		if _, ok := b.values[m]; ok {
			continue
		}
		b.order = append(b.order, m)
		b.values[m] = decimal.Zero
	}
	return b
}

// Members returns the members in encounter order.
func (b BalanceMap) Members() []Member {
	out := make([]Member, len(b.order))
	copy(out, b.order)
	return out
}

// Len returns the number of members.
func (b BalanceMap) Len() int { return len(b.order) }

// Has reports whether m is part of the map.
func (b BalanceMap) Has(m Member) bool {
	_, ok := b.values[m]
	return ok
}

// Balance returns the unrounded balance of m.
func (b BalanceMap) Balance(m Member) (decimal.Decimal, bool) {
	v, ok := b.values[m]
	return v, ok
}

// Sum returns the sum of every balance. For a map built by Accumulate from
// known members only, it is zero up to division rounding.
func (b BalanceMap) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, m := range b.order {
		sum = sum.Add(b.values[m])
	}
	return sum
}

// IsSettled reports whether every balance is within Epsilon of zero.
func (b BalanceMap) IsSettled() bool {
	for _, m := range b.order {
		if b.values[m].Abs().GreaterThan(Epsilon) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of b.
func (b BalanceMap) Clone() BalanceMap {
	c := BalanceMap{
		order:  b.Members(),
		values: make(map[Member]decimal.Decimal, len(b.values)),
	}
	for k, v := range b.values {
		c.values[k] = v
	}
	return c
}

// Rounded returns a copy with every balance rounded to Places.
func (b BalanceMap) Rounded() BalanceMap {
	c := b.Clone()
	for k, v := range c.values {
		c.values[k] = v.Round(Places)
	}
	return c
}

// Apply returns a copy of b with the transfers paid: each amount is added to
// the sender and subtracted from the receiver. Transfers touching members
// outside the map are skipped.
func (b BalanceMap) Apply(transfers []Transfer) BalanceMap {
	c := b.Clone()
	for _, t := range transfers {
		if !c.Has(t.From) || !c.Has(t.To) {
			continue
		}
		c.values[t.From] = c.values[t.From].Add(t.Amount)
		c.values[t.To] = c.values[t.To].Sub(t.Amount)
	}
	return c
}

// add is the only mutator; it ignores members that are not in the map.
func (b BalanceMap) add(m Member, delta decimal.Decimal) bool {
	v, ok := b.values[m]
	if !ok {
		return false
	}
	b.values[m] = v.Add(delta)
	return true
}

// String renders the map as "a=+1.00 b=-1.00" in member order.
func (b BalanceMap) String() string {
	var sb strings.Builder
	for i, m := range b.order {
		if i > 0 {
			sb.WriteByte(' ')
		}
		v := b.values[m].Round(Places)
		sb.WriteString(string(m))
		sb.WriteByte('=')
		if v.Sign() >= 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(v.StringFixed(Places))
	}
	return sb.String()
}
