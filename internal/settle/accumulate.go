package settle

import "github.com/shopspring/decimal"

// UnknownPolicy tells Accumulate what to do with members a charge references
// that are not part of the household.
type UnknownPolicy string

// PolicyIgnoreUnknown drops the balance effect for unknown members without
// failing. It is the only supported policy.
const PolicyIgnoreUnknown UnknownPolicy = "ignore-unknown"

// Role says where an unknown member appeared in a charge.
type Role string

const (
	RolePayer       Role = "payer"
	RoleBeneficiary Role = "beneficiary"
)

// UnknownRef describes one ignored reference.
type UnknownRef struct {
	Charge int // index into the charges slice
	Member Member
	Role   Role
	Policy UnknownPolicy
}

type options struct {
	onUnknown func(UnknownRef)
}

// Option configures Accumulate and Settle.
type Option func(*options)

// WithUnknownObserver registers fn to be called for every ignored member
// reference. The observer does not change the result.
func WithUnknownObserver(fn func(UnknownRef)) Option {
	return func(o *options) { o.onUnknown = fn }
}

// Accumulate folds charges into a balance per member. Every member starts at
// zero. For each charge the payer is credited the total and each beneficiary
// is debited an equal share. Charges without beneficiaries are skipped.
func Accumulate(charges []SharedCharge, members []Member, opts ...Option) BalanceMap {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	unknown := func(i int, m Member, r Role) {
		if o.onUnknown != nil {
			o.onUnknown(UnknownRef{Charge: i, Member: m, Role: r, Policy: PolicyIgnoreUnknown})
		}
	}

	balances := NewBalanceMap(members)
	for i, c := range charges {
		beneficiaries := distinct(c.Beneficiaries)
		if len(beneficiaries) == 0 {
			continue
		}
		share := c.Total.Div(decimal.NewFromInt(int64(len(beneficiaries))))

		if !balances.add(c.Payer, c.Total) {
			unknown(i, c.Payer, RolePayer)
		}
		for _, m := range beneficiaries {
			if !balances.add(m, share.Neg()) {
				unknown(i, m, RoleBeneficiary)
			}
		}
	}
	return balances
}

// Settle accumulates charges and simplifies the result.
func Settle(charges []SharedCharge, members []Member, opts ...Option) Settlement {
	balances := Accumulate(charges, members, opts...)
	return Settlement{
		Balances:  balances,
		Transfers: Simplify(balances),
	}
}

func distinct(in []Member) []Member {
	if len(in) < 2 {
		return in
	}
	seen := make(map[Member]struct{}, len(in))
	out := make([]Member, 0, len(in))
	for _, m := range in {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
