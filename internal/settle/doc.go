// Package settle computes who owes whom inside a household.
//
// Accumulate folds shared charges into a signed balance per member (positive
// means the member is owed money, negative means the member owes money).
// Simplify reduces a balance map to an ordered list of point-to-point
// transfers that clears it.
//
// Both operations are pure: no I/O, no shared state, no errors. Callers load
// charges and members from wherever they live and hand the snapshot in.
//
// Two behaviours are kept on purpose and should not be changed without
// product agreement:
//
//   - Members referenced by a charge but missing from the member set are
//     ignored (PolicyIgnoreUnknown). Their share of a charge is dropped, so
//     a stale reference can leave the balances off zero. Use
//     WithUnknownObserver to surface them.
//   - Simplify matches debtors and creditors first-fit in encounter order.
//     It emits at most debtors+creditors-1 transfers, but that is not the
//     global minimum for every topology.
package settle
