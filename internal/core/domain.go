package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"homesplit/internal/settle"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

const (
	KindFixed    ChargeKind = "fixed"    // materialised from a recurring bill
	KindVariable ChargeKind = "variable" // logged ad hoc
)

const maxDescription = 200

type (
	// Member is the household participant identifier shared with the engine.
	Member = settle.Member

	RepetitionTypes string
	ChargeKind      string

	Date struct {
		time.Time
	}

	MemberProfile struct {
		ID          Member
		DisplayName string
		JoinedAt    time.Time
	}

	Charge struct {
		ID            int64
		Date          Date
		Description   string
		Amount        decimal.Decimal
		Payer         Member
		Beneficiaries []Member
		Kind          ChargeKind
		Label         string // free-form category label, not interpreted
		RecurringID   int64  // set when Kind is KindFixed
		CreatedAt     time.Time
	}

	RecurringCharge struct {
		ID            int64
		StartDate     Date
		EndDate       Date // zero means open ended
		Every         RepetitionTypes
		Description   string
		Amount        decimal.Decimal
		Payer         Member
		Beneficiaries []Member
		Label         string
		LastExecution time.Time
	}

	MemberBalance struct {
		Member      Member
		DisplayName string
		Balance     decimal.Decimal
	}

	// Closure is a finalised month. Once stored, charges inside Period can no
	// longer change.
	Closure struct {
		ID         string
		Period     Period
		ClosedAt   time.Time
		ClosedBy   Member
		Balances   []MemberBalance
		Transfers  []settle.Transfer
		Overridden bool
	}

	// Override replaces the computed transfer between two members at closure.
	Override struct {
		From   Member
		To     Member
		Amount decimal.Decimal
	}
)

var (
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidDay           = errors.New("invalid day")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = errors.New("description too long (max 200 characters)")
	ErrInvalidMember        = errors.New("invalid member id")
	ErrEmptyDisplayName     = errors.New("empty display name")
	ErrMissingPayer         = errors.New("missing payer")
	ErrNoBeneficiaries      = errors.New("no beneficiaries")
	ErrDuplicateBeneficiary = errors.New("duplicate beneficiary")
	ErrInvalidKind          = errors.New("invalid charge kind")
	ErrInvalidRepetition    = errors.New("invalid repetition type")
	ErrInvalidPeriod        = errors.New("invalid period")
	ErrInvalidOverride      = errors.New("invalid override")
	ErrUnknownMember        = errors.New("unknown member")
	ErrPeriodClosed         = errors.New("period already closed")
	ErrNotFound             = errors.New("not found")
	ErrMemberExists         = errors.New("member already exists")
)

var memberPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (d Date) Day() int   { return d.Time.Day() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Year() int  { return d.Time.Year() }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.Format(time.DateOnly) }

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate reads a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// ValidateMember checks the identifier shape: a lowercase slug of at most 32
// characters.
func ValidateMember(m Member) error {
	if !memberPattern.MatchString(string(m)) {
		return fmt.Errorf("%w: %q", ErrInvalidMember, m)
	}
	return nil
}

func (p MemberProfile) Validate() error {
	if err := ValidateMember(p.ID); err != nil {
		return err
	}
	name := strings.TrimSpace(p.DisplayName)
	if name == "" {
		return ErrEmptyDisplayName
	}
	if len(name) > 64 {
		return fmt.Errorf("%w: display name too long (max 64 characters)", ErrInvalidMember)
	}
	return nil
}

func validateDescription(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return ErrEmptyDescription
	}
	if len(s) > maxDescription {
		return ErrDescriptionTooLong
	}
	return nil
}

func validateParties(payer Member, beneficiaries []Member) error {
	if payer == "" {
		return ErrMissingPayer
	}
	if err := ValidateMember(payer); err != nil {
		return err
	}
	if len(beneficiaries) == 0 {
		return ErrNoBeneficiaries
	}
	seen := make(map[Member]struct{}, len(beneficiaries))
	for _, b := range beneficiaries {
		if err := ValidateMember(b); err != nil {
			return err
		}
		if _, dup := seen[b]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateBeneficiary, b)
		}
		seen[b] = struct{}{}
	}
	return nil
}

func (c Charge) Validate() error {
	if err := c.Date.Validate(); err != nil {
		return err
	}
	if err := validateDescription(c.Description); err != nil {
		return err
	}
	if err := ValidateAmount(c.Amount); err != nil {
		return err
	}
	switch c.Kind {
	case KindFixed, KindVariable:
	default:
		return ErrInvalidKind
	}
	return validateParties(c.Payer, c.Beneficiaries)
}

// Shared converts the charge into the engine's input shape.
func (c Charge) Shared() settle.SharedCharge {
	return settle.SharedCharge{
		Payer:         c.Payer,
		Total:         c.Amount,
		Beneficiaries: c.Beneficiaries,
	}
}

// SharedCharges converts a charge list for the engine.
func SharedCharges(charges []Charge) []settle.SharedCharge {
	out := make([]settle.SharedCharge, len(charges))
	for i, c := range charges {
		out[i] = c.Shared()
	}
	return out
}

// MemberIDs returns the identifiers of profiles in order.
func MemberIDs(profiles []MemberProfile) []Member {
	out := make([]Member, len(profiles))
	for i, p := range profiles {
		out[i] = p.ID
	}
	return out
}

func (re RecurringCharge) Validate() error {
	if err := re.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	if !re.EndDate.IsZero() {
		if err := re.EndDate.Validate(); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		if re.EndDate.Before(re.StartDate.Time) {
			return fmt.Errorf("%w: end date must be after start date", ErrInvalidDate)
		}
	}

	switch re.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return ErrInvalidRepetition
	}

	if err := validateDescription(re.Description); err != nil {
		return err
	}
	if err := ValidateAmount(re.Amount); err != nil {
		return err
	}
	return validateParties(re.Payer, re.Beneficiaries)
}

// ChargeAt builds the fixed charge a recurring bill produces on date.
func (re RecurringCharge) ChargeAt(date Date) Charge {
	bens := make([]Member, len(re.Beneficiaries))
	copy(bens, re.Beneficiaries)
	return Charge{
		Date:          date,
		Description:   re.Description,
		Amount:        re.Amount,
		Payer:         re.Payer,
		Beneficiaries: bens,
		Kind:          KindFixed,
		Label:         re.Label,
		RecurringID:   re.ID,
	}
}

// Validate checks the override against the household. Amount zero removes
// the transfer between the pair.
func (o Override) Validate(members []Member) error {
	if o.From == "" || o.To == "" || o.From == o.To {
		return fmt.Errorf("%w: needs two distinct members", ErrInvalidOverride)
	}
	if o.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount", ErrInvalidOverride)
	}
	if !o.Amount.Equal(o.Amount.Round(settle.Places)) {
		return fmt.Errorf("%w: more than %d decimal places", ErrInvalidOverride, settle.Places)
	}
	known := func(m Member) bool {
		for _, k := range members {
			if k == m {
				return true
			}
		}
		return false
	}
	for _, m := range []Member{o.From, o.To} {
		if !known(m) {
			return fmt.Errorf("%w: %q", ErrUnknownMember, m)
		}
	}
	return nil
}
