// Package snapshot reads household members and charges from a YAML or TOML
// file. The offline CLI settles snapshots and the memory backend can be
// preloaded from one.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"homesplit/internal/core"
)

type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

var ErrUnknownFormat = errors.New("unknown snapshot format")

// Snapshot is a validated set of members and charges.
type Snapshot struct {
	Members []core.MemberProfile
	Charges []core.Charge
}

// MemberIDs returns the member ids in file order.
func (s Snapshot) MemberIDs() []core.Member {
	return core.MemberIDs(s.Members)
}

type file struct {
	Members []memberEntry `yaml:"members" toml:"members"`
	Charges []chargeEntry `yaml:"charges" toml:"charges"`
}

type memberEntry struct {
	ID   string `yaml:"id" toml:"id"`
	Name string `yaml:"name" toml:"name"`
}

// Dates and amounts are strings so both decoders hand over the text as
// written and core does the parsing.
type chargeEntry struct {
	Date          string   `yaml:"date" toml:"date"`
	Description   string   `yaml:"description" toml:"description"`
	Amount        string   `yaml:"amount" toml:"amount"`
	Payer         string   `yaml:"payer" toml:"payer"`
	Beneficiaries []string `yaml:"beneficiaries" toml:"beneficiaries"`
	Label         string   `yaml:"label" toml:"label"`
	Kind          string   `yaml:"kind" toml:"kind"`
}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

func LoadFile(path string) (Snapshot, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := Parse(data, format)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return snap, nil
}

// Parse decodes and validates data. Every charge must name known members.
func Parse(data []byte, format Format) (Snapshot, error) {
	var f file
	switch format {
	case YAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return Snapshot{}, fmt.Errorf("decode yaml: %w", err)
		}
	case TOML:
		if err := toml.Unmarshal(data, &f); err != nil {
			return Snapshot{}, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return f.build()
}

func (f file) build() (Snapshot, error) {
	var snap Snapshot
	known := make(map[core.Member]struct{}, len(f.Members))
	for i, m := range f.Members {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			name = strings.TrimSpace(m.ID)
		}
		p := core.MemberProfile{ID: core.Member(strings.TrimSpace(m.ID)), DisplayName: name}
		if err := p.Validate(); err != nil {
			return Snapshot{}, fmt.Errorf("member %d: %w", i+1, err)
		}
		if _, dup := known[p.ID]; dup {
			return Snapshot{}, fmt.Errorf("member %d: %w: %q", i+1, core.ErrMemberExists, p.ID)
		}
		known[p.ID] = struct{}{}
		snap.Members = append(snap.Members, p)
	}

	for i, e := range f.Charges {
		c, err := e.charge()
		if err != nil {
			return Snapshot{}, fmt.Errorf("charge %d: %w", i+1, err)
		}
		for _, m := range append([]core.Member{c.Payer}, c.Beneficiaries...) {
			if _, ok := known[m]; !ok {
				return Snapshot{}, fmt.Errorf("charge %d: %w: %q", i+1, core.ErrUnknownMember, m)
			}
		}
		snap.Charges = append(snap.Charges, c)
	}
	return snap, nil
}

func (e chargeEntry) charge() (core.Charge, error) {
	date, err := core.ParseDate(strings.TrimSpace(e.Date))
	if err != nil {
		return core.Charge{}, err
	}
	amount, err := core.ParseAmount(e.Amount)
	if err != nil {
		return core.Charge{}, err
	}
	kind := core.ChargeKind(strings.TrimSpace(e.Kind))
	if kind == "" {
		kind = core.KindVariable
	}
	beneficiaries := make([]core.Member, 0, len(e.Beneficiaries))
	for _, b := range e.Beneficiaries {
		beneficiaries = append(beneficiaries, core.Member(strings.TrimSpace(b)))
	}
	c := core.Charge{
		Date:          date,
		Description:   strings.TrimSpace(e.Description),
		Amount:        amount,
		Payer:         core.Member(strings.TrimSpace(e.Payer)),
		Beneficiaries: beneficiaries,
		Kind:          kind,
		Label:         strings.TrimSpace(e.Label),
	}
	if err := c.Validate(); err != nil {
		return core.Charge{}, err
	}
	return c, nil
}
