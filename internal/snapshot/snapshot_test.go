package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"homesplit/internal/core"
)

const yamlSnapshot = `
members:
  - id: ada
    name: Ada
  - id: bob
charges:
  - date: 2024-03-01
    description: rent
    amount: 900.00
    payer: ada
    beneficiaries: [ada, bob]
    kind: fixed
    label: home
  - date: 2024-03-04
    description: groceries
    amount: "42,50"
    payer: bob
    beneficiaries: [ada, bob]
`

const tomlSnapshot = `
[[members]]
id = "ada"
name = "Ada"

[[members]]
id = "bob"

[[charges]]
date = "2024-03-01"
description = "rent"
amount = "900.00"
payer = "ada"
beneficiaries = ["ada", "bob"]
kind = "fixed"
label = "home"

[[charges]]
date = "2024-03-04"
description = "groceries"
amount = "42.50"
payer = "bob"
beneficiaries = ["ada", "bob"]
`

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"yaml", yamlSnapshot, YAML},
		{"toml", tomlSnapshot, TOML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(snap.Members) != 2 || snap.Members[1].DisplayName != "bob" {
				t.Errorf("members = %+v", snap.Members)
			}
			if len(snap.Charges) != 2 {
				t.Fatalf("charges = %d, want 2", len(snap.Charges))
			}
			rent, groceries := snap.Charges[0], snap.Charges[1]
			if rent.Kind != core.KindFixed || core.FormatAmount(rent.Amount) != "900.00" || rent.Label != "home" {
				t.Errorf("rent = %+v", rent)
			}
			if groceries.Kind != core.KindVariable || core.FormatAmount(groceries.Amount) != "42.50" {
				t.Errorf("groceries = %+v", groceries)
			}
			if got := snap.MemberIDs(); len(got) != 2 || got[0] != "ada" {
				t.Errorf("MemberIDs() = %v", got)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "unknown beneficiary",
			data: "members: [{id: ada}]\ncharges:\n  - {date: 2024-03-01, description: x, amount: 1, payer: ada, beneficiaries: [cy]}\n",
			want: core.ErrUnknownMember,
		},
		{
			name: "duplicate member",
			data: "members: [{id: ada}, {id: ada}]\n",
			want: core.ErrMemberExists,
		},
		{
			name: "bad amount",
			data: "members: [{id: ada}]\ncharges:\n  - {date: 2024-03-01, description: x, amount: -3, payer: ada, beneficiaries: [ada]}\n",
			want: core.ErrInvalidAmount,
		},
		{
			name: "bad date",
			data: "members: [{id: ada}]\ncharges:\n  - {date: 03/01/2024, description: x, amount: 1, payer: ada, beneficiaries: [ada]}\n",
			want: core.ErrInvalidDate,
		},
		{
			name: "no beneficiaries",
			data: "members: [{id: ada}]\ncharges:\n  - {date: 2024-03-01, description: x, amount: 1, payer: ada}\n",
			want: core.ErrNoBeneficiaries,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), YAML)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "march.toml")
	if err := os.WriteFile(path, []byte(tomlSnapshot), 0o600); err != nil {
		t.Fatal(err)
	}
	snap, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(snap.Charges) != 2 {
		t.Errorf("charges = %d", len(snap.Charges))
	}

	if _, err := LoadFile(filepath.Join(dir, "march.json")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("json error = %v, want ErrUnknownFormat", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
