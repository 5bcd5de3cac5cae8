package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const household = `
members:
  - id: ada
  - id: bob
  - id: cy
charges:
  - date: 2024-03-01
    description: rent
    amount: 90
    payer: ada
    beneficiaries: [ada, bob, cy]
  - date: 2024-04-02
    description: dinner
    amount: 30
    payer: bob
    beneficiaries: [ada, bob, cy]
`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "household.yaml")
	if err := os.WriteFile(path, []byte(household), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewSettleCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestComputeJSON(t *testing.T) {
	path := writeSnapshot(t)
	tests := []struct {
		name      string
		period    string
		total     string
		balances  []string
		transfers []transferOutput
	}{
		{
			name:     "all charges",
			total:    "120.00",
			balances: []string{"50.00", "-10.00", "-40.00"},
			transfers: []transferOutput{
				{From: "bob", To: "ada", Amount: "10.00"},
				{From: "cy", To: "ada", Amount: "40.00"},
			},
		},
		{
			name:     "one month",
			period:   "2024-03",
			total:    "90.00",
			balances: []string{"60.00", "-30.00", "-30.00"},
			transfers: []transferOutput{
				{From: "bob", To: "ada", Amount: "30.00"},
				{From: "cy", To: "ada", Amount: "30.00"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"compute", "--file", path, "--json"}
			if tt.period != "" {
				args = append(args, "--period", tt.period)
			}
			raw, err := execute(t, args...)
			if err != nil {
				t.Fatalf("compute error = %v", err)
			}
			var out computeOutput
			if err := json.Unmarshal([]byte(raw), &out); err != nil {
				t.Fatalf("decode %q: %v", raw, err)
			}
			if out.Total != tt.total {
				t.Errorf("total = %s, want %s", out.Total, tt.total)
			}
			for i, want := range tt.balances {
				if out.Balances[i].Balance != want {
					t.Errorf("balance %s = %s, want %s", out.Balances[i].Member, out.Balances[i].Balance, want)
				}
			}
			if len(out.Transfers) != len(tt.transfers) {
				t.Fatalf("transfers = %+v", out.Transfers)
			}
			for i, want := range tt.transfers {
				if out.Transfers[i] != want {
					t.Errorf("transfer %d = %+v, want %+v", i, out.Transfers[i], want)
				}
			}
		})
	}
}

func TestComputeTable(t *testing.T) {
	out, err := execute(t, "compute", "-f", writeSnapshot(t), "-p", "2024-03")
	if err != nil {
		t.Fatalf("compute error = %v", err)
	}
	for _, want := range []string{"2024-03: 1 charges, total 90.00", "+60.00", "-30.00", "FROM", "cy"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "compute", "-f", writeSnapshot(t), "-p", "2024-05")
	if err != nil {
		t.Fatalf("compute error = %v", err)
	}
	if !strings.Contains(out, "Nothing to settle.") {
		t.Errorf("empty month output:\n%s", out)
	}
}

func TestValidateAndErrors(t *testing.T) {
	out, err := execute(t, "validate", "--file", writeSnapshot(t))
	if err != nil || !strings.Contains(out, "ok: 3 members, 2 charges") {
		t.Errorf("validate = %q, %v", out, err)
	}
	if _, err := execute(t, "compute"); err == nil {
		t.Error("missing --file accepted")
	}
	if _, err := execute(t, "compute", "-f", writeSnapshot(t), "-p", "March"); err == nil {
		t.Error("bad period accepted")
	}
}
