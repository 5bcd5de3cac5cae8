package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"homesplit/internal/core"
	"homesplit/internal/settle"
	"homesplit/internal/snapshot"
)

var (
	owedColor  = color.New(color.FgGreen)
	owesColor  = color.New(color.FgRed)
	totalColor = color.New(color.Bold)
)

type settleFlags struct {
	file    string
	period  string
	json    bool
	noColor bool
}

// NewSettleCommand builds the offline settle CLI.
func NewSettleCommand() *cobra.Command {
	var f settleFlags
	root := &cobra.Command{
		Use:           "settle",
		Short:         "Settle household charges from a snapshot file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if f.noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().StringVarP(&f.file, "file", "f", "", "YAML or TOML snapshot of members and charges")
	root.PersistentFlags().BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	_ = root.MarkPersistentFlagRequired("file")

	compute := &cobra.Command{
		Use:   "compute",
		Short: "Print balances and the transfers that clear them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompute(cmd.OutOrStdout(), f)
		},
	}
	compute.Flags().StringVarP(&f.period, "period", "p", "", "only charges in this month (YYYY-MM)")
	compute.Flags().BoolVar(&f.json, "json", false, "print JSON instead of a table")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a snapshot file without settling it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := snapshot.LoadFile(f.file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d members, %d charges\n", len(snap.Members), len(snap.Charges))
			return nil
		},
	}

	root.AddCommand(compute, validate)
	return root
}

type computeOutput struct {
	Period    string           `json:"period,omitempty"`
	Charges   int              `json:"charges"`
	Total     string           `json:"total"`
	Balances  []balanceOutput  `json:"balances"`
	Transfers []transferOutput `json:"transfers"`
}

type balanceOutput struct {
	Member  string `json:"member"`
	Balance string `json:"balance"`
}

type transferOutput struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func runCompute(w io.Writer, f settleFlags) error {
	snap, err := snapshot.LoadFile(f.file)
	if err != nil {
		return err
	}

	charges := snap.Charges
	if f.period != "" {
		p, err := core.ParsePeriod(f.period)
		if err != nil {
			return err
		}
		charges = charges[:0:0]
		for _, c := range snap.Charges {
			if p.Contains(c.Date) {
				charges = append(charges, c)
			}
		}
	}

	result := settle.Settle(core.SharedCharges(charges), snap.MemberIDs())
	out := computeOutput{Period: f.period, Charges: len(charges), Total: core.FormatAmount(total(charges))}
	balances := result.Balances.Rounded()
	for _, m := range balances.Members() {
		v, _ := balances.Balance(m)
		out.Balances = append(out.Balances, balanceOutput{Member: string(m), Balance: core.FormatAmount(v)})
	}
	out.Transfers = []transferOutput{}
	for _, t := range result.Transfers {
		out.Transfers = append(out.Transfers, transferOutput{From: string(t.From), To: string(t.To), Amount: core.FormatAmount(t.Amount)})
	}

	if f.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printTable(w, out)
}

func total(charges []core.Charge) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range charges {
		sum = sum.Add(c.Amount)
	}
	return sum
}

func printTable(w io.Writer, out computeOutput) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := fmt.Sprintf("%d charges, total %s", out.Charges, out.Total)
	if out.Period != "" {
		header = out.Period + ": " + header
	}
	fmt.Fprintln(tw, totalColor.Sprint(header))
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "MEMBER\tBALANCE")
	for _, b := range out.Balances {
		fmt.Fprintf(tw, "%s\t%s\n", b.Member, signed(b.Balance))
	}
	fmt.Fprintln(tw)
	if len(out.Transfers) == 0 {
		fmt.Fprintln(tw, "Nothing to settle.")
		return tw.Flush()
	}
	fmt.Fprintln(tw, "FROM\tTO\tAMOUNT")
	for _, t := range out.Transfers {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.From, t.To, t.Amount)
	}
	return tw.Flush()
}

// signed colours creditors green and debtors red.
func signed(amount string) string {
	switch {
	case amount == "0.00":
		return amount
	case amount[0] == '-':
		return owesColor.Sprint(amount)
	default:
		return owedColor.Sprint("+" + amount)
	}
}
