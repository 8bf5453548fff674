package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/defistate/lending-console-go/estimate"
	"github.com/defistate/lending-console-go/format"
	"github.com/defistate/lending-console-go/markets"
	"github.com/defistate/lending-console-go/source"
)

// header prints a styled section header
func header(w io.Writer, title string) {
	fmt.Fprintln(w, "\n"+Bold+Cyan+":: "+title+" ::"+Reset)
}

func printMarkets(w io.Writer, list []markets.Market, key markets.SortKey) {
	totals := markets.Summarize(list)
	header(w, "MARKETS")
	fmt.Fprintf(w, "Total TVL %s | Total Borrowed %s | Avg Utilization %s\n\n",
		format.ToUSD(totals.TVL), format.ToUSD(totals.Borrowed), format.ToPercentage(totals.AvgUtilization))

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "POOL\tID\tTVL\tSUPPLY APY\tBORROW APY\tUTILIZATION\tBACKSTOP APR\tRISK\tSTATUS")
	for _, m := range list {
		status := "active"
		if !m.Active {
			status = "inactive"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Name,
			m.ID.Compact(),
			format.ToUSD(m.TVL),
			format.ToPercentage(m.AvgSupplyApy),
			format.ToPercentage(m.AvgBorrowApy),
			format.ToPercentage(m.Utilization),
			format.ToPercentage(m.BackstopApr),
			m.Risk(),
			status,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, Gray+"\nSorted by %s"+Reset+"\n", key)
}

// printPool prints the dashboard of a fully resolved snapshot.
func printPool(w io.Writer, snap source.Snapshot) error {
	d, ok := estimate.FromSnapshot(snap)
	if !ok {
		return fmt.Errorf("pool %s: data incomplete, waiting for %v", snap.PoolID.Compact(), snap.Pending())
	}

	header(w, snap.Meta.Name)
	printField := func(key string, value any) {
		fmt.Fprintf(w, "  %s%-16s%s %v\n", Gray, key+":", Reset, value)
	}
	util := format.Placeholder
	if d.Utilization != nil {
		util = format.ToPercentage(*d.Utilization)
	}
	printField("Pool", snap.PoolID)
	printField("Version", snap.Meta.Version)
	printField("Status", snap.Meta.Status)
	printField("Total Supplied", format.ToUSD(d.Summary.TotalSupply))
	printField("Total Borrowed", format.ToUSD(d.Summary.TotalBorrowed))
	printField("Utilization", util)
	printField("Avg Supply APY", format.ToPercentage(d.Summary.AvgSupplyApy))
	printField("Avg Borrow APY", format.ToPercentage(d.Summary.AvgBorrowApy))
	printField("Backstop", format.ToUSD(d.Backstop.TotalSpotValue))
	printField("Backstop Q4W", format.ToPercentage(d.Backstop.Q4WPercent))
	printField("Backstop APR", format.ToPercentage(d.BackstopAPR))

	header(w, "RESERVES")
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tSUPPLIED\tBORROWED\tSUPPLY APY\tBORROW APY\tCOLLATERAL\tLIABILITY")
	for _, r := range snap.Pool.Reserves {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Symbol,
			format.ToBalance(format.ToFloat(r.Supplied, r.Decimals)),
			format.ToBalance(format.ToFloat(r.Borrowed, r.Decimals)),
			format.ToPercentage(r.SupplyApy),
			format.ToPercentage(r.BorrowApy),
			format.ToPercentage(r.CollateralFactor),
			format.ToPercentage(r.LiabilityFactor),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, Gray+"\nFetched at %s"+Reset+"\n", snap.FetchedAt.Format("2006-01-02 15:04:05"))
	return nil
}
