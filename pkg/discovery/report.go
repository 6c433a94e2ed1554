package discovery

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteTopN writes the n best candidates (all when n <= 0) as a table
func WriteTopN(w io.Writer, candidates []PairCandidate, n int) error {
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 72))
	fmt.Fprintf(w, "配对筛选结果: %d 个候选, 显示前 %d\n", len(candidates), n)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 72))
	if n == 0 {
		fmt.Fprintf(w, "no cointegrated pairs found\n")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "#\tPair\tCorr\tP-Value\tT-Stat\tCrit 5%%\tHedge\t\n")
	for i, c := range candidates[:n] {
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%.4f\t%.3f\t%.3f\t%.4f\t\n",
			i+1, c.Name(), c.Correlation, c.PValue, c.TStat, c.CriticalValues.FivePct, c.HedgeRatio)
	}
	return tw.Flush()
}
