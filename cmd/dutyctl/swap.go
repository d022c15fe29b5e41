package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/swap"
)

func swapCmd(app *App) *cobra.Command {
	var (
		reqFile, resultFile string
		source              swap.Slot
		limit               int
		noExchange          bool
	)

	cmd := &cobra.Command{
		Use:     "swap",
		Short:   "为某次值班推荐接替人或互换对象",
		Example: `  dutyctl swap -f request.yaml -r result.json --resident 甲 --date 2025-04-01 --facility 大学病院`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				req    model.Request
				result model.Result
			)
			if err := readFile(reqFile, cmd.InOrStdin(), &req); err != nil {
				return err
			}
			if err := readFile(resultFile, cmd.InOrStdin(), &result); err != nil {
				return err
			}

			opts := swap.DefaultRecommendOptions()
			opts.MaxRecommendations = limit
			opts.AllowExchange = !noExchange

			recommender := swap.NewRecommender(swap.NewEvaluator(app.detector(), app.holidays))
			recs, err := recommender.Recommend(&req, &result, source, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "没有可行的换班方案")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "排名\t方式\t住院医\t互换值班\t得分\t说明")
			for _, r := range recs {
				slot := "-"
				if r.TargetSlot != nil {
					slot = r.TargetSlot.Date + " " + r.TargetSlot.Facility
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.0f\t%s\n", r.Rank, r.Type, r.Target, slot, r.Score, r.Reason)
			}
			return tw.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVarP(&reqFile, "file", "f", "", "排班请求文件")
	f.StringVarP(&resultFile, "result", "r", "", "排班结果文件 (JSON)")
	f.StringVar(&source.Resident, "resident", "", "需要换班的住院医")
	f.StringVar(&source.Date, "date", "", "值班日期 YYYY-MM-DD")
	f.StringVar(&source.Facility, "facility", "", "值班医院")
	f.IntVar(&limit, "limit", 5, "最多推荐数量")
	f.BoolVar(&noExchange, "no-exchange", false, "只推荐接替，不推荐互换")
	for _, name := range []string{"file", "result", "resident", "date", "facility"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
