package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/stats"
	"github.com/paiban/dutyplan/pkg/validator"
)

func aggregateCmd(app *App) *cobra.Command {
	var file, output string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "汇总模式排班（不区分日期）",
		Long:  "按医院当月总名额分配住院医，每人次数相等，名额总数必须等于 人数×每人次数。",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req model.AggregateRequest
			if err := readFile(file, cmd.InOrStdin(), &req); err != nil {
				return err
			}
			result, err := app.engine.SolveAggregate(cmd.Context(), &req)
			if err != nil {
				return err
			}
			if err := writeJSON(output, cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.Status != model.StatusOK {
				fmt.Fprintf(cmd.ErrOrStderr(), "状态: %s (%s)\n", result.Status, result.Message)
				return statusError(string(result.Status))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "汇总排班请求文件，- 表示标准输入")
	cmd.Flags().StringVarP(&output, "output", "o", "", "结果输出文件（默认标准输出）")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func validateCmd(app *App) *cobra.Command {
	var reqFile, resultFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "检查排班结果（含人工修改）是否违反约束",
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

			conflicts, err := app.detector().DetectAll(&req, &result)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(conflicts) == 0 {
				fmt.Fprintln(out, "未发现冲突")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "类型\t级别\t日期\t医院\t住院医\t说明")
			for _, c := range conflicts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					c.Type, c.Severity, dash(c.Date), dash(c.Facility), dash(c.Resident), c.Message)
			}
			_ = tw.Flush()
			fmt.Fprintf(out, "\n共 %d 个冲突\n", len(conflicts))

			if validator.HasErrors(conflicts) {
				return &exitError{code: 2, msg: "排班结果存在冲突"}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&reqFile, "file", "f", "", "排班请求文件")
	cmd.Flags().StringVarP(&resultFile, "result", "r", "", "排班结果文件 (JSON)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("result")
	return cmd
}

func statsCmd(app *App) *cobra.Command {
	var reqFile, resultFile string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "统计排班结果的公平性和覆盖率",
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

			coverageAnalyzer := stats.NewCoverageAnalyzer(app.holidays)
			coverage, err := coverageAnalyzer.AnalyzeRequest(&req, &result)
			if err != nil {
				return err
			}
			fairness := stats.NewFairnessAnalyzer(app.holidays).Analyze(&result)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON("", out, map[string]interface{}{
					"fairness": fairness,
					"coverage": coverage,
				})
			}
			printResidentSummary(out, app.holidays, &result)
			fmt.Fprint(out, coverageAnalyzer.GenerateCoverageReport(coverage))
			return nil
		},
	}

	cmd.Flags().StringVarP(&reqFile, "file", "f", "", "排班请求文件")
	cmd.Flags().StringVarP(&resultFile, "result", "r", "", "排班结果文件 (JSON)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以JSON输出")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("result")
	return cmd
}

func calendarCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "calendar <YYYY-MM>",
		Short:   "打印某月日期、星期序号和休日标记",
		Args:    cobra.ExactArgs(1),
		Example: "  dutyctl calendar 2025-05",
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := calendar.ParseMonth(args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "日期\t序号\t星期\t休日")
			for _, day := range month.Days() {
				red := ""
				if calendar.IsRedDay(app.holidays, day.Date) {
					red = "休"
					if name, ok := app.holidays.HolidayName(day.Date); ok {
						red = name
					}
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", day.ISO, day.Weekday, weekdayNames[day.Weekday], red)
			}
			return tw.Flush()
		},
	}
}

// formatFacilities 以 "医院×次数" 形式输出，按医院名排序
func formatFacilities(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s×%d", name, counts[name]))
	}
	return strings.Join(parts, " ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
