package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/stats"
)

var weekdayNames = [7]string{"月", "火", "水", "木", "金", "土", "日"}

func solveCmd(app *App) *cobra.Command {
	var (
		file   string
		output string
		table  bool
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "生成月度值班表",
		Long:  "读取排班请求（JSON/YAML/TOML），输出排班结果JSON。--table 时额外打印日期×医院表格和每人完成情况。",
		Example: `  dutyctl solve -f request.yaml
  dutyctl solve -f request.json -o result.json --table --time-limit 5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req model.Request
			if err := readFile(file, cmd.InOrStdin(), &req); err != nil {
				return err
			}

			result, err := app.engine.Solve(cmd.Context(), &req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if table && result.IsOK() {
				printScheduleTable(out, app.holidays, result)
				printResidentSummary(out, app.holidays, result)
			}
			if table || output != "" || !result.IsOK() {
				printStatusLine(cmd.ErrOrStderr(), result)
			}
			if !table || output != "" {
				if err := writeJSON(output, out, result); err != nil {
					return err
				}
			}
			if !result.IsOK() {
				return statusError(string(result.Status))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "排班请求文件，- 表示标准输入")
	cmd.Flags().StringVarP(&output, "output", "o", "", "结果输出文件（默认标准输出）")
	cmd.Flags().BoolVar(&table, "table", false, "以表格形式打印排班结果")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printStatusLine(w io.Writer, result *model.Result) {
	fmt.Fprintf(w, "状态: %s", result.Status)
	if result.Message != "" {
		fmt.Fprintf(w, " (%s)", result.Message)
	}
	if result.Status != model.StatusError {
		fmt.Fprintf(w, "  分配 %d / 需求 %d", result.TotalAssigned, result.TotalRequired)
	}
	fmt.Fprintln(w)
	if d := result.Diagnostics; d != nil {
		fmt.Fprintf(w, "总容量 %d，总需求 %d\n", d.TotalCapacity, d.TotalRequired)
	}
}

// printScheduleTable 日期 × 医院表格，周末和节假日以 * 标记
func printScheduleTable(w io.Writer, holidays calendar.HolidayCalendar, result *model.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "日期\t星期\t%s\n", strings.Join(result.Facilities, "\t"))

	for _, date := range result.Dates {
		t, err := calendar.ParseDate(date)
		if err != nil {
			continue
		}
		mark := ""
		if calendar.IsRedDay(holidays, t) {
			mark = "*"
		}
		cells := make([]string, len(result.Facilities))
		for i, f := range result.Facilities {
			cells[i] = strings.Join(result.AssignedOn(date, f), "、")
			if cells[i] == "" {
				cells[i] = "-"
			}
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\n", date, mark, weekdayNames[calendar.WeekdayIndex(t)], strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

func printResidentSummary(w io.Writer, holidays calendar.HolidayCalendar, result *model.Result) {
	fairness := stats.NewFairnessAnalyzer(holidays).Analyze(result)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "住院医\t分配\t需求\t休日\t医院")
	for _, rs := range fairness.ResidentStats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", rs.Name, rs.Assigned, rs.Required, rs.RedDays, formatFacilities(rs.Facilities))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n完成 %d 人，部分 %d 人，未分配 %d 人，公平性得分 %.1f\n\n",
		fairness.Fulfilled, fairness.Partial, fairness.Unassigned, fairness.OverallFairnessScore)
}
