package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"habit-tracker/app"
	"habit-tracker/config"
	"habit-tracker/model"
)

const allCompleteMessage = "太棒啦！今日任务全部达成！"

type options struct {
	configPath string
	dataPath   string
	driver     string
	verbose    bool
}

// newRootCmd 构建命令树；业务命令共享同一个已加载的 App
func newRootCmd() *cobra.Command {
	var (
		opts options
		a    *app.App
	)

	root := &cobra.Command{
		Use:           "habit",
		Short:         "坚持每一天 - daily habit tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = app.Open(cmd.Context(), opts.configPath, func(c *config.Config) {
				if opts.driver != "" {
					c.Storage.Driver = opts.driver
				}
				if opts.dataPath != "" {
					if c.Storage.Driver == config.DriverSQLite {
						c.Storage.SQLitePath = opts.dataPath
					} else {
						c.Storage.Path = opts.dataPath
					}
				}
				// 命令行默认只输出警告以上的日志
				c.Log.Level = "warn"
				if opts.verbose {
					c.Log.Level = "debug"
					c.Log.Development = true
				}
			})
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a != nil {
				return a.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to config file")
	root.PersistentFlags().StringVar(&opts.dataPath, "data", "", "data file (overrides storage path)")
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "storage driver: json or sqlite")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	var showID bool
	todayCmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's pending and completed habits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), renderToday(a.Store.Today(), showID))
			return nil
		},
	}
	todayCmd.Flags().BoolVar(&showID, "ids", false, "show habit ids")
	root.RunE = todayCmd.RunE
	root.Flags().BoolVar(&showID, "ids", false, "show habit ids")

	var target string
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a new habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("习惯名称不能为空")
			}
			if a.Store.HasHabit(name) {
				return fmt.Errorf("习惯 %q 已存在", name)
			}
			h, err := a.Store.AddHabit(cmd.Context(), name, strings.TrimSpace(target))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "添加成功 %s %s\n", dot(h.Color), h.Name)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&target, "target", "t", "", "free-text target, e.g. 8杯")

	deleteCmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a habit and remove it from history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.DeleteHabit(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已删除 %s\n", args[0])
			return nil
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a habit by id (see today --ids)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[1])
			if name == "" {
				return errors.New("习惯名称不能为空")
			}
			for _, h := range a.Store.Habits() {
				if h.Name == name && h.ID != args[0] {
					return fmt.Errorf("习惯 %q 已存在", name)
				}
			}
			h, err := a.Store.RenameHabit(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已重命名为 %s\n", h.Name)
			return nil
		},
	}

	var doneDate string
	doneCmd := &cobra.Command{
		Use:   "done NAME",
		Short: "Mark a habit as done (today by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !a.Store.HasHabit(name) {
				return fmt.Errorf("习惯 %q 不存在", name)
			}
			date, err := parseDateFlag(doneDate, a.Store.Now())
			if err != nil {
				return err
			}
			res, err := a.Store.MarkDoneOn(cmd.Context(), name, date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Changed {
				fmt.Fprintf(out, "打卡成功 %s %s\n", name, model.DateKey(date))
			} else {
				fmt.Fprintf(out, "%s 在 %s 已经打过卡\n", name, model.DateKey(date))
			}
			if res.AllComplete {
				fmt.Fprintln(out, cheerStyle.Render(allCompleteMessage))
			}
			return nil
		},
	}
	doneCmd.Flags().StringVarP(&doneDate, "date", "d", "", "date YYYY-MM-DD (default today)")

	var undoDate string
	undoCmd := &cobra.Command{
		Use:   "undo NAME",
		Short: "Unmark a habit (today by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateFlag(undoDate, a.Store.Now())
			if err != nil {
				return err
			}
			changed, err := a.Store.UnmarkDoneOn(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(cmd.OutOrStdout(), "已取消 %s %s\n", args[0], model.DateKey(date))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s 在 %s 没有打卡记录\n", args[0], model.DateKey(date))
			}
			return nil
		},
	}
	undoCmd.Flags().StringVarP(&undoDate, "date", "d", "", "date YYYY-MM-DD (default today)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cumulative completion counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), renderStats(a.Store.ComputeStats()))
			return nil
		},
	}

	var month string
	calendarCmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show a month calendar with completion dots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.Store.Now()
			if month != "" {
				parsed, err := time.ParseInLocation("2006-01", month, time.Local)
				if err != nil {
					return fmt.Errorf("无效的月份 %q: %w", month, err)
				}
				m = parsed
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCalendar(a.Store.CalendarDots(m.Year(), m.Month())))
			return nil
		},
	}
	calendarCmd.Flags().StringVarP(&month, "month", "m", "", "month YYYY-MM (default current)")

	root.AddCommand(todayCmd, addCmd, deleteCmd, renameCmd, doneCmd, undoCmd, statsCmd, calendarCmd)
	return root
}

func parseDateFlag(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	date, err := model.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期 %q: %w", raw, err)
	}
	return date, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
