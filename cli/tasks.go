package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/progress"
	"lifeQuestClient/internal/types/task"
	"lifeQuestClient/services"
)

type dashboardFlags struct {
	period string
	system bool
}

func (f *dashboardFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.period, "period", "p", string(task.PeriodDaily), "daily, weekly or monthly")
	cmd.Flags().BoolVar(&f.system, "system", false, "use the /system-tasks endpoints")
}

func (f *dashboardFlags) open(a *app) (*services.TaskSynchronizer, *services.TaskService, task.Period, error) {
	period := task.Period(f.period)
	if !period.Valid() {
		return nil, nil, "", fmt.Errorf("unknown period %q (want daily, weekly or monthly)", f.period)
	}
	endpoints := services.DashboardEndpoints
	if f.system {
		endpoints = services.SystemTaskEndpoints
	}
	dash, svc := services.NewDashboard(a.client, endpoints, a.logger)
	return dash, svc, period, nil
}

func newTasksCmd(a *app) *cobra.Command {
	var flags dashboardFlags
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Show recommended tasks for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, svc, period, err := flags.open(a)
			if err != nil {
				return err
			}
			defer dash.Close()
			return loadList(cmd.Context(), a, dash, period, "No tasks for this period.", func(w io.Writer, items []task.Task) {
				renderDashboard(w, period, items, svc)
			})
		},
	}
	flags.bind(cmd)
	cmd.AddCommand(newTasksDoneCmd(a))
	return cmd
}

func newTasksDoneCmd(a *app) *cobra.Command {
	var flags dashboardFlags
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a recommended task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, svc, period, err := flags.open(a)
			if err != nil {
				return err
			}
			defer dash.Close()
			watch(a, dash)

			ctx := cmd.Context()
			if err := dash.Load(ctx, period); err != nil {
				a.reportLoadError(err)
				return &reportedError{err: err}
			}
			if err := dash.Complete(ctx, args[0]); err != nil {
				if errors.Is(err, collection.ErrAlreadyCompleted) {
					fmt.Fprintln(a.out, warnStyle.Render(iconWarn+" Task "+args[0]+" is already completed."))
					return nil
				}
				return toasted(a, dash, err)
			}

			done, ok := dash.Find(args[0])
			if a.format != outputText {
				return emit(a.out, a.format, done, nil)
			}
			if ok {
				fmt.Fprintf(a.out, "%s %s\n", iconDone, goodStyle.Render(done.Title))
			}
			if total, ok := svc.TotalXP(); ok {
				fmt.Fprintln(a.out, levelLine(total))
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func renderDashboard(w io.Writer, period task.Period, items []task.Task, svc *services.TaskService) {
	done := progress.CountCompleted(items)
	fmt.Fprintln(w, heading(iconQuest, fmt.Sprintf("%s tasks", period)))
	fmt.Fprintf(w, "%s %d/%d (%d%%)  %s\n",
		bar(progress.CompletionRatio(done, len(items)), 20),
		done, len(items), progress.CompletionPercent(done, len(items)),
		mutedStyle.Render(fmt.Sprintf("%d XP available", progress.TotalAvailableReward(items))))
	if total, ok := svc.TotalXP(); ok {
		fmt.Fprintln(w, levelLine(total))
	}
	fmt.Fprintln(w)
	for _, t := range items {
		fmt.Fprintf(w, "%s %s %s %s\n",
			checkbox(t.Completed),
			keyStyle.Render(t.Title),
			goldStyle.Render(fmt.Sprintf("+%d XP", t.XP)),
			mutedStyle.Render(fmt.Sprintf("[%s] %s", t.Category, t.ID)))
		if t.Description != "" {
			fmt.Fprintln(w, "   "+mutedStyle.Render(t.Description))
		}
	}
}
