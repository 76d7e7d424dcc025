package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/progress"
	"lifeQuestClient/internal/types/task"
	"lifeQuestClient/services"
)

func newMyTasksCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:     "my-tasks",
		Aliases: []string{"mine"},
		Short:   "List the tasks you created",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := progress.ParseFilter(filter)
			if err != nil {
				return err
			}
			tasks := services.NewUserTasks(a.client, a.logger)
			defer tasks.Close()
			return loadList(cmd.Context(), a, tasks.UserTaskSynchronizer, f, emptyMessage(f), func(w io.Writer, items []task.UserTask) {
				renderUserTasks(w, f, items)
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", string(progress.FilterAll), "all, active or completed")
	cmd.AddCommand(
		newMyTasksAddCmd(a),
		newMyTasksDoneCmd(a),
		newMyTasksRemoveCmd(a),
		newMyTasksEditCmd(a),
	)
	return cmd
}

func emptyMessage(f progress.Filter) string {
	switch f {
	case progress.FilterActive:
		return "Nothing left to do."
	case progress.FilterCompleted:
		return "No completed tasks yet."
	default:
		return "No tasks yet. Add one with `lifequest my-tasks add`."
	}
}

// openUserTasks loads the full list so mutations see the current server state.
func openUserTasks(ctx context.Context, a *app) (*services.UserTasks, error) {
	tasks := services.NewUserTasks(a.client, a.logger)
	watch(a, tasks.UserTaskSynchronizer)
	if err := tasks.Load(ctx, progress.FilterAll); err != nil {
		tasks.Close()
		a.reportLoadError(err)
		return nil, &reportedError{err: err}
	}
	return tasks, nil
}

func newMyTasksAddCmd(a *app) *cobra.Command {
	var (
		draft    = task.NewDraft("")
		category string
		priority string
		repeat   string
		deadline string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.Title = args[0]
			draft.Category = task.Category(category)
			draft.Priority = task.Priority(priority)
			draft.Repeat = task.Repeat(repeat)
			if deadline != "" {
				draft.Deadline = &deadline
			}
			if err := draft.Normalize().Validate(); err != nil {
				return err
			}

			tasks, err := openUserTasks(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer tasks.Close()

			created, err := tasks.Create(cmd.Context(), draft)
			if err != nil {
				return toasted(a, tasks.UserTaskSynchronizer, err)
			}
			if a.format != outputText {
				return emit(a.out, a.format, created, nil)
			}
			fmt.Fprintf(a.out, "%s %s %s\n", goodStyle.Render("Created"), keyStyle.Render(created.Title), mutedStyle.Render(created.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&draft.Description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&category, "category", "c", string(draft.Category), "finance, relationships, mindfulness, entertainment or meaning")
	cmd.Flags().StringVar(&priority, "priority", string(draft.Priority), "low, medium or high")
	cmd.Flags().StringVar(&repeat, "repeat", string(draft.Repeat), "none, daily, weekly or monthly")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline as YYYY-MM-DD")
	cmd.Flags().IntVar(&draft.XP, "xp", draft.XP, "XP granted on completion")
	return cmd
}

func newMyTasksDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Complete one of your tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := openUserTasks(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer tasks.Close()

			if err := tasks.Complete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, collection.ErrAlreadyCompleted) {
					fmt.Fprintln(a.out, warnStyle.Render(iconWarn+" Task "+args[0]+" is already completed."))
					return nil
				}
				return toasted(a, tasks.UserTaskSynchronizer, err)
			}
			t, _ := tasks.Find(args[0])
			if a.format != outputText {
				return emit(a.out, a.format, t, nil)
			}
			fmt.Fprintf(a.out, "%s %s\n", iconDone, goodStyle.Render(t.Title))
			return nil
		},
	}
}

func newMyTasksRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete one of your tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := openUserTasks(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer tasks.Close()

			if err := tasks.Delete(cmd.Context(), args[0]); err != nil {
				return toasted(a, tasks.UserTaskSynchronizer, err)
			}
			fmt.Fprintln(a.out, mutedStyle.Render("Deleted "+args[0]))
			return nil
		},
	}
}

func newMyTasksEditCmd(a *app) *cobra.Command {
	var title, description, category, priority, repeat, deadline string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of one of your tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch task.Patch
			changed := cmd.Flags().Changed
			if changed("title") {
				patch.Title = &title
			}
			if changed("description") {
				patch.Description = &description
			}
			if changed("category") {
				c := task.Category(category)
				patch.Category = &c
			}
			if changed("priority") {
				p := task.Priority(priority)
				patch.Priority = &p
			}
			if changed("repeat") {
				r := task.Repeat(repeat)
				patch.Repeat = &r
			}
			if changed("deadline") {
				patch.Deadline = &deadline
			}
			if patch.Empty() {
				fmt.Fprintln(a.out, mutedStyle.Render("Nothing to change."))
				return nil
			}
			if err := patch.Validate(); err != nil {
				return err
			}

			tasks, err := openUserTasks(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer tasks.Close()

			if err := tasks.Update(cmd.Context(), args[0], patch); err != nil {
				return toasted(a, tasks.UserTaskSynchronizer, err)
			}
			t, _ := tasks.Find(args[0])
			if a.format != outputText {
				return emit(a.out, a.format, t, nil)
			}
			fmt.Fprintf(a.out, "%s %s\n", goodStyle.Render("Updated"), keyStyle.Render(t.Title))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	cmd.Flags().StringVar(&repeat, "repeat", "", "new repeat")
	cmd.Flags().StringVar(&deadline, "deadline", "", "new deadline as YYYY-MM-DD, empty to clear")
	return cmd
}

func renderUserTasks(w io.Writer, f progress.Filter, items []task.UserTask) {
	fmt.Fprintln(w, heading(iconQuest, fmt.Sprintf("My tasks (%s)", f)))
	for _, t := range items {
		line := fmt.Sprintf("%s %s %s %s",
			checkbox(t.Completed),
			keyStyle.Render(t.Title),
			goldStyle.Render(fmt.Sprintf("+%d XP", t.XP)),
			mutedStyle.Render(fmt.Sprintf("[%s/%s] %s", t.Category, t.Priority, t.ID)))
		if t.Repeat != task.RepeatNone {
			line += " " + mutedStyle.Render("repeats "+string(t.Repeat))
		}
		if d, ok := t.DeadlineTime(); ok {
			line += " " + warnStyle.Render("due "+d.Format(task.DateLayout))
		}
		fmt.Fprintln(w, line)
	}
}
