package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"lifeQuestClient/internal/progress"
	"lifeQuestClient/internal/types/profile"
	"lifeQuestClient/services"
)

func newProfileCmd(a *app) *cobra.Command {
	var withStats bool
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile, level and streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services.NewProfileService(a.client)
			p, err := svc.GetProfile(cmd.Context())
			if err != nil {
				a.reportLoadError(err)
				return &reportedError{err: err}
			}
			if !withStats {
				return emit(a.out, a.format, p, func(w io.Writer) { renderProfile(w, p) })
			}

			st, err := svc.GetStats(cmd.Context())
			if err != nil {
				a.reportLoadError(err)
				return &reportedError{err: err}
			}
			out := struct {
				Profile *profile.Profile `json:"profile"`
				Stats   *profile.Stats   `json:"stats"`
			}{p, st}
			return emit(a.out, a.format, out, func(w io.Writer) {
				renderProfile(w, p)
				fmt.Fprintln(w)
				renderStats(w, st)
			})
		},
	}
	cmd.Flags().BoolVarP(&withStats, "stats", "s", false, "include completion statistics")
	cmd.AddCommand(newProfileSetCmd(a))
	return cmd
}

func newProfileSetCmd(a *app) *cobra.Command {
	var firstName, lastName, username string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update your name or username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req profile.Update
			if cmd.Flags().Changed("first-name") {
				req.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				req.LastName = &lastName
			}
			if cmd.Flags().Changed("username") {
				req.Username = &username
			}

			p, err := services.NewProfileService(a.client).UpdateProfile(cmd.Context(), req)
			if err != nil {
				return err
			}
			return emit(a.out, a.format, p, func(w io.Writer) {
				fmt.Fprintln(w, goodStyle.Render("Profile updated"))
				renderProfile(w, p)
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&username, "username", "", "username, a leading @ is dropped")
	return cmd
}

func renderProfile(w io.Writer, p *profile.Profile) {
	fmt.Fprintln(w, heading(iconQuest, p.DisplayName()))
	if p.Username != "" {
		fmt.Fprintln(w, mutedStyle.Render("@"+p.Username))
	}
	fmt.Fprintln(w, levelLine(p.TotalXP))
	fmt.Fprintf(w, "%s %d XP to level %d\n", iconBolt, p.XPToNextLevel(), p.Level()+1)
	fmt.Fprintf(w, "streak %s  longest %d\n", goldStyle.Render(fmt.Sprintf("%d days", p.Streak.Current)), p.Streak.Longest)
}

func renderStats(w io.Writer, st *profile.Stats) {
	fmt.Fprintln(w, heading("", "Statistics"))
	fmt.Fprintf(w, "completed  daily %d  weekly %d  monthly %d  total %d\n",
		st.TasksCompleted.Daily, st.TasksCompleted.Weekly, st.TasksCompleted.Monthly, st.TasksCompleted.Total)
	fmt.Fprintf(w, "achievements %d/%d\n", st.Achievements.Unlocked, st.Achievements.Total)

	names := make([]string, 0, len(st.Categories))
	for name := range st.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := st.Categories[name]
		fmt.Fprintf(w, "%-14s %s %d/%d\n", name,
			bar(progress.CompletionRatio(c.Completed, c.Total), 12), c.Completed, c.Total)
	}
}
