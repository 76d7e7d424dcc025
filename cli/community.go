package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"lifeQuestClient/internal/progress"
	"lifeQuestClient/internal/types/achievement"
	"lifeQuestClient/internal/types/challenge"
	"lifeQuestClient/internal/types/leaderboard"
	"lifeQuestClient/services"
)

func newAchievementsCmd(a *app) *cobra.Command {
	var withBoard bool
	cmd := &cobra.Command{
		Use:   "achievements",
		Short: "Show achievements and period progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services.NewAchievementService(a.client)
			if withBoard {
				overview, err := svc.Overview(cmd.Context())
				if err != nil {
					a.reportLoadError(err)
					return &reportedError{err: err}
				}
				return emit(a.out, a.format, overview, func(w io.Writer) {
					renderAchievements(w, overview.Achievements, overview.Stats)
					fmt.Fprintln(w)
					renderLeaderboard(w, overview.Board.Entries, overview.Board.CurrentUser)
				})
			}

			list := services.NewAchievements(svc, a.logger)
			defer list.Close()
			return loadList(cmd.Context(), a, list, struct{}{}, "No achievements yet.", func(w io.Writer, items []achievement.Achievement) {
				renderAchievements(w, items, svc.Stats())
			})
		},
	}
	cmd.Flags().BoolVar(&withBoard, "leaderboard", false, "also show the leaderboard, fetched in parallel")
	return cmd
}

func newLeaderboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services.NewAchievementService(a.client)
			board := services.NewLeaderboard(svc, a.logger)
			defer board.Close()
			return loadList(cmd.Context(), a, board, struct{}{}, "Nobody is ranked yet.", func(w io.Writer, entries []leaderboard.Entry) {
				renderLeaderboard(w, entries, svc.CurrentUser())
			})
		},
	}
}

func newChallengesCmd(a *app) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "challenges",
		Short: "Show community challenges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := challenge.Type(typ)
			if !t.Valid() {
				return fmt.Errorf("unknown challenge type %q (want weekly or monthly)", typ)
			}
			list := services.NewChallenges(a.client, a.logger)
			defer list.Close()
			return loadList(cmd.Context(), a, list, t, "No challenges running.", func(w io.Writer, items []challenge.Challenge) {
				renderChallenges(w, t, items)
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(challenge.TypeWeekly), "weekly or monthly")
	return cmd
}

func renderAchievements(w io.Writer, items []achievement.Achievement, stats achievement.Stats) {
	fmt.Fprintln(w, heading(iconTrophy, fmt.Sprintf("Achievements %d/%d", stats.AchievementsUnlocked, stats.TotalAchievements)))
	fmt.Fprintln(w, levelLine(stats.TotalXP))
	for _, p := range []struct {
		name string
		pp   achievement.PeriodProgress
	}{
		{"daily", stats.ProgressStats.Daily},
		{"weekly", stats.ProgressStats.Weekly},
		{"monthly", stats.ProgressStats.Monthly},
	} {
		fmt.Fprintf(w, "%-8s %s %d/%d %s\n", p.name,
			bar(progress.CompletionRatio(p.pp.Completed, p.pp.Total), 12),
			p.pp.Completed, p.pp.Total, mutedStyle.Render(p.pp.Trend))
	}
	fmt.Fprintln(w)

	sorted := append([]achievement.Achievement(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Unlocked() != sorted[j].Unlocked() {
			return sorted[i].Unlocked()
		}
		return sorted[i].Rarity.Rank() > sorted[j].Rarity.Rank()
	})
	for _, ach := range sorted {
		icon := iconLock
		if ach.Unlocked() {
			icon = iconTrophy
		}
		style, ok := rarityStyles[ach.Rarity]
		if !ok {
			style = mutedStyle
		}
		ratio := 0.0
		if ach.MaxProgress() > 0 {
			ratio = float64(ach.Progress) / float64(ach.MaxProgress())
		}
		fmt.Fprintf(w, "%s %s %s %s %d/%d %s\n",
			icon,
			keyStyle.Render(ach.Title),
			style.Render(string(ach.Rarity)),
			bar(ratio, 10),
			ach.Progress, ach.MaxProgress(),
			goldStyle.Render(fmt.Sprintf("+%d XP", ach.XPReward)))
	}
}

func renderLeaderboard(w io.Writer, entries []leaderboard.Entry, me leaderboard.CurrentUser) {
	fmt.Fprintln(w, heading(iconTrophy, "Leaderboard"))
	if me.Position == 0 && me.Name != "" {
		me.Position = progress.PositionOf(entries, func(e leaderboard.Entry) string { return e.Name }, me.Name)
	}
	for _, e := range entries {
		name := e.Name
		if me.Position == e.Position {
			name = goldStyle.Render(name + " (you)")
		}
		fmt.Fprintf(w, "%3d. %-24s %s %s %s\n",
			e.Position, name,
			keyStyle.Render(fmt.Sprintf("Lv %d", e.Level())),
			fmt.Sprintf("%d XP", e.XP),
			mutedStyle.Render(fmt.Sprintf("%d achievements", e.AchievementsCount)))
	}
	if me.Position > len(entries) {
		fmt.Fprintln(w, mutedStyle.Render("  ..."))
		fmt.Fprintf(w, "%3d. %s %s\n", me.Position, goldStyle.Render(me.Name+" (you)"), fmt.Sprintf("%d XP", me.XP))
	}
}

func renderChallenges(w io.Writer, t challenge.Type, items []challenge.Challenge) {
	fmt.Fprintln(w, heading(iconQuest, fmt.Sprintf("%s challenges", t)))
	for _, c := range items {
		fmt.Fprintln(w, panelStyle.Render(fmt.Sprintf("%s %s\n%s\n%s  %s\n%d participants  %d likes  %d comments",
			keyStyle.Render(c.Title),
			goldStyle.Render(fmt.Sprintf("+%d XP", c.XP)),
			c.Description,
			mutedStyle.Render(c.Duration),
			mutedStyle.Render("reward: "+c.Reward),
			c.Participants, c.Likes, c.Comments)))
	}
}
