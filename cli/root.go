// Package cli is the terminal front end: one command per screen of the app,
// plus serve for the local development backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"lifeQuestClient/config"
	"lifeQuestClient/internal/apiclient"
	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/identity"
	"lifeQuestClient/services"
)

const Version = "0.3.0"

// app is the per-invocation state shared by every command.
type app struct {
	v        *viper.Viper
	cfg      config.Config
	logger   *zap.Logger
	closeLog func()
	format   outputFormat
	out      io.Writer
	errOut   io.Writer

	client     *apiclient.Client
	dispatcher *services.NotificationDispatcher
}

func (a *app) setup(cmd *cobra.Command) error {
	output, _ := cmd.Flags().GetString("output")
	format, err := parseOutputFormat(output)
	if err != nil {
		return err
	}
	a.format = format
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closeLog, err := config.NewLogger(cfg.LogLevel, cfg.LogFile, a.errOut)
	if err != nil {
		return err
	}
	a.logger, a.closeLog = logger, closeLog
	return nil
}

// connect builds the API client and the toast dispatcher. serve does not need them.
func (a *app) connect() error {
	client, err := apiclient.New(a.cfg.APIURL, a.identitySource(),
		apiclient.WithTimeout(a.cfg.RequestTimeout),
		apiclient.WithRateLimit(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst),
		apiclient.WithLogger(a.logger.Named("api")),
	)
	if err != nil {
		return err
	}
	a.client = client

	sinks := []services.Sink{services.NewLogSink(a.logger.Named("notify"))}
	if a.format == outputText {
		sinks = append(sinks, services.NewWriterSink(a.errOut, formatNotification))
	}
	a.dispatcher = services.NewNotificationDispatcher(a.logger, sinks...)
	return nil
}

// identitySource prefers a fixed development user id over Telegram init data.
func (a *app) identitySource() identity.Source {
	if a.cfg.DevUserID != 0 {
		return identity.Static{User: identity.User{ID: a.cfg.DevUserID, FirstName: "Dev", Username: fmt.Sprintf("dev%d", a.cfg.DevUserID)}}
	}
	return identity.NewInitDataSource(config.InitDataFunc(a.v))
}

// watch forwards completion events and mutation failures to the dispatcher.
func watch[T, F, D any](a *app, s *collection.Synchronizer[T, F, D]) {
	s.OnComplete(a.dispatcher.NotifyCompletion)
	var lastErr error
	s.Subscribe(func(snap collection.Snapshot[T, F]) {
		if snap.MutationErr != nil && snap.MutationErr != lastErr {
			a.dispatcher.NotifyError(snap.MutationErr)
		}
		lastErr = snap.MutationErr
	})
}

// toasted marks err as reported when watch already showed it as a toast.
func toasted[T, F, D any](a *app, s *collection.Synchronizer[T, F, D], err error) error {
	if a.format == outputText && err != nil && s.Snapshot().MutationErr == err {
		return &reportedError{err: err}
	}
	return err
}

func (a *app) shutdown() {
	if a.dispatcher != nil {
		a.dispatcher.Stop()
	}
	if a.closeLog != nil {
		a.closeLog()
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lifequest",
		Short:         "LifeQuest: gamified self-improvement from the terminal",
		Long:          "LifeQuest talks to the LifeQuest backend as your Telegram user: recommended tasks, your own tasks, achievements, the leaderboard and community challenges.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			return a.connect()
		},
	}
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringP("output", "o", string(outputText), "output format: text, json or yaml")
	flags.String("api-url", "", "backend base URL (env API_URL)")
	flags.Int64("as", 0, "act as this Telegram user id without init data (env TELEGRAM_USER_ID)")
	flags.String("log-level", "", "log level (env LOG_LEVEL)")
	_ = a.v.BindPFlag("API_URL", flags.Lookup("api-url"))
	_ = a.v.BindPFlag("TELEGRAM_USER_ID", flags.Lookup("as"))
	_ = a.v.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newTasksCmd(a),
		newMyTasksCmd(a),
		newAchievementsCmd(a),
		newLeaderboardCmd(a),
		newChallengesCmd(a),
		newProfileCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

// run executes one command line. The dispatcher is drained before it returns
// so every queued toast is printed.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{v: config.New()}
	defer a.shutdown()

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

func Execute() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, badStyle.Render(iconError+" "+describeError(err)))
		}
		os.Exit(1)
	}
}
