package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"lifeQuestClient/internal/apiclient"
	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/types/task"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(s); f {
	case outputText, outputJSON, outputYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// emit writes v as JSON or YAML, or calls text for the styled rendering.
func emit(w io.Writer, format outputFormat, v any, text func(io.Writer)) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

// loadList loads s and renders its items, or a distinct line for an empty
// list or a failed load.
func loadList[T, F, D any](ctx context.Context, a *app, s *collection.Synchronizer[T, F, D], filter F, empty string, text func(io.Writer, []T)) error {
	if err := s.Load(ctx, filter); err != nil && !errors.Is(err, collection.ErrSuperseded) {
		a.reportLoadError(err)
		return &reportedError{err: err}
	}
	snap := s.Snapshot()
	if a.format != outputText {
		items := snap.Items
		if items == nil {
			items = []T{}
		}
		return emit(a.out, a.format, items, nil)
	}
	if snap.Empty() {
		fmt.Fprintln(a.out, mutedStyle.Render(iconInfo+" "+empty))
		return nil
	}
	text(a.out, snap.Items)
	return nil
}

// reportedError has already been printed with its retry hint.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func (a *app) reportLoadError(err error) {
	fmt.Fprintln(a.errOut, badStyle.Render(iconError+" "+describeError(err)))
	fmt.Fprintln(a.errOut, mutedStyle.Render("Run the command again to retry."))
}

// describeError turns client errors into the message shown to the user.
func describeError(err error) string {
	var (
		verr *task.ValidationError
		serr *apiclient.ServerError
		nerr *apiclient.NetworkError
		derr *apiclient.DecodeError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &serr):
		return fmt.Sprintf("server error (%d): %s", serr.Status, serr.Message)
	case errors.As(err, &nerr):
		return "cannot reach the server: " + nerr.Err.Error()
	case errors.As(err, &derr):
		return "unexpected response from the server"
	case errors.Is(err, collection.ErrAlreadyCompleted):
		return "already completed"
	default:
		return err.Error()
	}
}
