package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"lcdp.dev/bluegreen/internal/bluegreen"
	"lcdp.dev/bluegreen/internal/theme"
)

func printStart(w io.Writer, r *bluegreen.StartResult) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", theme.RenderEnv(string(r.Environment.Color)), theme.RenderStatus(string(r.State)))
	if len(r.Started) == 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render("  no service started"))
	}
	for _, name := range r.Started {
		fmt.Fprintf(w, "  started %s\n", name)
	}
	if len(r.Environment.Dropped) > 0 {
		fmt.Fprintln(w, theme.ErrorStyle.Render("  dropped "+strings.Join(r.Environment.Dropped, ", ")))
	}
}

func printBalance(w io.Writer, r *bluegreen.BalanceResult) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "%s -> %s %s\n", r.From, r.To, theme.RenderStatus(string(r.State)))
	for _, rule := range r.Rewritten {
		fmt.Fprintf(w, "  %s %s\n", theme.SuccessStyle.Render("rewritten"), rule)
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render(fmt.Sprintf("  %d rule(s) already elsewhere", len(r.Skipped))))
	}
}

// explain adds operator guidance to engine errors.
func explain(err error) error {
	var partial *bluegreen.PartialCutoverError
	switch {
	case errors.As(err, &partial):
		return fmt.Errorf("%w\nrules already switched: %s\nfix the failed rule by hand or rerun the command", err, strings.Join(partial.Rewritten, ", "))
	case errors.Is(err, bluegreen.ErrServiceUnhealthy):
		return fmt.Errorf("%w\ntraffic was not switched", err)
	case errors.Is(err, bluegreen.ErrAmbiguousResult):
		return fmt.Errorf("%w\nuse --listener-arn or --workspace to narrow the selection", err)
	}
	return err
}
