package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/obeli-sk/webui"
	"github.com/obeli-sk/webui/internal/config"
	"github.com/obeli-sk/webui/internal/logging"
	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/execstream"
	"github.com/obeli-sk/webui/pkg/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace <execution-id>",
	Short: "Render an execution trace as a terminal waterfall",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		demo, _ := cmd.Flags().GetBool("demo")
		hideFinished, _ := cmd.Flags().GetBool("hide-finished")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		client, err := buildClient(cfg, demo)
		if err != nil {
			return err
		}

		app := webui.New(client,
			webui.WithLogger(logging.NewNop()),
			webui.WithPageSize(cfg.Backend.PageSize),
			webui.WithPollInterval(50*time.Millisecond),
		)

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		root := domain.ExecutionID{ID: args[0]}
		tree, err := loadTree(ctx, app, root, trace.Options{HideFinished: hideFinished})
		if err != nil {
			return err
		}

		renderWaterfall(tree)
		return nil
	},
}

// loadTree drives the stream until the whole tree settled or the context
// expires. A timeout is not an error when a partial tree exists, since
// unfinished executions keep the stream polling forever.
func loadTree(ctx context.Context, app *webui.App, root domain.ExecutionID, opts trace.Options) (*trace.Node, error) {
	app.Stream.Add(ctx, root)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	var tree *trace.Node
	for {
		snap := app.Stream.Snapshot()
		var missing []domain.ExecutionID
		tree, missing = trace.Build(snap, root, opts)
		for _, id := range missing {
			app.Stream.Add(ctx, id)
		}

		if tree != nil && len(missing) == 0 && allSettled(snap) {
			return tree, nil
		}

		select {
		case <-ctx.Done():
			if tree == nil {
				return nil, fmt.Errorf("execution %s did not load in time", root)
			}
			return tree, nil
		case <-ticker.C:
		}
	}
}

func allSettled(snap execstream.Snapshot) bool {
	for _, state := range snap.FetchStates {
		if state != execstream.StateFinished && state != execstream.StateFailed {
			return false
		}
	}
	return true
}

const barWidth = 40

func renderWaterfall(tree *trace.Node) {
	start, end := treeSpan(tree)
	span := end.Sub(start)
	if span <= 0 {
		span = time.Millisecond
	}

	nameWidth := 30
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > barWidth+20 {
		nameWidth = w - barWidth - 20
	}

	p := termenv.ColorProfile()
	renderNode(p, tree, 0, start, span, nameWidth)
}

func renderNode(p termenv.Profile, node *trace.Node, depth int, start time.Time, span time.Duration, nameWidth int) {
	name := strings.Repeat("  ", depth) + node.Name
	if len(name) > nameWidth {
		name = name[:nameWidth]
	}
	styled := termenv.String(fmt.Sprintf("%-*s", nameWidth, name)).
		Foreground(p.Color(domain.GenerateColorHex(node.ExecutionID.ID)))

	fmt.Printf("%s %s %s\n", styled, renderBar(p, node, start, span), node.CurrentStatus)

	for _, child := range node.Children {
		renderNode(p, child, depth+1, start, span, nameWidth)
	}
}

// renderBar places one block per busy interval, scaled to the tree's span.
func renderBar(p termenv.Profile, node *trace.Node, start time.Time, span time.Duration) string {
	cells := make([]string, barWidth)
	for i := range cells {
		cells[i] = "·"
	}

	for _, interval := range node.Busy {
		from := cellAt(interval.StartedAt, start, span)
		until := barWidth
		if interval.FinishedAt != nil {
			until = cellAt(*interval.FinishedAt, start, span) + 1
		}
		block := termenv.String("█").Foreground(p.Color(statusColor(interval.Status))).String()
		for i := from; i < until && i < barWidth; i++ {
			cells[i] = block
		}
	}
	return strings.Join(cells, "")
}

// treeSpan computes the earliest schedule time and latest event time across
// the whole tree.
func treeSpan(node *trace.Node) (time.Time, time.Time) {
	start, end := node.ScheduledAt, node.LastEventAt
	for _, child := range node.Children {
		childStart, childEnd := treeSpan(child)
		if childStart.Before(start) {
			start = childStart
		}
		if childEnd.After(end) {
			end = childEnd
		}
	}
	return start, end
}

func cellAt(t time.Time, start time.Time, span time.Duration) int {
	offset := t.Sub(start)
	cell := int(int64(barWidth) * int64(offset) / int64(span))
	if cell < 0 {
		cell = 0
	}
	if cell >= barWidth {
		cell = barWidth - 1
	}
	return cell
}

func statusColor(status trace.IntervalStatus) string {
	switch status {
	case trace.StatusFinishedOK:
		return "#34d399"
	case trace.StatusFinishedError, trace.StatusErrorTemporary:
		return "#f87171"
	case trace.StatusTimeoutTemporary:
		return "#fbbf24"
	case trace.StatusLocked:
		return "#60a5fa"
	default:
		return "#9ca3af"
	}
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().Bool("demo", false, "Trace an execution from the built-in demo fixture")
	traceCmd.Flags().Bool("hide-finished", false, "Hide finished child executions")
	traceCmd.Flags().Duration("timeout", 3*time.Second, "How long to wait for the tree to load")
}
