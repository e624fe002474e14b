// Package ctl implements the classroomctl command line client.
package ctl

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/classroom/internal/domain/types"
)

// Default flag values.
const (
	DefaultURL      = "http://localhost:9080"
	defaultTimeout  = 10 * time.Second
	defaultPicks    = 200
	defaultStudents = 16
	defaultDuration = 5
)

type globalFlags struct {
	url     string
	class   string
	timeout time.Duration
}

func (g *globalFlags) client() *Client {
	return NewClient(g.url, g.timeout)
}

// NewRootCommand builds the classroomctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	g := &globalFlags{}
	p := NewPrinter(out)

	root := &cobra.Command{
		Use:   "classroomctl",
		Short: "Command line client for the classroom service",
		Long: `classroomctl picks students, reads participation statistics and manages
hall passes on a running classroom service. The simulate command runs the
picker locally to show how evenly it spreads picks.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.StringVar(&g.url, "url", DefaultURL, "Base URL of the service")
	pf.StringVar(&g.class, "class", types.DefaultClassID, "Class identifier")
	pf.DurationVar(&g.timeout, "timeout", defaultTimeout, "HTTP request timeout")

	root.AddCommand(
		newPickCmd(g, p),
		newStatsCmd(g, p),
		newResetCmd(g, p),
		newSimulateCmd(p),
		newPassesCmd(g, p),
	)
	return root
}

// Execute runs the command tree with args. Failures are printed to errOut.
func Execute(ctx context.Context, out, errOut io.Writer, args []string) error {
	root := NewRootCommand(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			NewPrinter(errOut).Error(apiErr.Body.Error, nil)
		} else {
			NewPrinter(errOut).Error("classroomctl failed", err)
		}
	}
	return err
}

func newPickCmd(g *globalFlags, p *Printer) *cobra.Command {
	return &cobra.Command{
		Use:   "pick",
		Short: "Pick a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := g.client().Pick(cmd.Context(), g.class)
			if err != nil {
				return err
			}
			p.Pick(resp)
			return nil
		},
	}
}

func newStatsCmd(g *globalFlags, p *Printer) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show today's picker statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := g.client().Stats(cmd.Context(), g.class)
			if err != nil {
				return err
			}
			p.Stats(resp)
			return nil
		},
	}
}

func newResetCmd(g *globalFlags, p *Printer) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset today's pick history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := g.client().Reset(cmd.Context(), g.class)
			if err != nil {
				return err
			}
			p.Success("%s", resp.Message)
			return nil
		},
	}
}

func newSimulateCmd(p *Printer) *cobra.Command {
	cfg := SimConfig{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the picker locally and print the distribution",
		Long: `simulate picks repeatedly from a generated roster using an in-memory
history and a simulated clock, then prints how many times each student was
picked together with the fairness score and the older variance scores.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := Simulate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			p.Simulation(res)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.Picks, "picks", defaultPicks, "Number of picks")
	f.IntVar(&cfg.Students, "students", defaultStudents, "Roster size")
	f.DurationVar(&cfg.Interval, "interval", time.Minute, "Simulated time between picks")
	f.Int64Var(&cfg.Seed, "seed", 0, "Random seed (0 seeds from the clock)")
	return cmd
}

func newPassesCmd(g *globalFlags, p *Printer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passes",
		Short: "Manage hall passes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List today's passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := g.client().ListPasses(cmd.Context(), g.class)
			if err != nil {
				return err
			}
			p.Passes(resp)
			return nil
		},
	}

	req := types.IssuePassRequest{}
	issue := &cobra.Command{
		Use:   "issue STUDENT",
		Short: "Issue a hall pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := req
			r.StudentName = args[0]
			resp, err := g.client().IssuePass(cmd.Context(), g.class, r)
			if err != nil {
				return err
			}
			p.Pass(resp)
			return nil
		},
	}
	issue.Flags().StringVar(&req.Destination, "destination", "", "Where the student is going")
	issue.Flags().IntVar(&req.ExpectedDuration, "minutes", defaultDuration, "Expected duration in minutes")
	issue.Flags().StringVar(&req.Notes, "notes", "", "Free text notes")
	_ = issue.MarkFlagRequired("destination")

	ret := &cobra.Command{
		Use:   "return PASS_ID",
		Short: "Mark a pass as returned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := g.client().ReturnPass(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p.Pass(resp)
			return nil
		},
	}

	cmd.AddCommand(list, issue, ret)
	return cmd
}
