package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"go-melody/family"
	"go-melody/logging"
)

// DefaultInstruments is the shipped instrument family reference file
const DefaultInstruments = "data/instruments.json"

type globalFlags struct {
	verbose     bool
	debugLog    string
	instruments string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", issue(err))
		os.Exit(1)
	}
}

// issue returns the user-facing message of err when it carries one
func issue(err error) string {
	if msg := fmsg.GetIssue(err); msg != "" {
		return msg
	}
	return err.Error()
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	var closeLog func() error

	root := &cobra.Command{
		Use:           "go-melody",
		Short:         "Learn and sample monophonic melodies from MIDI files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := logging.New(logging.Options{
				Verbose:   g.verbose,
				DebugFile: g.debugLog,
			})
			if err != nil {
				return err
			}
			closeLog = closer
			cmd.SetContext(log.WithContext(cmd.Context(), logger))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output")
	pf.StringVar(&g.debugLog, "debug-log", "", "also write every log record to this file (truncated)")
	pf.Lookup("debug-log").NoOptDefVal = logging.DefaultDebugPath()
	pf.StringVar(&g.instruments, "instruments", DefaultInstruments, "instrument family reference file")

	root.AddCommand(
		newPrepCmd(g),
		newTrainCmd(g),
		newSampleCmd(g),
		newCleanCmd(),
		newViewCmd(),
	)
	return root
}

// loadTable loads the family reference file once for the whole run
func (g *globalFlags) loadTable(ctx context.Context) (*family.Table, error) {
	table, err := family.Load(g.instruments)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Debug("loaded instrument families", "file", g.instruments, "families", table.Len())
	return table, nil
}
