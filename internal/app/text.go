package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/aurora/internal/command"
	"github.com/rbright/aurora/internal/config"
	"github.com/rbright/aurora/internal/dispatch"
	"github.com/rbright/aurora/internal/indicator"
	"github.com/rbright/aurora/internal/pipeline"
	"github.com/rbright/aurora/internal/session"
)

// echoDispatcher prints every dispatched command before handing it on.
type echoDispatcher struct {
	next pipeline.Dispatcher
	out  io.Writer
}

func (d echoDispatcher) Dispatch(ctx context.Context, cmd command.Command) dispatch.Result {
	result := d.next.Dispatch(ctx, cmd)
	fmt.Fprintf(d.out, "%s -> %s\n", command.Describe(cmd), result)
	return result
}

// commandText drives the command half of the pipeline from stdin, one utterance per line.
func (r Runner) commandText(ctx context.Context, cfg config.Config, direct bool, logger *slog.Logger) int {
	classifier, err := newClassifier(cfg.Commands)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	machine, err := session.NewMachine(session.Config{WakeWord: cfg.WakeWord(), Window: cfg.Window()}, session.ResetFunc(func() {}))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	dispatcher := dispatch.New(
		dispatch.ExecRunner{Logger: logger},
		dispatch.ProgramsFromConfig(cfg.Dispatch),
		dispatch.WithLogger(logger),
	)

	commander := pipeline.NewCommander(pipeline.CommanderConfig{
		Machine:          machine,
		Classifier:       classifier,
		Dispatcher:       echoDispatcher{next: dispatcher, out: r.Stdout},
		Indicator:        indicator.Nop{},
		Logger:           logger,
		ConversationMode: cfg.Wake.ConversationMode,
	})

	in := r.Stdin
	if in == nil {
		in = eofReader{}
	}
	if err := commander.RunText(ctx, in, direct); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
