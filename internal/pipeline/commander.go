// Package pipeline runs the wake-word listener: capture chunks in, desktop commands out.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/rbright/aurora/internal/command"
	"github.com/rbright/aurora/internal/dispatch"
	"github.com/rbright/aurora/internal/indicator"
	"github.com/rbright/aurora/internal/observe"
	"github.com/rbright/aurora/internal/session"
)

// Classifier maps recognized text onto a command.
type Classifier interface {
	Classify(string) command.Command
}

// Dispatcher executes one command.
type Dispatcher interface {
	Dispatch(context.Context, command.Command) dispatch.Result
}

// CommanderConfig wires the text half of the pipeline.
type CommanderConfig struct {
	Machine    *session.Machine
	Classifier Classifier
	Dispatcher Dispatcher
	Indicator  indicator.Controller
	Metrics    *observe.Metrics
	Logger     *slog.Logger
	// ConversationMode re-arms the window after every command that keeps the listener running.
	ConversationMode bool
}

// Commander turns finalized text into session transitions and dispatched commands.
// It must be driven from a single goroutine.
type Commander struct {
	machine      *session.Machine
	classifier   Classifier
	dispatcher   Dispatcher
	indicator    indicator.Controller
	metrics      *observe.Metrics
	logger       *slog.Logger
	conversation bool
}

// NewCommander fills in no-op collaborators for nil optional fields.
func NewCommander(cfg CommanderConfig) *Commander {
	c := &Commander{
		machine:      cfg.Machine,
		classifier:   cfg.Classifier,
		dispatcher:   cfg.Dispatcher,
		indicator:    cfg.Indicator,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		conversation: cfg.ConversationMode,
	}
	if c.indicator == nil {
		c.indicator = indicator.Nop{}
	}
	if c.metrics == nil {
		c.metrics = observe.NoopMetrics()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Machine returns the session machine.
func (c *Commander) Machine() *session.Machine { return c.machine }

// Observe feeds one finalized text through the session machine.
// It reports stop=true when a dispatched command asked the listener to quit.
func (c *Commander) Observe(ctx context.Context, text string) (session.Outcome, bool) {
	out := c.machine.Observe(text)
	c.metrics.RecordOutcome(ctx, out.Kind.String())

	switch out.Kind {
	case session.OutcomeIgnored:
		c.logger.Debug("text ignored", "text", text, "state", c.machine.Snapshot().State)
	case session.OutcomeArmed:
		snap := c.machine.Snapshot()
		c.logger.Info("command window opened", "cycle_id", out.CycleID, "state", snap.State, "deadline", snap.Deadline)
		c.indicator.ShowArmed(ctx)
	case session.OutcomeTimeout:
		c.logger.Info("command window expired", "cycle_id", out.CycleID, "state", c.machine.Snapshot().State, "late", out.Late)
		c.indicator.ShowTimeout(ctx)
	case session.OutcomeDispatch:
		return out, c.afterDispatch(ctx, c.Execute(ctx, out.Text, out.CycleID))
	}
	return out, false
}

// Execute classifies and dispatches text without consulting the session machine.
func (c *Commander) Execute(ctx context.Context, text string, cycleID string) dispatch.Result {
	cmd := c.classifier.Classify(text)
	desc := command.Describe(cmd)
	if _, unknown := cmd.(command.Unknown); !unknown {
		c.indicator.ShowCommand(ctx, desc)
	}

	result := c.dispatcher.Dispatch(ctx, cmd)
	c.metrics.RecordCommand(ctx, cmd.Name(), result.String())
	c.logger.Info("command dispatched", "cycle_id", cycleID, "command", desc, "result", result.String())
	return result
}

func (c *Commander) afterDispatch(ctx context.Context, result dispatch.Result) bool {
	switch result {
	case dispatch.ResultQuit:
		c.indicator.Hide(ctx)
		return true
	case dispatch.ResultRunning:
		if c.conversation {
			snap := c.machine.Arm()
			c.logger.Info("conversation re-armed", "cycle_id", snap.CycleID, "state", snap.State, "deadline", snap.Deadline)
			c.indicator.ShowArmed(ctx)
		}
	case dispatch.ResultEndConversation:
		c.indicator.Hide(ctx)
	}
	return false
}
