package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/aurora/internal/audio"
	"github.com/rbright/aurora/internal/command"
	"github.com/rbright/aurora/internal/config"
	"github.com/rbright/aurora/internal/debugdump"
	"github.com/rbright/aurora/internal/dispatch"
	"github.com/rbright/aurora/internal/indicator"
	"github.com/rbright/aurora/internal/ipc"
	"github.com/rbright/aurora/internal/observe"
	"github.com/rbright/aurora/internal/pipeline"
	"github.com/rbright/aurora/internal/recognizer"
	"github.com/rbright/aurora/internal/session"
	"github.com/rbright/aurora/internal/version"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	socketProbeTimeout = 180 * time.Millisecond
	socketRetries      = 8
)

func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	if err := runListener(ctx, cfg, logger); err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: aurora is already listening")
			return 1
		}
		logger.Error("listener failed", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func runListener(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	sock, err := ipc.Acquire(ctx, socketPath, socketProbeTimeout, socketRetries)
	if err != nil {
		return err
	}
	defer func() {
		_ = sock.Close()
		_ = os.Remove(socketPath)
	}()

	metrics := observe.NoopMetrics()
	var provider *observe.Provider
	if cfg.Metrics.Listen != "" {
		provider, err = observe.NewProvider(version.Resolved())
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if shutdownErr := provider.Shutdown(shutdownCtx); shutdownErr != nil {
				logger.Warn("metrics shutdown failed", "error", shutdownErr.Error())
			}
		}()
		metrics, err = observe.NewMetrics(provider.MeterProvider())
		if err != nil {
			return err
		}
	}

	rec, err := recognizer.NewWhisper(cfg.Recognizer)
	if err != nil {
		return fmt.Errorf("load recognizer: %w", err)
	}
	defer func() { _ = rec.Close() }()

	classifier, err := newClassifier(cfg.Commands)
	if err != nil {
		return err
	}

	capture, err := audio.StartCapture(ctx, cfg.Audio, audio.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	defer func() {
		if stopErr := capture.Stop(); stopErr != nil {
			logger.Warn("stop capture failed", "error", stopErr.Error())
		}
	}()

	if reg, regErr := metrics.ObserveDropped(capture.Dropped); regErr == nil {
		defer func() { _ = reg.Unregister() }()
	} else {
		logger.Warn("register dropped chunk gauge failed", "error", regErr.Error())
	}

	notifier := indicator.NewNotifier(cfg.Indicator, cfg.Commands.Language, cfg.Window(), logger)
	defer notifier.Wait()

	dispatcher := dispatch.New(
		dispatch.ExecRunner{Logger: logger},
		dispatch.ProgramsFromConfig(cfg.Dispatch),
		dispatch.WithLogger(logger),
		dispatch.WithFailureHook(func(cmd command.Command) {
			metrics.RecordDispatchFailure(ctx, cmd.Name())
			notifier.ShowError(ctx, command.Describe(cmd))
		}),
	)

	machine, err := session.NewMachine(session.Config{WakeWord: cfg.WakeWord(), Window: cfg.Window()}, rec)
	if err != nil {
		return err
	}

	commander := pipeline.NewCommander(pipeline.CommanderConfig{
		Machine:          machine,
		Classifier:       classifier,
		Dispatcher:       dispatcher,
		Indicator:        notifier,
		Metrics:          metrics,
		Logger:           logger,
		ConversationMode: cfg.Wake.ConversationMode,
	})

	dumper, err := newDumper(cfg.Debug)
	if err != nil {
		return err
	}

	listener, err := pipeline.NewListener(pipeline.ListenerConfig{
		Source:      capture,
		Recognizer:  rec,
		Commander:   commander,
		Conditioner: cfg.Conditioner.DSP(),
		Device:      capture.Device().ID,
		Dumper:      dumper,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(groupCtx)
	defer stop()

	group.Go(func() error {
		defer stop()
		return listener.Run(runCtx)
	})
	group.Go(func() error {
		return ipc.Serve(runCtx, sock, controlHandler(listener))
	})
	if provider != nil {
		group.Go(func() error {
			return observe.Serve(runCtx, cfg.Metrics.Listen, provider.Handler(), logger)
		})
	}

	return group.Wait()
}

func newClassifier(cfg config.CommandsConfig) (*command.Classifier, error) {
	opts := command.Options{Threshold: cfg.FuzzyThreshold}
	if cfg.VocabularyFile != "" {
		vocab, err := command.LoadVocabulary(cfg.VocabularyFile)
		if err != nil {
			return nil, err
		}
		opts.Vocabulary = vocab
	}
	return command.NewClassifier(opts), nil
}

func newDumper(cfg config.DebugConfig) (*debugdump.Dumper, error) {
	if !cfg.EnableAudioDump {
		return nil, nil
	}
	dir := cfg.AudioDumpDir
	if dir == "" {
		var err error
		dir, err = debugdump.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	return debugdump.New(afero.NewOsFs(), dir), nil
}
