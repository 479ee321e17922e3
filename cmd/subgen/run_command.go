package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subgen/internal/batch"
	"subgen/internal/config"
	"subgen/internal/job"
	"subgen/internal/logging"
)

var errAborted = errors.New("aborted before cancellation finished")

type runFlags struct {
	sourceFile  string
	model       string
	language    string
	output      string
	cookies     string
	concurrency int
	force       bool
	jsonOutput  bool
	failOnError bool
	quiet       bool
	metrics     bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [URL...]",
		Short: "Download videos and write SRT subtitles for them",
		Long: `Download the audio of each URL, transcribe it with whisper-cli and write
an SRT file named after the video title into the output directory.

URLs come from the arguments and from --file (one per line, '#' starts a
comment). Ctrl+C cancels the batch; a second Ctrl+C exits immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sources := append([]string(nil), args...)
			if strings.TrimSpace(flags.sourceFile) != "" {
				listed, err := readSourceFile(flags.sourceFile, cmd.InOrStdin())
				if err != nil {
					return err
				}
				sources = append(sources, listed...)
			}
			if len(batch.NormalizeSources(sources)) == 0 {
				return errors.New("no URLs given; pass them as arguments or with --file")
			}
			if err := validateConcurrency(flags.concurrency); err != nil {
				return err
			}
			opts, err := resolveJobOptions(cfg, flags)
			if err != nil {
				return err
			}
			return runBatch(cmd, ctx, cfg, sources, opts, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.sourceFile, "file", "f", "", "Read URLs from a file, one per line (- for stdin)")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "Model tier: fastest, balanced or accurate")
	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "Spoken language code or 'auto'")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Directory for the SRT files")
	cmd.Flags().StringVar(&flags.cookies, "cookies", "", "Cookies file for yt-dlp")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "j", 0, "Jobs to run at once (default from config)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Regenerate subtitles that already exist")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the batch result as JSON")
	cmd.Flags().BoolVar(&flags.failOnError, "fail-on-error", false, "Exit non-zero when any job does not succeed")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Hide per-job progress")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "Serve Prometheus metrics while the batch runs")

	return cmd
}

// validateConcurrency checks a --concurrency override; 0 means use the config.
func validateConcurrency(n int) error {
	if n < 0 || n > config.MaxConcurrency {
		return fmt.Errorf("--concurrency must be between 1 and %d", config.MaxConcurrency)
	}
	return nil
}

// resolveJobOptions layers command-line overrides over the config snapshot.
func resolveJobOptions(cfg *config.Config, flags runFlags) (job.Options, error) {
	opts := cfg.JobOptions()
	if raw := strings.TrimSpace(flags.model); raw != "" {
		tier, err := job.ParseModelTier(raw)
		if err != nil {
			return job.Options{}, err
		}
		opts.Model = tier
	}
	if lang := strings.TrimSpace(flags.language); lang != "" {
		opts.Language = lang
	}
	if out := strings.TrimSpace(flags.output); out != "" {
		expanded, err := config.ExpandPath(out)
		if err != nil {
			return job.Options{}, fmt.Errorf("output directory: %w", err)
		}
		opts.OutputDir = expanded
	}
	if cookies := strings.TrimSpace(flags.cookies); cookies != "" {
		expanded, err := config.ExpandPath(cookies)
		if err != nil {
			return job.Options{}, fmt.Errorf("cookies file: %w", err)
		}
		info, err := os.Stat(expanded)
		if err != nil {
			return job.Options{}, fmt.Errorf("cookies file: %w", err)
		}
		if info.IsDir() {
			return job.Options{}, fmt.Errorf("cookies file: %s is a directory", expanded)
		}
		opts.CookiesFile = expanded
	}
	if flags.force {
		opts.SkipExisting = false
	}
	return opts, nil
}

func runBatch(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, sources []string, opts job.Options, flags runFlags) error {
	stderr := cmd.ErrOrStderr()
	live := !flags.jsonOutput && !flags.quiet && shouldColorize(stderr)

	logger, err := ctx.logger(!live)
	if err != nil {
		return err
	}

	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	p, err := buildPipeline(baseCtx, cfg, logger, pipelineOptions{
		concurrency: flags.concurrency,
		metrics:     flags.metrics,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(baseCtx), 5*time.Second)
		defer cancel()
		if err := p.Close(closeCtx); err != nil {
			logger.Warn("pipeline shutdown incomplete", logging.Error(err))
		}
	}()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	h, err := p.scheduler.Submit(baseCtx, sources, opts)
	if err != nil {
		return err
	}
	logger.Info("batch submitted",
		logging.String(logging.FieldEventType, "batch_submitted"),
		logging.String(logging.FieldBatchID, h.ID()),
		logging.Int("jobs", h.Total()),
		logging.Int("concurrency", p.scheduler.Concurrency()),
		logging.String("model", string(opts.Model)),
		logging.String("output_dir", opts.OutputDir),
	)
	if err := p.notifier.NotifyBatchStarted(baseCtx, h.Total()); err != nil {
		logger.Warn("batch start notification failed", logging.Error(err))
	}

	var progressOut io.Writer = stderr
	if flags.jsonOutput || flags.quiet {
		progressOut = io.Discard
	}
	printer := newProgressPrinter(progressOut, live, live)

	snap, err := watchBatch(baseCtx, p.scheduler, h, printer, sigs)
	if err != nil {
		return err
	}

	if err := p.notifier.NotifyBatchCompleted(context.WithoutCancel(baseCtx), notificationSummary(snap)); err != nil {
		logger.Warn("batch completion notification failed", logging.Error(err))
	}

	out := cmd.OutOrStdout()
	if flags.jsonOutput {
		if err := writeJSON(cmd, newBatchReport(snap)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, renderResultsTable(snap))
		fmt.Fprintln(out, summaryLine(snap))
	}

	if flags.failOnError && snap.Succeeded() < snap.Total {
		return fmt.Errorf("%d of %d jobs did not succeed", snap.Total-snap.Succeeded(), snap.Total)
	}
	return nil
}

// watchBatch renders events until the batch completes. The first signal
// cancels the batch; the second returns errAborted without waiting.
func watchBatch(ctx context.Context, sched *batch.Scheduler, h *batch.Handle, printer *progressPrinter, sigs <-chan os.Signal) (batch.Snapshot, error) {
	events, unsubscribe := sched.Subscribe(h)
	defer unsubscribe()

	cancelled := false
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return sched.Wait(ctx, h)
			}
			printer.handle(ev)
		case <-sigs:
			if cancelled {
				printer.clear()
				return batch.Snapshot{}, errAborted
			}
			cancelled = true
			sched.Cancel(h)
		case <-ctx.Done():
			if !cancelled {
				cancelled = true
				sched.Cancel(h)
			}
			ctx = context.WithoutCancel(ctx)
		}
	}
}
