package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"edgescan/internal/config"
	"edgescan/internal/paths"
	"edgescan/internal/progress"
	"edgescan/internal/results"
	"edgescan/internal/scanner"
	"edgescan/internal/speedtest"
	"edgescan/internal/storage/models"
	"edgescan/internal/subnets"
	"edgescan/pkg/errors"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan subnets for well-performing IPs",
	Long: `Scan subnets for well-performing IPs.

Each sampled IP is probed through a disposable xray tunnel rendered from the
config template. Successful probes are appended to a timestamped CSV under
./result and mirrored into the scan-history database. Failures are reported
but not persisted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Interrupts during setup abort immediately; once the worker pool
		// is running the scan loop takes over interrupt handling.
		setupSig := make(chan os.Signal, 1)
		signal.Notify(setupSig, os.Interrupt)
		go func() {
			if _, ok := <-setupSig; ok {
				fmt.Fprintln(os.Stderr, "interrupt during setup, aborting")
				os.Exit(1)
			}
		}()

		opts, err := loadScanOptions(cmd)
		if err != nil {
			return err
		}

		if opts.Every > 0 {
			return runRepeated(opts, setupSig)
		}

		summary, err := runScan(opts, setupSig)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

// scanOptions is the merged view of flags and the optional config file.
type scanOptions struct {
	Subnets    string
	Template   string
	Bin        string
	Workers    int
	Tries      int
	Upload     bool
	SampleSize int
	Timeout    time.Duration
	Every      time.Duration

	DownloadBytes int
	UploadBytes   int
}

// loadScanOptions reads flags and fills unset ones from the config file.
func loadScanOptions(cmd *cobra.Command) (*scanOptions, error) {
	opts := &scanOptions{}
	flags := cmd.Flags()

	opts.Subnets, _ = flags.GetString("subnets")
	opts.Template, _ = flags.GetString("template")
	opts.Bin, _ = flags.GetString("bin")
	opts.Workers, _ = flags.GetInt("workers")
	opts.Tries, _ = flags.GetInt("tries")
	opts.Upload, _ = flags.GetBool("upload")
	opts.SampleSize, _ = flags.GetInt("sample-size")
	opts.Timeout, _ = flags.GetDuration("timeout")
	opts.Every, _ = flags.GetDuration("every")
	opts.DownloadBytes, _ = flags.GetInt("download-bytes")
	opts.UploadBytes, _ = flags.GetInt("upload-bytes")

	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if path := config.Find(configPath); path != "" {
		file, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %q: %w", path, err)
		}
		if !flags.Changed("subnets") && file.Subnets != "" {
			opts.Subnets = file.Subnets
		}
		if !flags.Changed("template") && file.Template != "" {
			opts.Template = file.Template
		}
		if !flags.Changed("bin") && file.Bin != "" {
			opts.Bin = file.Bin
		}
		if !flags.Changed("workers") && file.Workers > 0 {
			opts.Workers = file.Workers
		}
		if !flags.Changed("tries") && file.Tries > 0 {
			opts.Tries = file.Tries
		}
		if !flags.Changed("upload") {
			opts.Upload = opts.Upload || file.Upload
		}
		if !flags.Changed("sample-size") && file.SampleSize > 0 {
			opts.SampleSize = file.SampleSize
		}
		if !flags.Changed("timeout") && file.Timeout > 0 {
			opts.Timeout = file.Timeout
		}
	}

	if opts.Subnets == "" {
		return nil, fmt.Errorf("no subnet source: use --subnets or set it in the config file")
	}
	if opts.Template == "" {
		return nil, fmt.Errorf("no config template: use --template or set it in the config file")
	}
	// The result columns and the probe trial count both derive from this.
	if opts.Tries < 1 {
		return nil, fmt.Errorf("tries must be at least 1, got %d", opts.Tries)
	}
	return opts, nil
}

// runScan performs one full scan run. Every failure before the scheduler
// starts is a setup error and surfaces before any worker runs.
func runScan(opts *scanOptions, setupSig chan os.Signal) (scanner.Summary, error) {
	var summary scanner.Summary

	run, err := paths.NewRun(".")
	if err != nil {
		return summary, fmt.Errorf("failed to create run directories: %w", err)
	}

	logFile, err := os.Create(run.LogFile)
	if err != nil {
		return summary, fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))

	blocks, err := subnets.Read(opts.Subnets)
	if err != nil {
		logger.Error("failed to read subnets", "source", opts.Subnets, "error", err)
		return summary, err
	}
	if len(blocks) == 0 {
		return summary, fmt.Errorf("%w: %s", errors.ErrNoSubnets, opts.Subnets)
	}

	template, err := speedtest.LoadTemplate(opts.Template)
	if err != nil {
		logger.Error("failed to read template", "path", opts.Template, "error", err)
		return summary, err
	}

	prober, err := speedtest.NewProber(&speedtest.Config{
		BinPath:       opts.Bin,
		Template:      template,
		ProxyDir:      run.ProxyDir,
		NTries:        opts.Tries,
		DoUpload:      opts.Upload,
		Timeout:       opts.Timeout,
		DownloadBytes: opts.DownloadBytes,
		UploadBytes:   opts.UploadBytes,
	})
	if err != nil {
		logger.Error("failed to prepare prober", "error", err)
		return summary, err
	}

	writer, err := results.NewWriter(run.ResultFile, opts.Tries)
	if err != nil {
		logger.Error("failed to create result file", "path", run.ResultFile, "error", err)
		return summary, err
	}
	defer writer.Close()

	total := 0
	for _, block := range blocks {
		total += subnets.NumAddrs(block, opts.SampleSize)
	}

	store := appInstance.Storage
	runRec := &models.Run{
		StartedAt:       run.StartedAt,
		Status:          models.RunRunning,
		ResultFile:      run.ResultFile,
		TotalCandidates: total,
	}
	if err := store.CreateRun(context.Background(), runRec); err != nil {
		logger.Warn("failed to record run in history", "error", err)
		store, runRec = nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var renderer progress.Renderer
	if isatty.IsTerminal(os.Stderr.Fd()) {
		renderer = progress.NewTUI(cancel)
	} else {
		renderer = progress.NewPlain(os.Stderr)
	}

	sched := scanner.New(
		scanner.Config{Workers: opts.Workers, SampleSize: opts.SampleSize},
		prober, writer, renderer, logger, store, runRec,
	)

	logger.Info("starting scan", "blocks", len(blocks), "candidates", total, "workers", opts.Workers)

	// Hand interrupt handling over to the scan loop.
	if setupSig != nil {
		signal.Stop(setupSig)
		close(setupSig)
	}

	return sched.Run(ctx, blocks)
}

// runRepeated re-runs the scan on a fixed schedule until a run is cancelled
// or fails.
func runRepeated(opts *scanOptions, setupSig chan os.Signal) error {
	sch, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	var once sync.Once
	done := make(chan struct{})
	var lastErr error

	_, err = sch.NewJob(
		gocron.DurationJob(opts.Every),
		gocron.NewTask(func() {
			summary, err := runScan(opts, setupSig)
			setupSig = nil
			if err != nil {
				lastErr = err
				once.Do(func() { close(done) })
				return
			}
			printSummary(summary)
			if summary.Status != scanner.StatusCompleted {
				once.Do(func() { close(done) })
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule repeated scan: %w", err)
	}

	sch.Start()
	<-done
	if err := sch.Shutdown(); err != nil {
		return err
	}
	return lastErr
}

func printSummary(summary scanner.Summary) {
	fmt.Printf("scan %s: %d/%d ips scanned, %d ok\n",
		summary.Status, summary.Scanned, summary.Total, summary.Succeeded)
}

func init() {
	scanCmd.Flags().String("subnets", "", "subnet list: file path or http(s) URL")
	scanCmd.Flags().String("template", "", "xray config template path")
	scanCmd.Flags().String("bin", "", "xray binary path (default: search common locations)")
	scanCmd.Flags().IntP("workers", "w", 4, "number of concurrent probe workers")
	scanCmd.Flags().IntP("tries", "n", 3, "trials per direction per ip")
	scanCmd.Flags().Bool("upload", false, "also measure upload speed and latency")
	scanCmd.Flags().IntP("sample-size", "s", 0, "max ips sampled per subnet (0 = whole subnet)")
	scanCmd.Flags().Duration("timeout", 10*time.Second, "per-trial transfer timeout")
	scanCmd.Flags().Duration("every", 0, "re-run the scan on this interval (0 = run once)")
	scanCmd.Flags().Int("download-bytes", 100_000, "bytes to download per trial")
	scanCmd.Flags().Int("upload-bytes", 100_000, "bytes to upload per trial")

	rootCmd.AddCommand(scanCmd)
}
