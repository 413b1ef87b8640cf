package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/siphon-dl/siphon/internal/config"
	"github.com/siphon-dl/siphon/internal/engine"
	"github.com/siphon-dl/siphon/internal/engine/chunked"
	"github.com/siphon-dl/siphon/internal/engine/events"
	"github.com/siphon-dl/siphon/internal/engine/types"
	"github.com/siphon-dl/siphon/internal/history"
	"github.com/siphon-dl/siphon/internal/tui"
	"github.com/siphon-dl/siphon/internal/utils"
)

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Download a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	flags := getCmd.Flags()
	flags.StringP("output", "o", ".", "destination folder")
	flags.IntP("chunks", "c", types.DefaultChunkCount, "number of chunks to split the download into")
	flags.Bool("serial", false, "fetch chunks sequentially instead of in parallel")
	flags.Bool("on-the-fly", false, "buffer chunks in memory instead of on-disk temp files")
	flags.String("speed-limit", "", "per-chunk bandwidth cap, e.g. 2MB (0/empty = unlimited)")
	flags.String("buffer-size", "", "bytes read per syscall, e.g. 32KB")
	flags.Duration("timeout", types.DefaultTimeout, "per-read timeout, also used as retry backoff base")
	flags.Int("max-retries", types.DefaultMaxTryAgainOnFailover, "per-chunk retry ceiling")
	flags.String("temp-dir", "", "directory for on-disk chunk temp files (default: destination folder)")
	flags.Bool("headless", false, "print progress lines instead of showing the TUI")
}

func runGet(cmd *cobra.Command, args []string) error {
	address := args[0]

	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("output")
	headless, _ := cmd.Flags().GetBool("headless")

	if opts.TempDirectory == "" {
		opts.TempDirectory = outDir
	}
	if err := os.MkdirAll(opts.TempDirectory, 0755); err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	adapter := engine.NewHTTPRequestAdapter(address, opts)

	totalSize, _ := adapter.FileSize(ctx)
	filename, ok := adapter.ContentDispositionFilename(ctx)
	if !ok || filename == "" {
		filename = adapter.FileName()
	}

	progressState := types.NewProgressState(filename, totalSize)
	progressState.CancelFunc = cancel

	startedAt := time.Now()
	var destination string

	observer := events.Funcs{
		ChunkProgressFunc: (&tui.StateObserver{State: progressState}).OnChunkProgress,
		OverallProgressFunc: func(e events.OverallProgress) {
			progressState.BytesReceived.Store(e.BytesReceived)
			if headless {
				printHeadlessProgress(e)
			}
		},
		CompletedFunc: func(e events.Completed) {
			progressState.Cancelled.Store(e.Cancelled)
			if e.Err != nil {
				progressState.SetError(e.Err)
			}
			progressState.Done.Store(true)
		},
	}

	orch := chunked.NewDownloadOrchestrator(adapter, opts, observer)

	var downloadErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		pkg, derr := orch.DownloadURL(ctx, address, outDir)
		downloadErr = derr
		if pkg != nil {
			destination = pkg.Destination
		}
	}()

	if headless {
		fmt.Fprintf(os.Stderr, "downloading %s (%s)\n", filename, utils.ConvertBytesToHumanReadable(totalSize))
		<-done
	} else {
		program := tea.NewProgram(tui.New(progressState, filename))
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("running progress view: %w", err)
		}
		<-done
	}

	status := history.StatusCompleted
	errMsg := ""
	if errors.Is(downloadErr, chunked.ErrCancelled) {
		status = history.StatusCancelled
	} else if downloadErr != nil {
		status = history.StatusFailed
		errMsg = downloadErr.Error()
	}

	if destination == "" {
		destination = filepath.Join(outDir, filename)
	}

	recordErr := withHistoryLock(func() error {
		store, err := history.Open(config.GetHistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()

		_, err = store.Record(history.Entry{
			URL:         address,
			Filename:    filename,
			Destination: destination,
			TotalSize:   totalSize,
			Status:      status,
			Error:       errMsg,
			StartedAt:   startedAt,
			CompletedAt: time.Now(),
		})
		return err
	})
	if recordErr != nil {
		utils.Debug("recording history: %v", recordErr)
	}

	if status == history.StatusCancelled {
		fmt.Fprintln(os.Stderr, "cancelled")
		return nil
	}
	if downloadErr != nil {
		return downloadErr
	}

	fmt.Printf("%s -> %s\n", address, destination)
	return nil
}

func printHeadlessProgress(e events.OverallProgress) {
	if e.TotalSize <= 0 {
		return
	}
	percent := float64(e.BytesReceived) * 100 / float64(e.TotalSize)
	fmt.Fprintf(os.Stderr, "  %.1f%% (%s) - %s\n", percent,
		utils.ConvertBytesToHumanReadable(e.BytesReceived),
		utils.ConvertSpeedToHumanReadable(e.Speed))
}

func optionsFromFlags(cmd *cobra.Command) (*types.DownloadOptions, error) {
	flags := cmd.Flags()

	chunkCount, _ := flags.GetInt("chunks")
	serial, _ := flags.GetBool("serial")
	onTheFly, _ := flags.GetBool("on-the-fly")
	speedLimitStr, _ := flags.GetString("speed-limit")
	bufferSizeStr, _ := flags.GetString("buffer-size")
	timeout, _ := flags.GetDuration("timeout")
	maxRetries, _ := flags.GetInt("max-retries")
	tempDir, _ := flags.GetString("temp-dir")

	var speedLimit int64
	if speedLimitStr != "" {
		v, err := humanize.ParseBytes(speedLimitStr)
		if err != nil {
			return nil, fmt.Errorf("parsing --speed-limit: %w", err)
		}
		speedLimit = int64(v)
	}

	bufferSize := 0
	if bufferSizeStr != "" {
		v, err := humanize.ParseBytes(bufferSizeStr)
		if err != nil {
			return nil, fmt.Errorf("parsing --buffer-size: %w", err)
		}
		bufferSize = int(v)
	}

	return &types.DownloadOptions{
		ChunkCount:            chunkCount,
		ParallelDownload:      !serial,
		OnTheFlyDownload:      onTheFly,
		MaximumSpeedPerChunk:  speedLimit,
		BufferBlockSize:       bufferSize,
		Timeout:               timeout,
		MaxTryAgainOnFailover: maxRetries,
		TempDirectory:         tempDir,
	}, nil
}
