package chunked

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/siphon-dl/siphon/internal/engine/events"
	"github.com/siphon-dl/siphon/internal/engine/types"
	"github.com/siphon-dl/siphon/internal/utils"
)

// DownloadOrchestrator runs the full pipeline: pre-flight checks, chunk
// planning, fetcher dispatch (parallel or sequential), progress
// aggregation, and the final merge.
type DownloadOrchestrator struct {
	Adapter  RequestAdapter
	Opts     *types.DownloadOptions
	Observer events.Observer
}

func NewDownloadOrchestrator(adapter RequestAdapter, opts *types.DownloadOptions, observer events.Observer) *DownloadOrchestrator {
	return &DownloadOrchestrator{Adapter: adapter, Opts: opts, Observer: observer}
}

// Download runs the pipeline against an already-built Package.
func (o *DownloadOrchestrator) Download(ctx context.Context, pkg *Package) error {
	return o.run(ctx, pkg)
}

// DownloadURL derives the destination filename from the resource (via
// Content-Disposition, falling back to the URL path) and writes it under
// folder, creating folder if necessary.
func (o *DownloadOrchestrator) DownloadURL(ctx context.Context, address, folder string) (*Package, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("creating destination folder %q: %w", folder, err)
	}

	filename, ok := o.Adapter.ContentDispositionFilename(ctx)
	if !ok || filename == "" {
		filename = o.Adapter.FileName()
	}

	return o.DownloadURLToFile(ctx, address, filepath.Join(folder, filename))
}

// DownloadURLToFile runs the pipeline against an explicit destination path.
func (o *DownloadOrchestrator) DownloadURLToFile(ctx context.Context, address, destination string) (*Package, error) {
	pkg := &Package{Address: address, Destination: destination, Opts: o.Opts}
	return pkg, o.run(ctx, pkg)
}

func (o *DownloadOrchestrator) run(ctx context.Context, pkg *Package) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-flight failures still emit the single terminal Completed event.
	preflightFailed := func(err error) error {
		if o.Observer != nil {
			o.Observer.OnCompleted(events.Completed{Cancelled: false, Err: err, Total: pkg.TotalSize})
		}
		return err
	}

	size, err := o.Adapter.FileSize(ctx)
	if err != nil || size <= 0 {
		return preflightFailed(&InvalidResourceError{URL: pkg.Address, Reason: "size unknown or non-positive"})
	}
	pkg.TotalSize = size

	chunkCount := types.ClampChunkCount(size, o.Opts.GetChunkCount())

	if err := o.verifyDiskSpace(pkg); err != nil {
		return preflightFailed(err)
	}

	if err := os.Remove(pkg.Destination); err != nil && !os.IsNotExist(err) {
		return preflightFailed(fmt.Errorf("removing stale destination %q: %w", pkg.Destination, err))
	}

	pkg.Chunks = PlanChunks(size, chunkCount, o.Opts.GetMaxTryAgainOnFailover())

	aggregator := NewProgressAggregator(pkg.TotalSize, &pkg.BytesReceived, o.Observer)
	fetcher := &Fetcher{
		Adapter:       o.Adapter,
		Opts:          o.Opts,
		BytesReceived: &pkg.BytesReceived,
		OnProgress:    aggregator.OnChunkProgress,
	}

	fetchErr := o.fetchAll(ctx, pkg, fetcher)

	if errors.Is(fetchErr, ErrCancelled) {
		aggregator.Completed(events.Completed{Cancelled: true, Total: pkg.TotalSize})
		return ErrCancelled
	}

	if fetchErr != nil {
		aggregator.Completed(events.Completed{Cancelled: false, Err: fetchErr, Total: pkg.TotalSize})
		return fetchErr
	}

	if err := Merge(pkg.Destination, pkg.Chunks, o.Opts); err != nil {
		aggregator.Completed(events.Completed{Cancelled: false, Err: err, Total: pkg.TotalSize})
		return err
	}

	if o.Opts.GetClearPackageAfterDownloadCompleted() {
		CleanupTempFiles(pkg.Chunks)
	}

	aggregator.Completed(events.Completed{
		Cancelled: false,
		Filename:  filepath.Base(pkg.Destination),
		Total:     pkg.TotalSize,
	})
	return nil
}

func (o *DownloadOrchestrator) fetchAll(ctx context.Context, pkg *Package, fetcher *Fetcher) error {
	if o.Opts.GetParallelDownload() {
		return o.fetchParallel(ctx, pkg, fetcher)
	}
	return o.fetchSequential(ctx, pkg, fetcher)
}

func (o *DownloadOrchestrator) fetchSequential(ctx context.Context, pkg *Package, fetcher *Fetcher) error {
	for _, c := range pkg.Chunks {
		if err := fetcher.Fetch(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (o *DownloadOrchestrator) fetchParallel(ctx context.Context, pkg *Package, fetcher *Fetcher) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(pkg.Chunks))

	scope, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, c := range pkg.Chunks {
		wg.Add(1)
		go func(chunk *Chunk) {
			defer wg.Done()
			if err := fetcher.Fetch(scope, chunk); err != nil {
				errs <- err
				if !errors.Is(err, ErrCancelled) {
					cancel() // a fatal chunk aborts every other in-flight fetch
				}
			}
		}(c)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrCancelled) {
			return err
		}
	}

	if ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

func (o *DownloadOrchestrator) verifyDiskSpace(pkg *Package) error {
	if err := checkDiskSpace(pkg.Destination, pkg.TotalSize); err != nil {
		return err
	}

	if o.Opts.GetOnTheFlyDownload() {
		return nil
	}

	tempDir := o.Opts.GetTempDirectory()
	if tempDir == "" {
		return nil
	}

	needed := pkg.TotalSize
	if sameDrive(tempDir, pkg.Destination) {
		needed *= 2
	}
	if err := checkDiskSpace(filepath.Join(tempDir, "probe"), needed); err != nil {
		utils.Debug("disk space check failed for temp dir %q: %v", tempDir, err)
		return err
	}
	return nil
}

func sameDrive(a, b string) bool {
	devA, errA := statDevice(filepath.Dir(a))
	devB, errB := statDevice(filepath.Dir(b))
	if errA != nil || errB != nil {
		return false
	}
	return devA == devB
}
