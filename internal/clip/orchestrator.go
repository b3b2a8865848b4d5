package clip

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/NikitosKh/clipbot/internal/extract"
	"github.com/NikitosKh/clipbot/internal/journal"
	"github.com/NikitosKh/clipbot/internal/resolve"
)

// Artifact is the finished clip inside an active workspace. It becomes
// invalid the instant the workspace is destroyed, so delivery happens
// before the orchestrator returns.
type Artifact struct {
	Path            string
	DurationSeconds int
}

// DeliverFunc hands a finished clip back to the requester. The artifact's
// workspace stays alive for the duration of the call.
type DeliverFunc func(ctx context.Context, artifact Artifact) error

// DoneFunc reports the outcome of a request: failMsg is empty on success
// and a single short user-facing message otherwise.
type DoneFunc func(failMsg string)

// Orchestrator runs validated clip requests on a bounded worker pool:
// resolve the stream, trim it into a scoped workspace, deliver, clean up.
// Nothing is retried; a failed request is reported and forgotten.
type Orchestrator struct {
	resolver  resolve.Resolver
	extractor extract.Extractor
	pool      *Pool
	repo      journal.Repository
	baseDir   string
	logger    *slog.Logger
}

func NewOrchestrator(
	resolver resolve.Resolver,
	extractor extract.Extractor,
	pool *Pool,
	repo journal.Repository,
	baseDir string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:  resolver,
		extractor: extractor,
		pool:      pool,
		repo:      repo,
		baseDir:   baseDir,
		logger:    logger,
	}
}

// Submit queues a request for processing off the caller's dispatch
// goroutine, so one slow clip never blocks another command's
// acknowledgment. Work already under way is allowed to outlive the
// caller's context; the pool drains before the process exits.
func (o *Orchestrator) Submit(ctx context.Context, req Request, deliver DeliverFunc, done DoneFunc) error {
	procCtx := context.WithoutCancel(ctx)
	return o.pool.Submit(ctx, func() {
		done(o.process(procCtx, req, deliver))
	})
}

// process runs one request through resolution, extraction and delivery.
// It returns an empty string on success and the user-facing failure
// message otherwise. The workspace is destroyed on every path out.
func (o *Orchestrator) process(ctx context.Context, req Request, deliver DeliverFunc) (failMsg string) {
	log := o.logger.With("request_id", req.ID)

	ws, err := NewWorkspace(o.baseDir)
	if err != nil {
		log.Error("workspace allocation failed", "error", err)
		o.setStatus(ctx, req.ID, journal.StatusFailed, err.Error())
		return "could not allocate scratch space"
	}
	defer func() {
		if err := ws.Destroy(); err != nil {
			log.Warn("workspace cleanup failed", "dir", ws.Dir, "error", err)
		}
	}()

	o.setStatus(ctx, req.ID, journal.StatusResolving, "")
	stream, err := o.resolver.Resolve(ctx, req.SourceURL)
	if err != nil {
		log.Error("stream resolution failed", "url", req.SourceURL, "error", err)
		o.setStatus(ctx, req.ID, journal.StatusFailed, err.Error())
		return userMessage(err)
	}

	o.setStatus(ctx, req.ID, journal.StatusExtracting, "")
	outPath := ws.ClipPath()
	if err := o.extractor.Extract(ctx, stream.URL, req.StartSeconds, req.EndSeconds, outPath); err != nil {
		log.Error("clip extraction failed", "error", err)
		o.setStatus(ctx, req.ID, journal.StatusFailed, err.Error())
		return userMessage(err)
	}

	o.setStatus(ctx, req.ID, journal.StatusDelivering, "")
	artifact := Artifact{Path: outPath, DurationSeconds: req.DurationSeconds()}
	if err := deliver(ctx, artifact); err != nil {
		if isTimeout(err) {
			// The clip exists and the upload may still land; the transport
			// giving up waiting is not a failure of the extraction.
			log.Warn("delivery timed out after extraction succeeded", "error", err)
		} else {
			log.Error("delivery failed", "error", err)
			o.setStatus(ctx, req.ID, journal.StatusFailed, err.Error())
			return "could not deliver the clip"
		}
	}

	o.setStatus(ctx, req.ID, journal.StatusCompleted, "")
	log.Info("clip delivered",
		"url", req.SourceURL,
		"start_s", req.StartSeconds,
		"end_s", req.EndSeconds,
	)
	return ""
}

func (o *Orchestrator) setStatus(ctx context.Context, id, status, errorMsg string) {
	if err := o.repo.UpdateRequestStatus(ctx, id, status, errorMsg); err != nil {
		o.logger.Warn("journal update failed", "request_id", id, "status", status, "error", err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// userMessage folds an internal failure into the one short line the
// requester sees. Provider and process detail stays in the logs.
func userMessage(err error) string {
	if errors.Is(err, resolve.ErrNoPlayableStream) {
		return "no playable mp4 stream with audio was found"
	}

	var re *resolve.ResolutionError
	if errors.As(err, &re) {
		return "could not resolve the video"
	}

	var xe *extract.ExtractError
	if errors.As(err, &xe) {
		return "ffmpeg could not cut that range"
	}

	return "something went wrong"
}
