// Package extract produces a time-bounded clip from a stream URL by
// stream-copying through ffmpeg. The elementary streams are copied
// verbatim; nothing is re-encoded.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/NikitosKh/clipbot/internal/timefmt"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

// ExtractError reports a trimming process that exited nonzero. The output
// file is not valid and must be discarded with its workspace.
type ExtractError struct {
	ExitCode   int
	StderrTail string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("ffmpeg exited %d: %s", e.ExitCode, e.StderrTail)
}

// Extractor is the trimming contract the orchestrator depends on.
type Extractor interface {
	// Extract seeks the input to startSeconds, copies endSeconds-startSeconds
	// seconds of the elementary streams into outPath, and blocks until the
	// external process exits.
	Extract(ctx context.Context, streamURL string, startSeconds, endSeconds int, outPath string) error
}

// FFmpeg runs the ffmpeg binary to cut clips.
type FFmpeg struct {
	bin    string
	logger *slog.Logger
}

// NewFFmpeg locates the ffmpeg binary, preferring the configured path and
// falling back to a PATH lookup. Absence is a startup error, not a
// per-request one.
func NewFFmpeg(preferred string, logger *slog.Logger) (*FFmpeg, error) {
	bin, err := resolveFFmpeg(preferred)
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffmpeg: %w", err)
	}
	logger.Info("extractor initialised", "bin", bin)
	return &FFmpeg{bin: bin, logger: logger}, nil
}

func (f *FFmpeg) Extract(ctx context.Context, streamURL string, startSeconds, endSeconds int, outPath string) error {
	args := buildArgs(streamURL, startSeconds, endSeconds, outPath)
	cmd := exec.CommandContext(ctx, f.bin, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = io.Discard

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		f.logger.Warn("trim failed",
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrBuf.String(), 512),
		)
		return &ExtractError{ExitCode: exitCode, StderrTail: stderrBuf.String()}
	}

	f.logger.Info("trim complete",
		"clip_seconds", endSeconds-startSeconds,
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

// buildArgs assembles the trim invocation: fast-seek before the input,
// copy the streams, and normalize timestamps so the output starts at zero.
// Informational logging is suppressed; only errors reach stderr.
func buildArgs(streamURL string, startSeconds, endSeconds int, outPath string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", timefmt.Format(startSeconds),
		"-i", streamURL,
		"-t", strconv.Itoa(endSeconds - startSeconds),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		outPath,
	}
}

func resolveFFmpeg(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured ffmpeg %q not found", preferred)
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("no ffmpeg binary found on PATH")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
