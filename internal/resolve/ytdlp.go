package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// FormatPreference mirrors the provider-side filter: prefer an mp4 without
// AV1 video, fall back to any mp4, then to the provider default.
const FormatPreference = "best[ext=mp4][vcodec!*=av01]/best[ext=mp4]/best"

const resolveTimeout = 60 * time.Second

// YTDLPResolver queries video metadata by running yt-dlp with downloads
// disabled and parsing its JSON output.
type YTDLPResolver struct {
	bin    string
	logger *slog.Logger
}

// NewYTDLPResolver locates the yt-dlp binary, preferring the configured
// path and falling back to a PATH lookup.
func NewYTDLPResolver(preferred string, logger *slog.Logger) (*YTDLPResolver, error) {
	bin, err := resolveBinary(preferred)
	if err != nil {
		return nil, fmt.Errorf("cannot locate yt-dlp: %w", err)
	}
	logger.Info("resolver initialised", "bin", bin, "format", FormatPreference)
	return &YTDLPResolver{bin: bin, logger: logger}, nil
}

// Resolve runs `yt-dlp --skip-download --dump-single-json` and selects a
// stream from the reported metadata. Blocks until the provider answers.
func (r *YTDLPResolver) Resolve(ctx context.Context, sourceURL string) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	args := []string{
		"--quiet", "--no-warnings",
		"--skip-download",
		"--dump-single-json",
		"-f", FormatPreference,
		sourceURL,
	}
	cmd := exec.CommandContext(ctx, r.bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		tail := tailString(stderr.String(), 512)
		r.logger.Warn("provider query failed",
			"url", sourceURL,
			"error", err,
			"stderr_tail", tail,
		)
		return nil, &ResolutionError{Err: fmt.Errorf("yt-dlp: %w: %s", err, tail)}
	}

	var info Info
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, &ResolutionError{Err: fmt.Errorf("parse provider metadata: %w", err)}
	}

	stream, err := SelectStream(&info)
	if err != nil {
		return nil, err
	}

	r.logger.Info("stream resolved",
		"url", sourceURL,
		"ext", stream.Ext,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return stream, nil
}

func resolveBinary(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured yt-dlp %q not found", preferred)
	}
	for _, name := range []string{"yt-dlp", "youtube-dl"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no yt-dlp binary found on PATH (tried yt-dlp, youtube-dl)")
}

func tailString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}
