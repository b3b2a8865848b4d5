// Package bot runs the Telegram side of the clipper: long-polling for
// commands, translating them into clip requests, and sending the
// results back to the chat they came from.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/NikitosKh/clipbot/internal/clip"
	"github.com/NikitosKh/clipbot/internal/command"
	"github.com/NikitosKh/clipbot/internal/journal"
	"github.com/NikitosKh/clipbot/internal/telegram"
	"github.com/NikitosKh/clipbot/internal/timefmt"
)

const (
	offsetKey = "update_offset"

	pollTimeoutSeconds = 30
	pollBackoff        = 2 * time.Second

	greetingText = "Hi! Send /clip <url> <start> <end> and I'll cut that range out for you."
	usageText    = "Usage: /clip <url> <start> <end>\nExample: /clip https://youtu.be/abc 1:05 1:45"
	grammarText  = "Can't parse that 🤔"
	rangeText    = "End must be after start 🤔"
	workingText  = "⏳ Clipping…"
)

// Transport is the subset of the Telegram client the bot uses.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	SendVideo(ctx context.Context, chatID int64, path, caption string, supportsStreaming bool) error
}

// Submitter queues validated clip requests for processing.
type Submitter interface {
	Submit(ctx context.Context, req clip.Request, deliver clip.DeliverFunc, done clip.DoneFunc) error
}

type Bot struct {
	transport Transport
	orch      Submitter
	repo      journal.Repository
	logger    *slog.Logger
}

func New(transport Transport, orch Submitter, repo journal.Repository, logger *slog.Logger) *Bot {
	return &Bot{
		transport: transport,
		orch:      orch,
		repo:      repo,
		logger:    logger,
	}
}

// Run polls for updates until ctx is cancelled. The update offset is
// persisted after every batch so a restart never replays a command; on
// the very first run the backlog is dropped instead of replayed.
func (b *Bot) Run(ctx context.Context) error {
	offset, fresh, err := b.loadOffset(ctx)
	if err != nil {
		return err
	}
	if fresh {
		offset, err = b.dropPending(ctx)
		if err != nil && ctx.Err() == nil {
			b.logger.Warn("could not drop pending updates", "error", err)
		}
	}

	b.logger.Info("bot polling started", "offset", offset)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := b.transport.GetUpdates(ctx, offset, pollTimeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("poll failed", "error", err)
			select {
			case <-time.After(pollBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			b.handleUpdate(ctx, u)
		}
		if len(updates) > 0 {
			b.saveOffset(ctx, offset)
		}
	}
}

func (b *Bot) loadOffset(ctx context.Context) (offset int64, fresh bool, err error) {
	raw, err := b.repo.GetConfig(ctx, offsetKey)
	if err != nil {
		return 0, false, fmt.Errorf("load update offset: %w", err)
	}
	if raw == "" {
		return 0, true, nil
	}
	offset, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt update offset %q: %w", raw, err)
	}
	return offset, false, nil
}

func (b *Bot) saveOffset(ctx context.Context, offset int64) {
	if err := b.repo.SetConfig(ctx, offsetKey, strconv.FormatInt(offset, 10)); err != nil {
		b.logger.Warn("could not persist update offset", "offset", offset, "error", err)
	}
}

// dropPending skips everything queued before this process started.
// Offset -1 asks for only the newest pending update.
func (b *Bot) dropPending(ctx context.Context) (int64, error) {
	updates, err := b.transport.GetUpdates(ctx, -1, 0)
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}
	offset := updates[len(updates)-1].UpdateID + 1
	b.saveOffset(ctx, offset)
	return offset, nil
}

func (b *Bot) handleUpdate(ctx context.Context, u telegram.Update) {
	if u.Message == nil || u.Message.Text == "" {
		return
	}
	msg := u.Message

	cmd, rest := splitCommand(msg.Text)
	switch cmd {
	case "/start":
		b.reply(ctx, msg.Chat.ID, greetingText)
	case "/clip":
		b.handleClip(ctx, msg, rest)
	}
}

func (b *Bot) handleClip(ctx context.Context, msg *telegram.Message, rest string) {
	chatID := msg.Chat.ID

	args, err := command.Parse(rest)
	switch {
	case errors.Is(err, command.ErrUsage):
		b.reply(ctx, chatID, usageText)
		return
	case err != nil:
		b.reply(ctx, chatID, grammarText)
		return
	}

	req, err := clip.NewRequest(args.URL, args.Start, args.End)
	switch {
	case errors.Is(err, clip.ErrInvalidRange):
		b.reply(ctx, chatID, rangeText)
		return
	case err != nil:
		b.reply(ctx, chatID, grammarText)
		return
	}

	if err := b.repo.CreateRequest(ctx, &journal.Request{
		ID:           req.ID,
		ChatID:       chatID,
		SourceURL:    req.SourceURL,
		StartSeconds: req.StartSeconds,
		EndSeconds:   req.EndSeconds,
		Status:       journal.StatusPending,
	}); err != nil {
		b.logger.Warn("could not journal request", "request_id", req.ID, "error", err)
	}

	note, err := b.transport.SendMessage(ctx, chatID, workingText)
	if err != nil {
		b.logger.Warn("could not send progress note", "chat_id", chatID, "error", err)
	}
	if err := b.transport.SendChatAction(ctx, chatID, telegram.ChatActionUploadVideo); err != nil {
		b.logger.Debug("chat action failed", "chat_id", chatID, "error", err)
	}

	caption := fmt.Sprintf("[%s–%s] of %s",
		timefmt.Format(req.StartSeconds), timefmt.Format(req.EndSeconds), req.SourceURL)

	deliver := func(ctx context.Context, a clip.Artifact) error {
		return b.transport.SendVideo(ctx, chatID, a.Path, caption, true)
	}
	done := func(failMsg string) {
		b.finish(chatID, note, failMsg)
	}

	if err := b.orch.Submit(ctx, req, deliver, done); err != nil {
		b.logger.Error("could not queue request", "request_id", req.ID, "error", err)
		done("something went wrong")
	}
}

// finish clears or repurposes the progress note once the request is
// settled. Runs on a pool worker, so it uses a fresh context.
func (b *Bot) finish(chatID int64, note *telegram.Message, failMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if failMsg == "" {
		if note != nil {
			if err := b.transport.DeleteMessage(ctx, chatID, note.MessageID); err != nil {
				b.logger.Debug("could not delete progress note", "chat_id", chatID, "error", err)
			}
		}
		return
	}

	text := "⚠️ Failed: " + failMsg
	if note != nil {
		if err := b.transport.EditMessageText(ctx, chatID, note.MessageID, text); err == nil {
			return
		}
	}
	b.reply(ctx, chatID, text)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.transport.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn("reply failed", "chat_id", chatID, "error", err)
	}
}

// splitCommand separates "/clip@SomeBot rest of line" into the bare
// command and its argument text.
func splitCommand(text string) (cmd, rest string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd = text
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		cmd, rest = text[:i], strings.TrimSpace(text[i+1:])
	}
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, rest
}
