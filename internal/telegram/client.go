package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the public Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"

	// ChatActionUploadVideo shows the "uploading a video" indicator.
	ChatActionUploadVideo = "upload_video"

	// uploadTimeout bounds a single video upload. Large clips on slow
	// links can exceed it; the send is then reported as a net timeout.
	uploadTimeout = 120 * time.Second
)

// Client talks to the Telegram Bot API over HTTP. Form-encoded methods
// share one client; video uploads get a second client with a longer
// timeout because multipart bodies can be hundreds of megabytes.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	upload  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 90 * time.Second},
		upload:  &http.Client{Timeout: uploadTimeout},
		logger:  logger,
	}
}

// call posts a form-encoded Bot API method and decodes the envelope.
// A non-ok envelope becomes an *APIError.
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(method, resp.Body)
}

func decodeEnvelope(method string, body io.Reader) (json.RawMessage, error) {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", method, err)
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", method, err)
	}
	if !env.OK {
		return nil, &APIError{Code: env.ErrorCode, Description: env.Description}
	}
	return env.Result, nil
}

// GetUpdates long-polls for message updates at or after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(timeoutSeconds))
	params.Set("allowed_updates", `["message"]`)
	if offset != 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}

	result, err := c.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("getUpdates: decode updates: %w", err)
	}
	return updates, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)

	result, err := c.call(ctx, "sendMessage", params)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(result, &msg); err != nil {
		return nil, fmt.Errorf("sendMessage: decode message: %w", err)
	}
	return &msg, nil
}

func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	params.Set("text", text)

	_, err := c.call(ctx, "editMessageText", params)
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))

	_, err := c.call(ctx, "deleteMessage", params)
	return err
}

func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("action", action)

	_, err := c.call(ctx, "sendChatAction", params)
	return err
}

// SendVideo uploads the file at path as a streaming multipart body so
// the clip never has to fit in memory.
func (c *Client) SendVideo(ctx context.Context, chatID int64, path, caption string, supportsStreaming bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("sendVideo: open clip: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeVideoForm(mw, chatID, caption, supportsStreaming, filepath.Base(path), f))
	}()

	endpoint := fmt.Sprintf("%s/bot%s/sendVideo", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return fmt.Errorf("sendVideo: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("uploading clip", "chat_id", chatID, "file", filepath.Base(path))

	resp, err := c.upload.Do(req)
	if err != nil {
		return fmt.Errorf("sendVideo: %w", err)
	}
	defer resp.Body.Close()

	_, err = decodeEnvelope("sendVideo", resp.Body)
	return err
}

func writeVideoForm(mw *multipart.Writer, chatID int64, caption string, supportsStreaming bool, filename string, src io.Reader) error {
	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return err
		}
	}
	if supportsStreaming {
		if err := mw.WriteField("supports_streaming", "true"); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("video", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}
