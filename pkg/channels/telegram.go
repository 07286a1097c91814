package channels

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/tinyrelay/pkg/bus"
	"github.com/tinyland-inc/tinyrelay/pkg/logger"
	"github.com/tinyland-inc/tinyrelay/pkg/media"
)

// TelegramConfig holds the channel's settings.
type TelegramConfig struct {
	Token       string
	AllowFrom   []string
	PollTimeout int // long-poll timeout in seconds
}

// TelegramChannel receives updates via long polling and publishes them on
// the bus. Photos are downloaded here (largest variant) so the rest of the
// system only ever sees base64 content parts; a failed download drops that
// image and keeps the rest of the message.
type TelegramChannel struct {
	*BaseChannel
	config TelegramConfig

	bot    *telego.Bot
	http   *resty.Client
	cancel context.CancelFunc
}

func NewTelegramChannel(cfg TelegramConfig, msgBus *bus.MessageBus) (*TelegramChannel, error) {
	bot, err := telego.NewBot(cfg.Token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", msgBus, cfg.AllowFrom),
		config:      cfg,
		bot:         bot,
		http:        resty.New().SetTimeout(30 * time.Second),
	}, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	timeout := c.config.PollTimeout
	if timeout <= 0 {
		timeout = 10
	}

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout: timeout,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("starting telegram long polling: %w", err)
	}

	c.SetRunning(true)
	go func() {
		for update := range updates {
			if update.Message == nil {
				continue
			}
			c.handleMessage(pollCtx, update.Message)
		}
		c.SetRunning(false)
	}()

	logger.InfoC("telegram", "Telegram channel started")
	return nil
}

func (c *TelegramChannel) Stop(_ context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.SetRunning(false)
	return nil
}

func (c *TelegramChannel) handleMessage(ctx context.Context, msg *telego.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	senderID := ""
	if msg.From != nil {
		senderID = strconv.FormatInt(msg.From.ID, 10)
		if msg.From.Username != "" {
			senderID += "|" + msg.From.Username
		}
	}

	// Caption and text are mutually exclusive on Telegram.
	content := msg.Text
	if content == "" {
		content = msg.Caption
	}

	var images []media.ContentPart
	if len(msg.Photo) > 0 {
		if part, err := c.downloadPhoto(ctx, msg.Photo); err != nil {
			logger.WarnCF("telegram", "Error downloading photo", map[string]any{
				"chat_id": chatID,
				"error":   err.Error(),
			})
		} else {
			images = append(images, part)
		}
	}

	c.HandleMessage(
		strconv.Itoa(msg.MessageID),
		senderID,
		chatID,
		content,
		images,
		msg.MediaGroupID,
		nil,
	)
}

// downloadPhoto fetches the largest variant of a photo and returns it as a
// base64 content part.
func (c *TelegramChannel) downloadPhoto(ctx context.Context, variants []telego.PhotoSize) (media.ContentPart, error) {
	largest := variants[0]
	for _, v := range variants[1:] {
		if v.FileSize > largest.FileSize {
			largest = v
		}
	}

	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: largest.FileID})
	if err != nil {
		return media.ContentPart{}, fmt.Errorf("resolving file %s: %w", largest.FileID, err)
	}

	resp, err := c.http.R().SetContext(ctx).Get(c.bot.FileDownloadURL(file.FilePath))
	if err != nil {
		return media.ContentPart{}, fmt.Errorf("downloading %s: %w", file.FilePath, err)
	}
	if resp.IsError() {
		return media.ContentPart{}, fmt.Errorf("downloading %s: status %d", file.FilePath, resp.StatusCode())
	}

	return media.ImagePart("image/jpeg", base64.StdEncoding.EncodeToString(resp.Body())), nil
}

func (c *TelegramChannel) Send(ctx context.Context, out bus.OutboundMessage) error {
	chatID, err := strconv.ParseInt(out.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", out.ChatID, err)
	}

	params := tu.Message(tu.ID(chatID), out.Content)

	if out.ParseMode == bus.ParseModeMarkdownV2 {
		params = params.WithParseMode(telego.ModeMarkdownV2)
	}

	switch out.Markup {
	case bus.MarkupMainKeyboard:
		params = params.WithReplyMarkup(mainKeyboard())
	case bus.MarkupForceReply:
		params = params.WithReplyMarkup(&telego.ForceReply{ForceReply: true})
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("sending message to chat %s: %w", out.ChatID, err)
	}
	return nil
}

func mainKeyboard() *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(
		tu.KeyboardRow(
			tu.KeyboardButton(bus.ButtonViewContext),
			tu.KeyboardButton(bus.ButtonChangeRole),
		),
	).WithResizeKeyboard().WithOneTimeKeyboard()
}
