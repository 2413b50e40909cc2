package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/personabot/internal/chat"
	apperrors "github.com/edgard/personabot/internal/errors"
)

const (
	maxInboundFileSize = 20 << 20
	downloadTimeout    = 30 * time.Second

	imageFileName = "image.png"
	voiceFileName = "reply.ogg"
)

// Messenger implements chat.Messenger, chat.FileFetcher and chat.InvoiceSender
// on top of the Bot API. Every failure comes back as a delivery error.
type Messenger struct {
	bot         *bot.Bot
	supportURL  string
	supportText string
	httpClient  *http.Client
	log         *slog.Logger
}

var (
	_ chat.Messenger     = (*Messenger)(nil)
	_ chat.FileFetcher   = (*Messenger)(nil)
	_ chat.InvoiceSender = (*Messenger)(nil)
)

// NewMessenger creates a Messenger. supportURL may be empty, in which case the
// support button is never added.
func NewMessenger(b *bot.Bot, supportURL, supportText string, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{
		bot:         b,
		supportURL:  supportURL,
		supportText: supportText,
		httpClient:  &http.Client{Timeout: downloadTimeout},
		log:         logger.With("component", "messenger"),
	}
}

func (m *Messenger) SendText(ctx context.Context, chatID int64, text string, opts chat.SendOptions) (chat.MessageRef, error) {
	params := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: m.markup(opts),
	}
	if opts.HTML {
		params.ParseMode = models.ParseModeHTML
	}

	msg, err := m.bot.SendMessage(ctx, params)
	if err != nil {
		return chat.MessageRef{}, apperrors.NewDeliveryError("failed to send message", err)
	}
	return chat.MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

func (m *Messenger) SendImage(ctx context.Context, chatID int64, image []byte, caption string) (chat.MessageRef, error) {
	msg, err := m.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: imageFileName, Data: bytes.NewReader(image)},
		Caption: caption,
	})
	if err != nil {
		return chat.MessageRef{}, apperrors.NewDeliveryError("failed to send photo", err)
	}
	return chat.MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

func (m *Messenger) SendAudio(ctx context.Context, chatID int64, audio []byte) (chat.MessageRef, error) {
	msg, err := m.bot.SendVoice(ctx, &bot.SendVoiceParams{
		ChatID: chatID,
		Voice:  &models.InputFileUpload{Filename: voiceFileName, Data: bytes.NewReader(audio)},
	})
	if err != nil {
		return chat.MessageRef{}, apperrors.NewDeliveryError("failed to send voice", err)
	}
	return chat.MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

func (m *Messenger) EditText(ctx context.Context, ref chat.MessageRef, text string, opts chat.SendOptions) error {
	params := &bot.EditMessageTextParams{
		ChatID:      ref.ChatID,
		MessageID:   ref.MessageID,
		Text:        text,
		ReplyMarkup: m.markup(opts),
	}
	if opts.HTML {
		params.ParseMode = models.ParseModeHTML
	}

	if _, err := m.bot.EditMessageText(ctx, params); err != nil {
		return apperrors.NewDeliveryError("failed to edit message", err)
	}
	return nil
}

func (m *Messenger) DeleteMessage(ctx context.Context, ref chat.MessageRef) error {
	if _, err := m.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: ref.ChatID, MessageID: ref.MessageID}); err != nil {
		return apperrors.NewDeliveryError("failed to delete message", err)
	}
	return nil
}

func (m *Messenger) SendInvoice(ctx context.Context, chatID int64, invoice chat.Invoice) (chat.MessageRef, error) {
	msg, err := m.bot.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:      chatID,
		Title:       invoice.Title,
		Description: invoice.Description,
		Payload:     invoice.Payload,
		Currency:    invoice.Currency,
		Prices:      []models.LabeledPrice{{Label: invoice.Label, Amount: invoice.Amount}},
	})
	if err != nil {
		return chat.MessageRef{}, apperrors.NewDeliveryError("failed to send invoice", err)
	}
	return chat.MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

// FetchInboundFile resolves fileID with getFile and downloads the content.
func (m *Messenger) FetchInboundFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := m.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, apperrors.NewDeliveryError("failed to resolve file", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.bot.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create file request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewDeliveryError("failed to download file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewDeliveryError(fmt.Sprintf("file download returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInboundFileSize+1))
	if err != nil {
		return nil, apperrors.NewDeliveryError("failed to read file", err)
	}
	if len(data) > maxInboundFileSize {
		return nil, apperrors.NewDeliveryError("inbound file is too large", nil)
	}

	m.log.DebugContext(ctx, "Downloaded inbound file", "file_id", fileID, "size", len(data))
	return data, nil
}

// markup returns nil when there is nothing to attach, so the field is omitted.
func (m *Messenger) markup(opts chat.SendOptions) models.ReplyMarkup {
	rows := Keyboard(opts.Keyboard)
	if opts.SupportButton && m.supportURL != "" {
		rows = append(rows, []models.InlineKeyboardButton{{Text: m.supportText, URL: m.supportURL}})
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// Keyboard converts a chat keyboard to Bot API rows.
func Keyboard(kb chat.Keyboard) [][]models.InlineKeyboardButton {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]models.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: btn.Text, CallbackData: btn.Data, URL: btn.URL})
		}
		rows = append(rows, buttons)
	}
	return rows
}
