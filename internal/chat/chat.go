// Package chat defines the messaging capabilities the core consumes. The
// Telegram implementation lives in internal/telegram.
package chat

import "context"

// MessageRef identifies a delivered message so it can be edited or deleted.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Button is an inline keyboard button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is an inline keyboard laid out in rows.
type Keyboard [][]Button

// SendOptions tune a text delivery.
type SendOptions struct {
	HTML bool
	// SupportButton appends a button linking to the support contact.
	SupportButton bool
	Keyboard      Keyboard
}

// Messenger delivers messages. Implementations return delivery errors and
// callers log them without failing the surrounding request.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) (MessageRef, error)
	SendImage(ctx context.Context, chatID int64, image []byte, caption string) (MessageRef, error)
	SendAudio(ctx context.Context, chatID int64, audio []byte) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opts SendOptions) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
}

// FileFetcher downloads inbound files such as voice messages.
type FileFetcher interface {
	FetchInboundFile(ctx context.Context, fileID string) ([]byte, error)
}

// Invoice is a payment request in the platform's currency.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Label       string
	Amount      int
}

// InvoiceSender sends payment invoices.
type InvoiceSender interface {
	SendInvoice(ctx context.Context, chatID int64, invoice Invoice) (MessageRef, error)
}
