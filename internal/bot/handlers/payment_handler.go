package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/personabot/internal/subscription"
)

// paymentHandler covers the invoice flow: subscribe, pre-checkout approval,
// successful payment activation and unsubscribe.
type paymentHandler struct {
	deps HandlerDeps
}

func (h paymentHandler) HandleSubscribe(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "subscribe")
	msgs := h.deps.Config.Messages

	a, ok := actorOf(update)
	if !ok {
		return
	}
	p, ok := loadProfile(ctx, b, h.deps, log, a)
	if !ok {
		return
	}
	answer(ctx, b, log, a.CallbackID, "", false)

	switch {
	case h.deps.Config.IsAdmin(a.UserID):
		reply(ctx, h.deps, log, a.ChatID, msgs.AdminPermanent, sendPlain)
		return
	case p.IsSubscribed:
		reply(ctx, h.deps, log, a.ChatID, fmt.Sprintf(msgs.AlreadySubscribed, subscriptionEnd(msgs.SubscriptionForever, p.SubscriptionEnd)), sendPlain)
		return
	}

	if err := h.deps.Subscriptions.SendInvoice(ctx, a.ChatID, a.UserID); err != nil {
		log.ErrorContext(ctx, "Failed to send subscription invoice", "error", err, "user_id", a.UserID)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}
	log.InfoContext(ctx, "Subscription invoice sent", "user_id", a.UserID)
}

func (h paymentHandler) HandleUnsubscribe(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "unsubscribe")
	msgs := h.deps.Config.Messages

	a, ok := actorOf(update)
	if !ok {
		return
	}
	p, ok := loadProfile(ctx, b, h.deps, log, a)
	if !ok {
		return
	}

	switch {
	case h.deps.Config.IsAdmin(a.UserID):
		reply(ctx, h.deps, log, a.ChatID, msgs.AdminPermanent, sendPlain)
		return
	case !p.IsSubscribed:
		reply(ctx, h.deps, log, a.ChatID, msgs.NotSubscribed, sendPlain)
		return
	}

	if err := h.deps.Store.DeactivateSubscription(ctx, a.UserID); err != nil {
		log.ErrorContext(ctx, "Failed to deactivate subscription", "error", err, "user_id", a.UserID)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}

	log.InfoContext(ctx, "User unsubscribed", "user_id", a.UserID)
	reply(ctx, h.deps, log, a.ChatID, msgs.Unsubscribed, sendPlain)
}

// HandlePreCheckout approves a checkout only for our own invoice payload at
// the configured price.
func (h paymentHandler) HandlePreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "pre_checkout")
	q := update.PreCheckoutQuery
	if q == nil {
		return
	}

	cfg := h.deps.Config.Subscription
	payer, ok := subscription.ParsePayload(q.InvoicePayload)
	valid := ok && q.From != nil && payer == q.From.ID && q.Currency == cfg.Currency && q.TotalAmount == cfg.Price

	params := &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, OK: valid}
	if !valid {
		params.ErrorMessage = h.deps.Config.Messages.PaymentRejected
		log.WarnContext(ctx, "Rejecting pre-checkout query", "payload", q.InvoicePayload, "currency", q.Currency, "amount", q.TotalAmount)
	}

	if _, err := b.AnswerPreCheckoutQuery(ctx, params); err != nil {
		log.ErrorContext(ctx, "Failed to answer pre-checkout query", "error", err, "query_id", q.ID)
	}
}

func (h paymentHandler) HandleSuccessfulPayment(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "successful_payment")

	a, ok := actorOf(update)
	if !ok || update.Message.SuccessfulPayment == nil {
		return
	}
	payment := update.Message.SuccessfulPayment

	if payer, ok := subscription.ParsePayload(payment.InvoicePayload); !ok || payer != a.UserID {
		log.WarnContext(ctx, "Payment payload does not match payer", "payload", payment.InvoicePayload, "user_id", a.UserID)
	}

	if _, ok := loadProfile(ctx, b, h.deps, log, a); !ok {
		return
	}

	end, err := h.deps.Subscriptions.ActivateFromPayment(ctx, a.UserID, payment.TotalAmount)
	if err != nil {
		log.ErrorContext(ctx, "Failed to activate subscription after payment", "error", err, "user_id", a.UserID,
			"charge_id", payment.TelegramPaymentChargeID)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}

	log.InfoContext(ctx, "Subscription activated from payment", "user_id", a.UserID, "ends_at", end, "amount", payment.TotalAmount)
	reply(ctx, h.deps, log, a.ChatID, fmt.Sprintf(h.deps.Config.Messages.SubscriptionActivated, h.deps.Subscriptions.Days()), sendPlain)
}
