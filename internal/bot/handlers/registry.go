package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler represents a routing table entry with its middleware.
// When Match is set it takes precedence over HandlerType and Pattern.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Match       tgbot.MatchFunc
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// Command is an entry of the command menu shown by Telegram clients.
type Command struct {
	Name        string
	Description string
}

// Commands returns the public command menu.
func Commands() []Command {
	return []Command{
		{Name: "start", Description: "Перезапустить бота"},
		{Name: "model", Description: "Выбрать модель"},
		{Name: "persona", Description: "Выбрать роль"},
		{Name: "profile", Description: "Профиль"},
		{Name: "history", Description: "История запросов"},
		{Name: "speech", Description: "Голосовые настройки"},
		{Name: "subscribe", Description: "Оформить подписку"},
		{Name: "unsubscribe", Description: "Отменить подписку"},
		{Name: "help", Description: "Помощь"},
	}
}

func command(name string, handler tgbot.HandlerFunc, mw ...tgbot.Middleware) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     name,
		Handler:     handler,
		Middleware:  mw,
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
}

func callback(pattern string, matchType tgbot.MatchType, handler tgbot.HandlerFunc, mw ...tgbot.Middleware) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     pattern,
		Handler:     handler,
		Middleware:  mw,
		MatchType:   matchType,
	}
}

// RegisterAllCommands returns the routing table in registration order.
// Updates that match no entry go to the default handler.
func RegisterAllCommands(deps HandlerDeps) []RegisteredHandler {
	start := startHandler{deps}
	help := helpHandler{deps}
	models := modelHandler{deps}
	personas := personaHandler{deps}
	profiles := profileHandler{deps}
	speech := speechHandler{deps}
	history := historyHandler{deps}
	payments := paymentHandler{deps}
	admin := adminHandler{deps}

	adminOnly := AdminOnly(deps)

	return []RegisteredHandler{
		command("start", start.Handle),
		command("help", help.Handle),
		command("model", models.HandleMenu),
		command("persona", personas.HandleMenu),
		command("profile", profiles.Handle),
		command("speech", speech.HandleMenu),
		command("history", history.HandleFirstPage),
		command("subscribe", payments.HandleSubscribe),
		command("unsubscribe", payments.HandleUnsubscribe),
		command("admin", admin.HandlePanel, adminOnly),

		callback(callbackMenuModel, tgbot.MatchTypeExact, models.HandleMenu),
		callback(callbackMenuPersona, tgbot.MatchTypeExact, personas.HandleMenu),
		callback(callbackMenuProfile, tgbot.MatchTypeExact, profiles.Handle),
		callback(callbackMenuHistory, tgbot.MatchTypeExact, history.HandleFirstPage),
		callback(callbackMenuSpeech, tgbot.MatchTypeExact, speech.HandleMenu),
		callback(callbackSubscribe, tgbot.MatchTypeExact, payments.HandleSubscribe),
		callback(callbackStatistics, tgbot.MatchTypeExact, profiles.HandleStatistics),
		callback(callbackModelPrefix, tgbot.MatchTypePrefix, models.HandleSelect),
		callback(callbackPersonaPrefix, tgbot.MatchTypePrefix, personas.HandleSelect),
		callback(callbackSpeechPrefix, tgbot.MatchTypePrefix, speech.HandleToggle),
		callback(callbackHistoryPagePrefix, tgbot.MatchTypePrefix, history.HandlePage),
		callback(callbackHistoryClear, tgbot.MatchTypeExact, history.HandleClearPrompt),
		callback(callbackHistoryClearYes, tgbot.MatchTypeExact, history.HandleClearConfirm),
		callback(callbackHistoryClearNo, tgbot.MatchTypeExact, history.HandleClearCancel),
		callback(callbackAdminUsers, tgbot.MatchTypeExact, admin.HandleUsers, adminOnly),
		callback(callbackAdminGrant, tgbot.MatchTypeExact, admin.HandleGrantPrompt, adminOnly),
		callback(callbackAdminRevoke, tgbot.MatchTypeExact, admin.HandleRevokePrompt, adminOnly),
		callback(callbackAdminBroadcast, tgbot.MatchTypeExact, admin.HandleBroadcastPrompt, adminOnly),
		callback(callbackBroadcastSend, tgbot.MatchTypeExact, admin.HandleBroadcastSend, adminOnly),
		callback(callbackBroadcastCancel, tgbot.MatchTypeExact, admin.HandleBroadcastCancel, adminOnly),

		{Match: isPreCheckout, Handler: payments.HandlePreCheckout},
		{Match: isSuccessfulPayment, Handler: payments.HandleSuccessfulPayment},
	}
}

func isPreCheckout(update *models.Update) bool {
	return update.PreCheckoutQuery != nil
}

func isSuccessfulPayment(update *models.Update) bool {
	return update.Message != nil && update.Message.SuccessfulPayment != nil
}
