package handlers

import (
	"strconv"

	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/presets"
)

const (
	callbackMenuModel         = "menu_model"
	callbackMenuPersona       = "menu_persona"
	callbackMenuProfile       = "menu_profile"
	callbackMenuHistory       = "menu_history"
	callbackMenuSpeech        = "menu_speech"
	callbackSubscribe         = "subscribe"
	callbackStatistics        = "statistics"
	callbackModelPrefix       = "ai_"
	callbackPersonaPrefix     = "role_"
	callbackSpeechPrefix      = "speech_"
	callbackSpeechInput       = callbackSpeechPrefix + "input"
	callbackSpeechReply       = callbackSpeechPrefix + "reply"
	callbackHistoryPagePrefix = "history_page_"
	callbackHistoryClear      = "history_clear"
	callbackHistoryClearYes   = "history_clear_yes"
	callbackHistoryClearNo    = "history_clear_no"
	callbackAdminUsers        = "admin_users"
	callbackAdminGrant        = "admin_grant"
	callbackAdminRevoke       = "admin_revoke"
	callbackAdminBroadcast    = "admin_broadcast"
	callbackBroadcastSend     = "broadcast_send"
	callbackBroadcastCancel   = "broadcast_cancel"
)

const (
	buttonModel      = "🧠 Модель"
	buttonPersona    = "🎭 Роль"
	buttonProfile    = "👤 Профиль"
	buttonHistory    = "📖 История"
	buttonSpeech     = "🎙️ Голос"
	buttonSubscribe  = "💳 Подписка"
	buttonStatistics = "📊 Статистика"
	buttonPrev       = "⬅️"
	buttonNext       = "➡️"
	buttonClear      = "🗑 Очистить"
	buttonYes        = "✅ Да"
	buttonNo         = "❌ Нет"
	buttonUsers      = "👥 Пользователи"
	buttonGrant      = "➕ Выдать подписку"
	buttonRevoke     = "➖ Отозвать подписку"
	buttonBroadcast  = "📣 Уведомление"
	buttonSend       = "📣 Отправить"
	buttonCancel     = "❌ Отмена"
	buttonVoiceIn    = "🎙️ Обработка голосовых"
	buttonVoiceOut   = "🔊 Ответ голосом"

	markSelected = "✅ "
	markLocked   = "🔒 "

	menuColumns     = 2
	historyPageSize = 2
)

func mainMenuKeyboard() chat.Keyboard {
	return chat.Keyboard{
		{{Text: buttonModel, Data: callbackMenuModel}, {Text: buttonPersona, Data: callbackMenuPersona}},
		{{Text: buttonProfile, Data: callbackMenuProfile}, {Text: buttonHistory, Data: callbackMenuHistory}},
		{{Text: buttonSpeech, Data: callbackMenuSpeech}, {Text: buttonSubscribe, Data: callbackSubscribe}},
	}
}

func grid(buttons []chat.Button, columns int) chat.Keyboard {
	var kb chat.Keyboard
	for len(buttons) > 0 {
		n := min(columns, len(buttons))
		kb = append(kb, buttons[:n])
		buttons = buttons[n:]
	}
	return kb
}

func optionLabel(name string, selected, locked bool) string {
	switch {
	case selected:
		return markSelected + name
	case locked:
		return markLocked + name
	default:
		return name
	}
}

func modelKeyboard(models []presets.Model, selected string, subscribed bool) chat.Keyboard {
	buttons := make([]chat.Button, 0, len(models))
	for _, m := range models {
		buttons = append(buttons, chat.Button{
			Text: optionLabel(m.Name, m.Key == selected, !m.Free && !subscribed),
			Data: callbackModelPrefix + m.Key,
		})
	}
	return grid(buttons, menuColumns)
}

func personaKeyboard(personas []presets.Persona, selected string, subscribed bool) chat.Keyboard {
	buttons := make([]chat.Button, 0, len(personas))
	for _, p := range personas {
		buttons = append(buttons, chat.Button{
			Text: optionLabel(p.Name, p.Key == selected, !p.Free && !subscribed),
			Data: callbackPersonaPrefix + p.Key,
		})
	}
	return grid(buttons, menuColumns)
}

func profileKeyboard(subscribed bool) chat.Keyboard {
	kb := chat.Keyboard{{{Text: buttonStatistics, Data: callbackStatistics}}}
	if !subscribed {
		kb = append(kb, []chat.Button{{Text: buttonSubscribe, Data: callbackSubscribe}})
	}
	return kb
}

func speechKeyboard(inputLabel, replyLabel string) chat.Keyboard {
	return chat.Keyboard{
		{{Text: buttonVoiceIn + ": " + inputLabel, Data: callbackSpeechInput}},
		{{Text: buttonVoiceOut + ": " + replyLabel, Data: callbackSpeechReply}},
	}
}

// historyKeyboard always offers "next" so that paging past the end can be
// reported to the user.
func historyKeyboard(offset int) chat.Keyboard {
	var nav []chat.Button
	if offset > 0 {
		nav = append(nav, chat.Button{Text: buttonPrev, Data: historyPageData(max(offset-historyPageSize, 0))})
	}
	nav = append(nav, chat.Button{Text: buttonNext, Data: historyPageData(offset + historyPageSize)})

	return chat.Keyboard{nav, {{Text: buttonClear, Data: callbackHistoryClear}}}
}

func historyPageData(offset int) string {
	return callbackHistoryPagePrefix + strconv.Itoa(offset)
}

func clearConfirmKeyboard() chat.Keyboard {
	return chat.Keyboard{{
		{Text: buttonYes, Data: callbackHistoryClearYes},
		{Text: buttonNo, Data: callbackHistoryClearNo},
	}}
}

func adminKeyboard() chat.Keyboard {
	return chat.Keyboard{
		{{Text: buttonUsers, Data: callbackAdminUsers}},
		{{Text: buttonGrant, Data: callbackAdminGrant}, {Text: buttonRevoke, Data: callbackAdminRevoke}},
		{{Text: buttonBroadcast, Data: callbackAdminBroadcast}},
	}
}

func broadcastConfirmKeyboard() chat.Keyboard {
	return chat.Keyboard{{
		{Text: buttonSend, Data: callbackBroadcastSend},
		{Text: buttonCancel, Data: callbackBroadcastCancel},
	}}
}
