package config

import "time"

const (
	defaultProviderTimeout = 90 * time.Second
	defaultBreakerCooldown = 30 * time.Second
	defaultRedisLockTTL    = 5 * time.Minute
	defaultTransientTTL    = 5 * time.Second
)

var defaults = map[string]any{
	"logger.level": "info",
	"logger.json":  false,

	"database.path": "storage.db",

	"redis.addr":     "",
	"redis.password": "",
	"redis.db":       0,
	"redis.lock_ttl": defaultRedisLockTTL,

	"telegram.token":                "",
	"telegram.admin_ids":            []int64{},
	"telegram.support_url":          "",
	"telegram.drop_pending_updates": true,
	"telegram.workers":              16,

	"providers.timeout":             defaultProviderTimeout,
	"providers.breaker_failures":    5,
	"providers.breaker_cooldown":    defaultBreakerCooldown,
	"providers.openai.api_key":      "",
	"providers.openai.base_url":     "https://api.openai.com/v1",
	"providers.perplexity.api_key":  "",
	"providers.perplexity.base_url": "https://api.perplexity.ai",
	"providers.deepseek.api_key":    "",
	"providers.deepseek.base_url":   "https://api.deepseek.com",
	"providers.gemini.api_key":      "",
	"providers.gemini.model":        "gemini-2.0-flash",

	"quota.free_limit":      2,
	"quota.limits":          map[string]int{},
	"quota.quota_keys":      map[string]string{},
	"quota.max_history":     10,
	"quota.context_tokens":  6000,
	"quota.default_model":   "gpt-4o",
	"quota.default_persona": "tarot_reader",

	"subscription.price":       150,
	"subscription.days":        30,
	"subscription.currency":    "XTR",
	"subscription.title":       "Подписка на бота",
	"subscription.description": "ℹ️ Доступ ко всем моделям и ролям без ограничений на 30 дней.\n‼️ Оформление подписки не подразумевает возврата средств в будущем",
	"subscription.label":       "Ежемесячная подписка",

	"speech.transcriber": "whisper",
	"speech.synthesizer": "tts",
	"speech.voice":       "alloy",

	"notices.transient_ttl": defaultTransientTTL,

	"broadcast.rate":  25.0,
	"broadcast.burst": 1,

	"metrics.enabled": false,
	"metrics.addr":    ":9090",

	"scheduler.tasks": map[string]any{
		"subscription_expiry": map[string]any{"enabled": true, "schedule": "0 0 9 * * *"},
		"sql_maintenance":     map[string]any{"enabled": true, "schedule": "0 0 4 * * 0"},
	},

	"messages.welcome":                "👋 Привет! Я ваш ИИ-ассистент. Просто напишите вопрос, а модель и роль можно выбрать в меню.",
	"messages.help":                   "ℹ️ Команды:\n/model — выбрать модель\n/persona — выбрать роль\n/profile — профиль\n/history — история запросов\n/speech — голосовые настройки\n/subscribe — оформить подписку",
	"messages.unknown_command":        "⚠️ Неизвестная команда",
	"messages.busy":                   "⏳ Пожалуйста, дождитесь ответа на предыдущее сообщение",
	"messages.model_unavailable":      "❌ Данная модель временно недоступна.",
	"messages.limit_exhausted":        "❌ Лимит использования %s исчерпан",
	"messages.usage_denied":           "❌ Эта модель недоступна",
	"messages.upsell":                 ".\n\nС подпиской ограничения на использование ИИ исчезнут",
	"messages.generating_image":       "🎨 %s генерирует изображение...",
	"messages.thinking":               "💭 %s формулирует ответ как %s",
	"messages.rate_limited":           "🚦 Слишком много запросов к модели. Попробуйте чуть позже.",
	"messages.provider_error":         "⚠️ Модель вернула ошибку. Попробуйте позже.",
	"messages.provider_unavailable":   "🔌 Модель сейчас не отвечает. Попробуйте позже.",
	"messages.content_policy":         "🥲 Ваш запрос не соответствует политике безопасности",
	"messages.general_error":          "❌ Произошла ошибка при обработке запроса. Если она повторяется, напишите в поддержку.",
	"messages.support_button":         "🛟 Поддержка",
	"messages.subscribe_to_unlock":    "❗️Подпишись, чтобы разблокировать эту функцию",
	"messages.subscribe_model":        "❗️Подпишись, чтобы разблокировать эту модель",
	"messages.subscribe_persona":      "❗️Подпишись, чтобы разблокировать эту роль",
	"messages.voice_transcript":       "🎙️Распознанный текст\n<code>%s</code>",
	"messages.voice_failed":           "⚠️ Не удалось распознать голосовое сообщение",
	"messages.custom_prompt_request":  "✍️ Опишите роль, которую должен играть ассистент:",
	"messages.custom_prompt_saved":    "✅ Новая роль сохранена",
	"messages.custom_prompt_empty":    "⚠️ Описание роли не может быть пустым",
	"messages.custom_prompt_too_long": "⚠️ Описание роли слишком длинное (максимум %d символов)",
	"messages.model_menu":             "🧠 Выберите модель:",
	"messages.persona_menu":           "🎭 Выберите роль:",
	"messages.model_selected":         "🧠 <b>%s</b>\n\nℹ️ <i>%s</i>",
	"messages.persona_selected":       "<b>%s</b>\n\nℹ️ <i>%s</i>",
	"messages.already_selected":       "✅ Уже выбрано",
	"messages.profile":                "👤 <b>Профиль</b>\n\n🆔 ID: <code>%d</code>\n🧠 Модель: %s\n🎭 Роль: %s\n💳 Подписка: %s\n📅 С нами с: %s",
	"messages.statistics":             "📊 <b>Статистика за месяц</b>\n\n%s",
	"messages.statistics_empty":       "Пока нет запросов в этом месяце.",
	"messages.subscription_none":      "нет",
	"messages.subscription_forever":   "бессрочно",
	"messages.subscription_until":     "до %s",
	"messages.speech_on":              "✅ вкл",
	"messages.speech_off":             "❌ выкл",
	"messages.speech_settings":        "🎙️ <b>Голосовые настройки</b>\n\nОбработка голосовых: %s\nОтвет голосом: %s",
	"messages.history_empty":          "История запросов пуста.",
	"messages.history_end":            "⛔ Это конец истории.",
	"messages.history_header":         "📖 История запросов:",
	"messages.history_entry":          "🕓 %s · %s\n❓ %s\n💬 %s",
	"messages.clear_confirm":          "🗑 Вы уверены, что хотите очистить историю запросов?",
	"messages.history_cleared":        "🗑️ История успешно очищена. Удалено записей: %d",
	"messages.clear_cancelled":        "↩️ Очистка истории отменена",
	"messages.subscription_activated": "✅ Вы успешно оформили подписку на %d дней!",
	"messages.already_subscribed":     "✅ У вас уже есть активная подписка до %s",
	"messages.admin_permanent":        "👑 Вы — админ. Подписка активна навсегда.",
	"messages.unsubscribed":           "❌ Вы отписались от бота.",
	"messages.not_subscribed":         "ℹ️ У вас нет активной подписки.",
	"messages.payment_rejected":       "Платёж не может быть принят. Попробуйте оформить подписку заново.",
	"messages.not_authorized":         "⛔ Нет доступа",
	"messages.admin_panel":            "🔐 Панель администратора",
	"messages.users_empty":            "🫥 База данных пуста.",
	"messages.users_header":           "👥 Пользователи (%d):",
	"messages.grant_prompt":           "✍️ Введите user_id или @username через запятую, чтобы выдать подписку:",
	"messages.revoke_prompt":          "✍️ Введите user_id или @username через запятую, чтобы отозвать подписку:",
	"messages.grant_done":             "✅ Подписка выдана: %s",
	"messages.revoke_done":            "✅ Подписка отозвана: %s",
	"messages.targets_not_found":      "❌ Ни один пользователь не найден",
	"messages.broadcast_prompt":       "✍️ Введите текст уведомления о техническом обслуживании:",
	"messages.broadcast_confirm":      "📣 Отправить уведомление всем пользователям?\n\n%s",
	"messages.broadcast_in_progress":  "⏳ Рассылка уведомлений...",
	"messages.broadcast_report":       "🔔 Уведомлено пользователей: %d\n⚠️ Не доставлено: %d",
	"messages.broadcast_cancelled":    "❌ Рассылка отменена",
}
