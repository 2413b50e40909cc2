package presets

var textParams = GenerationParams{
	Temperature: 0.7,
	MaxTokens:   2000,
	TopP:        1,
}

func builtinModels() []Model {
	return []Model{
		{
			Key:           "gpt-4o",
			Name:          "GPT-4o",
			Description:   "OpenAI выпустили его как своего героя. Быстрый, умный, немного занудливый, но если нужно — может написать вам пьесу Шекспира или решить задачку по физике.",
			Style:         "нейтральный",
			Capability:    CapabilityText,
			ProviderModel: "gpt-4o",
			Free:          true,
			Params:        textParams,
		},
		{
			Key:           "yandex_gpt",
			Name:          "Yandex GPT",
			Description:   "Наш местный ИИ, который пока ещё растёт. Зато говорит на родном языке и старается быть полезным даже тогда, когда не знает ответ.",
			Style:         "формальный",
			Capability:    CapabilityText,
			ProviderModel: "yandexgpt",
			Params:        textParams,
		},
		{
			Key:           "gigachat",
			Name:          "GigaChat",
			Description:   "Сбер прислал своего игрока. Умеет почти всё, но иногда путает «как» и «зачем». Полезен, если ты из России и не хочешь платить долларом.",
			Style:         "творческий",
			Capability:    CapabilityText,
			ProviderModel: "GigaChat",
			Params:        textParams,
		},
		{
			Key:           "sonar",
			Name:          "Perplexity",
			Description:   "Это тот парень, который всегда спорит с ChatGPT. Он уверен, что прав, а ты должен сам решить, кому верить.",
			Style:         "аналитический",
			Capability:    CapabilityText,
			ProviderModel: "sonar",
			Params:        textParams,
		},
		{
			Key:           "deepseek",
			Name:          "DeepSeek",
			Description:   "Китайский гений, который умеет всё, но делает это тихо и без лишнего шума. Хорош для кода и аналитики.",
			Style:         "аналитический",
			Capability:    CapabilityText,
			ProviderModel: "deepseek-chat",
			Params:        textParams,
		},
		{
			Key:           "claude",
			Name:          "Claude 3.7",
			Description:   "Он как учёный в очках: внимательный, аккуратный и чуть занудливый. Лучший выбор для сложных вопросов и дипломных работ.",
			Style:         "аналитический",
			Capability:    CapabilityText,
			ProviderModel: "claude-3-7-sonnet-latest",
			Params:        textParams,
		},
		{
			Key:           "gemini",
			Name:          "Gemini",
			Description:   "Google собрал отличника, который читает всё подряд. Отвечает быстро и охотно объясняет на примерах.",
			Style:         "дружелюбный",
			Capability:    CapabilityText,
			ProviderModel: "gemini-2.0-flash",
			Params:        textParams,
		},
		{
			Key:           "dalle3",
			Name:          "DALL·E 3",
			Description:   "Художник, который не ошибается. Нарисует тебе портрет, логотип или просто «что-то страшное». Пишет лучше, чем рисует.",
			Style:         "вдохновляющий",
			Capability:    CapabilityImage,
			ProviderModel: "dall-e-3",
		},
		{
			Key:           "midjourney",
			Name:          "Midjourney",
			Description:   "Тот самый маг, который создаёт картинки из воздуха. Иногда не понимает тебя, но если поймёт — получишь шедевр.",
			Style:         "вдохновляющий",
			Capability:    CapabilityImage,
			ProviderModel: "midjourney",
		},
		{
			Key:           "whisper",
			Name:          "Whisper",
			Capability:    CapabilitySpeechToText,
			ProviderModel: "whisper-1",
			Hidden:        true,
		},
		{
			Key:           "tts",
			Name:          "TTS",
			Capability:    CapabilityTextToSpeech,
			ProviderModel: "tts-1",
			Hidden:        true,
		},
	}
}

func builtinPersonas() []Persona {
	return []Persona{
		{
			Key:         "tarot_reader",
			Name:        "🔮 Таролог",
			Description: "Делает расклады и толкует карты",
			Prompt:      tarotReaderPrompt,
			Free:        true,
			Params:      &GenerationParams{Temperature: 0.9},
		},
		{
			Key:         "compatibility",
			Name:        "💞 Совместимость",
			Description: "Оценивает совместимость пары",
			Prompt:      compatibilityPrompt,
			Free:        true,
			Params:      &GenerationParams{Temperature: 0.8},
		},
		{
			Key:         "numerologist",
			Name:        "🔢 Нумеролог",
			Description: "Раскрывает смысл чисел и дат",
			Prompt:      numerologistPrompt,
			Free:        true,
			Params:      &GenerationParams{Temperature: 0.8},
		},
		{
			Key:         "default",
			Name:        "🗣️ Обычный",
			Description: "Стандартный помощник",
			Prompt:      defaultPrompt,
		},
		{
			Key:         "translator",
			Name:        "💬 Переводчик",
			Description: "Переводит текст между языками",
			Prompt:      translatorPrompt,
			Params:      &GenerationParams{Temperature: 0.3},
		},
		{
			Key:         "philosopher",
			Name:        "🧙‍♂️ Философ",
			Description: "Размышляет о жизни и смысле",
			Prompt:      philosopherPrompt,
			Params:      &GenerationParams{Temperature: 0.9, PresencePenalty: 0.6},
		},
		{
			Key:         "chef",
			Name:        "🧑‍🍳 Шеф-повар",
			Description: "Поможет с рецептами и кулинарией",
			Prompt:      chefPrompt,
		},
		{
			Key:         "mathematician",
			Name:        "🧑‍🎓 Математик",
			Description: "Решает задачи и уравнения",
			Prompt:      mathematicianPrompt,
			Params:      &GenerationParams{Temperature: 0.2},
		},
		{
			Key:         "best_friend",
			Name:        "🙋‍♂️ Лучший друг",
			Description: "Поддерживает и слушает",
			Prompt:      bestFriendPrompt,
			Params:      &GenerationParams{Temperature: 0.9},
		},
		{
			Key:         "villain",
			Name:        "👺 Злодей",
			Description: "Наглый и провокационный собеседник",
			Prompt:      villainPrompt,
			Params:      &GenerationParams{Temperature: 1, FrequencyPenalty: 0.4},
		},
		{
			Key:         CustomPersonaKey,
			Name:        "👤 Создать новую роль",
			Description: "Настройте роль самостоятельно",
		},
	}
}
