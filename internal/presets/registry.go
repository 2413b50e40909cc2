// Package presets holds the static catalogue of AI models and personas a user
// can select. The registry is built once and never mutated.
package presets

import "slices"

// Capability tags what kind of payload a model produces.
type Capability string

const (
	CapabilityText         Capability = "text"
	CapabilityImage        Capability = "image"
	CapabilitySpeechToText Capability = "speech_to_text"
	CapabilityTextToSpeech Capability = "text_to_speech"
)

// CustomPersonaKey is the reserved persona whose prompt is written by the user.
const CustomPersonaKey = "custom"

// GenerationParams are the sampling parameters sent to text backends.
type GenerationParams struct {
	Temperature      float32
	MaxTokens        int
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

// Model describes a selectable backend configuration.
type Model struct {
	Key         string
	Name        string
	Description string
	Style       string
	Capability  Capability
	// ProviderModel is the provider-side model id sent on the wire.
	ProviderModel string
	// Free models are selectable without a subscription.
	Free bool
	// Hidden models serve internal pipelines (speech) and never appear in menus.
	Hidden bool
	Params GenerationParams
}

// Persona is a named system prompt with optional parameter overrides.
type Persona struct {
	Key         string
	Name        string
	Description string
	Prompt      string
	Free        bool
	Params      *GenerationParams
}

// Registry is an immutable lookup of models and personas.
type Registry struct {
	models         map[string]Model
	modelOrder     []string
	personas       map[string]Persona
	personaOrder   []string
	defaultModel   string
	defaultPersona string
	suffix         string
}

// New builds a registry. The first free model and persona become the fallbacks
// unless defaultModel and defaultPersona name existing entries.
func New(models []Model, personas []Persona, defaultModel, defaultPersona, suffix string) *Registry {
	r := &Registry{
		models:   make(map[string]Model, len(models)),
		personas: make(map[string]Persona, len(personas)),
		suffix:   suffix,
	}

	for _, m := range models {
		if _, dup := r.models[m.Key]; dup {
			continue
		}
		r.models[m.Key] = m
		r.modelOrder = append(r.modelOrder, m.Key)
	}
	for _, p := range personas {
		if _, dup := r.personas[p.Key]; dup {
			continue
		}
		r.personas[p.Key] = p
		r.personaOrder = append(r.personaOrder, p.Key)
	}

	r.defaultModel = pickDefault(defaultModel, r.modelOrder, func(k string) bool { return r.models[k].Free })
	r.defaultPersona = pickDefault(defaultPersona, r.personaOrder, func(k string) bool { return r.personas[k].Free })

	return r
}

func pickDefault(wanted string, order []string, free func(string) bool) string {
	if slices.Contains(order, wanted) {
		return wanted
	}
	for _, k := range order {
		if free(k) {
			return k
		}
	}
	if len(order) > 0 {
		return order[0]
	}
	return ""
}

// Default returns the built-in catalogue.
func Default() *Registry {
	return New(builtinModels(), builtinPersonas(), "gpt-4o", "tarot_reader", GeneralSystemPrompt)
}

// WithDefaults returns a copy of the registry using other fallback keys.
func (r *Registry) WithDefaults(defaultModel, defaultPersona string) *Registry {
	models := make([]Model, 0, len(r.modelOrder))
	for _, k := range r.modelOrder {
		models = append(models, r.models[k])
	}
	personas := make([]Persona, 0, len(r.personaOrder))
	for _, k := range r.personaOrder {
		personas = append(personas, r.personas[k])
	}
	return New(models, personas, defaultModel, defaultPersona, r.suffix)
}

func (r *Registry) Model(key string) (Model, bool) {
	m, ok := r.models[key]
	return m, ok
}

func (r *Registry) Persona(key string) (Persona, bool) {
	p, ok := r.personas[key]
	return p, ok
}

// Models returns the menu-visible models in declaration order.
func (r *Registry) Models() []Model {
	out := make([]Model, 0, len(r.modelOrder))
	for _, k := range r.modelOrder {
		if m := r.models[k]; !m.Hidden {
			out = append(out, m)
		}
	}
	return out
}

// Personas returns every persona in declaration order.
func (r *Registry) Personas() []Persona {
	out := make([]Persona, 0, len(r.personaOrder))
	for _, k := range r.personaOrder {
		out = append(out, r.personas[k])
	}
	return out
}

func (r *Registry) DefaultModel() Model { return r.models[r.defaultModel] }

func (r *Registry) DefaultPersona() Persona { return r.personas[r.defaultPersona] }

// ResolveModel returns the model for key, or the default model when key is unknown.
func (r *Registry) ResolveModel(key string) Model {
	if m, ok := r.models[key]; ok {
		return m
	}
	return r.DefaultModel()
}

// ResolvePersona returns the persona for key, or the default persona when key is unknown.
func (r *Registry) ResolvePersona(key string) Persona {
	if p, ok := r.personas[key]; ok {
		return p
	}
	return r.DefaultPersona()
}

// EffectiveParams merges persona overrides over the model's parameters.
// Zero-valued override fields keep the model value.
func (r *Registry) EffectiveParams(model Model, persona Persona) GenerationParams {
	params := model.Params
	if persona.Params == nil {
		return params
	}

	o := persona.Params
	if o.Temperature != 0 {
		params.Temperature = o.Temperature
	}
	if o.MaxTokens != 0 {
		params.MaxTokens = o.MaxTokens
	}
	if o.TopP != 0 {
		params.TopP = o.TopP
	}
	if o.FrequencyPenalty != 0 {
		params.FrequencyPenalty = o.FrequencyPenalty
	}
	if o.PresencePenalty != 0 {
		params.PresencePenalty = o.PresencePenalty
	}
	return params
}

// SystemSuffix returns the ground rules appended to every persona prompt.
func (r *Registry) SystemSuffix() string {
	return r.suffix
}
