// Package persona maps persona keys to system prompts.
package persona

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrUnknownPersona is returned by Lookup for a key with no prompt.
var ErrUnknownPersona = errors.New("persona: unknown persona")

// Persona is one selectable assistant character.
type Persona struct {
	Key string
	// Name is how the CLI labels the assistant's replies.
	Name   string
	Prompt string
}

const travelPrompt = `You are a friendly and knowledgeable Travel Assistant named "Voyage".

Your expertise includes:
- Destination recommendations worldwide
- Travel planning and itineraries
- Local customs and cultural tips
- Budget advice and money-saving tips
- Accommodation and transportation suggestions
- Food and restaurant recommendations

Guidelines:
- Be enthusiastic but professional
- Ask clarifying questions to give better recommendations
- Remember details the user shares (preferences, budget, travel dates)
- Provide specific, actionable advice
- If you don't know something, admit it honestly

Start by greeting the user and asking how you can help with their travel plans.`

var builtin = map[string]Persona{
	"travel": {Key: "travel", Name: "Voyage",
		Prompt: travelPrompt},
	"professional": {Key: "professional", Name: "Assistant",
		Prompt: "You are a professional business assistant. Respond formally and concisely, focusing on actionable advice and clear communication."},
	"casual": {Key: "casual", Name: "Helper",
		Prompt: "You are a friendly, casual helper. Use conversational language, be warm and approachable, and feel free to use informal expressions."},
	"technical": {Key: "technical", Name: "Expert",
		Prompt: "You are a technical expert. Provide detailed, accurate technical explanations with relevant terminology. Include examples and best practices where appropriate."},
	"creative": {Key: "creative", Name: "Storyteller",
		Prompt: "You are a creative storyteller. Use vivid imagery, metaphors, and engaging narratives. Let your imagination flow and make responses entertaining."},
}

// Catalog is a read-only persona table.
type Catalog struct {
	personas map[string]Persona
}

// NewCatalog returns the built-in personas with overrides applied. An
// override for a built-in key replaces its prompt and keeps its name; a new
// key adds a persona named after the key.
func NewCatalog(overrides map[string]string) *Catalog {
	c := &Catalog{personas: maps.Clone(builtin)}
	for key, prompt := range overrides {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		p, ok := c.personas[key]
		if !ok {
			p = Persona{Key: key, Name: displayName(key)}
		}
		p.Prompt = prompt
		c.personas[key] = p
	}
	return c
}

// Lookup returns the persona for key, case-insensitively.
func (c *Catalog) Lookup(key string) (Persona, error) {
	p, ok := c.personas[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Persona{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownPersona, key, strings.Join(c.Keys(), ", "))
	}
	return p, nil
}

// Keys lists persona keys in sorted order.
func (c *Catalog) Keys() []string {
	return slices.Sorted(maps.Keys(c.personas))
}

// Lookup resolves key against the built-in personas.
func Lookup(key string) (Persona, error) {
	return NewCatalog(nil).Lookup(key)
}

func displayName(key string) string {
	return strings.ToUpper(key[:1]) + key[1:]
}
