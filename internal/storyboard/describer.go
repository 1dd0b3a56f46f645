/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storyboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Describer returns a textual storyboard description for one scene.
type Describer interface {
	Describe(ctx context.Context, rec SceneRecord, prompt string) (string, error)
}

// DescriberFunc adapts a function to Describer.
type DescriberFunc func(ctx context.Context, rec SceneRecord, prompt string) (string, error)

func (f DescriberFunc) Describe(ctx context.Context, rec SceneRecord, prompt string) (string, error) {
	return f(ctx, rec, prompt)
}

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultMaxTokens = 300

	systemPrompt = "You are a professional storyboard artist and cinematographer. Describe storyboard frames concisely and vividly."
)

// Messager is the part of the Anthropic client the describer uses.
type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicDescriber asks an Anthropic model for a frame description.
type AnthropicDescriber struct {
	messages  Messager
	model     string
	maxTokens int64
}

var ErrNoAPIKey = errors.New("storyboard: no API key configured")

// NewAnthropicDescriber builds a describer using apiKey. An empty model selects DefaultModel.
func NewAnthropicDescriber(apiKey, model string) (*AnthropicDescriber, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newAnthropicDescriber(&c.Messages, model), nil
}

func newAnthropicDescriber(m Messager, model string) *AnthropicDescriber {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &AnthropicDescriber{messages: m, model: model, maxTokens: DefaultMaxTokens}
}

func (d *AnthropicDescriber) Model() string { return d.model }

func (d *AnthropicDescriber) Describe(ctx context.Context, rec SceneRecord, prompt string) (string, error) {
	resp, err := d.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(d.model),
		MaxTokens:   d.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage(rec, prompt)))},
		Temperature: anthropic.Float(0.7),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("empty description for scene %d", rec.SceneIndex)
	}
	return out, nil
}

func userMessage(rec SceneRecord, prompt string) string {
	var b strings.Builder
	b.WriteString("Generate a detailed visual description for a storyboard frame of this scene:\n\n")
	fmt.Fprintf(&b, "Scene: %s\n\n", rec.Heading)
	fmt.Fprintf(&b, "Description: %s\n\n", rec.Description)
	if len(rec.Characters) > 0 {
		fmt.Fprintf(&b, "Characters: %s\n\n", strings.Join(rec.Characters, ", "))
	}
	fmt.Fprintf(&b, "Image prompt: %s\n\n", prompt)
	b.WriteString("Focus on the key visual elements, camera angles, and mood. Keep it concise but vivid.")
	return b.String()
}
