package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAdviceModel = "claude-sonnet-4-5-20250929"

// emptyFactorPlaceholder substitutes blank free-text sections so the
// generator never sees an empty heading.
const emptyFactorPlaceholder = "none noted"

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// BuildAdvicePrompt renders the request handed to the text-generation
// collaborator. Deterministic template substitution only: no I/O and no
// truncation (any length policy belongs to the caller). Privileged
// notes are appended only when supplied; the caller gates that on the
// capability token.
func BuildAdvicePrompt(res ClassificationResult, ext ExternalFactors, notes *PrivilegedNotes) string {
	var b strings.Builder
	b.WriteString("Propose three concrete, professional improvement strategies based on this work-skill assessment.\n")
	fmt.Fprintf(&b, "Items were classified against an achievement threshold of %.0f%% of each task's ceiling.\n", res.ThresholdPercent*100)

	b.WriteString("\n# Strengths\n")
	b.WriteString(labelList(res.Strengths))
	b.WriteString("\n\n# Weaknesses\n")
	b.WriteString(labelList(res.Weaknesses))
	b.WriteString("\n\n# Opportunities\n")
	b.WriteString(orPlaceholder(ext.Opportunities))
	b.WriteString("\n\n# Threats\n")
	b.WriteString(orPlaceholder(ext.Threats))

	if notes != nil {
		b.WriteString("\n\n# Additional context (staff only, do not quote directly)\n")
		if len(notes.DisabilityCategories) > 0 {
			fmt.Fprintf(&b, "Disability categories: %s\n", strings.Join(notes.DisabilityCategories, ", "))
		}
		if len(notes.BehavioralTraits) > 0 {
			fmt.Fprintf(&b, "Traits: %s\n", strings.Join(notes.BehavioralTraits, ", "))
		}
		if strings.TrimSpace(notes.FreeformGuidance) != "" {
			fmt.Fprintf(&b, "Guidance: %s\n", notes.FreeformGuidance)
		}
	}

	b.WriteString("\n# Advice:\n")
	return b.String()
}

func labelList(items []ScoredItem) string {
	if len(items) == 0 {
		return emptyFactorPlaceholder
	}
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	return strings.Join(labels, ", ")
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyFactorPlaceholder
	}
	return s
}

// GenerateAdvice sends the prompt to Anthropic and returns the
// narrative. The response is treated as an opaque string; failures are
// reported upward without touching any dataset state.
func GenerateAdvice(ctx context.Context, cfg Config, prompt string) (string, LLMUsage, error) {
	model := cfg.AdviceModel
	if model == "" {
		model = defaultAdviceModel
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))

	log.Printf("advice generate model=%s prompt_chars=%d", model, len(prompt))
	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		log.Printf("advice anthropic error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("advice generation failed: %w", err)
	}
	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("advice anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), usage.InputTokens, usage.OutputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("advice generation failed: no text content in response")
}
