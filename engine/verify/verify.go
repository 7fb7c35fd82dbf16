// Package verify asks the model whether a candidate character reply stays
// true to the character, then drives a bounded regeneration loop: one
// corrective attempt at a slightly higher temperature, after which the reply
// is accepted unconditionally. A verification that cannot complete fails
// open; an unverifiable reply is better than a stalled story.
package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/trsystems/TaleWeaver-sub000/llm"
)

const (
	checkTemperature = 0.3
	checkMaxTokens   = 10
	retryTempBump    = 0.1
	maxRegenerations = 1
)

// Outcome is the explicit result of one consistency check.
type Outcome int

const (
	// Consistent means the model answered "sim".
	Consistent Outcome = iota
	// Inconsistent means the model answered anything else.
	Inconsistent
	// FailOpen means the check itself failed (transport, empty reply) and
	// the candidate is accepted as-is.
	FailOpen
)

func (o Outcome) String() string {
	switch o {
	case Consistent:
		return "consistent"
	case Inconsistent:
		return "inconsistent"
	default:
		return "fail-open"
	}
}

// Context is what the checker knows about the character being verified.
type Context struct {
	Name      string
	History   string
	Emotions  []string
	Fears     []string
	Goals     []string
	LastEvent string
}

// Generator issues the yes/no check calls. Satisfied by *llm.Client.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// GenerateFunc produces one candidate reply at the given temperature.
type GenerateFunc func(ctx context.Context, temperature float64) (string, error)

// Verifier checks candidate replies against a character context.
type Verifier struct {
	gen Generator

	// Logf reports fail-open checks. Defaults to a no-op.
	Logf func(format string, args ...any)
}

func New(gen Generator) *Verifier {
	return &Verifier{gen: gen, Logf: func(string, ...any) {}}
}

// Check runs one yes/no consistency question. The reply is consistent iff
// the trimmed, lower-cased answer equals "sim".
func (v *Verifier) Check(ctx context.Context, c Context, candidate string) Outcome {
	answer, err := v.gen.Generate(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: checkPrompt(c, candidate)}},
		Temperature: checkTemperature,
		MaxTokens:   checkMaxTokens,
	})
	if err != nil {
		v.Logf("verify: check for %s failed open: %v", c.Name, err)
		return FailOpen
	}
	if strings.ToLower(strings.TrimSpace(answer)) == "sim" {
		return Consistent
	}
	return Inconsistent
}

// GenerateVerified produces a reply through the bounded loop: generate,
// check, at most one regeneration at temperature+0.1, then accept whatever
// came last. The returned flag reports whether a regeneration happened.
// Inconsistency is never surfaced as an error.
func (v *Verifier) GenerateVerified(ctx context.Context, c Context, produce GenerateFunc, temperature float64) (string, bool, error) {
	reply, err := produce(ctx, temperature)
	if err != nil {
		return "", false, err
	}

	regenerated := false
	for attempt := 0; attempt <= maxRegenerations; attempt++ {
		outcome := v.Check(ctx, c, reply)
		if outcome != Inconsistent {
			return reply, regenerated, nil
		}
		if attempt == maxRegenerations {
			break
		}
		next, err := produce(ctx, temperature+retryTempBump)
		if err != nil {
			// Keep the first reply rather than lose the turn.
			v.Logf("verify: regeneration for %s failed, keeping original: %v", c.Name, err)
			return reply, regenerated, nil
		}
		reply = next
		regenerated = true
	}
	return reply, regenerated, nil
}

func checkPrompt(c Context, candidate string) string {
	var b strings.Builder
	b.WriteString("Você é um revisor de coerência narrativa. Responda APENAS 'sim' ou 'não'.\n\n")
	fmt.Fprintf(&b, "Personagem: %s\n", c.Name)
	if strings.TrimSpace(c.History) != "" {
		fmt.Fprintf(&b, "História: %s\n", c.History)
	}
	writeList(&b, "Emoções atuais", c.Emotions)
	writeList(&b, "Medos", c.Fears)
	writeList(&b, "Objetivos", c.Goals)
	if strings.TrimSpace(c.LastEvent) != "" {
		fmt.Fprintf(&b, "Último acontecimento: %s\n", c.LastEvent)
	}
	fmt.Fprintf(&b, "\nResposta candidata: %s\n", candidate)
	b.WriteString("\nEssa resposta é consistente com o personagem e com o acontecimento acima?")
	return b.String()
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) > 0 {
		fmt.Fprintf(b, "%s: %s\n", label, strings.Join(values, ", "))
	}
}
