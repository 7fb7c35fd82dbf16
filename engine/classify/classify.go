// Package classify decides how a free-form human input should be interpreted:
// third-person narration, first-person dialogue directed at a character, or a
// mix of both. Intentionally dumb: no NLP, just pattern matching over fixed
// indicator lists.
//
// The decision logic is a priority cascade, not an independent vote — the
// rule order below must be preserved exactly.
package classify

import (
	"strings"

	"github.com/trsystems/TaleWeaver-sub000/types"
)

// Dialogue verbs in first person: "digo", "pergunto", etc.
var dialogIndicators = []string{
	"digo", "falo", "respondo", "pergunto",
	"exclamo", "sussurro", "grito", "chamo",
}

// Second-person pronouns and greetings: strong signal the player is speaking
// directly to someone.
var strongDialogIndicators = []string{
	"você", "seu", "sua", "te",
	"olá", "oi", "ei",
	"me", "meu", "minha",
}

var quoteRunes = []string{`"`, "“", "”", "'"}

// Conjugated action verbs not covered by the action parser's infinitive lists.
var inflectedActionVerbs = []string{"ando", "vou", "pego", "abro", "fecho"}

// Action parser word lists.
var (
	movementWords    = []string{"andar", "ir", "mover", "entrar", "sair", "subir", "descer"}
	interactionWords = []string{"pegar", "usar", "abrir", "fechar", "tocar", "segurar"}
	speechWords      = []string{"dizer", "falar", "perguntar", "responder", "gritar", "sussurrar"}
)

// ParseAction extracts movement/interaction/speech signals from an input and
// tries to identify the interaction target (the word after the verb).
func ParseAction(text string) types.ActionInfo {
	lower := strings.ToLower(text)

	info := types.ActionInfo{
		Movement:    containsAny(lower, movementWords),
		Interaction: containsAny(lower, interactionWords),
		Speech:      containsAny(lower, speechWords),
	}

	words := strings.Fields(lower)
	for i, word := range words {
		if isOneOf(word, interactionWords) && i+1 < len(words) {
			info.Target = words[i+1]
			break
		}
	}

	return info
}

// Classify decides the input kind given the set of known character names.
func Classify(input string, knownNames []string) types.Classification {
	lower := strings.ToLower(input)
	action := ParseAction(input)

	// Direct character mention. A mention combined with "?" or "!" is
	// definitively dialogue aimed at that character — rule 1 short-circuits
	// every other signal.
	mentioned := ""
	for _, name := range knownNames {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			mentioned = name
			if strings.Contains(input, "?") || strings.Contains(input, "!") {
				return types.Classification{Kind: types.KindCharacter, Target: name}
			}
		}
	}

	hasQuotes := containsAny(input, quoteRunes)

	hasDialog := hasQuotes ||
		containsAny(lower, dialogIndicators) ||
		mentioned != ""

	hasStrongDialog := containsAnyWord(lower, strongDialogIndicators)

	hasAction := action.Movement || action.Interaction ||
		containsAny(lower, inflectedActionVerbs)

	// Priority cascade.
	if hasStrongDialog || (mentioned != "" && hasDialog) {
		if hasAction {
			return types.Classification{Kind: types.KindCharacterWithNarration, Target: mentioned}
		}
		return types.Classification{Kind: types.KindCharacter, Target: mentioned}
	}

	if hasAction {
		if hasDialog {
			return types.Classification{Kind: types.KindCharacterWithNarration, Target: mentioned}
		}
		return types.Classification{Kind: types.KindNarrator, Target: mentioned}
	}

	if hasDialog {
		return types.Classification{Kind: types.KindCharacter, Target: mentioned}
	}

	return types.Classification{Kind: types.KindNarrator}
}

func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// containsAnyWord matches whole words only; "me" must not fire inside
// "mesmo" or "primeiro".
func containsAnyWord(text string, words []string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !isLetter(r)
	})
	for _, f := range fields {
		if isOneOf(f, words) {
			return true
		}
	}
	return false
}

func isOneOf(word string, set []string) bool {
	for _, s := range set {
		if word == s {
			return true
		}
	}
	return false
}

func isLetter(r rune) bool {
	return r == 'ç' || r == 'á' || r == 'à' || r == 'ã' || r == 'â' ||
		r == 'é' || r == 'ê' || r == 'í' || r == 'ó' || r == 'ô' ||
		r == 'õ' || r == 'ú' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
