// Package scene derives ambient scene attributes from narration text using
// data-driven keyword tables. Projection is pure: the same narration applied
// to the same starting state always yields the same result.
package scene

import (
	"strings"

	"github.com/trsystems/TaleWeaver-sub000/types"
)

// table is an ordered keyword classification table. Categories are tested in
// declaration order and the first match wins — the order here is the
// tie-break rule, so do not reorder entries.
type table []entry

type entry struct {
	category string
	keywords []string
}

var timeOfDayTable = table{
	{"noite", []string{"noite", "escuro", "escuridão", "lua", "estrelas", "anoitecer", "jantar"}},
	{"tarde", []string{"tarde", "pôr do sol", "entardecer", "sol poente", "almoço"}},
	{"manhã", []string{"manhã", "amanhecer", "aurora", "nascer do sol", "café da manhã"}},
	{"dia", []string{"dia", "sol", "meio-dia", "solar"}},
}

var locationTable = table{
	{"carro", []string{"carro", "veículo", "automóvel", "caminhonete", "volante"}},
	{"casa", []string{"casa", "residência", "moradia", "cômodo", "quarto", "sala", "cozinha"}},
	{"trabalho", []string{"escritório", "empresa", "firma"}},
	{"rua", []string{"rua", "estrada", "avenida", "calçada", "asfalto", "praça", "parque"}},
	{"restaurante", []string{"restaurante", "café", "bar", "lanchonete"}},
	{"floresta", []string{"floresta", "mata", "bosque", "árvores", "vegetação"}},
	{"cidade", []string{"cidade", "urbano", "prédios", "edifícios"}},
	{"campo", []string{"campo", "rural", "fazenda", "sítio", "rancho"}},
	{"telefone", []string{"telefone", "ligação", "chamada"}},
}

var moodTable = table{
	{"tenso", []string{"tenso", "nervoso", "apreensivo", "preocupante", "ansioso", "medo"}},
	{"calmo", []string{"calmo", "tranquilo", "sereno", "pacífico", "silencioso"}},
	{"hostil", []string{"hostil", "perigoso", "ameaçador", "violento", "agressivo"}},
	{"misterioso", []string{"misterioso", "enigmático", "suspeito", "estranho"}},
	{"alegre", []string{"alegre", "festivo", "animado", "descontraído", "feliz", "risos"}},
	{"triste", []string{"triste", "melancólico", "sombrio", "depressivo", "choroso"}},
	{"solitário", []string{"solitário", "abandonado", "vazio", "deserto"}},
}

// weatherTable is multi-valued: every matching condition is added to the
// scene's weather set rather than first-match-wins.
var weatherTable = table{
	{"chuva", []string{"chuva", "chuvoso", "gotej", "tempestade"}},
	{"vento", []string{"vento", "ventania", "brisa"}},
	{"neblina", []string{"neblina", "névoa", "nevoeiro", "fumaça"}},
	{"quente", []string{"quente", "calor", "abafado", "sufocante"}},
	{"frio", []string{"frio", "gelado", "congelante", "fresco"}},
}

// elementVocabulary lists the notable objects worth tracking across a scene.
var elementVocabulary = []string{
	"porta", "janela", "arma", "luz", "sombra", "chave",
	"telefone", "livro", "carta", "documento", "foto",
	"computador", "celular", "carro", "faca", "sangue",
	"escada", "corredor",
}

// Secondary time inference, applied only while the time of day is still
// unestablished: no explicit keyword matched but the activity implies one.
var (
	afternoonHints = []string{"trabalho", "empresa", "reunião"}
	nightHints     = []string{"dormir", "cama", "descansar"}
)

// match returns the first category whose keyword set intersects text.
func (t table) match(text string) (string, bool) {
	for _, e := range t {
		for _, kw := range e.keywords {
			if strings.Contains(text, kw) {
				return e.category, true
			}
		}
	}
	return "", false
}

// Project applies the narration text to the scene state and returns the
// updated state. Attributes keep their prior value when no keyword matches.
// PresentCharacters only grows: characters already detected are never removed
// by projection, only by an explicit scene reset.
func Project(state types.SceneState, narration string, knownNames []string) types.SceneState {
	text := strings.ToLower(narration)

	if loc, ok := locationTable.match(text); ok {
		state.Location = loc
	}

	if tod, ok := timeOfDayTable.match(text); ok {
		state.TimeOfDay = tod
	} else if state.TimeOfDay == types.UnknownTimeOfDay || state.TimeOfDay == "" {
		state.TimeOfDay = inferTimeOfDay(text, state.TimeOfDay)
	}

	if mood, ok := moodTable.match(text); ok {
		state.Mood = mood
	}

	for _, e := range weatherTable {
		for _, kw := range e.keywords {
			if strings.Contains(text, kw) {
				state.Weather = appendUnique(state.Weather, e.category)
				break
			}
		}
	}

	for _, name := range knownNames {
		if strings.Contains(text, strings.ToLower(name)) {
			state.PresentCharacters = appendUnique(state.PresentCharacters, name)
		}
	}

	for _, obj := range elementVocabulary {
		if strings.Contains(text, obj) {
			state.Elements = appendUnique(state.Elements, obj)
		}
	}

	state.Description = narration
	return state
}

func inferTimeOfDay(text, current string) string {
	for _, hint := range afternoonHints {
		if strings.Contains(text, hint) {
			return "tarde"
		}
	}
	for _, hint := range nightHints {
		if strings.Contains(text, hint) {
			return "noite"
		}
	}
	return current
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// Reset returns the scene to its unestablished defaults, clearing the cast.
// This is the only path that removes characters from the scene.
func Reset() types.SceneState {
	return types.NewSceneState()
}
