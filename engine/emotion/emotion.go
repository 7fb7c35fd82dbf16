// Package emotion detects the dominant affect of a piece of text using
// ordered keyword tables, the same first-match-wins discipline used by the
// scene projector. The detected emotion drives the reaction scheduler's
// arousal bonuses and the voice parameter mapping.
package emotion

import (
	"strings"

	"github.com/trsystems/TaleWeaver-sub000/types"
)

type entry struct {
	emotion  types.Emotion
	keywords []string
}

// Tested in declaration order; the emotion with the most keyword hits wins,
// ties broken by declaration order.
var emotionTable = []entry{
	{types.EmotionHappy, []string{"feliz", "alegre", "alegria", "contente", "satisfeito", "satisfeita", "adoro", "adorei", "amo", "amei", "risos", "haha"}},
	{types.EmotionSad, []string{"triste", "tristeza", "deprimido", "deprimida", "sozinho", "sozinha", "magoado", "magoada", "pena", "saudade", "perdi", "perdeu"}},
	{types.EmotionAngry, []string{"raiva", "raivoso", "bravo", "brava", "irritado", "irritada", "fúria", "furioso", "ódio", "grr"}},
	{types.EmotionWorried, []string{"preocupado", "preocupada", "nervoso", "nervosa", "ansioso", "ansiosa", "medo", "receio", "receoso"}},
	{types.EmotionExcited, []string{"animado", "animada", "empolgado", "empolgada", "incrível", "fantástico", "maravilhoso", "maravilhosa", "uau"}},
	{types.EmotionThoughtful, []string{"penso", "pensando", "refletir", "refletindo", "talvez", "interessante", "compreendo", "compreender", "hmm"}},
	{types.EmotionPlayful, []string{"brincar", "brincando", "divertido", "divertida", "engraçado", "engraçada", "hehe"}},
}

// VoiceParams are synthesis hints derived from an emotion. They travel with
// every utterance handed to the voice collaborator; the engine never inspects
// the resulting audio.
type VoiceParams struct {
	Speed      float64
	Intensity  float64
	PitchShift float64
}

var voiceParams = map[types.Emotion]VoiceParams{
	types.EmotionHappy:      {Speed: 1.1, Intensity: 0.7, PitchShift: 1.05},
	types.EmotionSad:        {Speed: 0.9, Intensity: 0.6, PitchShift: 0.95},
	types.EmotionAngry:      {Speed: 1.2, Intensity: 0.8, PitchShift: 1.1},
	types.EmotionWorried:    {Speed: 1.05, Intensity: 0.5, PitchShift: 1.0},
	types.EmotionExcited:    {Speed: 1.15, Intensity: 0.9, PitchShift: 1.08},
	types.EmotionNeutral:    {Speed: 1.0, Intensity: 0.5, PitchShift: 1.0},
	types.EmotionThoughtful: {Speed: 0.95, Intensity: 0.4, PitchShift: 0.98},
	types.EmotionPlayful:    {Speed: 1.08, Intensity: 0.7, PitchShift: 1.03},
}

// Analyze returns the dominant emotion of the text and an intensity in
// [0, 1]. Text with no emotional keywords is neutral at half intensity.
func Analyze(text string) (types.Emotion, float64) {
	lower := strings.ToLower(text)

	best := types.EmotionNeutral
	bestHits := 0
	for _, e := range emotionTable {
		hits := 0
		for _, kw := range e.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = e.emotion
			bestHits = hits
		}
	}

	if bestHits == 0 {
		// Exclamation marks alone read as excitement.
		if strings.Contains(text, "!!") {
			return types.EmotionExcited, 0.7
		}
		return types.EmotionNeutral, 0.5
	}

	intensity := 0.5 + 0.15*float64(bestHits)
	if strings.Contains(text, "!") {
		intensity += 0.1
	}
	if intensity > 1.0 {
		intensity = 1.0
	}
	return best, intensity
}

// Params returns the synthesis hints for an emotion. Unknown emotions get
// the neutral parameters.
func Params(e types.Emotion) VoiceParams {
	if p, ok := voiceParams[e]; ok {
		return p
	}
	return voiceParams[types.EmotionNeutral]
}
