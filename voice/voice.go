// Package voice is the seam to an external audio collaborator. The engine
// hands finished utterances over and moves on; it never inspects audio nor
// waits for playback.
package voice

import (
	"context"

	"github.com/google/uuid"
	"github.com/trsystems/TaleWeaver-sub000/engine/emotion"
)

// Speaker synthesizes one utterance and returns an opaque artifact ID.
type Speaker interface {
	Speak(ctx context.Context, text, voiceRef string, params emotion.VoiceParams) (string, error)
}

// Null accepts every utterance and produces nothing audible. It is the
// default speaker.
type Null struct{}

func (Null) Speak(context.Context, string, string, emotion.VoiceParams) (string, error) {
	return uuid.NewString(), nil
}

// Dispatcher fires utterances at a Speaker without blocking the caller.
// Failures are logged and dropped; audio never stalls the story.
type Dispatcher struct {
	speaker Speaker

	// Logf reports synthesis failures. Defaults to a no-op.
	Logf func(format string, args ...any)
}

func NewDispatcher(s Speaker) *Dispatcher {
	if s == nil {
		s = Null{}
	}
	return &Dispatcher{speaker: s, Logf: func(string, ...any) {}}
}

// Dispatch hands the utterance to the speaker on its own goroutine.
func (d *Dispatcher) Dispatch(text, voiceRef string, params emotion.VoiceParams) {
	go func() {
		if _, err := d.speaker.Speak(context.Background(), text, voiceRef, params); err != nil {
			d.Logf("voice: speak failed: %v", err)
		}
	}()
}
