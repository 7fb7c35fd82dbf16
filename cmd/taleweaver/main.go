// TaleWeaver is an interactive, LLM-narrated storytelling engine.
// Usage: taleweaver [--version] [--plain] [--script <file>] [<story_directory>]
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trsystems/TaleWeaver-sub000/cli"
	"github.com/trsystems/TaleWeaver-sub000/config"
	"github.com/trsystems/TaleWeaver-sub000/engine"
	"github.com/trsystems/TaleWeaver-sub000/engine/history"
	"github.com/trsystems/TaleWeaver-sub000/engine/profile"
	"github.com/trsystems/TaleWeaver-sub000/llm"
	"github.com/trsystems/TaleWeaver-sub000/loader"
	"github.com/trsystems/TaleWeaver-sub000/tui"
	"github.com/trsystems/TaleWeaver-sub000/voice"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	plain := false
	var packDir string
	var scriptFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("taleweaver %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--script":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--script requires a file path\n")
				os.Exit(1)
			}
			i++
			scriptFile = args[i]
		default:
			if packDir == "" {
				packDir = args[i]
			}
		}
	}

	logger := log.New(os.Stderr, "taleweaver: ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if packDir == "" {
		packDir = cfg.PackDir
	}

	// Load and compile the Lua story pack.
	defs, err := loader.Load(packDir)
	if err != nil {
		logger.Fatalf("story pack: %v", err)
	}

	ctx := context.Background()

	store, err := history.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatalf("history store: %v", err)
	}
	defer store.Close()
	store.Logf = logger.Printf

	profiles, err := profile.NewStore(cfg.ProfilesDir, profileSeeds(defs))
	if err != nil {
		logger.Fatalf("profile store: %v", err)
	}
	profiles.Logf = logger.Printf

	client := llm.New(llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.NarratorTokens,
		Retries:     cfg.Retries,
		RetryDelay:  cfg.RetryDelay,
	})

	eng, err := engine.New(engine.Options{
		Defs:           defs,
		History:        store,
		Profiles:       profiles,
		Generator:      client,
		Voice:          voice.NewDispatcher(nil),
		Seed:           cfg.Seed,
		Temperature:    cfg.Temperature,
		NarratorTokens: cfg.NarratorTokens,
		DialogueTokens: cfg.DialogueTokens,
		Stream:         cfg.Stream,
		Logf:           logger.Printf,
	})
	if err != nil {
		logger.Fatalf("engine: %v", err)
	}

	// Resume the scene a previous session left behind.
	if settings, ok, err := store.LoadSettings(ctx); err != nil {
		logger.Printf("load settings: %v", err)
	} else if ok {
		eng.RestoreScene(settings)
	}

	// Script mode: read inputs from a file through the plain CLI.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			logger.Fatalf("script: %v", err)
		}
		defer f.Close()
		c := cli.New(eng)
		c.In = f
		c.Run(ctx)
		return
	}

	// Use the plain CLI if --plain or stdout is not a terminal.
	if plain || !isTerminal() {
		cli.New(eng).Run(ctx)
		return
	}

	if err := tui.Run(ctx, eng); err != nil {
		logger.Fatalf("tui: %v", err)
	}
}

// profileSeeds converts the pack's character definitions into profile seeds
// keyed by character name.
func profileSeeds(defs *loader.Defs) map[string]profile.Seed {
	seeds := make(map[string]profile.Seed, len(defs.Characters))
	for name, c := range defs.Characters {
		seeds[name] = profile.Seed{
			Occupation:  c.Occupation,
			Appearance:  c.Appearance,
			Voice:       c.Voice,
			Background:  c.Background,
			Personality: c.Personality,
			Emotions:    c.Emotions,
			Goals:       c.Goals,
		}
	}
	return seeds
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
