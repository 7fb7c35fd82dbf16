// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the TaleWeaver session.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/trsystems/TaleWeaver-sub000/engine"
	"github.com/trsystems/TaleWeaver-sub000/types"
)

// CLI handles terminal interaction with the reader.
type CLI struct {
	Engine *engine.Engine
	In     io.Reader
	Out    io.Writer
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Engine: eng,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
}

// Run starts the session loop. It shows the story intro, then loops:
// prompt → input → dispatch → output.
func (c *CLI) Run(ctx context.Context) {
	if title := c.Engine.Defs.Story.Title; title != "" {
		c.printLine("=== " + title + " ===")
		c.printLine("")
	}
	if intro, warnings := c.Engine.Begin(ctx); intro != "" {
		c.printLine(intro)
		c.printLine("")
		c.printWarnings(warnings)
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return // /sair
			}
			continue
		}

		result, err := c.Engine.Step(ctx, input)
		if err != nil {
			c.printSystem(fmt.Sprintf("A geração falhou: %v", err))
			continue
		}
		c.printResult(result)
	}
}

// handleMeta dispatches meta-commands. Returns true if the session should
// end.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/sair", "/quit":
		c.printSystem("Até a próxima.")
		return true

	case "/historia":
		c.printLine(c.Engine.History.Summary())

	case "/eventos":
		c.cmdEvents()

	case "/remover":
		c.cmdRemove(ctx, arg)

	case "/desfazer":
		c.cmdUndo(ctx)

	case "/narrador":
		c.cmdNarrator(arg)

	case "/perfil":
		c.cmdProfile(ctx, arg)

	case "/reset":
		c.cmdReset(ctx)

	case "/cena":
		c.cmdScene()

	case "/ajuda", "/help":
		c.cmdHelp()

	default:
		c.printSystem(fmt.Sprintf("Comando desconhecido: %s. Digite /ajuda para ver os comandos.", cmd))
	}

	return false
}

func (c *CLI) cmdEvents() {
	events := c.Engine.History.Events()
	if len(events) == 0 {
		c.printSystem("Nenhum evento registrado.")
		return
	}
	for i, ev := range events {
		who := "Narrador"
		switch {
		case ev.Character != "":
			who = ev.Character
		case ev.Type == types.EventUserInput:
			who = "Você"
		}
		c.printLine(fmt.Sprintf("%3d. [%s] %s: %s", i+1, ev.Type, who, ev.Content))
	}
}

func (c *CLI) cmdRemove(ctx context.Context, arg string) {
	if arg == "" {
		c.printSystem("Uso: /remover <n> (veja os números em /eventos)")
		return
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		c.printSystem(fmt.Sprintf("Número de evento inválido: %s", arg))
		return
	}
	ev, warnings, err := c.Engine.RemoveEvent(ctx, n-1)
	if err != nil {
		c.printSystem(fmt.Sprintf("Não foi possível remover: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Removido: %s", ev.Content))
	c.printWarnings(warnings)
}

func (c *CLI) cmdUndo(ctx context.Context) {
	ev, warnings, err := c.Engine.Undo(ctx)
	if err != nil {
		c.printSystem(fmt.Sprintf("Nada para desfazer: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Desfeito: %s", ev.Content))
	c.printWarnings(warnings)
}

func (c *CLI) cmdNarrator(arg string) {
	if arg == "" {
		c.printSystem(fmt.Sprintf("Narrador atual: %s", c.Engine.Narrator()))
		for id, n := range c.Engine.Defs.Narrators {
			c.printLine(fmt.Sprintf("  %s — %s", id, n.Description))
		}
		return
	}
	if err := c.Engine.SetNarrator(arg); err != nil {
		c.printSystem(fmt.Sprintf("Estilo desconhecido: %s", arg))
		return
	}
	c.printSystem(fmt.Sprintf("Narrador alterado para %s.", arg))
}

func (c *CLI) cmdProfile(ctx context.Context, arg string) {
	if arg == "" {
		c.printSystem("Uso: /perfil <nome>")
		return
	}
	if _, err := c.Engine.AnalyzeProfile(ctx, arg); err != nil {
		c.printSystem(fmt.Sprintf("Não foi possível analisar o perfil: %v", err))
		return
	}
	c.printLine(c.Engine.Profiles.RenderForPrompt(arg, true))
}

func (c *CLI) cmdReset(ctx context.Context) {
	if err := c.Engine.Reset(ctx); err != nil {
		c.printSystem(fmt.Sprintf("Não foi possível reiniciar: %v", err))
		return
	}
	c.printSystem("História reiniciada.")
}

func (c *CLI) cmdScene() {
	s := c.Engine.Scene
	c.printSystem(fmt.Sprintf("Local: %s", s.Location))
	c.printSystem(fmt.Sprintf("Horário: %s", s.TimeOfDay))
	c.printSystem(fmt.Sprintf("Clima emocional: %s", s.Mood))
	if len(s.Weather) > 0 {
		c.printSystem(fmt.Sprintf("Tempo: %s", strings.Join(s.Weather, ", ")))
	}
	if len(s.PresentCharacters) > 0 {
		c.printSystem(fmt.Sprintf("Presentes: %s", strings.Join(s.PresentCharacters, ", ")))
	}
	c.printSystem(fmt.Sprintf("Turno: %d", c.Engine.Turn()))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"Comandos:",
		"  /historia      — Resumo da história até aqui",
		"  /eventos       — Lista numerada dos eventos",
		"  /remover <n>   — Remove o evento n",
		"  /desfazer      — Remove o último evento",
		"  /narrador [id] — Mostra ou troca o estilo do narrador",
		"  /perfil <nome> — Atualiza e mostra o perfil do personagem",
		"  /cena          — Estado atual da cena",
		"  /reset         — Recomeça a história do zero",
		"  /ajuda         — Mostra esta ajuda",
		"  /sair          — Encerra a sessão",
		"",
		"Qualquer outro texto vira um turno da história:",
		"  narração em terceira pessoa, ou fala dirigida a um personagem.",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, u := range result.Utterances {
		if u.Speaker == "" {
			c.printLine(u.Text)
		} else {
			c.printLine(fmt.Sprintf("%s: %s", u.Speaker, u.Text))
		}
		c.printLine("")
	}
	c.printWarnings(result.Warnings)
}

func (c *CLI) printWarnings(warnings []string) {
	for _, w := range warnings {
		c.printSystem(w)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
