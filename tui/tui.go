package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/trsystems/TaleWeaver-sub000/engine"
	"github.com/trsystems/TaleWeaver-sub000/types"
)

// rawLine stores an unstyled output line with its classification, so the
// narrative can be re-wrapped and re-styled when the terminal is resized.
type rawLine struct {
	text string
	kind lineKind
}

// Model is the Bubble Tea model for the TaleWeaver TUI.
type Model struct {
	ctx    context.Context
	engine *engine.Engine

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	waiting  bool // a story turn is generating; input is held until it lands
	quitting bool
}

// storyOutputMsg carries finished output from the engine into the Update
// loop. Generation runs in a tea.Cmd because it blocks on the language
// model.
type storyOutputMsg struct {
	lines []rawLine
}

// New creates a TUI model wired to the given engine.
func New(ctx context.Context, eng *engine.Engine) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 512
	ti.PromptStyle = styleInputPrompt

	return Model{
		ctx:     ctx,
		engine:  eng,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, eng *engine.Engine) error {
	m := New(ctx, eng)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init returns the initial command that shows the title and story intro.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		var lines []rawLine

		if title := m.engine.Defs.Story.Title; title != "" {
			lines = append(lines, rawLine{text: "=== " + title + " ===", kind: kindTitle})
			lines = append(lines, rawLine{})
		}

		intro, warnings := m.engine.Begin(m.ctx)
		if intro != "" {
			lines = append(lines, rawLine{text: intro, kind: kindNarration})
		}
		for _, w := range warnings {
			lines = append(lines, rawLine{text: w, kind: kindSystem})
		}

		return storyOutputMsg{lines: lines}
	}
}

// Update handles messages (key presses, window resize, story output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case storyOutputMsg:
		m.waiting = false
		m = m.appendLines(msg.lines)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line. Story turns run as a
// command; further input is held until the result arrives.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}

	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	m = m.appendLines([]rawLine{{text: input, kind: kindInput}})

	// Meta-commands run inline; they never touch the language model.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendLines(output)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	m.waiting = true
	return m, m.stepStory(input)
}

// stepStory runs one story turn against the engine.
func (m Model) stepStory(input string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.Step(m.ctx, input)
		if err != nil {
			return storyOutputMsg{lines: []rawLine{
				{text: fmt.Sprintf("A geração falhou: %v", err), kind: kindError},
			}}
		}
		return storyOutputMsg{lines: resultLines(result)}
	}
}

// resultLines converts a story turn result into tagged output lines:
// narration plain, dialogue speaker-prefixed, warnings as system lines.
func resultLines(result types.Result) []rawLine {
	var lines []rawLine
	for i, u := range result.Utterances {
		if i > 0 {
			lines = append(lines, rawLine{})
		}
		if u.Speaker == "" {
			lines = append(lines, rawLine{text: u.Text, kind: kindNarration})
		} else {
			lines = append(lines, rawLine{text: u.Speaker + ": " + u.Text, kind: kindDialogue})
		}
	}
	for _, w := range result.Warnings {
		lines = append(lines, rawLine{text: w, kind: kindSystem})
	}
	return lines
}

// appendLines adds lines to the narrative and refreshes the viewport.
func (m Model) appendLines(lines []rawLine) Model {
	m.rawLines = append(m.rawLines, lines...)
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}
		styled = append(styled, renderLine(wordWrap(rl.text, width), rl.kind))
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Carregando..."
	}

	input := m.input.View()
	if m.waiting {
		input = styleSystem.Render("gerando...")
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + input
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]rawLine, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/sair", "/quit":
		return []rawLine{{text: "Até a próxima.", kind: kindSystem}}, true

	case "/historia":
		var lines []rawLine
		for _, l := range strings.Split(m.engine.History.Summary(), "\n") {
			lines = append(lines, rawLine{text: l, kind: kindNarration})
		}
		return lines, false

	case "/eventos":
		return m.cmdEvents(), false

	case "/remover":
		return m.cmdRemove(arg), false

	case "/desfazer":
		return m.cmdUndo(), false

	case "/narrador":
		return m.cmdNarrator(arg), false

	case "/perfil":
		return m.cmdProfile(arg), false

	case "/reset":
		return m.cmdReset(), false

	case "/cena":
		return m.cmdScene(), false

	case "/ajuda", "/help":
		return m.cmdHelp(), false

	default:
		return []rawLine{{
			text: fmt.Sprintf("Comando desconhecido: %s. Digite /ajuda para ver os comandos.", cmd),
			kind: kindSystem,
		}}, false
	}
}

func (m *Model) cmdEvents() []rawLine {
	events := m.engine.History.Events()
	if len(events) == 0 {
		return []rawLine{{text: "Nenhum evento registrado.", kind: kindSystem}}
	}
	lines := make([]rawLine, 0, len(events))
	for i, ev := range events {
		who := "Narrador"
		switch {
		case ev.Character != "":
			who = ev.Character
		case ev.Type == types.EventUserInput:
			who = "Você"
		}
		lines = append(lines, rawLine{
			text: fmt.Sprintf("%3d. [%s] %s: %s", i+1, ev.Type, who, ev.Content),
			kind: kindNarration,
		})
	}
	return lines
}

func (m *Model) cmdRemove(arg string) []rawLine {
	if arg == "" {
		return []rawLine{{text: "Uso: /remover <n> (veja os números em /eventos)", kind: kindSystem}}
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return []rawLine{{text: fmt.Sprintf("Número de evento inválido: %s", arg), kind: kindSystem}}
	}
	ev, warnings, err := m.engine.RemoveEvent(m.ctx, n-1)
	if err != nil {
		return []rawLine{{text: fmt.Sprintf("Não foi possível remover: %v", err), kind: kindSystem}}
	}
	lines := []rawLine{{text: fmt.Sprintf("Removido: %s", ev.Content), kind: kindSystem}}
	for _, w := range warnings {
		lines = append(lines, rawLine{text: w, kind: kindSystem})
	}
	return lines
}

func (m *Model) cmdUndo() []rawLine {
	ev, warnings, err := m.engine.Undo(m.ctx)
	if err != nil {
		return []rawLine{{text: fmt.Sprintf("Nada para desfazer: %v", err), kind: kindSystem}}
	}
	lines := []rawLine{{text: fmt.Sprintf("Desfeito: %s", ev.Content), kind: kindSystem}}
	for _, w := range warnings {
		lines = append(lines, rawLine{text: w, kind: kindSystem})
	}
	return lines
}

func (m *Model) cmdNarrator(arg string) []rawLine {
	if arg == "" {
		lines := []rawLine{{text: fmt.Sprintf("Narrador atual: %s", m.engine.Narrator()), kind: kindSystem}}
		for id, n := range m.engine.Defs.Narrators {
			lines = append(lines, rawLine{text: fmt.Sprintf("  %s - %s", id, n.Description), kind: kindNarration})
		}
		return lines
	}
	if err := m.engine.SetNarrator(arg); err != nil {
		return []rawLine{{text: fmt.Sprintf("Estilo desconhecido: %s", arg), kind: kindSystem}}
	}
	return []rawLine{{text: fmt.Sprintf("Narrador alterado para %s.", arg), kind: kindSystem}}
}

func (m *Model) cmdProfile(arg string) []rawLine {
	if arg == "" {
		return []rawLine{{text: "Uso: /perfil <nome>", kind: kindSystem}}
	}
	if _, err := m.engine.AnalyzeProfile(m.ctx, arg); err != nil {
		return []rawLine{{text: fmt.Sprintf("Não foi possível analisar o perfil: %v", err), kind: kindSystem}}
	}
	var lines []rawLine
	for _, l := range strings.Split(m.engine.Profiles.RenderForPrompt(arg, true), "\n") {
		lines = append(lines, rawLine{text: l, kind: kindNarration})
	}
	return lines
}

func (m *Model) cmdReset() []rawLine {
	if err := m.engine.Reset(m.ctx); err != nil {
		return []rawLine{{text: fmt.Sprintf("Não foi possível reiniciar: %v", err), kind: kindSystem}}
	}
	return []rawLine{{text: "História reiniciada.", kind: kindSystem}}
}

func (m *Model) cmdScene() []rawLine {
	s := m.engine.Scene
	lines := []rawLine{
		{text: fmt.Sprintf("Local: %s", s.Location), kind: kindSystem},
		{text: fmt.Sprintf("Horário: %s", s.TimeOfDay), kind: kindSystem},
		{text: fmt.Sprintf("Clima emocional: %s", s.Mood), kind: kindSystem},
	}
	if len(s.Weather) > 0 {
		lines = append(lines, rawLine{text: fmt.Sprintf("Tempo: %s", strings.Join(s.Weather, ", ")), kind: kindSystem})
	}
	if len(s.PresentCharacters) > 0 {
		lines = append(lines, rawLine{text: fmt.Sprintf("Presentes: %s", strings.Join(s.PresentCharacters, ", ")), kind: kindSystem})
	}
	lines = append(lines, rawLine{text: fmt.Sprintf("Turno: %d", m.engine.Turn()), kind: kindSystem})
	return lines
}

func (m *Model) cmdHelp() []rawLine {
	help := []string{
		"Comandos:",
		"  /historia      - Resumo da história até aqui",
		"  /eventos       - Lista numerada dos eventos",
		"  /remover <n>   - Remove o evento n",
		"  /desfazer      - Remove o último evento",
		"  /narrador [id] - Mostra ou troca o estilo do narrador",
		"  /perfil <nome> - Atualiza e mostra o perfil do personagem",
		"  /cena          - Estado atual da cena",
		"  /reset         - Recomeça a história do zero",
		"  /ajuda         - Mostra esta ajuda",
		"  /sair          - Encerra a sessão",
		"",
		"Qualquer outro texto vira um turno da história.",
		"Navegação: PgUp/PgDn rola o texto, setas percorrem o histórico.",
	}
	lines := make([]rawLine, 0, len(help))
	for _, l := range help {
		lines = append(lines, rawLine{text: l, kind: kindNarration})
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (those drive input history instead).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
