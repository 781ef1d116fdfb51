package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/sigil/lang"
	"github.com/ardnew/sigil/log"
)

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help            Print this help
  vars            List context variables
  funcs [kind]    List functions (form, value)
  rep [name]      Show or set the result representation
  strict [on|off] Show or set strict mode
  reset           Clear all context variables
  clear           Clear screen
  quit            Exit REPL

Usage:
  Type a template to expand it; variables persist between lines
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Space to accept the current candidate
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)
)

// Option configures a REPL session.
type Option func(*config)

type config struct {
	eng        *lang.Engine
	vars       *lang.Map
	historyDir string
	historyMax int
	logger     log.Logger
}

// WithEngine sets the engine that expands input lines.
func WithEngine(eng *lang.Engine) Option {
	return func(c *config) { c.eng = eng }
}

// WithVars sets the initial context. The session mutates it.
func WithVars(vars *lang.Map) Option {
	return func(c *config) { c.vars = vars }
}

// WithHistory persists up to limit history entries in dir. An empty dir
// keeps history in memory.
func WithHistory(dir string, limit int) Option {
	return func(c *config) { c.historyDir, c.historyMax = dir, limit }
}

func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc      func() context.Context
	input        textinput.Model
	eng          *lang.Engine
	vars         *lang.Map
	rep          lang.Rep
	logger       log.Logger
	history      *History
	historyIdx   int
	matches      fuzzy.Matches
	wordStart    int
	wordEnd      int
	suggIdx      int
	tabActive    bool
	preTabText   string
	preTabCursor int
	width        int
	quitting     bool
	mode         inputMode
	evalText     string
	evalCursor   int
	ctrlText     string
	ctrlCursor   int
}

// Run starts an interactive session and blocks until the user quits.
func Run(ctx context.Context, opts ...Option) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.eng == nil {
		return ErrNoEngine
	}

	if cfg.vars == nil {
		cfg.vars = lang.NewMap()
	}

	var path string
	if cfg.historyDir != "" {
		path = filepath.Join(cfg.historyDir, baseHistory)
	}

	history := NewHistory(path, cfg.historyMax)
	if err := history.Load(); err != nil {
		cfg.logger.WarnContext(ctx, "could not load history",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}

	cfg.logger.TraceContext(ctx, "repl start",
		slog.String("history", path),
		slog.Int("history_len", history.Len()),
		slog.Int("vars", cfg.vars.Len()),
	)

	m := newModel(ctx, cfg, history)

	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()

	return err
}

const defaultWidth = 80

func newModel(ctx context.Context, cfg config, history *History) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		eng:        cfg.eng,
		vars:       cfg.vars,
		rep:        lang.RepText,
		logger:     cfg.logger,
		history:    history,
		historyIdx: history.Len(),
		suggIdx:    -1,
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.hintLine())
	b.WriteString("\n")

	return b.String()
}

// hintLine is the line under the prompt: history position, usage hint,
// completion candidates, or the signature of the enclosing call.
func (m model) hintLine() string {
	input := m.input.Value()

	switch {
	case m.historyIdx < m.history.Len():
		return hintStyle.Render(fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len()))

	case strings.TrimSpace(input) == "":
		if m.mode == modeEval {
			return hintStyle.Render("Type a template or press Esc for commands")
		}

		return hintStyle.Render("Type: " + strings.Join(ctrlCommands, ", ") + " (press Esc to return)")

	case len(m.matches) > 0:
		return renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width, m.isFunc)
	}

	if m.mode == modeEval {
		if name, arg, ok := callHint(input, m.input.Position(), m.eng.Delims()); ok {
			if fn, found := m.eng.Lookup(name); found {
				return hintStyle.Render(fmt.Sprintf("%s: %s function, argument %d", name, fn.Kind(), arg))
			}
		}
	}

	return ""
}

// isFunc reports whether a completion names a function rather than a
// context variable.
func (m model) isFunc(name string) bool {
	if m.vars.Has(name) {
		return false
	}

	_, ok := m.eng.Lookup(name)

	return ok
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}

		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(+1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.historyStep(-1, false), nil

	case tea.KeyDown:
		return m.historyStep(+1, false), nil

	case tea.KeyShiftUp:
		return m.historyStep(-1, true), nil

	case tea.KeyShiftDown:
		return m.historyStep(+1, true), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m, false)

			return m, nil
		}

		return m.toggleMode(), nil

	case tea.KeyRunes, tea.KeySpace:
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	var cmd tea.Cmd

	m.tabActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle moves the tab selection by step, wrapping around. A single
// candidate is completed and confirmed immediately.
func (m model) cycle(step int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	if m.tabActive {
		m.suggIdx = (m.suggIdx + step + n) % n
	} else {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if step < 0 {
			m.suggIdx = n - 1
		}
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes completions. With autoConfirm, a sole candidate
// equal to the typed word is accepted, which hides the completion bar.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if m.input.Value()[m.wordStart:m.wordEnd] == m.matches[0].Str {
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.evalText, m.evalCursor = "", 0
	m.ctrlText, m.ctrlCursor = "", 0
	m.input.SetValue("")
	m.matches = nil

	if err := m.history.Add(input, m.mode); err != nil {
		m.logger.WarnContext(m.ctxFunc(), "could not save history", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	if m.mode == modeCtrl {
		return m.executeCommand(input)
	}

	echo := tea.Println(promptStyle.Render(evalPrompt) + inputStyle.Render(input))

	out, err := m.evaluate(input)
	if err != nil {
		return m, tea.Sequence(echo, tea.Println(errorStyle.Render("error: "+err.Error())))
	}

	return m, tea.Sequence(echo, tea.Println(resultStyle.Render(out)))
}

// evaluate expands input against the session context and formats the
// result for display.
func (m model) evaluate(input string) (string, error) {
	ctx := m.ctxFunc()

	v, err := m.eng.Eval(ctx, input, m.vars, m.rep)
	if err != nil {
		m.logger.TraceContext(ctx, "repl eval", slog.String("input", input), slog.Any("error", err))

		var perr *lang.ParseError
		if errors.As(err, &perr) {
			return "", fmt.Errorf("%w\n%s", err, perr.Snippet())
		}

		return "", err
	}

	m.logger.TraceContext(ctx, "repl eval",
		slog.String("input", input),
		slog.String("kind", v.Kind().String()),
	)

	switch m.rep {
	case lang.RepVoid:
		return "", nil
	case lang.RepText:
		return v.Text(), nil
	default:
		return v.GoString(), nil
	}
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]

	echo := tea.Println(ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input))

	m.logger.TraceContext(m.ctxFunc(), "repl command",
		slog.String("command", name),
		slog.Any("args", args),
	)

	var (
		out string
		err error
	)

	switch name {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case "c", "clear":
		return m, tea.ClearScreen

	case "h", "help":
		out = helpMessage()

	case "v", "vars":
		out = m.listVars()

	case "f", "funcs":
		out = m.listFuncs(args)

	case "rep":
		out, err = m.setRep(args)

	case "strict":
		out, err = m.setStrict(args)

	case "reset":
		for _, k := range m.vars.Keys() {
			m.vars.Remove(k)
		}

		out = "context cleared"

	default:
		err = fmt.Errorf("unknown command: %s (try 'help')", name)
	}

	if err != nil {
		return m, tea.Sequence(echo, tea.Println(errorStyle.Render(err.Error())))
	}

	return m, tea.Sequence(echo, tea.Println(out))
}

func (m model) listVars() string {
	if m.vars.Len() == 0 {
		return hintStyle.Render("  (no variables)")
	}

	var b strings.Builder

	for k, v := range m.vars.All() {
		preview := v.GoString()
		if len(preview) > 40 {
			preview = preview[:37] + "..."
		}

		fmt.Fprintf(&b, "  %s %s\n", k, hintStyle.Render(preview))
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m model) listFuncs(args []string) string {
	var b strings.Builder

	for _, name := range m.eng.Names() {
		fn, ok := m.eng.Lookup(name)
		if !ok || (len(args) > 0 && fn.Kind() != args[0]) {
			continue
		}

		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render(fn.Kind()))
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// setRep shows or changes the representation of displayed results.
func (m *model) setRep(args []string) (string, error) {
	if len(args) == 0 {
		return "representation: " + m.rep.String(), nil
	}

	rep, err := lang.ParseRep(args[0])
	if err != nil {
		return "", err
	}

	m.rep = rep

	return "representation: " + rep.String(), nil
}

func (m model) setStrict(args []string) (string, error) {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "true", "1":
			m.eng.SetStrict(true)
		case "off", "false", "0":
			m.eng.SetStrict(false)
		default:
			return "", fmt.Errorf("strict: want on or off, got %q", args[0])
		}
	}

	return "strict: " + strconv.FormatBool(m.eng.Strict()), nil
}

// historyStep moves through history by dir. With sameMode, entries from the
// other mode are skipped; otherwise the prompt switches to the entry's mode.
// Stepping past the newest entry clears the input.
func (m model) historyStep(dir int, sameMode bool) model {
	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		entry, err := m.history.Entry(i)
		if err != nil {
			break
		}

		if sameMode && entry.Mode != m.mode {
			continue
		}

		if entry.Mode != m.mode {
			m = m.switchToMode(entry.Mode)
		}

		m.historyIdx = i
		m.input.SetValue(entry.Line)
		m.input.SetCursor(len(entry.Line))
		refreshMatches(&m, false)

		return m
	}

	if dir > 0 && m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		refreshMatches(&m, false)
	}

	return m
}

func (m model) toggleMode() model {
	if m.mode == modeEval {
		return m.switchToMode(modeCtrl)
	}

	return m.switchToMode(modeEval)
}

// switchToMode saves the current mode's input and restores the target's.
func (m model) switchToMode(mode inputMode) model {
	if m.mode == modeEval {
		m.evalText, m.evalCursor = m.input.Value(), m.input.Position()
	} else {
		m.ctrlText, m.ctrlCursor = m.input.Value(), m.input.Position()
	}

	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	refreshMatches(&m, false)

	return m
}
