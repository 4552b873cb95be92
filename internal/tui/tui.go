// Package tui provides a full-screen quick add prompt with a live preview of
// what the parser recognizes.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vtask/backend"
	"vtask/internal/quickadd"
	"vtask/internal/utils"
)

// Parser turns a line into a ParsedTask
type Parser interface {
	Parse(text string) quickadd.ParsedTask
}

// Submitter creates the task for a parsed line
type Submitter interface {
	Submit(ctx context.Context, parsed quickadd.ParsedTask) (*backend.Task, error)
}

// Logger receives one line per submitted task. *utils.BackgroundLogger
// satisfies it.
type Logger interface {
	Printf(format string, args ...interface{})
}

const historySize = 5

// Model is the quick add prompt state
type Model struct {
	parser    Parser
	submitter Submitter
	logger    Logger
	location  *time.Location
	ctx       context.Context

	textInput  textinput.Model
	preview    quickadd.ParsedTask
	submitting bool
	status     string
	statusErr  bool
	created    []backend.Task

	width int

	// Styles
	titleStyle   lipgloss.Style
	labelStyle   lipgloss.Style
	valueStyle   lipgloss.Style
	previewStyle lipgloss.Style
	okStyle      lipgloss.Style
	errStyle     lipgloss.Style
	helpStyle    lipgloss.Style
}

// Message types
type taskCreatedMsg struct {
	input string
	task  *backend.Task
}

type errMsg struct {
	input string
	err   error
}

// Option configures a Model
type Option func(*Model)

// WithLogger sets where submissions are logged
func WithLogger(l Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithLocation sets the zone due dates are shown in
func WithLocation(loc *time.Location) Option {
	return func(m *Model) {
		if loc != nil {
			m.location = loc
		}
	}
}

// WithContext sets the context passed to the submitter
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...interface{}) {}

// New creates a quick add model
func New(p Parser, s Submitter, opts ...Option) *Model {
	ti := textinput.New()
	ti.Placeholder = "Call mom next friday at 2:30pm !3 *calls"
	ti.CharLimit = 512
	ti.Prompt = "> "
	ti.Focus()

	m := &Model{
		parser:    p,
		submitter: s,
		logger:    discardLogger{},
		location:  time.Local,
		ctx:       context.Background(),
		textInput: ti,
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(11),
		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		previewStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		okStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init starts the cursor blinking
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) submit(input string, parsed quickadd.ParsedTask) tea.Cmd {
	return func() tea.Msg {
		task, err := m.submitter.Submit(m.ctx, parsed)
		if err != nil {
			return errMsg{input: input, err: err}
		}
		return taskCreatedMsg{input: input, task: task}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case taskCreatedMsg:
		m.submitting = false
		m.logger.Printf("created task %d %q from %q", msg.task.ID, msg.task.Title, msg.input)
		m.status = fmt.Sprintf("Created %s", describeTask(msg.task))
		m.statusErr = false
		m.created = append([]backend.Task{*msg.task}, m.created...)
		if len(m.created) > historySize {
			m.created = m.created[:historySize]
		}
		return m, nil

	case errMsg:
		m.submitting = false
		m.logger.Printf("quick add %q failed: %v", msg.input, msg.err)
		m.status = firstLine(msg.err.Error())
		m.statusErr = true
		// Put the line back so it can be fixed.
		if m.textInput.Value() == "" {
			m.textInput.SetValue(msg.input)
			m.preview = m.parser.Parse(msg.input)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			return m.handleEnter()

		case tea.KeyCtrlU:
			m.textInput.Reset()
			m.preview = quickadd.ParsedTask{}
			return m, nil
		}
	}

	var cmd tea.Cmd
	before := m.textInput.Value()
	m.textInput, cmd = m.textInput.Update(msg)
	if m.textInput.Value() != before {
		m.preview = m.parser.Parse(m.textInput.Value())
	}
	return m, cmd
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textInput.Value())
	if input == "" || m.submitting {
		return m, nil
	}

	parsed := m.parser.Parse(input)
	if parsed.Title == "" {
		m.status = firstLine(utils.ErrEmptyTitle(input).Error())
		m.statusErr = true
		return m, nil
	}

	m.submitting = true
	m.status = "Creating..."
	m.statusErr = false
	m.textInput.Reset()
	m.preview = quickadd.ParsedTask{}
	return m, m.submit(input, parsed)
}

// View renders the prompt, the preview and the recent tasks
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.titleStyle.Render("Quick Add"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")
	b.WriteString(m.previewStyle.Render(m.renderPreview()))
	b.WriteString("\n")

	if m.status != "" {
		style := m.okStyle
		if m.statusErr {
			style = m.errStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	if len(m.created) > 0 {
		b.WriteString("\n")
		b.WriteString(m.helpStyle.Render("Recent:"))
		b.WriteString("\n")
		for i := range m.created {
			b.WriteString("  " + describeTask(&m.created[i]) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.helpStyle.Render("Enter: create  Ctrl+U: clear  Esc: quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderPreview() string {
	p := m.preview
	rows := [][2]string{{"Title", p.Title}}

	if p.Project != nil {
		rows = append(rows, [2]string{"Project", *p.Project})
	}
	if p.Priority != nil {
		rows = append(rows, [2]string{"Priority", fmt.Sprintf("%d", *p.Priority)})
	}
	if p.DueDate != nil {
		rows = append(rows, [2]string{"Due", p.DueDate.In(m.location).Format("Mon 2006-01-02 15:04")})
	}
	if p.Repeat != nil {
		rows = append(rows, [2]string{"Repeat", p.Repeat.String()})
	}
	if len(p.Labels) > 0 {
		rows = append(rows, [2]string{"Labels", strings.Join(p.Labels, ", ")})
	}
	if len(p.Assignees) > 0 {
		rows = append(rows, [2]string{"Assignees", strings.Join(p.Assignees, ", ")})
	}

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = m.labelStyle.Render(r[0]) + m.valueStyle.Render(r[1])
	}
	return strings.Join(lines, "\n")
}

func describeTask(t *backend.Task) string {
	ref := t.Identifier
	if ref == "" {
		ref = fmt.Sprintf("#%d", t.ID)
	}
	return fmt.Sprintf("%s %q", ref, t.Title)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
