// Package tui is a terminal chat client over a chat.Session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"

	"github.com/agrosolve/agrosolve/chat"
	"github.com/agrosolve/agrosolve/pkg/datauri"
	"github.com/agrosolve/agrosolve/pkg/llm"
)

const (
	title         = "AgroSolve AI"
	imageCommand  = "/image"
	clearCommand  = "/clear"
	textareaLines = 3

	// title, separator and status line
	chromeLines = 3
)

type replyMsg struct {
	turn llm.ChatTurn
	err  error
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx     context.Context
	session *chat.Session
	style   string

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	rendered map[string]string

	width  int
	height int
	ready  bool

	pending     bool
	pendingText string

	image     string
	imageName string

	status    string
	statusErr bool
}

// NewModel creates the chat screen for session. style is a glamour style
// name, see MarkdownStyle.
func NewModel(ctx context.Context, session *chat.Session, style string) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about crops, pests or soil. /image PATH attaches a photo."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(textareaLines)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = assistantStyle

	return Model{
		ctx:      ctx,
		session:  session,
		style:    style,
		textarea: ta,
		spinner:  sp,
		viewport: viewport.New(80, 20),
		rendered: make(map[string]string),
		status:   "enter send · ctrl+l clear · esc quit",
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-textareaLines-chromeLines, 1)
		m.textarea.SetWidth(msg.Width)

		renderer, err := newRenderer(m.style, msg.Width-2)
		if err != nil {
			m.setError(fmt.Errorf("markdown renderer: %w", err))
		} else {
			m.renderer = renderer
			m.rendered = make(map[string]string)
		}

		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+l":
			m.clear()
			return m, nil
		case "enter":
			return m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case replyMsg:
		// A cleared conversation's reply arrives after a newer message may
		// already be in flight, so it must not touch the pending state.
		if errors.Is(msg.err, chat.ErrStale) {
			return m, nil
		}
		m.pending = false
		m.pendingText = ""
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus("")
		}
		m.refresh()
		return m, m.textarea.Focus()

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	if !m.pending {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := titleStyle.Render(title)
	if m.imageName != "" {
		header += dimStyle.Render("  📎 " + m.imageName)
	}

	status := m.status
	statusStyle := dimStyle
	if m.statusErr {
		statusStyle = errorStyle
	}
	status = statusStyle.Render(ansi.Truncate(status, m.width, "…"))

	return strings.Join([]string{
		header,
		m.viewport.View(),
		dimStyle.Render(strings.Repeat("─", max(m.width, 1))),
		m.textarea.View(),
		status,
	}, "\n")
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}

	input := strings.TrimSpace(m.textarea.Value())

	switch {
	case input == clearCommand:
		m.textarea.Reset()
		m.clear()
		return m, nil
	case input == imageCommand || strings.HasPrefix(input, imageCommand+" "):
		m.textarea.Reset()
		m.attach(strings.TrimSpace(strings.TrimPrefix(input, imageCommand)))
		return m, nil
	case input == "" && m.image == "":
		return m, nil
	}

	text, image := input, m.image
	m.textarea.Reset()
	m.textarea.Blur()
	m.image, m.imageName = "", ""
	m.pending = true
	m.pendingText = text
	if text == "" {
		m.pendingText = "(photo)"
	}
	m.setStatus("waiting for AgroSolve…")
	m.refresh()

	return m, tea.Batch(m.spinner.Tick, m.send(text, image))
}

func (m Model) send(text, image string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		turn, err := session.Send(ctx, text, image)
		return replyMsg{turn: turn, err: err}
	}
}

// clear restarts the conversation; a reply still in flight is dropped.
func (m *Model) clear() {
	m.session.Clear()
	m.pending = false
	m.pendingText = ""
	m.image, m.imageName = "", ""
	m.textarea.Focus()
	m.setStatus("conversation cleared")
	m.refresh()
}

func (m *Model) attach(path string) {
	if path == "" {
		m.setError(errors.New("usage: /image PATH"))
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		m.setError(fmt.Errorf("attach image: %w", err))
		return
	}

	mediaType := datauri.Detect(data)
	if !strings.HasPrefix(mediaType, "image/") {
		m.setError(fmt.Errorf("%s is not an image (%s)", filepath.Base(path), mediaType))
		return
	}

	m.image = datauri.Encode(mediaType, data)
	m.imageName = filepath.Base(path)
	m.setStatus(fmt.Sprintf("attached %s, add a question or press enter", m.imageName))
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}

	turns, err := m.session.Turns(m.ctx)
	if err != nil {
		m.setError(err)
		return
	}

	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(m.renderTurn(turn))
		b.WriteString("\n\n")
	}

	if m.pending {
		// Send appends the question before calling out; until then show it here.
		if len(turns) == 0 || turns[len(turns)-1].Speaker != llm.SpeakerUser {
			b.WriteString(userStyle.Render("You") + "\n")
			b.WriteString(userBlockStyle.Render(m.pendingText))
			b.WriteString("\n\n")
		}
		b.WriteString(m.spinner.View() + dimStyle.Render(" Thinking..."))
	}

	m.viewport.SetContent(strings.TrimRight(b.String(), "\n"))
	m.viewport.GotoBottom()
}

func (m *Model) renderTurn(turn llm.ChatTurn) string {
	stamp := dimStyle.Render(turn.CreatedAt.Local().Format("[15:04]"))

	if turn.Speaker == llm.SpeakerUser {
		body := turn.Text
		if turn.Image != "" {
			body = strings.TrimSpace(body + "\n" + dimStyle.Render("📎 photo attached"))
		}
		return userStyle.Render("You") + " " + stamp + "\n" + userBlockStyle.Render(body)
	}

	return assistantStyle.Render("AgroSolve") + " " + stamp + "\n" + m.markdown(turn)
}

// markdown renders an assistant turn once per width.
func (m *Model) markdown(turn llm.ChatTurn) string {
	if m.renderer == nil {
		return turn.Text
	}
	if out, ok := m.rendered[turn.Hash]; ok && turn.Hash != "" {
		return out
	}

	out, err := render(m.renderer, turn.Text)
	if err != nil {
		out = turn.Text
	}
	if turn.Hash != "" {
		m.rendered[turn.Hash] = out
	}
	return out
}
