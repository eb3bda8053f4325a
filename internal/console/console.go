// Package console is the interactive scan screen. A keyboard-wedge
// scanner types the code and presses Enter, so every submitted line is a
// detection.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"iadetakip/internal"
	"iadetakip/internal/scanner"
	"iadetakip/internal/tracker"
)

const (
	maxLogLines     = 12
	maxMissingLines = 15
)

type resultMsg scanner.Result

type refreshedMsg struct{ err error }

type lineKind int

const (
	lineOK lineKind = iota
	lineInvalid
	lineError
)

type logLine struct {
	kind lineKind
	text string
}

type keyMap struct {
	refresh key.Binding
	missing key.Binding
	quit    key.Binding
}

type model struct {
	ctx      context.Context
	tracker  *tracker.Tracker
	detector *scanner.ChanDetector

	input       textinput.Model
	keys        keyMap
	log         []logLine
	status      string
	stats       internal.Stats
	missing     []internal.MissingItem
	showMissing bool
}

func newModel(ctx context.Context, tr *tracker.Tracker, det *scanner.ChanDetector) model {
	ti := textinput.New()
	ti.Prompt = "barkod> "
	ti.Placeholder = "okutun veya yazıp Enter'a basın"
	ti.CharLimit = 64
	ti.Focus()

	return model{
		ctx:      ctx,
		tracker:  tr,
		detector: det,
		input:    ti,
		keys: keyMap{
			refresh: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "yenile")),
			missing: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "eksikler")),
			quit:    key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "çıkış")),
		},
		status:  tr.Status(),
		stats:   tr.Stats(),
		missing: tr.Missing(),
	}
}

// Run starts a scan session fed by the input line and blocks until the
// operator quits.
func Run(ctx context.Context, tr *tracker.Tracker) error {
	det := scanner.NewChanDetector()
	sess := scanner.NewSession(det, tr.Scan)

	p := tea.NewProgram(newModel(ctx, tr, det), tea.WithContext(ctx))
	sess.OnResult = func(r scanner.Result) { p.Send(resultMsg(r)) }

	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer sess.Stop()

	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refreshCmd())
}

func (m model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: m.tracker.Refresh(m.ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.refresh):
			m.status = "Yenileniyor..."
			return m, m.refreshCmd()
		case key.Matches(msg, m.keys.missing):
			m.showMissing = !m.showMissing
			return m, nil
		case msg.Type == tea.KeyEnter:
			code := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if code == "" {
				return m, nil
			}
			if !m.detector.Push(code) {
				m.addLine(lineError, code+": okuyucu hazır değil")
			}
			return m, nil
		}

	case resultMsg:
		switch {
		case msg.Err != nil:
			m.addLine(lineError, fmt.Sprintf("%s: %v", msg.Raw, msg.Err))
		case !msg.OK:
			m.addLine(lineInvalid, fmt.Sprintf("%s: geçersiz barkod", msg.Raw))
		default:
			m.addLine(lineOK, m.tracker.Status())
		}
		m.sync()
		return m, nil

	case refreshedMsg:
		m.sync()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) sync() {
	m.status = m.tracker.Status()
	m.stats = m.tracker.Stats()
	m.missing = m.tracker.Missing()
}

func (m *model) addLine(kind lineKind, text string) {
	m.log = append(m.log, logLine{kind: kind, text: text})
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("İade Takip"))
	b.WriteString("  ")
	b.WriteString(accentStyle.Render(fmt.Sprintf("beklenen %d · gelen %d · eksik %d", m.stats.Expected, m.stats.Received, m.stats.Missing)))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.showMissing {
		b.WriteString(titleStyle.Render("Eksikler"))
		b.WriteString("\n")
		for i, it := range m.missing {
			if i == maxMissingLines {
				b.WriteString(mutedStyle.Render(fmt.Sprintf("... %d daha", len(m.missing)-maxMissingLines)))
				b.WriteString("\n")
				break
			}
			b.WriteString(fmt.Sprintf("%-20s %3d gün  %s\n", it.Barcode, it.DaysPending, it.Name))
		}
	} else {
		for _, l := range m.log {
			switch l.kind {
			case lineOK:
				b.WriteString(successStyle.Render("✓ " + l.text))
			case lineInvalid:
				b.WriteString(pendingStyle.Render("! " + l.text))
			default:
				b.WriteString(errorStyle.Render("✗ " + l.text))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(strings.Join([]string{
		"enter okut",
		m.keys.refresh.Help().Key + " " + m.keys.refresh.Help().Desc,
		m.keys.missing.Help().Key + " " + m.keys.missing.Help().Desc,
		m.keys.quit.Help().Key + " " + m.keys.quit.Help().Desc,
	}, " · ")))

	return panelString(b.String())
}
