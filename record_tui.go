package main

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kandru/memo"
)

const noticeTTL = 3 * time.Second

type memoTickMsg struct {
	fn       func()
	canceled *atomic.Bool
}

type memoDoneMsg struct{ result memo.Result }

type noticeExpiredMsg struct{ seq int }

type frameMsg time.Time

// teaScheduler posts ticks into the bubbletea event loop so they interleave
// with key handling instead of racing it.
type teaScheduler struct {
	mu sync.Mutex
	p  *tea.Program
}

func (s *teaScheduler) setProgram(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *teaScheduler) Every(interval time.Duration, fn func()) func() {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()

	canceled := &atomic.Bool{}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p != nil {
					p.Send(memoTickMsg{fn: fn, canceled: canceled})
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			canceled.Store(true)
			close(done)
		})
	}
}

var (
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	starStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231"))

	// level meter colours, quiet to loud
	meterColors = []string{"236", "52", "88", "124", "160", "196", "208", "214", "220", "226"}
	meterStyles []lipgloss.Style
)

func init() {
	for _, c := range meterColors {
		meterStyles = append(meterStyles, lipgloss.NewStyle().Foreground(lipgloss.Color(c)))
	}
}

type recordModel struct {
	ctrl       *memo.Controller
	snap       memo.Snapshot
	deviceLine string

	width, height int
	frame         int
	notice        string
	noticeSeq     int
}

func newRecordModel(ctrl *memo.Controller, deviceLine string) recordModel {
	return recordModel{ctrl: ctrl, snap: ctrl.Snapshot(), deviceLine: deviceLine}
}

func waitDone(ctrl *memo.Controller) tea.Cmd {
	return func() tea.Msg {
		return memoDoneMsg{result: <-ctrl.Done()}
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m recordModel) Init() tea.Cmd {
	return tea.Batch(waitDone(m.ctrl), frameTick())
}

func (m recordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", " ":
			accept(m.ctrl)
			if n := m.ctrl.Snapshot().Notice; n != "" && n != m.notice {
				m.notice = n
				m.noticeSeq++
				seq := m.noticeSeq
				cmd = tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq} })
			}
		case "esc", "q", "ctrl+c":
			m.ctrl.Cancel()
		case "1", "2", "3":
			m.ctrl.SetRating(float64(msg.Runes[0] - '0'))
		}

	case memoTickMsg:
		if !msg.canceled.Load() {
			msg.fn()
		}

	case frameMsg:
		m.frame++
		cmd = frameTick()

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}

	case memoDoneMsg:
		m.snap = m.ctrl.Snapshot()
		return m, tea.Quit
	}

	m.snap = m.ctrl.Snapshot()
	return m, cmd
}

func (m recordModel) View() string {
	s := m.snap
	var lines []string

	lines = append(lines, titleStyle.Render("Voice memo"), "")

	if s.State == memo.Recording {
		dot := "●"
		if m.frame%8 >= 4 {
			dot = " "
		}
		lines = append(lines, recStyle.Render(fmt.Sprintf("%s REC %s", dot, s.Elapsed)))
	} else {
		lines = append(lines, idleStyle.Render("○ READY "+s.Elapsed))
	}

	width := m.width - 2
	if width <= 0 {
		width = 60
	}
	lines = append(lines, renderMeter(s.Amplitudes, min(width, memo.RingCapacity)))

	if s.NoInput {
		lines = append(lines, warnStyle.Render("  ⚠ no input detected, check the microphone"))
	}
	if m.notice != "" {
		lines = append(lines, warnStyle.Render("  "+m.notice))
	}

	lines = append(lines, "", renderRating(s.Rating, s.State != memo.Recording && s.OutputPath == ""))
	lines = append(lines, dimStyle.Render(m.deviceLine))
	if s.OutputPath != "" {
		lines = append(lines, dimStyle.Render(s.OutputPath))
	}

	lines = append(lines, "")
	var help string
	switch {
	case !s.AcceptEnabled:
		help = helpKeyStyle.Render("Esc") + helpStyle.Render(" close")
	case s.State == memo.Recording:
		help = helpKeyStyle.Render("Enter") + helpStyle.Render(" save  ") +
			helpKeyStyle.Render("Esc") + helpStyle.Render(" discard")
	default:
		help = helpKeyStyle.Render("Enter") + helpStyle.Render(" record  ") +
			helpKeyStyle.Render("1-3") + helpStyle.Render(" quality  ") +
			helpKeyStyle.Render("Esc") + helpStyle.Render(" cancel")
	}
	lines = append(lines, help, helpStyle.Render("kandru "+version))

	return lipgloss.NewStyle().Padding(1, 1).Render(strings.Join(lines, "\n"))
}

// renderMeter draws the newest width amplitudes as a bar strip.
func renderMeter(amps []int, width int) string {
	const bars = "▁▂▃▄▅▆▇█"
	glyphs := []rune(bars)

	if len(amps) > width {
		amps = amps[len(amps)-width:]
	}
	var b strings.Builder
	for i := 0; i < width-len(amps); i++ {
		b.WriteString(meterStyles[0].Render(string(glyphs[0])))
	}
	for _, a := range amps {
		level := min(a*len(meterStyles)/32768, len(meterStyles)-1)
		g := min(a*len(glyphs)/32768, len(glyphs)-1)
		b.WriteString(meterStyles[level].Render(string(glyphs[g])))
	}
	return b.String()
}

func renderRating(r float64, editable bool) string {
	n := int(r + 0.5)
	var b strings.Builder
	for i := 1; i <= 3; i++ {
		if i <= n {
			b.WriteString(starStyle.Render("★"))
		} else {
			b.WriteString(idleStyle.Render("☆"))
		}
	}
	label := dimStyle.Render(fmt.Sprintf(" quality %d kbit/s", memo.QualityBitrate(r)/1000))
	if !editable {
		return b.String() + label
	}
	return b.String() + label + helpStyle.Render(" (1-3)")
}

func runRecordTUI(opts memo.Options, deviceLine string) (memo.Result, error) {
	sched := &teaScheduler{}
	opts.Scheduler = sched
	ctrl := memo.New(opts)

	p := tea.NewProgram(newRecordModel(ctrl, deviceLine), tea.WithAltScreen())
	sched.setProgram(p)

	// Open after the program exists so an auto-started tick has somewhere to go.
	ctrl.Open()
	if ctrl.Finished() {
		r, _ := ctrl.Result()
		return r, nil
	}

	_, err := p.Run()
	ctrl.Close()
	if err != nil {
		return memo.Result{}, fmt.Errorf("running terminal UI: %w", err)
	}
	r, _ := ctrl.Result()
	return r, nil
}
