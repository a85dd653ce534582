package progress

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Display messages.

type startMsg struct {
	total int
}

type blockStartedMsg struct {
	block string
	total int
}

type blockAdvancedMsg struct {
	block   string
	scanned int
}

type blockDoneMsg struct {
	block string
}

type overallAdvancedMsg struct {
	scanned int
}

type reportMsg struct {
	line string
}

// TUI renders live dual-level progress with one bar for the whole scan and
// one per active block. It owns the terminal while running; per-result
// status lines are pushed above the bars.
type TUI struct {
	program *tea.Program
	done    chan struct{}
	once    sync.Once

	// cancel is invoked when the user presses ctrl+c. The display never
	// stops the scan itself; it only requests cancellation, which the scan
	// loop observes at its consumption point.
	cancel func()
}

// NewTUI starts the display. cancel is called on ctrl+c.
func NewTUI(cancel func()) *TUI {
	m := newDisplayModel()
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	t := &TUI{program: p, done: make(chan struct{}), cancel: cancel}
	m.cancel = t.requestCancel

	go func() {
		p.Run()
		close(t.done)
	}()
	return t
}

func (t *TUI) requestCancel() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *TUI) Start(overallTotal int) {
	t.program.Send(startMsg{total: overallTotal})
}

func (t *TUI) BlockStarted(block string, total int) {
	t.program.Send(blockStartedMsg{block: block, total: total})
}

func (t *TUI) BlockAdvanced(block string, scanned, _ int) {
	t.program.Send(blockAdvancedMsg{block: block, scanned: scanned})
}

func (t *TUI) BlockDone(block string) {
	t.program.Send(blockDoneMsg{block: block})
}

func (t *TUI) OverallAdvanced(scanned, _ int) {
	t.program.Send(overallAdvancedMsg{scanned: scanned})
}

func (t *TUI) Report(line string) {
	t.program.Send(reportMsg{line: line})
}

// Stop quits the program and waits for the terminal to be restored, so no
// stale bars are left rendered.
func (t *TUI) Stop() {
	t.once.Do(func() {
		t.program.Quit()
		<-t.done
	})
}

// Styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#7B2FBE", Dark: "#B97EFF"})

	blockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1A1A2E", Dark: "#FFFDF5"})

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"})
)

const barWidth = 40

// blockView is one active block's bar state, kept in first-seen order.
type blockView struct {
	name    string
	scanned int
	total   int
	bar     progress.Model
}

type displayModel struct {
	overallTotal   int
	overallScanned int
	overallBar     progress.Model
	blocks         []*blockView
	cancel         func()
}

func newDisplayModel() *displayModel {
	return &displayModel{overallBar: newBar()}
}

func newBar() progress.Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = barWidth
	return bar
}

func (m *displayModel) Init() tea.Cmd { return nil }

func (m *displayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		// The terminal is in raw mode, so ctrl+c arrives as a key rather
		// than a signal. Forward it as a cancellation request.
		if msg.Type == tea.KeyCtrlC && m.cancel != nil {
			m.cancel()
		}
		return m, nil

	case startMsg:
		m.overallTotal = msg.total
		return m, nil

	case blockStartedMsg:
		m.blocks = append(m.blocks, &blockView{name: msg.block, total: msg.total, bar: newBar()})
		return m, nil

	case blockAdvancedMsg:
		for _, b := range m.blocks {
			if b.name == msg.block {
				b.scanned = msg.scanned
				break
			}
		}
		return m, nil

	case blockDoneMsg:
		for i, b := range m.blocks {
			if b.name == msg.block {
				m.blocks = append(m.blocks[:i], m.blocks[i+1:]...)
				break
			}
		}
		return m, nil

	case overallAdvancedMsg:
		m.overallScanned = msg.scanned
		return m, nil

	case reportMsg:
		return m, tea.Println(msg.line)
	}

	return m, nil
}

func (m *displayModel) View() string {
	if m.overallTotal == 0 {
		return ""
	}

	view := fmt.Sprintf("%s %s %s\n",
		titleStyle.Render("all subnets"),
		m.overallBar.ViewAs(ratio(m.overallScanned, m.overallTotal)),
		countStyle.Render(fmt.Sprintf("%d/%d", m.overallScanned, m.overallTotal)),
	)
	for _, b := range m.blocks {
		view += fmt.Sprintf("%s %s %s\n",
			blockStyle.Render(b.name),
			b.bar.ViewAs(ratio(b.scanned, b.total)),
			countStyle.Render(fmt.Sprintf("%d/%d", b.scanned, b.total)),
		)
	}
	return view
}

func ratio(scanned, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(scanned) / float64(total)
}
