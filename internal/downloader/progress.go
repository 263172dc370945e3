package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// tickMsg represents a periodic update message
type tickMsg time.Time

// statusMsg represents a status update message
type statusMsg string

// progressModel is the bubbletea view of one running download
type progressModel struct {
	progress progress.Model
	title    string
	total    int64
	received int64
	status   string
	done     bool
	mu       sync.Mutex
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *progressModel) Init() tea.Cmd {
	return tickCmd()
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.done {
			return m, tea.Quit
		}
		if m.total > 0 {
			return m, tea.Batch(m.progress.SetPercent(m.fraction()), tickCmd())
		}
		return m, tickCmd()
	case statusMsg:
		m.mu.Lock()
		m.status = string(msg)
		m.mu.Unlock()
		return m, nil
	case progress.FrameMsg:
		newModel, cmd := m.progress.Update(msg)
		m.progress = newModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// fraction expects m.mu held
func (m *progressModel) fraction() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.received) / float64(m.total)
}

func (m *progressModel) View() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := m.status
	if status == "" {
		if m.total > 0 {
			status = fmt.Sprintf("%.1f%% of %.1f MB", m.fraction()*100, float64(m.total)/(1024*1024))
		} else {
			status = fmt.Sprintf("%.1f MB", float64(m.received)/(1024*1024))
		}
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n", m.title, m.progress.View(), status)
}

func (m *progressModel) report(received, total int64) {
	m.mu.Lock()
	m.received = received
	m.total = total
	m.mu.Unlock()
}

// RunWithProgress runs work behind a progress bar titled title. work gets
// the ProgressFunc to feed and a context cancelled when the user quits the
// bar; its error is returned.
func RunWithProgress(ctx context.Context, title string, work func(context.Context, ProgressFunc) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := &progressModel{
		progress: progress.New(progress.WithDefaultGradient()),
		title:    title,
	}
	p := tea.NewProgram(m)

	result := make(chan error, 1)
	go func() {
		err := work(ctx, m.report)
		if err == nil {
			p.Send(statusMsg("Download completed!"))
		} else {
			p.Send(statusMsg(fmt.Sprintf("Download failed: %v", err)))
		}
		time.Sleep(300 * time.Millisecond)

		m.mu.Lock()
		m.done = true
		m.mu.Unlock()
		p.Quit()

		result <- err
	}()

	_, runErr := p.Run()
	cancel()
	err := <-result
	if err == nil && runErr != nil {
		return fmt.Errorf("progress display error: %w", runErr)
	}
	return err
}
