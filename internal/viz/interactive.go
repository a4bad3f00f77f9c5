package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Entry is one scene offered by the picker.
type Entry struct {
	Name        string
	Description string
	Build       BuildFunc
}

// picker lists scenes and hands over to a live Model on enter.
type picker struct {
	entries []Entry
	cursor  int
	opts    Options
	styles  Styles
	live    *Model
	err     error
}

func NewPicker(entries []Entry, opts Options) tea.Model {
	return &picker{entries: entries, opts: opts, styles: GetTheme(opts.Theme).Styles()}
}

func (p *picker) Init() tea.Cmd { return nil }

func (p *picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.live != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			p.live.stopRecording()
			p.live = nil
			return p, nil
		}
		_, cmd := p.live.Update(msg)
		return p, cmd
	}
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch k.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.entries)-1 {
			p.cursor++
		}
	case "enter", " ":
		if len(p.entries) == 0 {
			return p, nil
		}
		e := p.entries[p.cursor]
		opts := p.opts
		opts.Title = e.Name
		live, err := NewModel(e.Build, opts)
		if err != nil {
			p.err = err
			return p, nil
		}
		p.live, p.err = live, nil
		return p, live.Init()
	}
	return p, nil
}

func (p *picker) View() string {
	if p.live != nil {
		return p.live.View()
	}
	var b strings.Builder
	b.WriteString("\n  " + p.styles.Title.Render("IMPULSE") + "\n  " + p.styles.Muted.Render("rigid body scenes") + "\n\n")
	for i, e := range p.entries {
		name := fmt.Sprintf("%-12s", e.Name)
		if i == p.cursor {
			b.WriteString("  " + p.styles.Running.Render("▸ "+name) + " " + p.styles.Value.Render(e.Description) + "\n")
		} else {
			b.WriteString("    " + p.styles.Muted.Render(name+" "+e.Description) + "\n")
		}
	}
	if p.err != nil {
		b.WriteString("\n  " + p.styles.Bad.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n  " + p.styles.Help.Render("j/k move  enter start  esc back  q quit") + "\n")
	return b.String()
}

// RunPicker blocks until the user quits the picker.
func RunPicker(entries []Entry, opts Options) error {
	_, err := tea.NewProgram(NewPicker(entries, opts), tea.WithAltScreen()).Run()
	return err
}
