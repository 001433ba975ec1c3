// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui contains the terminal UI (TUI) implementation for Point Guard:
// an interactive browser over the password store. Entries are decrypted only
// on demand and the plaintext is dropped as soon as the view is left.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TheKiteEatingTree/pointguard/buildvars"
	"github.com/TheKiteEatingTree/pointguard/internal/audit"
	"github.com/TheKiteEatingTree/pointguard/internal/clip"
	"github.com/TheKiteEatingTree/pointguard/internal/gpg"
	"github.com/TheKiteEatingTree/pointguard/internal/model"
	"github.com/TheKiteEatingTree/pointguard/internal/store"
	"github.com/TheKiteEatingTree/pointguard/util/slicest"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type keyMap struct {
	View key.Binding
	Copy key.Binding
	Back key.Binding
	Quit key.Binding
}

var keys = keyMap{
	View: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "view")),
	Copy: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
	Back: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type entryItem struct {
	entry model.Entry
}

func (i entryItem) Title() string       { return i.entry.Base() }
func (i entryItem) Description() string { return i.entry.Dir() }
func (i entryItem) FilterValue() string { return i.entry.Name }

type decryptedMsg struct {
	name      string
	plaintext []byte
	err       error
}

type copiedMsg struct {
	name string
	err  error
}

// Browser is the top-level TUI model.
type Browser struct {
	st       *store.Store
	cipher   gpg.Cipher
	clipTime time.Duration

	list     list.Model
	view     viewport.Model
	viewing  bool
	viewName string
	status   string
	width    int
	height   int
}

// NewBrowser builds the browser over the given store and cipher.
func NewBrowser(st *store.Store, cipher gpg.Cipher, clipTime time.Duration) (*Browser, error) {
	entries, err := st.List()
	if err != nil {
		return nil, err
	}

	items := slicest.Map(entries, func(e model.Entry) list.Item {
		return entryItem{entry: e}
	})

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = store.DefaultTreeLabel
	if v := buildvars.VersionOrDefault(""); v != "" {
		l.Title = store.DefaultTreeLabel + " " + v
	}
	l.SetShowStatusBar(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.View, keys.Copy}
	}

	return &Browser{
		st:       st,
		cipher:   cipher,
		clipTime: clipTime,
		list:     l,
		view:     viewport.New(0, 0),
	}, nil
}

func (b *Browser) Init() tea.Cmd {
	return nil
}

func (b *Browser) selected() (model.Entry, bool) {
	item, ok := b.list.SelectedItem().(entryItem)
	if !ok {
		return model.Entry{}, false
	}
	return item.entry, true
}

func (b *Browser) decryptCmd(name string) tea.Cmd {
	return func() tea.Msg {
		data, err := b.st.ReadCiphertext(name)
		if err != nil {
			return decryptedMsg{name: name, err: err}
		}
		plaintext, err := b.cipher.Decrypt(context.Background(), data)
		return decryptedMsg{name: name, plaintext: plaintext, err: err}
	}
}

func (b *Browser) copyCmd(name string) tea.Cmd {
	return func() tea.Msg {
		data, err := b.st.ReadCiphertext(name)
		if err != nil {
			return copiedMsg{name: name, err: err}
		}
		plaintext, err := b.cipher.Decrypt(context.Background(), data)
		if err != nil {
			return copiedMsg{name: name, err: err}
		}
		// The clear must survive the TUI exiting, so it runs in a detached
		// helper process, not a goroutine of ours.
		if err := clip.SpawnClearHelper(clip.FirstLine(plaintext), b.clipTime); err != nil {
			return copiedMsg{name: name, err: err}
		}
		audit.Record("SHOW_CLIP", name)
		return copiedMsg{name: name}
	}
}

func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		b.list.SetSize(msg.Width, msg.Height-2)
		b.view.Width = msg.Width
		b.view.Height = msg.Height - 4
		return b, nil

	case decryptedMsg:
		if msg.err != nil {
			b.status = errorStyle.Render(msg.err.Error())
			return b, nil
		}
		b.viewing = true
		b.viewName = msg.name
		b.view.SetContent(string(msg.plaintext))
		b.view.GotoTop()
		return b, nil

	case copiedMsg:
		if msg.err != nil {
			b.status = errorStyle.Render(msg.err.Error())
		} else {
			b.status = statusStyle.Render(fmt.Sprintf("copied %s, clearing in %s", msg.name, b.clipTime))
		}
		return b, nil

	case tea.KeyMsg:
		if b.viewing {
			switch {
			case key.Matches(msg, keys.Back):
				b.viewing = false
				b.view.SetContent("")
				return b, nil
			case key.Matches(msg, keys.Quit):
				return b, tea.Quit
			}
			var cmd tea.Cmd
			b.view, cmd = b.view.Update(msg)
			return b, cmd
		}

		// The list's filter input swallows plain keys while active.
		if b.list.FilterState() != list.Filtering {
			switch {
			case key.Matches(msg, keys.Quit):
				return b, tea.Quit
			case key.Matches(msg, keys.View):
				if e, ok := b.selected(); ok {
					return b, b.decryptCmd(e.Name)
				}
			case key.Matches(msg, keys.Copy):
				if e, ok := b.selected(); ok {
					return b, b.copyCmd(e.Name)
				}
			}
		}
	}

	var cmd tea.Cmd
	b.list, cmd = b.list.Update(msg)
	return b, cmd
}

func (b *Browser) View() string {
	if b.viewing {
		header := titleStyle.Render(b.viewName)
		footer := statusStyle.Render("esc back · q quit")
		return lipgloss.JoinVertical(lipgloss.Left, header, b.view.View(), footer)
	}
	if b.status != "" {
		return lipgloss.JoinVertical(lipgloss.Left, b.list.View(), b.status)
	}
	return b.list.View()
}

// Run starts the interactive browser and blocks until the user quits.
func Run(st *store.Store, cipher gpg.Cipher, clipTime time.Duration) error {
	b, err := NewBrowser(st, cipher, clipTime)
	if err != nil {
		return err
	}
	p := tea.NewProgram(b, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
