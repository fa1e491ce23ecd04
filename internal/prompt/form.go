// Package prompt implements the interactive form used to create a signing
// properties file.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/comaziwa/keyprops/internal/signing"
)

// ErrCancelled is returned when the user leaves the form without submitting
var ErrCancelled = errors.New("cancelled")

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

type field struct {
	key   string
	label string
	input textinput.Model
}

// Model is the bubbletea model of the form. Each signing property gets one
// input; passwords are echoed as bullets.
type Model struct {
	fields    []field
	focus     int
	err       string
	submitted bool
	cancelled bool
}

// NewModel builds a form pre-filled with initial, which may be nil
func NewModel(initial *signing.SigningCredentials) Model {
	if initial == nil {
		initial = &signing.SigningCredentials{}
	}
	labels := map[string]string{
		signing.PropKeyAlias:      "Key alias",
		signing.PropKeyPassword:   "Key password",
		signing.PropStoreFile:     "Keystore file",
		signing.PropStorePassword: "Keystore password",
	}
	placeholders := map[string]string{
		signing.PropKeyAlias:  "upload",
		signing.PropStoreFile: "/path/to/upload-keystore.jks",
	}

	m := Model{}
	for _, key := range signing.PropertyKeys {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = placeholders[key]
		ti.SetValue(initial.Get(key))
		if signing.IsSecret(key) {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.fields = append(m.fields, field{key: key, label: labels[key], input: ti})
	}
	m.fields[0].input.Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "tab", "down":
			return m.moveFocus(1), nil
		case "shift+tab", "up":
			return m.moveFocus(-1), nil
		case "enter":
			if m.focus < len(m.fields)-1 {
				return m.moveFocus(1), nil
			}
			creds := m.Credentials()
			if missing := creds.Missing(); len(missing) > 0 {
				m.err = fmt.Sprintf("missing %s", strings.Join(missing, ", "))
				return m, nil
			}
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
	return m, cmd
}

func (m Model) moveFocus(delta int) Model {
	m.fields[m.focus].input.Blur()
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	m.fields[m.focus].input.Focus()
	return m
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Release signing credentials"))
	b.WriteString("\n\n")
	for i, f := range m.fields {
		label := f.label
		if i == m.focus {
			label = focusedStyle.Render(label)
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", label, f.input.View())
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("tab/shift+tab to move, enter to confirm, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}

// Credentials returns the values currently entered
func (m Model) Credentials() *signing.SigningCredentials {
	values := make(map[string]string, len(m.fields))
	for _, f := range m.fields {
		values[f.key] = f.input.Value()
	}
	return &signing.SigningCredentials{
		KeyAlias:      values[signing.PropKeyAlias],
		KeyPassword:   values[signing.PropKeyPassword],
		StoreFilePath: values[signing.PropStoreFile],
		StorePassword: values[signing.PropStorePassword],
	}
}

// Submitted reports whether the form was confirmed
func (m Model) Submitted() bool {
	return m.submitted
}

// Run shows the form on out, reading keys from in
func Run(in io.Reader, out io.Writer, initial *signing.SigningCredentials) (*signing.SigningCredentials, error) {
	p := tea.NewProgram(NewModel(initial), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run prompt: %w", err)
	}
	m, ok := final.(Model)
	if !ok || !m.submitted {
		return nil, ErrCancelled
	}
	return m.Credentials(), nil
}
