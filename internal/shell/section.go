// Package shell ties one device's session and sections together into a
// workspace and keeps track of which section is on screen.
package shell

import (
	"errors"
	"strings"
)

// Section names a page of the dashboard.
type Section string

const (
	Dashboard     Section = "dashboard"
	Financial     Section = "financial"
	Professional  Section = "professional"
	Wellness      Section = "wellness"
	Health        Section = "health"
	Relationships Section = "relationships"
	Projects      Section = "projects"
)

// Sections lists every section in menu order.
func Sections() []Section {
	return []Section{Dashboard, Financial, Professional, Wellness, Health, Relationships, Projects}
}

// ParseSection maps a name to a section. Unknown names select the dashboard.
func ParseSection(s string) Section {
	sec := Section(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Sections() {
		if sec == known {
			return sec
		}
	}
	return Dashboard
}

func (s Section) Label() string {
	switch s {
	case Financial:
		return "Gestão Financeira"
	case Professional:
		return "Desenvolvimento Profissional"
	case Wellness:
		return "Bem-estar Espiritual"
	case Health:
		return "Saúde e Fitness"
	case Relationships:
		return "Relacionamentos"
	case Projects:
		return "Projetos Pessoais"
	default:
		return "Dashboard"
	}
}

// Placeholder reports whether the section has no content yet.
func (s Section) Placeholder() bool {
	return s == Health || s == Relationships || s == Projects
}

// ErrUnknownAction is returned for quick actions that do not exist.
var ErrUnknownAction = errors.New("shell: unknown quick action")

// QuickAction is a dashboard shortcut.
type QuickAction struct {
	ID     string
	Label  string
	Target Section
	// Compose opens the target section's form.
	Compose bool
}

var quickActions = []QuickAction{
	{ID: "add-goal", Label: "Nova Meta", Target: Dashboard},
	{ID: "add-event", Label: "Agendar", Target: Dashboard},
	{ID: "add-expense", Label: "Registrar Gasto", Target: Financial, Compose: true},
	{ID: "add-meditation", Label: "Meditação", Target: Wellness, Compose: true},
	{ID: "add-exercise", Label: "Exercício", Target: Health},
}

// QuickActions lists the dashboard shortcuts in display order.
func QuickActions() []QuickAction {
	return append([]QuickAction(nil), quickActions...)
}

func lookupQuickAction(id string) (QuickAction, bool) {
	for _, a := range quickActions {
		if a.ID == id {
			return a, true
		}
	}
	return QuickAction{}, false
}
