package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tablewright/tablewright/internal/catalog"
	"github.com/tablewright/tablewright/internal/inference"
)

// Backend is the slice of the catalog the reshape wizard needs.
type Backend interface {
	ListTables(ctx context.Context) ([]catalog.Table, error)
	AnalyzeShape(ctx context.Context, id int64) (*inference.ShapeAnalysis, error)
	Melt(ctx context.Context, req catalog.MeltRequest) (*catalog.Table, error)
	Pivot(ctx context.Context, req catalog.PivotRequest) (*catalog.Table, error)
}

// reshape wizard stages
type stage int

const (
	stagePickTable stage = iota
	stageAnalyzing
	stageAssignColumns
	stagePivotVars
	stageApplying
	stageDone
)

// columnRole is the user's assignment of one column in a melt.
type columnRole int

const (
	roleIDVar columnRole = iota
	roleValueVar
	roleSkip
)

func (r columnRole) String() string {
	switch r {
	case roleIDVar:
		return "id"
	case roleValueVar:
		return "value"
	default:
		return "skip"
	}
}

type analyzedMsg struct {
	analysis *inference.ShapeAnalysis
	err      error
}

type appliedMsg struct {
	table *catalog.Table
	err   error
}

// ReshapeModel is the bubbletea model for the interactive reshaper.
type ReshapeModel struct {
	backend Backend
	ctx     context.Context

	stage    stage
	tables   []catalog.Table
	cursor   int
	selected *catalog.Table

	analysis *inference.ShapeAnalysis
	roles    []columnRole // parallel to selected.Columns, melt only

	// long-to-wide inputs: column variable then value variable
	pivotInputs [2]textinput.Model
	pivotFocus  int

	spin      spinner.Model
	result    *catalog.Table
	err       error
	done      bool
	cancelled bool
	width     int
	height    int
}

// NewReshapeModel creates the reshape wizard over the given tables.
func NewReshapeModel(ctx context.Context, backend Backend, tables []catalog.Table) ReshapeModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = highlightStyle

	var inputs [2]textinput.Model
	for i, placeholder := range []string{"column variable", "value variable"} {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = 128
		inputs[i] = ti
	}
	inputs[0].Focus()

	return ReshapeModel{
		backend:     backend,
		ctx:         ctx,
		tables:      tables,
		spin:        sp,
		pivotInputs: inputs,
		width:       100,
		height:      24,
	}
}

// Cancelled reports whether the user backed out.
func (m ReshapeModel) Cancelled() bool { return m.cancelled }

// Result returns the reshaped table, if the wizard completed.
func (m ReshapeModel) Result() *catalog.Table { return m.result }

func (m ReshapeModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m ReshapeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case analyzedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.stage = stagePickTable
			return m, nil
		}
		m.analysis = msg.analysis
		if m.analysis.RecommendedDirection == inference.LongToWide {
			m.stage = stagePivotVars
			return m, textinput.Blink
		}
		m.roles = suggestRoles(m.selected, m.analysis)
		m.cursor = 0
		m.stage = stageAssignColumns
		return m, nil

	case appliedMsg:
		if msg.err != nil {
			m.err = msg.err
			// Return to the stage the request came from so the user can
			// correct the inputs.
			if m.analysis != nil && m.analysis.RecommendedDirection == inference.LongToWide {
				m.stage = stagePivotVars
				return m, textinput.Blink
			}
			m.stage = stageAssignColumns
			return m, nil
		}
		m.result = msg.table
		m.stage = stageDone
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m ReshapeModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.done = true
		m.cancelled = true
		return m, tea.Quit
	}

	switch m.stage {
	case stagePickTable:
		switch msg.String() {
		case "q", "esc":
			m.done = true
			m.cancelled = true
			return m, tea.Quit
		case "j", "down":
			if m.cursor < len(m.tables)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "enter":
			if len(m.tables) == 0 {
				return m, nil
			}
			m.selected = &m.tables[m.cursor]
			m.err = nil
			m.stage = stageAnalyzing
			return m, tea.Batch(m.spin.Tick, m.analyzeCmd(m.selected.ID))
		}

	case stageAssignColumns:
		switch msg.String() {
		case "q", "esc":
			m.stage = stagePickTable
			m.err = nil
		case "j", "down":
			if m.cursor < len(m.roles)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case " ": // cycle: id → value → skip → id
			m.roles[m.cursor] = (m.roles[m.cursor] + 1) % 3
		case "i":
			m.roles[m.cursor] = roleIDVar
		case "v":
			m.roles[m.cursor] = roleValueVar
		case "s":
			m.roles[m.cursor] = roleSkip
		case "enter":
			req, err := m.meltRequest()
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.stage = stageApplying
			return m, tea.Batch(m.spin.Tick, m.meltCmd(req))
		}

	case stagePivotVars:
		switch msg.String() {
		case "esc":
			m.stage = stagePickTable
			m.err = nil
		case "tab", "shift+tab", "up", "down":
			m.pivotInputs[m.pivotFocus].Blur()
			m.pivotFocus = (m.pivotFocus + 1) % 2
			m.pivotInputs[m.pivotFocus].Focus()
			return m, textinput.Blink
		case "enter":
			req, err := m.pivotRequest()
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.stage = stageApplying
			return m, tea.Batch(m.spin.Tick, m.pivotCmd(req))
		default:
			var cmd tea.Cmd
			m.pivotInputs[m.pivotFocus], cmd = m.pivotInputs[m.pivotFocus].Update(msg)
			return m, cmd
		}

	case stageDone:
		switch msg.String() {
		case "q", "esc", "enter":
			m.done = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m ReshapeModel) analyzeCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		analysis, err := m.backend.AnalyzeShape(m.ctx, id)
		return analyzedMsg{analysis: analysis, err: err}
	}
}

func (m ReshapeModel) meltCmd(req catalog.MeltRequest) tea.Cmd {
	return func() tea.Msg {
		tbl, err := m.backend.Melt(m.ctx, req)
		return appliedMsg{table: tbl, err: err}
	}
}

func (m ReshapeModel) pivotCmd(req catalog.PivotRequest) tea.Cmd {
	return func() tea.Msg {
		tbl, err := m.backend.Pivot(m.ctx, req)
		return appliedMsg{table: tbl, err: err}
	}
}

func (m ReshapeModel) meltRequest() (catalog.MeltRequest, error) {
	req := catalog.MeltRequest{TableID: m.selected.ID}
	for i, role := range m.roles {
		switch role {
		case roleIDVar:
			req.IDVars = append(req.IDVars, m.selected.Columns[i].Name)
		case roleValueVar:
			req.ValueVars = append(req.ValueVars, m.selected.Columns[i].Name)
		}
	}
	if len(req.ValueVars) == 0 {
		return req, fmt.Errorf("assign at least one value column")
	}
	return req, nil
}

func (m ReshapeModel) pivotRequest() (catalog.PivotRequest, error) {
	columnVar := strings.TrimSpace(m.pivotInputs[0].Value())
	valueVar := strings.TrimSpace(m.pivotInputs[1].Value())
	if columnVar == "" || valueVar == "" {
		return catalog.PivotRequest{}, fmt.Errorf("both column and value variables are required")
	}

	req := catalog.PivotRequest{TableID: m.selected.ID, ColumnVar: columnVar, ValueVar: valueVar}
	for _, col := range m.selected.Columns {
		if col.Name != columnVar && col.Name != valueVar {
			req.IndexCols = append(req.IndexCols, col.Name)
		}
	}
	return req, nil
}

// suggestRoles seeds the column assignment from the shape analysis.
func suggestRoles(t *catalog.Table, analysis *inference.ShapeAnalysis) []columnRole {
	idSet := make(map[string]bool, len(analysis.SuggestedIDVars))
	for _, name := range analysis.SuggestedIDVars {
		idSet[name] = true
	}
	valueSet := make(map[string]bool, len(analysis.SuggestedValueVars))
	for _, name := range analysis.SuggestedValueVars {
		valueSet[name] = true
	}

	roles := make([]columnRole, len(t.Columns))
	for i, col := range t.Columns {
		switch {
		case idSet[col.Name]:
			roles[i] = roleIDVar
		case valueSet[col.Name]:
			roles[i] = roleValueVar
		default:
			roles[i] = roleSkip
		}
	}
	return roles
}

func (m ReshapeModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Reshape Table"))
	b.WriteString("\n\n")

	switch m.stage {
	case stagePickTable:
		if len(m.tables) == 0 {
			b.WriteString(dimStyle.Render("No tables in the catalog. Import one first."))
			b.WriteString("\n\n")
			b.WriteString(dimStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a table:\n\n")
		for i, t := range m.tables {
			line := fmt.Sprintf("%s  %d rows, %d columns", t.Name, t.RowCount, len(t.Columns))
			if i == m.cursor {
				b.WriteString(highlightStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("j/k move · enter select · q quit"))

	case stageAnalyzing:
		b.WriteString(m.spin.View())
		b.WriteString(" Analyzing " + m.selected.Name + "...")

	case stageAssignColumns:
		b.WriteString(fmt.Sprintf("%s is %s: %s\n\n",
			m.selected.Name,
			highlightStyle.Render(string(m.analysis.Shape)),
			m.analysis.Reason))
		b.WriteString("Assign columns for wide-to-long:\n\n")
		for i, col := range m.selected.Columns {
			role := m.roles[i]
			marker := fmt.Sprintf("[%-5s]", role)
			line := fmt.Sprintf("%s %s (%s)", marker, col.Name, col.Type)
			if i == m.cursor {
				b.WriteString(highlightStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("space cycle · i/v/s set role · enter apply · esc back"))

	case stagePivotVars:
		b.WriteString(fmt.Sprintf("%s is %s: %s\n\n",
			m.selected.Name,
			highlightStyle.Render(string(m.analysis.Shape)),
			m.analysis.Reason))
		b.WriteString("Long-to-wide variables:\n\n")
		b.WriteString("  Column variable: " + m.pivotInputs[0].View() + "\n")
		b.WriteString("  Value variable:  " + m.pivotInputs[1].View() + "\n\n")
		b.WriteString(dimStyle.Render("tab switch field · enter apply · esc back"))

	case stageApplying:
		b.WriteString(m.spin.View())
		b.WriteString(" Reshaping " + m.selected.Name + "...")

	case stageDone:
		b.WriteString(successStyle.Render("✓ Reshaped " + m.result.Name))
		b.WriteString(fmt.Sprintf("\n\nNow version %d with %d rows and %d columns.\n\n",
			m.result.CurrentVersion, m.result.RowCount, len(m.result.Columns)))
		b.WriteString(dimStyle.Render("enter finish"))
	}

	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(errStyle.Render("Error: " + m.err.Error()))
	}

	return b.String()
}
