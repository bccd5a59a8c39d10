// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Riley Calder, Calder Avionics

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/calder-avionics/mantactl/pkg/dronecan"
	"github.com/calder-avionics/mantactl/pkg/manta"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	registryPollInterval = 750 * time.Millisecond
	maxEventLogEntries   = 100
)

// Focus states
const (
	focusNodeList = iota
	focusParamTable
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// busNode is one controller heard on the bus
type busNode struct {
	info dronecan.NodeInfo
}

// Implement list.Item interface
func (n busNode) Title() string { return fmt.Sprintf("Node %d", n.info.ID) }
func (n busNode) Description() string {
	return fmt.Sprintf("%s/%s up %ds", n.info.Status.Health, n.info.Status.Mode, n.info.Status.UptimeSec)
}
func (n busNode) FilterValue() string { return fmt.Sprintf("%d", n.info.ID) }

type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// panelModel is the Bubble Tea model for the configuration panel
type panelModel struct {
	// Bus manager (for sending requests and reconnection)
	busMgr   *busManager
	connInfo string

	// Node tracking
	registry *dronecan.Registry
	nodeList list.Model

	// Parameter state
	controller *manta.Controller
	target     uint8
	hasTarget  bool

	// Monitoring
	stats    *dronecan.Statistics
	eventLog []eventLogEntry

	// Editing
	paramCursor int
	valueInput  textinput.Model
	editing     bool
	writeGen    int

	// UI state
	width          int
	height         int
	focusedField   int
	quitting       bool
	connectionLost bool

	startTime time.Time
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type fetchTickMsg time.Time

type registryTickMsg time.Time

type panelDataMsg struct {
	transfer *dronecan.Transfer
	err      error
}

type panelBatchMsg struct {
	messages []panelDataMsg
}

type writeDueMsg struct {
	gen    int
	target uint8
	name   string
	text   string
}

type busLostMsg struct{}

type busReconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialPanelModel(busMgr *busManager, connInfo string) panelModel {
	ti := textinput.New()
	ti.CharLimit = 12
	ti.Width = 14

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	nodeList := list.New([]list.Item{}, delegate, 30, 10)
	nodeList.Title = "Controllers"
	nodeList.SetShowStatusBar(false)
	nodeList.SetShowHelp(false)
	nodeList.SetFilteringEnabled(false)

	return panelModel{
		busMgr:       busMgr,
		connInfo:     connInfo,
		registry:     dronecan.NewRegistry(),
		nodeList:     nodeList,
		controller:   manta.NewController(busTransport{busMgr}, nil),
		stats:        dronecan.NewStatistics(),
		eventLog:     make([]eventLogEntry, 0),
		valueInput:   ti,
		focusedField: focusNodeList,
		width:        80,
		height:       24,
		startTime:    time.Now(),
	}
}

// busTransport adapts the shared bus manager to the controller's transport.
// Requests sent while the connection is down fail fast.
type busTransport struct {
	bm *busManager
}

func (t busTransport) RequestGetSet(dest uint8, req dronecan.GetSetRequest, done func(error)) error {
	bus := t.bm.getBus()
	if bus == nil {
		err := fmt.Errorf("bus not connected")
		if done != nil {
			done(err)
		}
		return err
	}
	return bus.RequestGetSet(dest, req, done)
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m panelModel) Init() tea.Cmd {
	return tea.Batch(fetchTickCmd(), registryTickCmd())
}

func fetchTickCmd() tea.Cmd {
	return tea.Tick(manta.FetchInterval, func(t time.Time) tea.Msg {
		return fetchTickMsg(t)
	})
}

func registryTickCmd() tea.Cmd {
	return tea.Tick(registryPollInterval, func(t time.Time) tea.Msg {
		return registryTickMsg(t)
	})
}

func (m panelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case fetchTickMsg:
		m.stats.CalculateRates()
		if m.controller.Fetching() && !m.connectionLost {
			if err := m.controller.Tick(); err != nil {
				m.addLogEntry(fmt.Sprintf("Request failed: %v", err), true)
			}
		}
		// Announce ourselves so other bus tools see this node.
		if bus := m.busMgr.getBus(); bus != nil && !m.connectionLost {
			bus.BroadcastNodeStatus(dronecan.NodeStatus{
				UptimeSec: uint32(time.Since(m.startTime).Seconds()),
				Health:    dronecan.HealthOK,
				Mode:      dronecan.ModeOperational,
			})
		}
		return m, fetchTickCmd()

	case registryTickMsg:
		m.updateNodeList()
		return m, registryTickCmd()

	case panelBatchMsg:
		for _, data := range msg.messages {
			m.processPanelData(data)
		}

	case writeDueMsg:
		// A newer edit supersedes the scheduled write.
		if msg.gen == m.writeGen {
			if err := m.controller.SetFromText(msg.target, msg.name, msg.text); err != nil {
				m.addLogEntry(fmt.Sprintf("Write failed: %v", err), true)
			} else {
				m.addLogEntry(fmt.Sprintf("Wrote %s = %s to node %d", msg.name, msg.text, msg.target), false)
			}
		}

	case busLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case busReconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addLogEntry("Reconnected", false)
	}

	// Update child components
	var cmd tea.Cmd
	if m.editing {
		m.valueInput, cmd = m.valueInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.focusedField == focusNodeList {
		m.nodeList, cmd = m.nodeList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *panelModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.handleEditingKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		if m.focusedField == focusNodeList {
			m.focusedField = focusParamTable
		} else {
			m.focusedField = focusNodeList
		}
		return m, nil

	case "f":
		if m.hasTarget {
			m.startFetch(m.target)
		}
		return m, nil

	case "enter":
		return m.handleEnter()

	case "up", "k":
		if m.focusedField == focusParamTable && m.paramCursor > 0 {
			m.paramCursor--
			return m, nil
		}

	case "down", "j":
		if m.focusedField == focusParamTable && m.paramCursor < m.controller.Catalog().Count()-1 {
			m.paramCursor++
			return m, nil
		}

	case "esc":
		if m.controller.Fetching() {
			m.controller.AbortFetch()
			m.addLogEntry("Fetch aborted", false)
		}
		return m, nil
	}

	if m.focusedField == focusNodeList {
		var cmd tea.Cmd
		m.nodeList, cmd = m.nodeList.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *panelModel) handleEditingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.valueInput.Blur()
		return m, nil

	case "enter":
		m.editing = false
		m.valueInput.Blur()
		return m, m.scheduleWrite(m.valueInput.Value())
	}

	var cmd tea.Cmd
	m.valueInput, cmd = m.valueInput.Update(msg)
	return m, cmd
}

func (m *panelModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.connectionLost {
		m.addLogEntry("Cannot send: connection lost", true)
		return m, nil
	}

	switch m.focusedField {
	case focusNodeList:
		selected := m.getSelectedNode()
		if selected == nil {
			return m, nil
		}
		m.startFetch(selected.info.ID)

	case focusParamTable:
		if !m.hasTarget {
			m.addLogEntry("Select a node and fetch first", true)
			return m, nil
		}
		d, ok := m.controller.Catalog().ByIndex(m.paramCursor)
		if !ok {
			return m, nil
		}
		m.editing = true
		m.valueInput.SetValue(m.currentValue(d.Name))
		m.valueInput.CursorEnd()
		m.valueInput.Focus()
	}

	return m, nil
}

//////////////////////////////////////////////////////////////
// Actions
//////////////////////////////////////////////////////////////

func (m *panelModel) startFetch(target uint8) {
	m.target = target
	m.hasTarget = true
	m.controller.StartFetch(target)
	m.addLogEntry(fmt.Sprintf("Fetching parameters from node %d", target), false)
}

func (m *panelModel) scheduleWrite(text string) tea.Cmd {
	d, ok := m.controller.Catalog().ByIndex(m.paramCursor)
	if !ok {
		return nil
	}

	// CAN_SPEED edits accept the bitrate labels shown in the table.
	if d.Name == manta.ParamCanSpeed {
		if code, ok := manta.BitrateCodeForLabel(strings.TrimSpace(text)); ok {
			text = fmt.Sprintf("%d", code)
		}
	}

	m.writeGen++
	due := writeDueMsg{gen: m.writeGen, target: m.target, name: d.Name, text: text}
	return tea.Tick(manta.WriteDelay, func(time.Time) tea.Msg {
		return due
	})
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *panelModel) processPanelData(data panelDataMsg) {
	m.stats.Update(data.transfer, data.err)

	if data.err != nil {
		m.addLogEntry(fmt.Sprintf("BUS ERROR: %v", data.err), true)
		return
	}
	if data.transfer == nil {
		return
	}

	t := data.transfer
	if t.Header.IsService {
		// The firmware acknowledges GetSet out of band via log lines;
		// formal responses carry nothing the panel needs.
		return
	}

	switch t.Header.DataTypeID {
	case dronecan.TypeNodeStatus:
		status, err := dronecan.ParseNodeStatus(t.Payload)
		if err != nil {
			m.addLogEntry(fmt.Sprintf("Bad NodeStatus from node %d: %v", t.Header.Source, err), true)
			return
		}
		if m.registry.ObserveStatus(t.Header.Source, status) {
			m.addLogEntry(fmt.Sprintf("Node %d appeared", t.Header.Source), false)
			m.updateNodeList()
		}

	case dronecan.TypeLogMessage:
		msg, err := dronecan.ParseLogMessage(t.Payload)
		if err != nil {
			m.addLogEntry(fmt.Sprintf("Bad log message from node %d: %v", t.Header.Source, err), true)
			return
		}
		m.processLogMessage(t.Header.Source, msg)
	}
}

func (m *panelModel) processLogMessage(source uint8, msg dronecan.LogMessage) {
	// Only the fetch target's messages correlate with our requests.
	if !m.hasTarget || source != m.target {
		if msg.Level != dronecan.LogInfo {
			m.addLogEntry(fmt.Sprintf("Node %d %s: %s", source, msg.Level, msg.Text), msg.Level == dronecan.LogError)
		}
		return
	}

	out := m.controller.HandleLogMessage(msg)
	if out.LogLine != "" {
		m.addLogEntry(fmt.Sprintf("Node %d %s: %s", source, out.Level, out.LogLine), out.Level == dronecan.LogError)
	}
	if out.Complete {
		m.addLogEntry(fmt.Sprintf("All %d parameters received", m.controller.Catalog().Count()), false)
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m panelModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("MANTA50 PANEL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch f=fetch", connStatus)))
	s.WriteString("\n\n")

	// Layout: left panel (nodes) | right panel (parameters)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusNodeList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	nodePanel := listStyle.Render(m.nodeList.View())

	paramStyle := boxStyle.Width(rightWidth)
	if m.focusedField == focusParamTable {
		paramStyle = focusedBoxStyle.Width(rightWidth)
	}
	paramPanel := paramStyle.Render(m.renderParamTable(labelStyle, valueStyle, headerStyle, warningStyle))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, nodePanel, " ", paramPanel))
	s.WriteString("\n\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(m.renderEventLog(labelStyle, warningStyle, errorStyle, headerStyle, boxStyle))

	return s.String()
}

func (m panelModel) renderParamTable(labelStyle, valueStyle, headerStyle, warningStyle lipgloss.Style) string {
	var s strings.Builder

	if !m.hasTarget {
		s.WriteString(headerStyle.Render("No controller selected.\nChoose a node and press Enter to fetch."))
		return s.String()
	}

	catalog := m.controller.Catalog()
	store := m.controller.Store()

	status := fmt.Sprintf("Node %d  %d/%d", m.target, store.Len(), catalog.Count())
	if m.controller.Fetching() {
		status += warningStyle.Render("  fetching...")
	}
	s.WriteString(labelStyle.Render("PARAMETERS "))
	s.WriteString(headerStyle.Render(status))
	s.WriteString("\n")

	snapshot := manta.Reflect(store)
	for i, name := range catalog.Names() {
		cursor := "  "
		if m.focusedField == focusParamTable && i == m.paramCursor {
			cursor = "> "
		}
		s.WriteString(cursor)
		s.WriteString(labelStyle.Render(fmt.Sprintf("%-11s", name)))

		if m.editing && i == m.paramCursor {
			s.WriteString(m.valueInput.View())
		} else {
			s.WriteString(valueStyle.Render(m.displayValue(snapshot, name)))
		}
		s.WriteString("\n")
	}

	return s.String()
}

// displayValue renders one parameter for the table: raw values decorated
// with their decoded meaning where one exists.
func (m panelModel) displayValue(snapshot *manta.Snapshot, name string) string {
	if !snapshot.Has(name) {
		return "-"
	}

	v, _ := m.controller.Store().Get(name)
	switch name {
	case manta.ParamCanSpeed:
		return snapshot.CanSpeed
	case manta.ParamCtrlWord:
		return fmt.Sprintf("%s (%s)", v.Value, snapshot.CtrlWord)
	case manta.ParamArming:
		if snapshot.Arming {
			return v.Value + " (armed)"
		}
		return v.Value + " (disarmed)"
	default:
		return v.Value
	}
}

func (m panelModel) renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle lipgloss.Style) string {
	m.stats.CalculateRates()

	errorCount := m.stats.CRCErrors + m.stats.DecodeErrors
	errorText := valueStyle.Render("0")
	if errorCount > 0 {
		errorText = errorStyle.Render(fmt.Sprintf("%d", errorCount))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("Transfers:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.Transfers)),
		labelStyle.Render("Errors:"), errorText,
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f fps", m.stats.FrameRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m panelModel) renderEventLog(labelStyle, warningStyle, errorStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}

	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *panelModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.eventLog) > maxEventLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxEventLogEntries:]
	}
}

// currentValue returns the stored value for a name, editable form: the
// CAN speed keeps its raw divider code so edits round-trip.
func (m *panelModel) currentValue(name string) string {
	v, ok := m.controller.Store().Get(name)
	if !ok {
		return ""
	}
	return v.Value
}

func (m *panelModel) getSelectedNode() *busNode {
	item := m.nodeList.SelectedItem()
	if item == nil {
		return nil
	}
	n, ok := item.(busNode)
	if !ok {
		return nil
	}
	return &n
}

func (m *panelModel) updateNodeList() {
	nodes := m.registry.Nodes()
	items := make([]list.Item, len(nodes))
	for i, info := range nodes {
		items[i] = busNode{info: info}
	}
	m.nodeList.SetItems(items)
}

func (m *panelModel) updateListSize() {
	listHeight := m.height / 3
	if listHeight < 5 {
		listHeight = 5
	}
	m.nodeList.SetSize(28, listHeight)
}
