package tui

import (
	"context"
	"strings"
	"time"

	"tache-cli/internal/api"
	"tache-cli/internal/model"
	"tache-cli/internal/report"
	"tache-cli/internal/session"
	"tache-cli/internal/store"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type view int

const (
	viewLogin view = iota
	viewTasks
	viewResult
)

type inputMode int

const (
	modeNone inputMode = iota
	modeAdd
	modeEditTitle
	modeEditDescription
)

const pollInterval = report.DefaultInterval

// Messages produced by network commands. Each carries the session epoch
// captured when the request was issued; responses from a session that has
// since been logged out are dropped without touching visible state.
type loginResultMsg struct {
	token string
	err   error
}

type tasksLoadedMsg struct {
	epoch uint64
	err   error
}

type taskMutatedMsg struct {
	epoch uint64
	err   error
}

type reportSubmittedMsg struct {
	epoch uint64
	err   error
}

type pollTickMsg struct {
	epoch uint64
}

type pollResultMsg struct {
	epoch  uint64
	status report.Status
}

type appModel struct {
	cfg     Config
	client  *api.Client
	holder  *session.Holder
	tasks   *store.Tasks
	machine *report.Machine

	width  int
	height int

	view view
	mode inputMode

	username   textinput.Model
	password   textinput.Model
	loginFocus int

	taskList   list.Model
	inputTitle textinput.Model
	inputDesc  textinput.Model
	formFocus  int
	editID     int

	spin spinner.Model

	// Single most-recent-error slot, kept until superseded by a new error or
	// a new successful operation.
	errText string

	loading bool
}

func newAppModel(cfg Config) appModel {
	m := appModel{
		cfg:     cfg,
		client:  api.New(api.WithBaseURL(cfg.BaseURL)),
		holder:  &session.Holder{},
		tasks:   &store.Tasks{},
		machine: &report.Machine{},
		view:    viewLogin,
	}

	m.username = textinput.New()
	m.username.Prompt = ""
	m.username.Placeholder = "Nom d'utilisateur"
	m.username.CharLimit = 128
	m.username.Width = 32
	m.username.Focus()

	m.password = textinput.New()
	m.password.Prompt = ""
	m.password.Placeholder = "Mot de passe"
	m.password.CharLimit = 128
	m.password.Width = 32
	m.password.EchoMode = textinput.EchoPassword

	m.inputTitle = textinput.New()
	m.inputTitle.Prompt = ""
	m.inputTitle.Placeholder = "Titre"
	m.inputTitle.CharLimit = 256
	m.inputTitle.Width = 48

	m.inputDesc = textinput.New()
	m.inputDesc.Prompt = ""
	m.inputDesc.Placeholder = "Description (optionnelle)"
	m.inputDesc.CharLimit = 256
	m.inputDesc.Width = 48

	m.taskList = newList("Tâches", nil)

	m.spin = spinner.New()
	m.spin.Spinner = spinner.Dot
	m.spin.Style = stylePending()

	if strings.TrimSpace(cfg.Token) != "" {
		m.holder.SetToken(cfg.Token)
		m.view = viewTasks
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.view == viewTasks {
		return tea.Batch(m.loadTasksCmd(), m.spin.Tick)
	}
	return textinput.Blink
}

// --- commands -----------------------------------------------------------

func (m appModel) loginCmd(username, password string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		token, err := client.Login(context.Background(), username, password)
		return loginResultMsg{token: token, err: err}
	}
}

func (m appModel) loadTasksCmd() tea.Cmd {
	client, tasks := m.client, m.tasks
	token, epoch := m.holder.Snapshot()
	return func() tea.Msg {
		err := tasks.Load(context.Background(), client, token)
		return tasksLoadedMsg{epoch: epoch, err: err}
	}
}

func (m appModel) createTaskCmd(title, description string) tea.Cmd {
	client, tasks := m.client, m.tasks
	token, epoch := m.holder.Snapshot()
	return func() tea.Msg {
		_, err := tasks.Create(context.Background(), client, token, title, description)
		return taskMutatedMsg{epoch: epoch, err: err}
	}
}

func (m appModel) deleteTaskCmd(id int) tea.Cmd {
	client, tasks := m.client, m.tasks
	token, epoch := m.holder.Snapshot()
	return func() tea.Msg {
		err := tasks.Delete(context.Background(), client, token, id)
		return taskMutatedMsg{epoch: epoch, err: err}
	}
}

func (m appModel) toggleTaskCmd(id int) tea.Cmd {
	client, tasks := m.client, m.tasks
	token, epoch := m.holder.Snapshot()
	return func() tea.Msg {
		_, err := tasks.ToggleDone(context.Background(), client, token, id)
		return taskMutatedMsg{epoch: epoch, err: err}
	}
}

func (m appModel) updateTaskCmd(id int, patch model.TaskPatch) tea.Cmd {
	client, tasks := m.client, m.tasks
	token, epoch := m.holder.Snapshot()
	return func() tea.Msg {
		_, err := tasks.Update(context.Background(), client, token, id, patch)
		return taskMutatedMsg{epoch: epoch, err: err}
	}
}

func (m appModel) submitReportCmd() tea.Cmd {
	client, machine := m.client, m.machine
	token, epoch := m.holder.Snapshot()
	return func() tea.Msg {
		_, err := machine.Submit(context.Background(), client, token)
		return reportSubmittedMsg{epoch: epoch, err: err}
	}
}

func (m appModel) pollCmd() tea.Cmd {
	client, machine := m.client, m.machine
	token, epoch := m.holder.Snapshot()
	return func() tea.Msg {
		st, err := machine.Poll(context.Background(), client, token)
		if err != nil {
			// No job tracked anymore (reset under us); nothing to apply.
			st = machine.Status()
		}
		return pollResultMsg{epoch: epoch, status: st}
	}
}

func pollTick(epoch uint64) tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return pollTickMsg{epoch: epoch} })
}

// --- update -------------------------------------------------------------

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeList()
		return m, nil

	case spinner.TickMsg:
		if !m.machine.Active() && !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loginResultMsg:
		if m.view != viewLogin {
			return m, nil
		}
		if msg.err != nil {
			m.loading = false
			m.errText = msg.err.Error()
			return m, nil
		}
		m.holder.SetToken(msg.token)
		if err := session.SaveFile(msg.token, m.cfg.BaseURL); err != nil {
			m.errText = err.Error()
		} else {
			m.errText = ""
		}
		m.view = viewTasks
		m.loading = true
		m.password.SetValue("")
		return m, tea.Batch(m.loadTasksCmd(), m.spin.Tick)

	case tasksLoadedMsg:
		if !m.holder.StillCurrent(msg.epoch) {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			cmd := m.maybeDropSession(msg.err)
			return m, cmd
		}
		m.errText = ""
		m.refreshTaskList()
		return m, nil

	case taskMutatedMsg:
		if !m.holder.StillCurrent(msg.epoch) {
			return m, nil
		}
		if msg.err != nil {
			m.errText = msg.err.Error()
			cmd := m.maybeDropSession(msg.err)
			return m, cmd
		}
		m.errText = ""
		m.refreshTaskList()
		return m, nil

	case reportSubmittedMsg:
		if !m.holder.StillCurrent(msg.epoch) {
			return m, nil
		}
		if msg.err != nil {
			m.errText = msg.err.Error()
			cmd := m.maybeDropSession(msg.err)
			return m, cmd
		}
		m.errText = ""
		return m, tea.Batch(pollTick(msg.epoch), m.spin.Tick)

	case pollTickMsg:
		if !m.holder.StillCurrent(msg.epoch) {
			return m, nil
		}
		return m, m.pollCmd()

	case pollResultMsg:
		if !m.holder.StillCurrent(msg.epoch) {
			return m, nil
		}
		if msg.status.Terminal() || msg.status.State == model.JobNone {
			return m, nil
		}
		return m, pollTick(msg.epoch)

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m appModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case viewLogin:
		return m.updateLoginKeys(msg)
	case viewResult:
		switch msg.String() {
		case "esc", "backspace", "q", "v":
			m.view = viewTasks
			return m, nil
		}
		return m, nil
	default:
		if m.mode != modeNone {
			return m.updateFormKeys(msg)
		}
		return m.updateTasksKeys(msg)
	}
}

func (m appModel) updateLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		// Let "q" type into the inputs; only ctrl+c quits from login.
	case "tab", "shift+tab", "up", "down":
		m.loginFocus = 1 - m.loginFocus
		if m.loginFocus == 0 {
			m.password.Blur()
			cmd := m.username.Focus()
			return m, cmd
		}
		m.username.Blur()
		cmd := m.password.Focus()
		return m, cmd
	case "enter":
		u := strings.TrimSpace(m.username.Value())
		p := m.password.Value()
		if u == "" || p == "" {
			m.errText = "nom d'utilisateur et mot de passe requis"
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.loginCmd(u, p), m.spin.Tick)
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m appModel) updateTasksKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "a":
		m.mode = modeAdd
		m.formFocus = 0
		m.inputTitle.SetValue("")
		m.inputDesc.SetValue("")
		cmd := m.inputTitle.Focus()
		return m, cmd

	case "e":
		if it, ok := m.taskList.SelectedItem().(taskItem); ok {
			m.mode = modeEditTitle
			m.editID = it.task.ID
			m.inputTitle.SetValue(it.task.Title)
			cmd := m.inputTitle.Focus()
			return m, cmd
		}
		return m, nil

	case "i":
		if it, ok := m.taskList.SelectedItem().(taskItem); ok {
			m.mode = modeEditDescription
			m.editID = it.task.ID
			m.inputTitle.SetValue(it.task.Description)
			cmd := m.inputTitle.Focus()
			return m, cmd
		}
		return m, nil

	case "enter", " ":
		if it, ok := m.taskList.SelectedItem().(taskItem); ok {
			return m, m.toggleTaskCmd(it.task.ID)
		}
		return m, nil

	case "d":
		if it, ok := m.taskList.SelectedItem().(taskItem); ok {
			return m, m.deleteTaskCmd(it.task.ID)
		}
		return m, nil

	case "g":
		if m.machine.Active() {
			m.errText = "un rapport est déjà en cours de génération"
			return m, nil
		}
		_ = m.machine.Reset()
		return m, tea.Batch(m.submitReportCmd(), m.spin.Tick)

	case "v":
		if m.machine.Status().State == model.JobSucceeded {
			m.view = viewResult
		}
		return m, nil

	case "r":
		m.loading = true
		return m, tea.Batch(m.loadTasksCmd(), m.spin.Tick)

	case "L":
		return m.logout()
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m appModel) updateFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.inputTitle.Blur()
		m.inputDesc.Blur()
		return m, nil

	case "tab", "shift+tab":
		if m.mode == modeAdd {
			m.formFocus = 1 - m.formFocus
			if m.formFocus == 0 {
				m.inputDesc.Blur()
				cmd := m.inputTitle.Focus()
				return m, cmd
			}
			m.inputTitle.Blur()
			cmd := m.inputDesc.Focus()
			return m, cmd
		}

	case "enter":
		switch m.mode {
		case modeAdd:
			title := m.inputTitle.Value()
			if strings.TrimSpace(title) == "" {
				// Same local guard as the store: no network call for a
				// blank title.
				m.errText = "le titre ne doit pas être vide"
				return m, nil
			}
			desc := m.inputDesc.Value()
			m.mode = modeNone
			m.inputTitle.Blur()
			m.inputDesc.Blur()
			return m, m.createTaskCmd(title, desc)

		case modeEditTitle:
			title := m.inputTitle.Value()
			if strings.TrimSpace(title) == "" {
				m.errText = "le titre ne doit pas être vide"
				return m, nil
			}
			id := m.editID
			m.mode = modeNone
			m.inputTitle.Blur()
			return m, m.updateTaskCmd(id, model.TaskPatch{Title: model.StrPtr(title)})

		case modeEditDescription:
			id := m.editID
			desc := m.inputTitle.Value()
			m.mode = modeNone
			m.inputTitle.Blur()
			return m, m.updateTaskCmd(id, model.TaskPatch{Description: model.StrPtr(desc)})
		}
	}

	var cmd tea.Cmd
	if m.mode == modeAdd && m.formFocus == 1 {
		m.inputDesc, cmd = m.inputDesc.Update(msg)
	} else {
		m.inputTitle, cmd = m.inputTitle.Update(msg)
	}
	return m, cmd
}

// logout abandons the session: the token is cleared (bumping the epoch so
// late responses are dropped), the collection and job machine are replaced
// with fresh ones, and the persisted token is removed. Any non-terminal job
// is abandoned, not cancelled server-side.
func (m appModel) logout() (tea.Model, tea.Cmd) {
	m.holder.Clear()
	_ = session.DeleteFile()
	m.tasks = &store.Tasks{}
	m.machine = &report.Machine{}
	m.taskList.SetItems(nil)
	m.errText = ""
	m.loading = false
	m.mode = modeNone
	m.view = viewLogin
	m.loginFocus = 0
	m.username.SetValue("")
	m.password.SetValue("")
	cmd := m.username.Focus()
	return m, cmd
}

// maybeDropSession returns to the login view when the service rejected the
// token mid-session.
func (m *appModel) maybeDropSession(err error) tea.Cmd {
	if !api.IsUnauthorized(err) {
		return nil
	}
	m.holder.Clear()
	_ = session.DeleteFile()
	m.tasks = &store.Tasks{}
	m.machine = &report.Machine{}
	m.taskList.SetItems(nil)
	m.mode = modeNone
	m.view = viewLogin
	m.username.SetValue("")
	m.password.SetValue("")
	m.loginFocus = 0
	return m.username.Focus()
}

func (m *appModel) refreshTaskList() {
	idx := m.taskList.Index()
	m.taskList.SetItems(taskItems(m.tasks.Snapshot()))
	if idx >= len(m.taskList.Items()) {
		idx = len(m.taskList.Items()) - 1
	}
	if idx >= 0 {
		m.taskList.Select(idx)
	}
}

func (m *appModel) resizeList() {
	h := m.height - 6 // header, status line, error line, form, footer
	if h < 3 {
		h = 3
	}
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	m.taskList.SetSize(w, h)
}

// --- view ---------------------------------------------------------------

func (m appModel) View() string {
	switch m.view {
	case viewLogin:
		return m.viewLogin()
	case viewResult:
		return m.viewResult()
	default:
		return m.viewTasks()
	}
}

func (m appModel) viewLogin() string {
	var b strings.Builder
	b.WriteString(styleTitle().Render("Ma Liste de Tâches — Connexion"))
	b.WriteString("\n\n")
	b.WriteString("  " + m.username.View() + "\n")
	b.WriteString("  " + m.password.View() + "\n")
	if m.loading {
		b.WriteString("\n  " + m.spin.View() + styleMuted().Render(" connexion..."))
	}
	if m.errText != "" {
		b.WriteString("\n  " + styleError().Render(m.errText))
	}
	b.WriteString("\n\n" + styleMuted().Render("  tab: champ suivant · entrée: se connecter · ctrl+c: quitter"))
	return b.String()
}

func (m appModel) viewTasks() string {
	var b strings.Builder
	b.WriteString(styleTitle().Render("Ma Liste de Tâches"))

	if line := m.reportLine(); line != "" {
		b.WriteString("\n" + line)
	}
	if m.errText != "" {
		b.WriteString("\n" + styleError().Render(m.errText))
	}
	b.WriteString("\n\n")
	b.WriteString(m.taskList.View())
	b.WriteString("\n")

	switch m.mode {
	case modeAdd:
		b.WriteString("\n" + styleAccent().Render("Nouvelle tâche") + "\n")
		b.WriteString("  " + m.inputTitle.View() + "\n")
		b.WriteString("  " + m.inputDesc.View() + "\n")
		b.WriteString(styleMuted().Render("  tab: champ suivant · entrée: créer · esc: annuler"))
	case modeEditTitle:
		b.WriteString("\n" + styleAccent().Render("Modifier le titre") + "\n")
		b.WriteString("  " + m.inputTitle.View() + "\n")
		b.WriteString(styleMuted().Render("  entrée: enregistrer · esc: annuler"))
	case modeEditDescription:
		b.WriteString("\n" + styleAccent().Render("Modifier la description") + "\n")
		b.WriteString("  " + m.inputTitle.View() + "\n")
		b.WriteString(styleMuted().Render("  entrée: enregistrer · esc: annuler"))
	default:
		b.WriteString("\n" + styleMuted().Render("espace: terminer · a: ajouter · e: titre · i: description · d: supprimer · g: rapport · r: recharger · L: déconnexion · q: quitter"))
	}
	return b.String()
}

// reportLine is the status banner for the tracked report job.
func (m appModel) reportLine() string {
	st := m.machine.Status()
	switch {
	case st.State == model.JobNone:
		if m.loading {
			return m.spin.View() + styleMuted().Render(" chargement...")
		}
		return ""
	case st.State == model.JobSucceeded:
		return styleDone().Render("Statut du rapport : rapport prêt") + styleMuted().Render("  (v: afficher)")
	case st.State == model.JobFailed:
		return styleError().Render("Statut du rapport : " + st.Text)
	default:
		return m.spin.View() + stylePending().Render(" Statut du rapport : "+st.Text)
	}
}

func (m appModel) viewResult() string {
	st := m.machine.Status()
	w := m.width - 4
	if w <= 0 {
		w = 76
	}
	body := renderMarkdown(st.Result, w)
	if body == "" {
		body = styleMuted().Render("(rapport vide)")
	}
	title := styleTitle().Render("Rapport")
	hint := styleMuted().Render("esc: retour")
	return lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", hint)
}
