package main

import (
	"fmt"
	"io"
	"maps"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"kandru/accounts"
	"kandru/log"
	"kandru/onboard"
)

type welcomeChoice int

const (
	choiceNone welcomeChoice = iota
	choiceCreate
	choiceOwn
)

type welcomeFlags struct {
	invitee   string
	uri       string
	create    bool
	own       bool
	noBrowser bool
}

func newWelcomeCmd(a *app) *cobra.Command {
	var f welcomeFlags
	cmd := &cobra.Command{
		Use:   "welcome",
		Short: "First-run screen: create an account or use an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWelcome(cmd.OutOrStdout(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.invitee, "invitee", "", "invitee carried over to the next screen")
	fl.StringVar(&f.uri, "uri", "", "xmpp: link the user arrived with; a valid JID becomes the invitee")
	fl.BoolVar(&f.create, "create", false, "skip the screen and create a new account")
	fl.BoolVar(&f.own, "own", false, "skip the screen and use an existing account setup")
	fl.BoolVar(&f.noBrowser, "no-browser", false, "print the registration URL instead of opening it")
	cmd.MarkFlagsMutuallyExclusive("create", "own")
	return cmd
}

func (a *app) runWelcome(out io.Writer, f welcomeFlags) error {
	from := onboard.NewIntent(onboard.Screen("welcome"))
	if f.invitee != "" {
		from.Put(onboard.ExtraInvitee, f.invitee)
	}
	if f.uri != "" {
		u, err := onboard.ParseURI(f.uri)
		if err != nil {
			return err
		}
		onboard.AddInviteeFromURI(from, u)
	}

	choice := choiceNone
	switch {
	case f.create:
		choice = choiceCreate
	case f.own:
		choice = choiceOwn
	default:
		m, err := tea.NewProgram(welcomeModel{registrationURL: a.cfg.RegistrationURL}).Run()
		if err != nil {
			return fmt.Errorf("running terminal UI: %w", err)
		}
		choice = m.(welcomeModel).chosen
	}
	if choice == choiceNone {
		return nil
	}

	store, err := accounts.Open(a.cfg.AccountsDB)
	if err != nil {
		return err
	}
	defer store.Close()
	router := onboard.NewRouter(store, a.cfg.RegistrationURL)

	var next *onboard.Intent
	if choice == choiceCreate {
		next = router.CreateAccount()
	} else if next, err = router.UseOwnSetup(from); err != nil {
		return err
	}

	fmt.Fprintln(out, formatIntent(next))
	if next.Screen == onboard.ScreenBrowser && !f.noBrowser {
		if err := openURL(next.URL); err != nil {
			log.Warnf("opening browser: %v", err)
			fmt.Fprintf(out, "Open %s in your browser to register.\n", next.URL)
		}
	}
	return nil
}

// formatIntent renders a launch request as "screen key=value ...".
func formatIntent(in *onboard.Intent) string {
	parts := []string{string(in.Screen)}
	if in.URL != "" {
		parts = append(parts, in.URL)
	}
	for _, k := range slices.Sorted(maps.Keys(in.Extras)) {
		parts = append(parts, k+"="+in.Extras[k])
	}
	return strings.Join(parts, " ")
}

func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

type welcomeOption struct {
	choice welcomeChoice
	label  string
	hint   string
}

type welcomeModel struct {
	registrationURL string
	cursor          int
	chosen          welcomeChoice
}

func (m welcomeModel) options() []welcomeOption {
	url := m.registrationURL
	if url == "" {
		url = onboard.DefaultRegistrationURL
	}
	return []welcomeOption{
		{choiceCreate, "Create new account", "register at " + url},
		{choiceOwn, "Use existing account", "sign in with an XMPP account you already have"},
	}
}

func (m welcomeModel) Init() tea.Cmd { return nil }

func (m welcomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	opts := m.options()
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "tab":
		if m.cursor < len(opts)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.chosen = opts[m.cursor].choice
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m welcomeModel) View() string {
	if m.chosen != choiceNone {
		return ""
	}
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("36")).Bold(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome to kandru") + "\n\n")
	for i, o := range m.options() {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("▶ "+o.label) + "\n")
		} else {
			b.WriteString("  " + o.label + "\n")
		}
		b.WriteString(dimStyle.Render("    "+o.hint) + "\n")
	}
	b.WriteString("\n" + helpKeyStyle.Render("↑/↓") + helpStyle.Render(" move  ") +
		helpKeyStyle.Render("Enter") + helpStyle.Render(" choose  ") +
		helpKeyStyle.Render("Esc") + helpStyle.Render(" quit") + "\n")
	return b.String()
}
