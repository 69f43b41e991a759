// Package onboard routes a first-time user from the welcome screen to
// account registration or to the account screens.
package onboard

import (
	"fmt"
	"maps"

	"mellium.im/xmpp/jid"

	"kandru/log"
)

type Screen string

const (
	ScreenEditAccount    Screen = "edit_account"
	ScreenManageAccounts Screen = "manage_accounts"
	ScreenBrowser        Screen = "browser"
)

const (
	ExtraInvitee = "invitee"
	ExtraJID     = "jid"
	ExtraInit    = "init"

	DefaultRegistrationURL = "https://account.kandru.de"
)

// Intent is a launch request for the next screen.
type Intent struct {
	Screen Screen
	URL    string
	Extras map[string]string
}

func NewIntent(screen Screen) *Intent {
	return &Intent{Screen: screen, Extras: map[string]string{}}
}

func (i *Intent) Put(key, value string) {
	if i.Extras == nil {
		i.Extras = map[string]string{}
	}
	i.Extras[key] = value
}

func (i *Intent) Get(key string) (string, bool) {
	if i == nil {
		return "", false
	}
	v, ok := i.Extras[key]
	return v, ok
}

func (i *Intent) Clone() *Intent {
	c := *i
	c.Extras = maps.Clone(i.Extras)
	return &c
}

// AccountService exposes the accounts configured on this device.
type AccountService interface {
	Accounts() ([]jid.JID, error)
}

type Router struct {
	accounts        AccountService
	registrationURL string
}

func NewRouter(accounts AccountService, registrationURL string) *Router {
	if registrationURL == "" {
		registrationURL = DefaultRegistrationURL
	}
	return &Router{accounts: accounts, registrationURL: registrationURL}
}

// CreateAccount hands off to the external registration page.
func (r *Router) CreateAccount() *Intent {
	in := NewIntent(ScreenBrowser)
	in.URL = r.registrationURL
	log.Route(string(in.Screen), -1, false)
	return in
}

// UseOwnSetup routes to the edit screen when exactly one account exists and
// to the management screen otherwise. An invitee on from is carried over.
func (r *Router) UseOwnSetup(from *Intent) (*Intent, error) {
	accounts, err := r.accounts.Accounts()
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	var in *Intent
	if len(accounts) == 1 {
		in = NewIntent(ScreenEditAccount)
		in.Put(ExtraJID, accounts[0].Bare().String())
		in.Put(ExtraInit, "true")
	} else {
		in = NewIntent(ScreenManageAccounts)
	}
	AddInvitee(in, from)

	_, hasInvitee := in.Get(ExtraInvitee)
	log.Route(string(in.Screen), len(accounts), hasInvitee)
	return in, nil
}

// AddInvitee copies the invitee extra from one request to another.
func AddInvitee(to, from *Intent) {
	if v, ok := from.Get(ExtraInvitee); ok {
		to.Put(ExtraInvitee, v)
	}
}

// AddInviteeFromURI sets the invitee from an xmpp: URI if its JID is valid.
func AddInviteeFromURI(to *Intent, u URI) {
	if u.IsJIDValid() {
		to.Put(ExtraInvitee, u.JID.String())
	}
}
