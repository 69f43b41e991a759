package onboard

import (
	"errors"
	"testing"

	"mellium.im/xmpp/jid"
)

type fakeAccounts struct {
	jids []string
	err  error
}

func (f fakeAccounts) Accounts() ([]jid.JID, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]jid.JID, 0, len(f.jids))
	for _, s := range f.jids {
		j, err := jid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func withInvitee(v string) *Intent {
	in := NewIntent(Screen("welcome"))
	in.Put(ExtraInvitee, v)
	return in
}

func TestUseOwnSetupSingleAccount(t *testing.T) {
	r := NewRouter(fakeAccounts{jids: []string{"juliet@example.com/balcony"}}, "")

	in, err := r.UseOwnSetup(nil)
	if err != nil {
		t.Fatal(err)
	}
	if in.Screen != ScreenEditAccount {
		t.Fatalf("screen = %s, want %s", in.Screen, ScreenEditAccount)
	}
	if got, _ := in.Get(ExtraJID); got != "juliet@example.com" {
		t.Errorf("jid = %q, want bare juliet@example.com", got)
	}
	if got, _ := in.Get(ExtraInit); got != "true" {
		t.Errorf("init = %q, want true", got)
	}
	if _, ok := in.Get(ExtraInvitee); ok {
		t.Error("unexpected invitee extra")
	}
}

func TestUseOwnSetupManageAccounts(t *testing.T) {
	cases := map[string][]string{
		"none": nil,
		"two":  {"a@example.com", "b@example.org"},
		"many": {"a@example.com", "b@example.org", "c@example.net"},
	}
	for name, jids := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRouter(fakeAccounts{jids: jids}, "")
			in, err := r.UseOwnSetup(nil)
			if err != nil {
				t.Fatal(err)
			}
			if in.Screen != ScreenManageAccounts {
				t.Errorf("screen = %s, want %s", in.Screen, ScreenManageAccounts)
			}
			if _, ok := in.Get(ExtraJID); ok {
				t.Error("manage screen must not carry a jid")
			}
		})
	}
}

func TestUseOwnSetupCarriesInvitee(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		jids := []string{"a@example.com", "b@example.com"}[:n]
		r := NewRouter(fakeAccounts{jids: jids}, "")
		in, err := r.UseOwnSetup(withInvitee("romeo@montague.lit"))
		if err != nil {
			t.Fatal(err)
		}
		if got, ok := in.Get(ExtraInvitee); !ok || got != "romeo@montague.lit" {
			t.Errorf("%d accounts: invitee = %q, %v", n, got, ok)
		}
	}
}

func TestUseOwnSetupError(t *testing.T) {
	r := NewRouter(fakeAccounts{err: errors.New("db closed")}, "")
	if _, err := r.UseOwnSetup(nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateAccount(t *testing.T) {
	in := NewRouter(fakeAccounts{}, "").CreateAccount()
	if in.Screen != ScreenBrowser || in.URL != DefaultRegistrationURL {
		t.Errorf("CreateAccount = %+v", in)
	}

	in = NewRouter(fakeAccounts{}, "https://register.example.org").CreateAccount()
	if in.URL != "https://register.example.org" {
		t.Errorf("URL = %q", in.URL)
	}
}

func TestAddInvitee(t *testing.T) {
	to := NewIntent(ScreenManageAccounts)
	AddInvitee(to, nil)
	AddInvitee(to, NewIntent(Screen("welcome")))
	if _, ok := to.Get(ExtraInvitee); ok {
		t.Fatal("invitee set without a source")
	}

	AddInvitee(to, withInvitee("x@example.com"))
	if got, _ := to.Get(ExtraInvitee); got != "x@example.com" {
		t.Errorf("invitee = %q", got)
	}
}

func TestAddInviteeFromURI(t *testing.T) {
	u, err := ParseURI("xmpp:romeo@montague.lit?roster;name=Romeo")
	if err != nil {
		t.Fatal(err)
	}
	to := NewIntent(ScreenEditAccount)
	AddInviteeFromURI(to, u)
	if got, _ := to.Get(ExtraInvitee); got != "romeo@montague.lit" {
		t.Errorf("invitee = %q", got)
	}

	bad, err := ParseURI("xmpp:@montague.lit?roster")
	if err != nil {
		t.Fatal(err)
	}
	to = NewIntent(ScreenEditAccount)
	AddInviteeFromURI(to, bad)
	if _, ok := to.Get(ExtraInvitee); ok {
		t.Error("invalid jid must not become an invitee")
	}
}

func TestIntentClone(t *testing.T) {
	a := withInvitee("x@example.com")
	b := a.Clone()
	b.Put(ExtraInvitee, "y@example.com")
	if got, _ := a.Get(ExtraInvitee); got != "x@example.com" {
		t.Error("Clone shares extras")
	}
}
