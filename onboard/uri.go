package onboard

import (
	"fmt"
	"net/url"
	"strings"

	"mellium.im/xmpp/jid"
)

// URI is a parsed xmpp: link such as xmpp:romeo@example.net?roster;name=Romeo.
type URI struct {
	Raw    string
	JID    jid.JID
	Action string
	Params map[string]string

	jidValid bool
}

// IsJIDValid reports whether the address part parsed as a JID.
func (u URI) IsJIDValid() bool { return u.jidValid }

// ParseURI parses an xmpp: URI. A malformed address does not fail the parse;
// it only leaves IsJIDValid false. Anything that is not an xmpp: URI does.
func ParseURI(s string) (URI, error) {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil {
		return URI{}, fmt.Errorf("parsing uri: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "xmpp") {
		return URI{}, fmt.Errorf("not an xmpp uri: %q", s)
	}

	out := URI{Raw: s, Params: map[string]string{}}

	addr := u.Opaque
	if addr == "" {
		// xmpp://auth@host/target form; the target is the path
		addr = strings.TrimPrefix(u.Path, "/")
	}
	if addr, err = url.PathUnescape(addr); err == nil && addr != "" {
		if j, err := jid.Parse(addr); err == nil {
			out.JID = j
			out.jidValid = true
		}
	}

	if u.RawQuery != "" {
		parts := strings.Split(u.RawQuery, ";")
		out.Action = parts[0]
		for _, p := range parts[1:] {
			k, v, _ := strings.Cut(p, "=")
			if k == "" {
				continue
			}
			if dec, err := url.QueryUnescape(v); err == nil {
				v = dec
			}
			out.Params[k] = v
		}
	}
	return out, nil
}
