package scoped

import "github.com/iAmLakshya/supabase-scoped-clients/token"

// NewRemote mints a single token for the subject and returns a
// [HeaderRemote] carrying it. The result has no refresh lifecycle: it is the
// one-shot counterpart to [Builder.Build] for short-lived work that finishes
// well inside the token validity. Use a [Client] for long-lived handles.
func NewRemote(subject string, cfg Config) (*HeaderRemote, error) {
	issuer, err := NewIssuer(cfg, token.DefaultRole, nil, DefaultValidity)
	if err != nil {
		return nil, err
	}

	tok, err := issuer.Issue(subject)
	if err != nil {
		return nil, err
	}

	remote := NewHeaderRemote(cfg)
	remote.ApplyToken(tok.Raw)

	return remote, nil
}
