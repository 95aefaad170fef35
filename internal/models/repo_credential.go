package models

import "strings"

// RepoCredential addresses the remote repository builds are pushed to.
// It lives in memory only.
type RepoCredential struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// Trimmed returns a copy with surrounding whitespace removed.
func (c RepoCredential) Trimmed() RepoCredential {
	return RepoCredential{
		Token: strings.TrimSpace(c.Token),
		Owner: strings.TrimSpace(c.Owner),
		Repo:  strings.TrimSpace(c.Repo),
	}
}

// Complete reports whether all three fields are present.
func (c RepoCredential) Complete() bool {
	t := c.Trimmed()
	return t.Token != "" && t.Owner != "" && t.Repo != ""
}

// Masked hides all but the last four characters of the token.
func (c RepoCredential) Masked() RepoCredential {
	out := c.Trimmed()
	if n := len(out.Token); n > 4 {
		out.Token = strings.Repeat("*", n-4) + out.Token[n-4:]
	} else if n > 0 {
		out.Token = strings.Repeat("*", n)
	}
	return out
}
