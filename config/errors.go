package config

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// KindConfig tags unrecoverable configuration errors: the run must stop
// before doing any work
const KindConfig ftag.Kind = "config"

// Fail returns a configuration error carrying a user-facing message
func Fail(issue string) error {
	return fault.New(issue, ftag.With(KindConfig), fmsg.WithDesc(issue, issue))
}

// Wrap tags err as a configuration error with a user-facing message
func Wrap(err error, issue string) error {
	if err == nil {
		return nil
	}
	return fault.Wrap(err, ftag.With(KindConfig), fmsg.WithDesc(issue, issue))
}

// IsConfig reports whether err is tagged as a configuration error
func IsConfig(err error) bool {
	return err != nil && ftag.Get(err) == KindConfig
}
