package sampler

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// KindEmpty tags a sampling run that found nothing to sample from
const KindEmpty ftag.Kind = "empty_result"

func emptyResult(issue string) error {
	return fault.New(issue, ftag.With(KindEmpty), fmsg.WithDesc(issue, issue))
}

// IsEmpty reports whether err is an empty-result failure
func IsEmpty(err error) bool {
	return err != nil && ftag.Get(err) == KindEmpty
}
