package leadparse

import (
	"errors"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/card-ingest/internal/model"
)

const minPhoneLen = 7

var validEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks an assembled lead against the lead schema: the email must
// look like an address and the phone must carry at least seven characters.
// Absent (empty) fields always pass. The returned lead is the validated copy.
func Validate(lead model.Lead) (model.Lead, error) {
	var errs []error
	if lead.Email != "" && !validEmail.MatchString(lead.Email) {
		errs = append(errs, eris.Errorf("email %q is not a valid address", lead.Email))
	}
	if lead.Phone != "" && len(lead.Phone) < minPhoneLen {
		errs = append(errs, eris.Errorf("phone %q is shorter than %d characters", lead.Phone, minPhoneLen))
	}
	if len(errs) > 0 {
		return lead, eris.Wrap(errors.Join(errs...), "leadparse: validate")
	}
	return lead, nil
}

// validOr runs validate and falls back to the unvalidated candidate when it
// fails. The failure is handed to onInvalid so callers can observe it.
func validOr[T any](candidate T, validate func(T) (T, error), onInvalid func(error)) T {
	out, err := validate(candidate)
	if err != nil {
		if onInvalid != nil {
			onInvalid(err)
		}
		return candidate
	}
	return out
}
