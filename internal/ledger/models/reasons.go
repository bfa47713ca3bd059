package models

// Reason is the closed set of precondition failures a transition can report.
// Each value is itself an error, so callers match with errors.Is or a switch
// on the type after errors.As.
type Reason uint8

const (
	ErrNameAlreadyReserved Reason = iota + 1
	ErrNameAlreadyRegistered
	ErrIncorrectOwner
	ErrNotOwner
	ErrNameRegistrationExpired
	ErrNameRegistrationNotExpired
)

var reasonMessages = map[Reason]string{
	ErrNameAlreadyReserved:        "Name already reserved",
	ErrNameAlreadyRegistered:      "Name already registered",
	ErrIncorrectOwner:             "Incorrect owner",
	ErrNotOwner:                   "Not owner",
	ErrNameRegistrationExpired:    "Name registration expired",
	ErrNameRegistrationNotExpired: "Name registration not expired",
}

var reasonSlugs = map[Reason]string{
	ErrNameAlreadyReserved:        "name_already_reserved",
	ErrNameAlreadyRegistered:      "name_already_registered",
	ErrIncorrectOwner:             "incorrect_owner",
	ErrNotOwner:                   "not_owner",
	ErrNameRegistrationExpired:    "name_registration_expired",
	ErrNameRegistrationNotExpired: "name_registration_not_expired",
}

// Reasons lists every variant in declaration order.
func Reasons() []Reason {
	return []Reason{
		ErrNameAlreadyReserved,
		ErrNameAlreadyRegistered,
		ErrIncorrectOwner,
		ErrNotOwner,
		ErrNameRegistrationExpired,
		ErrNameRegistrationNotExpired,
	}
}

func (r Reason) Error() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "unknown reason"
}

// String returns the machine-readable slug used in API responses.
func (r Reason) String() string {
	if slug, ok := reasonSlugs[r]; ok {
		return slug
	}
	return "unknown"
}

// Slug is String under the name transports look for.
func (r Reason) Slug() string {
	return r.String()
}

// IsValid reports whether r is one of the declared variants.
func (r Reason) IsValid() bool {
	_, ok := reasonMessages[r]
	return ok
}

// IsAuthorization reports whether the failure is about who called rather than
// about the name's time-gated state.
func (r Reason) IsAuthorization() bool {
	return r == ErrIncorrectOwner || r == ErrNotOwner
}

// ParseReason resolves a slug back to its variant.
func ParseReason(slug string) (Reason, bool) {
	for _, r := range Reasons() {
		if reasonSlugs[r] == slug {
			return r, true
		}
	}
	return 0, false
}
