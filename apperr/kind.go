package apperr

// Kind is the closed set of failure tags produced by authgate components.
//
// Every Kind has a row in the classification switch in Classify; adding a
// Kind without a row falls back to the generic tagged-error rule (400).
type Kind uint8

const (
	KindProviderAuth Kind = iota + 1
	KindMissingAuthHeader
	KindInvalidAuthScheme
	KindInvalidToken
	KindUnauthorized
	KindInvalidTeam
	KindTeamAccessForbidden
	KindForbiddenProjectAccess
	KindProjectArchived
	KindProjectConflict
	KindProjectValidation
	KindProjectNotFound
	KindUserConflict
	KindUserNotFound
	KindPersonalTeamNotFound
	KindMissingEnv
	KindInvalidPort
)

var kindNames = map[Kind]string{
	KindProviderAuth:           "ProviderAuthError",
	KindMissingAuthHeader:      "MissingAuthHeaderError",
	KindInvalidAuthScheme:      "InvalidAuthSchemeError",
	KindInvalidToken:           "InvalidTokenError",
	KindUnauthorized:           "UnauthorizedError",
	KindInvalidTeam:            "InvalidTeamError",
	KindTeamAccessForbidden:    "TeamAccessForbiddenError",
	KindForbiddenProjectAccess: "ForbiddenProjectAccessError",
	KindProjectArchived:        "ProjectArchivedError",
	KindProjectConflict:        "ProjectConflictError",
	KindProjectValidation:      "ProjectValidationError",
	KindProjectNotFound:        "ProjectNotFoundError",
	KindUserConflict:           "UserConflictError",
	KindUserNotFound:           "UserNotFoundError",
	KindPersonalTeamNotFound:   "PersonalTeamNotFoundError",
	KindMissingEnv:             "MissingEnvError",
	KindInvalidPort:            "InvalidPortError",
}

// String returns the wire name of the kind, e.g. "InvalidTokenError".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UnknownError"
}

// IsUnauthorized reports whether k belongs to the 401 family.
// KindProviderAuth is deliberately excluded.
func (k Kind) IsUnauthorized() bool {
	switch k {
	case KindMissingAuthHeader, KindInvalidAuthScheme, KindInvalidToken, KindUnauthorized:
		return true
	default:
		return false
	}
}
