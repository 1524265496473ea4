package apperr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Context keys carried by tagged errors.
const (
	KeyUserID  = "userId"
	KeyTeamID  = "teamId"
	KeyEnv     = "key"
	KeyValue   = "value"
	KeyPlan    = "plan"
	KeyLimit   = "limit"
	KeyCurrent = "current"
)

// Error is a tagged failure. Reason is free text supplied by the producer;
// Context holds the structured fields used by message templates.
type Error struct {
	Kind    Kind
	Reason  string
	Context map[string]string
	Cause   error
}

// Error returns the raw message for the kind.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindProviderAuth:
		if e.Reason == "" {
			return "provider authentication failed"
		}
		return e.Reason
	case KindMissingAuthHeader:
		return withReason("Missing authorization header", e.Reason)
	case KindInvalidAuthScheme:
		return withReason("Invalid authorization scheme", e.Reason)
	case KindInvalidToken:
		return withReason("Invalid token", e.Reason)
	case KindUnauthorized:
		return withReason("Unauthorized", e.Reason)
	case KindInvalidTeam:
		return "Invalid team ID: " + e.Context[KeyTeamID]
	case KindTeamAccessForbidden:
		return "User is not a member of team " + e.Context[KeyTeamID]
	case KindForbiddenProjectAccess:
		return projectLimitMessage(e.Context)
	case KindProjectArchived:
		return "Project is archived. Only read operations are allowed."
	case KindProjectConflict:
		return withReason("Project conflict", e.Reason)
	case KindProjectValidation:
		return withReason("Project validation failed", e.Reason)
	case KindUserConflict:
		return withReason("User conflict", e.Reason)
	case KindPersonalTeamNotFound:
		if id := e.Context[KeyUserID]; id != "" {
			return "Personal team not found for user: " + id
		}
		return "Personal team not found for user"
	}
	if msg, ok := renderTemplate(e.Kind, e.Context); ok {
		return msg
	}
	if e.Reason != "" {
		return e.Reason
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: K})
// works as a kind test.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return t.Kind == e.Kind && t.Reason == "" && len(t.Context) == 0
}

// KindOf returns the kind of the first tagged error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind, true
	}
	return 0, false
}

// HasKind reports whether err's chain carries a tagged error of kind k.
func HasKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

func ProviderAuth(reason string, cause error) *Error {
	return &Error{Kind: KindProviderAuth, Reason: reason, Cause: cause}
}

func MissingAuthHeader() *Error {
	return &Error{Kind: KindMissingAuthHeader}
}

func InvalidAuthScheme() *Error {
	return &Error{Kind: KindInvalidAuthScheme}
}

func InvalidToken(reason string) *Error {
	return &Error{Kind: KindInvalidToken, Reason: reason}
}

// InvalidTokenCause is InvalidToken keeping the verification error in the chain.
func InvalidTokenCause(reason string, cause error) *Error {
	return &Error{Kind: KindInvalidToken, Reason: reason, Cause: cause}
}

func Unauthorized(reason string) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason}
}

func InvalidTeam(teamID string) *Error {
	return &Error{Kind: KindInvalidTeam, Context: map[string]string{KeyTeamID: teamID}}
}

func TeamAccessForbidden(userID, teamID string) *Error {
	return &Error{Kind: KindTeamAccessForbidden, Context: map[string]string{
		KeyUserID: userID,
		KeyTeamID: teamID,
	}}
}

// ForbiddenProjectAccess builds a plan-limit rejection. An empty plan or a
// non-positive limit produces the generic insufficient-access message.
func ForbiddenProjectAccess(plan string, limit, current int) *Error {
	ctx := map[string]string{}
	if plan != "" && limit > 0 {
		ctx[KeyPlan] = plan
		ctx[KeyLimit] = strconv.Itoa(limit)
		ctx[KeyCurrent] = strconv.Itoa(current)
	}
	return &Error{Kind: KindForbiddenProjectAccess, Context: ctx}
}

func ProjectArchived() *Error {
	return &Error{Kind: KindProjectArchived}
}

func ProjectConflict(reason string) *Error {
	return &Error{Kind: KindProjectConflict, Reason: reason}
}

func ProjectValidation(reason string) *Error {
	return &Error{Kind: KindProjectValidation, Reason: reason}
}

func ProjectNotFound() *Error {
	return &Error{Kind: KindProjectNotFound}
}

func UserConflict(reason string, cause error) *Error {
	return &Error{Kind: KindUserConflict, Reason: reason, Cause: cause}
}

func UserNotFound() *Error {
	return &Error{Kind: KindUserNotFound}
}

func PersonalTeamNotFound(userID string) *Error {
	return &Error{Kind: KindPersonalTeamNotFound, Context: map[string]string{KeyUserID: userID}}
}

func MissingEnv(key string) *Error {
	return &Error{Kind: KindMissingEnv, Context: map[string]string{KeyEnv: key}}
}

func InvalidPort(value string) *Error {
	return &Error{Kind: KindInvalidPort, Context: map[string]string{KeyValue: value}}
}

// HTTPError is a failure that already carries its transport status, such as
// a request-body validation error raised by a handler.
type HTTPError struct {
	Status  int
	Message string
	Cause   error
}

func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// DeferredError wraps a failure raised inside a deferred computation, such
// as a recovered panic or a background task. Value may be any type.
type DeferredError struct {
	Value any
}

// Defer wraps v in a DeferredError envelope.
func Defer(v any) *DeferredError {
	return &DeferredError{Value: v}
}

func (e *DeferredError) Error() string {
	if e == nil {
		return ""
	}
	if err, ok := e.Value.(error); ok {
		return "deferred: " + err.Error()
	}
	return fmt.Sprintf("deferred: %v", e.Value)
}

func (e *DeferredError) Unwrap() error {
	if e == nil {
		return nil
	}
	err, _ := e.Value.(error)
	return err
}

func withReason(base, reason string) string {
	if reason == "" {
		return base
	}
	return base + ": " + reason
}

func projectLimitMessage(ctx map[string]string) string {
	plan := ctx[KeyPlan]
	limit, err := strconv.Atoi(ctx[KeyLimit])
	if plan == "" || err != nil || limit <= 0 {
		return "Forbidden: insufficient project access"
	}
	noun := "projects"
	if limit == 1 {
		noun = "project"
	}
	current := ctx[KeyCurrent]
	if current == "" {
		current = "0"
	}
	return fmt.Sprintf("Project limit exceeded. Your %s plan allows %d %s, and you currently have %s.", plan, limit, noun, current)
}

var templates = map[Kind]string{
	KindProjectNotFound: "Project not found",
	KindUserNotFound:    "User not found",
	KindMissingEnv:      "Missing environment variable: {key}",
	KindInvalidPort:     "Invalid port value: {value}",
}

func renderTemplate(k Kind, ctx map[string]string) (string, bool) {
	tpl, ok := templates[k]
	if !ok {
		return "", false
	}
	for key, val := range ctx {
		tpl = strings.ReplaceAll(tpl, "{"+key+"}", val)
	}
	return tpl, true
}
