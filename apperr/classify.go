package apperr

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const internalServerError = "Internal server error"

// Classified is the transport-facing view of a failure.
type Classified struct {
	// Kind is zero for untagged failures.
	Kind    Kind
	Status  int
	Message string
	// Context carries the tagged error's structured fields (team id, user
	// id) and its reason. It is for logs and never reaches the body.
	Context map[string]string
}

// Body is the JSON error payload written at the HTTP boundary.
type Body struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Path       string `json:"path,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// Body renders c as a response payload stamped with now.
func (c Classified) Body(path, requestID string, now time.Time) Body {
	return Body{
		StatusCode: c.Status,
		Message:    c.Message,
		Path:       path,
		RequestID:  requestID,
		Timestamp:  now.UTC().Format(time.RFC3339),
	}
}

// Classify maps any raised value to a status and message. It never panics.
//
// Rules are applied in a fixed order; the first match wins:
//
//  1. *HTTPError passes through.
//  2. One level of *DeferredError is unwrapped.
//  3. KindProviderAuth is 500.
//  4. Messages containing "jwt" and "expired" are 401 "JWT token expired".
//  5. The unauthorized family is 401.
//  6. Domain kinds use the fixed table.
//  7. Other kinds are 400 with their template message.
//  8. Untagged errors are 500 with the raw message.
//  9. Non-error values are 500 "Internal server error".
func Classify(v any) Classified {
	err, ok := v.(error)
	if !ok || err == nil {
		return Classified{Status: http.StatusInternalServerError, Message: internalServerError}
	}

	if c, ok := passthrough(err); ok {
		return c
	}

	var deferred *DeferredError
	if errors.As(err, &deferred) && deferred != nil {
		inner, ok := deferred.Value.(error)
		if !ok || inner == nil {
			return Classified{Status: http.StatusInternalServerError, Message: internalServerError}
		}
		err = inner
		if c, ok := passthrough(err); ok {
			return c
		}
	}

	var tagged *Error
	isTagged := errors.As(err, &tagged) && tagged != nil

	if isTagged && tagged.Kind == KindProviderAuth {
		return Classified{
			Kind:    KindProviderAuth,
			Status:  http.StatusInternalServerError,
			Message: withReason("Provider authentication failed", tagged.Reason),
			Context: contextOf(tagged),
		}
	}

	if isJWTExpired(err.Error()) {
		c := Classified{Status: http.StatusUnauthorized, Message: "JWT token expired"}
		if isTagged {
			c.Kind = tagged.Kind
			c.Context = contextOf(tagged)
		}
		return c
	}

	if !isTagged {
		return Classified{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	return classifyTagged(tagged)
}

func classifyTagged(e *Error) Classified {
	c := Classified{Kind: e.Kind, Message: e.Error(), Context: contextOf(e)}

	switch e.Kind {
	case KindMissingAuthHeader, KindInvalidAuthScheme, KindInvalidToken, KindUnauthorized:
		c.Status = http.StatusUnauthorized
		c.Message = unauthorizedMessage(e)
	case KindInvalidTeam, KindProjectValidation:
		c.Status = http.StatusBadRequest
	case KindTeamAccessForbidden, KindForbiddenProjectAccess, KindProjectArchived:
		c.Status = http.StatusForbidden
	case KindProjectConflict, KindUserConflict:
		c.Status = http.StatusConflict
	case KindPersonalTeamNotFound, KindProviderAuth:
		c.Status = http.StatusInternalServerError
	case KindProjectNotFound, KindUserNotFound, KindMissingEnv, KindInvalidPort:
		c.Status = http.StatusBadRequest
	default:
		c.Status = http.StatusBadRequest
	}
	return c
}

// contextOf copies e.Context and adds the reason under "reason". It returns
// nil when there is nothing to carry.
func contextOf(e *Error) map[string]string {
	if len(e.Context) == 0 && e.Reason == "" {
		return nil
	}
	out := make(map[string]string, len(e.Context)+1)
	for k, v := range e.Context {
		out[k] = v
	}
	if e.Reason != "" {
		out["reason"] = e.Reason
	}
	return out
}

func unauthorizedMessage(e *Error) string {
	if e.Reason != "" {
		return "Invalid token: " + e.Reason
	}
	switch e.Kind {
	case KindMissingAuthHeader, KindInvalidAuthScheme:
		return e.Error()
	default:
		return "Invalid token"
	}
}

func passthrough(err error) (Classified, bool) {
	var he *HTTPError
	if !errors.As(err, &he) || he == nil {
		return Classified{}, false
	}
	status := he.Status
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	return Classified{Status: status, Message: he.Message}, true
}

func isJWTExpired(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "jwt") && strings.Contains(lower, "expired")
}
