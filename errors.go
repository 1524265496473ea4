package authgate

import (
	"errors"

	"github.com/localizekit/authgate/account"
)

var (
	// ErrEngineNotReady is returned by methods on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBuilderUsed is returned when Build is called twice.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrStoreRequired is returned by Build without an account store.
	ErrStoreRequired = errors.New("account store required")
	// ErrProviderNotConfigured is returned by LoginWithProvider when no
	// identity provider was supplied to the builder.
	ErrProviderNotConfigured = errors.New("identity provider not configured")

	// ErrNotFound and ErrDuplicate are the store sentinels, re-exported.
	ErrNotFound  = account.ErrNotFound
	ErrDuplicate = account.ErrDuplicate
)
