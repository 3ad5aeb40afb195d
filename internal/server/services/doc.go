// Package services contains server-side business logic: credential checks
// and account lockout, the session lifecycle, signup/login/logout
// orchestration and the cached prediction statistics.
//
// Every store call is bounded by the configured store timeout. Store
// failures on authentication paths deny access; cache failures fall
// through to the store.
package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cropauth/internal/common"
)

// ErrSessionCreation reports that a login could not be completed because
// its session was not stored.
var ErrSessionCreation = errors.New("failed to create session")

// storeError keeps NotFound, AlreadyExists and Validation as they are and
// marks any other repository failure as the store being unavailable.
func storeError(err error) error {
	if err == nil || errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorAlreadyExists) ||
		errors.Is(err, common.ErrorValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrorStoreUnavailable, err)
}
