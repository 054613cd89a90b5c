package providers

import (
	"fmt"
)

// Stage names a step of a provider pipeline. Failures report the stage they
// happened in so logs show where a sign-in broke.
type Stage string

const (
	StageAvailability Stage = "availability"
	StageNativeSignIn Stage = "native_sign_in"
	StageTokenVerify  Stage = "token_verify"
	StageProfileFetch Stage = "profile_fetch"
	StageExchange     Stage = "exchange"
)

type StageError struct {
	Provider Kind
	Stage    Stage
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s sign-in failed at %s: %v", e.Provider, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fail wraps err with the provider and stage. A nil err stays nil.
func Fail(kind Kind, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Provider: kind, Stage: stage, Err: err}
}
