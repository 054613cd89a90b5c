package flowrepo

import (
	"errors"
	"time"
)

var ErrStateNotFound = errors.New("state not found")

// FlowState is recorded when an authorize URL is issued and consumed by the callback.
type FlowState struct {
	RedirectURI string
	Scope       string
	CreatedAt   time.Time
}

type Repo interface {
	Upsert(state string, flow *FlowState) error
	Get(state string) (*FlowState, error)
	Delete(state string) error
}
