package flowrepo

import (
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const DefaultTTL = 10 * time.Minute

var _ Repo = (*CacheRepo)(nil)

// CacheRepo keeps pending link flows in memory and forgets them after a TTL.
type CacheRepo struct {
	c *gocache.Cache
}

func NewCacheRepo(ttl time.Duration) *CacheRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CacheRepo{c: gocache.New(ttl, time.Minute)}
}

// Upsert stores or replaces the flow for state
func (r *CacheRepo) Upsert(state string, flow *FlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}
	copied := *flow
	r.c.SetDefault(state, &copied)
	return nil
}

// Get returns a copy of the flow for state
func (r *CacheRepo) Get(state string) (*FlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}
	v, ok := r.c.Get(state)
	if !ok {
		return nil, ErrStateNotFound
	}
	flow, ok := v.(*FlowState)
	if !ok {
		return nil, ErrStateNotFound
	}
	copied := *flow
	return &copied, nil
}

func (r *CacheRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	r.c.Delete(state)
	return nil
}
