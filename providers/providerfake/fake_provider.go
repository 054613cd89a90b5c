package providerfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/providers"
)

var _ providers.Provider = (*FakeProvider)(nil)

// FakeProvider returns a canned Result from SignIn and records sign-outs.
type FakeProvider struct {
	kind providers.Kind

	mu           sync.Mutex
	available    bool
	result       *providers.Result
	signInErr    error
	signOutErr   error
	signInCalls  int
	signOutCalls int
}

// NewFakeProvider returns an available provider whose sign-in asks for a
// backend exchange.
func NewFakeProvider(kind providers.Kind) *FakeProvider {
	return &FakeProvider{
		kind:      kind,
		available: true,
		result: &providers.Result{
			Exchange: &providers.ExchangeRequest{
				Provider: kind,
				Endpoint: "https://api.example.com/auth/" + string(kind),
				Payload:  map[string]string{"code": "native-" + string(kind)},
			},
		},
	}
}

func (f *FakeProvider) Kind() providers.Kind { return f.kind }

func (f *FakeProvider) IsAvailable(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *FakeProvider) SignIn(context.Context) (*providers.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.result, nil
}

func (f *FakeProvider) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return f.signOutErr
}

func (f *FakeProvider) SetAvailable(available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = available
}

func (f *FakeProvider) SetResult(r *providers.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = r
}

func (f *FakeProvider) FailSignIn(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInErr = err
}

func (f *FakeProvider) FailSignOut(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutErr = err
}

func (f *FakeProvider) SignInCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signInCalls
}

func (f *FakeProvider) SignOutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}
