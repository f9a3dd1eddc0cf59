package authadapt

import (
	"net/http"
	"time"

	"github.com/horos/libsqld-gateway/internal/circuit"
)

// RemoteAuthenticator wraps another Authenticator that calls out to an
// upstream identity provider, guarding those calls with a circuit
// breaker so a flapping or down upstream degrades to rejecting requests
// quickly rather than piling up slow calls against it.
type RemoteAuthenticator struct {
	inner   Authenticator
	breaker *circuit.Breaker
}

// NewRemoteAuthenticator wraps inner with a breaker tripping after
// failureThreshold consecutive failures and probing again after timeout.
func NewRemoteAuthenticator(inner Authenticator, failureThreshold int, timeout time.Duration) *RemoteAuthenticator {
	return &RemoteAuthenticator{
		inner:   inner,
		breaker: circuit.New("auth-upstream", failureThreshold, 2, timeout),
	}
}

func (a *RemoteAuthenticator) Authenticate(r *http.Request) (string, bool, error) {
	if ok, err := a.breaker.CanExecute(); !ok {
		return "", false, err
	}

	identity, ok, err := a.inner.Authenticate(r)
	if err != nil {
		a.breaker.RecordFailure()
		return "", false, err
	}
	a.breaker.RecordSuccess()
	return identity, ok, nil
}

// Ready reports whether the upstream identity provider is currently
// considered healthy, for use by a /health handler.
func (a *RemoteAuthenticator) Ready() bool {
	return a.breaker.Current() != circuit.StateOpen
}
