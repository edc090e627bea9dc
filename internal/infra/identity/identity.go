package infra_identity

import (
	"errors"

	"github.com/google/uuid"
)

var ErrIdentityUnavailable = errors.New("identity unavailable")

// Provider issues stable opaque participant identities. A client that
// already holds a token keeps it; anything else gets a fresh one. Failure
// here is fatal to creating or joining a room.
type Provider struct{}

func New() *Provider {
	return &Provider{}
}

// GetOrCreate returns the given token when it is a well-formed identity,
// otherwise issues a new one.
func (p *Provider) GetOrCreate(token string) (string, error) {
	if token != "" {
		if id, err := uuid.Parse(token); err == nil {
			return id.String(), nil
		}
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", errors.Join(ErrIdentityUnavailable, err)
	}
	return id.String(), nil
}
