package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUntrustedRouter is returned when a callback arrives through a router other than the trusted one.
var ErrUntrustedRouter = errors.New("untrusted router")

// FactoryInspector reports whether a pool was deployed by a factory.
type FactoryInspector interface {
	IsPoolFromFactory(ctx context.Context, pool common.Address) (bool, error)
}

// Guard validates callers and pool registrations. It holds no mutable state.
type Guard struct {
	allowedFactory common.Address
	trustedRouter  common.Address
	inspector      FactoryInspector
}

func New(allowedFactory, trustedRouter common.Address, inspector FactoryInspector) *Guard {
	return &Guard{
		allowedFactory: allowedFactory,
		trustedRouter:  trustedRouter,
		inspector:      inspector,
	}
}

func (g *Guard) AllowedFactory() common.Address {
	return g.allowedFactory
}

func (g *Guard) TrustedRouter() common.Address {
	return g.trustedRouter
}

// AuthorizeCaller fails unless router is the trusted router.
func (g *Guard) AuthorizeCaller(router common.Address) error {
	if router != g.trustedRouter {
		return fmt.Errorf("%w: %s", ErrUntrustedRouter, router.Hex())
	}
	return nil
}

// AuthorizeRegistration reports whether pool may attach the hook. A false result with a nil
// error is a plain refusal.
func (g *Guard) AuthorizeRegistration(ctx context.Context, factory, pool common.Address) (bool, error) {
	if factory != g.allowedFactory {
		return false, nil
	}
	if g.inspector == nil {
		return false, fmt.Errorf("factory inspector is nil")
	}
	ok, err := g.inspector.IsPoolFromFactory(ctx, pool)
	if err != nil {
		return false, fmt.Errorf("inspect pool %s: %w", pool.Hex(), err)
	}
	return ok, nil
}

// StaticInspector accepts a fixed set of pools.
type StaticInspector struct {
	pools map[common.Address]struct{}
}

func NewStaticInspector(pools []common.Address) *StaticInspector {
	set := make(map[common.Address]struct{}, len(pools))
	for _, pool := range pools {
		set[pool] = struct{}{}
	}
	return &StaticInspector{pools: set}
}

func (s *StaticInspector) IsPoolFromFactory(_ context.Context, pool common.Address) (bool, error) {
	_, ok := s.pools[pool]
	return ok, nil
}
