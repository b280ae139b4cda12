package replay

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// TokenSource looks up a pool's token list when a register record does not carry one.
type TokenSource interface {
	PoolTokens(ctx context.Context, pool common.Address) ([]common.Address, error)
}

// DecimalsSource reports token decimals, used to scale raw amounts when a record carries no
// scaled amounts.
type DecimalsSource interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// replayClock serves the timestamp of the record being replayed.
type replayClock struct {
	mu  sync.Mutex
	now uint64
}

func (c *replayClock) set(ts uint64) {
	c.mu.Lock()
	c.now = ts
	c.mu.Unlock()
}

func (c *replayClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// replaySender resolves the router's sender to the account recorded on the current callback.
type replaySender struct {
	mu     sync.Mutex
	sender common.Address
	known  bool
}

func (s *replaySender) set(sender common.Address, known bool) {
	s.mu.Lock()
	s.sender = sender
	s.known = known
	s.mu.Unlock()
}

func (s *replaySender) Sender(_ context.Context, router common.Address) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known {
		return common.Address{}, fmt.Errorf("no sender recorded for router %s", router.Hex())
	}
	return s.sender, nil
}
