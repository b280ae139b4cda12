package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"lpIncentive/internal/model"
)

// Snapshot exports the ledger ordered by pool, then provider.
func (l *Ledger) Snapshot() model.LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]positionKey, 0, len(l.records))
	for key := range l.records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := bytes.Compare(keys[i].pool.Bytes(), keys[j].pool.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(keys[i].provider.Bytes(), keys[j].provider.Bytes()) < 0
	})

	snap := model.LedgerSnapshot{
		Records: make([]model.LiquidityRecord, 0, len(keys)),
		Clocks:  make([]model.DepositClock, 0, len(l.clocks)),
	}
	for _, key := range keys {
		entries := l.records[key]
		amounts := make([]string, len(entries))
		for i, entry := range entries {
			amounts[i] = entry.Dec()
		}
		snap.Records = append(snap.Records, model.LiquidityRecord{
			Pool:     key.pool.Hex(),
			Provider: key.provider.Hex(),
			Amounts:  amounts,
		})
	}

	for provider, since := range l.clocks {
		snap.Clocks = append(snap.Clocks, model.DepositClock{Provider: provider.Hex(), Since: since})
	}
	sort.Slice(snap.Clocks, func(i, j int) bool {
		return snap.Clocks[i].Provider < snap.Clocks[j].Provider
	})

	return snap
}

// Restore replaces the ledger contents with snap.
func (l *Ledger) Restore(snap model.LedgerSnapshot) error {
	records := make(map[positionKey][]*uint256.Int, len(snap.Records))
	for _, rec := range snap.Records {
		if !common.IsHexAddress(rec.Pool) || !common.IsHexAddress(rec.Provider) {
			return fmt.Errorf("invalid ledger record address: %s/%s", rec.Pool, rec.Provider)
		}
		entries := make([]*uint256.Int, len(rec.Amounts))
		for i, raw := range rec.Amounts {
			value, err := uint256.FromDecimal(raw)
			if err != nil {
				return fmt.Errorf("parse amount %q: %w", raw, err)
			}
			entries[i] = value
		}
		records[positionKey{pool: common.HexToAddress(rec.Pool), provider: common.HexToAddress(rec.Provider)}] = entries
	}

	clocks := make(map[common.Address]uint64, len(snap.Clocks))
	for _, clock := range snap.Clocks {
		if !common.IsHexAddress(clock.Provider) {
			return fmt.Errorf("invalid clock provider: %s", clock.Provider)
		}
		clocks[common.HexToAddress(clock.Provider)] = clock.Since
	}

	l.mu.Lock()
	l.records = records
	l.clocks = clocks
	l.mu.Unlock()
	return nil
}
