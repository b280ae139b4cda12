package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"lpIncentive/internal/guard"
	"lpIncentive/internal/hook"
	"lpIncentive/internal/ledger"
	"lpIncentive/internal/model"
	"lpIncentive/internal/storage"
	"lpIncentive/internal/vault"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	HookAddress       common.Address
	Owner             common.Address
	Factory           common.Address
	Router            common.Address
	ExitFeePercentage *uint256.Int
	CheckpointEvery   int
	MaxRetries        int
	RetryBackoff      time.Duration
}

// RecordWriter receives result and error records.
type RecordWriter interface {
	Write(value interface{}) error
}

// Summary counts what a run did.
type Summary struct {
	Total   int
	Applied int
	Skipped int
	Failed  int
	Events  int
	LastSeq uint64
}

// Runner feeds recorded vault callbacks through the hook engine backed by an in-memory vault.
type Runner struct {
	cfg       RunConfig
	inspector guard.FactoryInspector
	tokens    TokenSource
	decimals  DecimalsSource
	events    storage.Storage
	state     StateStore
	logger    *zap.Logger

	vault   *vault.Memory
	engine  *hook.Engine
	buffer  *hook.EventBuffer
	clock   *replayClock
	sender  *replaySender
	lastSeq uint64
	resumed bool
}

// NewRunner builds a Runner. tokens, events and state may be nil.
func NewRunner(cfg RunConfig, inspector guard.FactoryInspector, tokens TokenSource, events storage.Storage, state StateStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		inspector: inspector,
		tokens:    tokens,
		events:    events,
		state:     state,
		logger:    logger,
	}
}

// WithDecimals sets the source used to derive scaled amounts from raw ones.
func (r *Runner) WithDecimals(src DecimalsSource) *Runner {
	r.decimals = src
	return r
}

// Engine returns the hook engine, or nil before the first Run.
func (r *Runner) Engine() *hook.Engine {
	return r.engine
}

// Vault returns the in-memory vault, or nil before the first Run.
func (r *Runner) Vault() *vault.Memory {
	return r.vault
}

// Run replays the JSONL callback stream in. Results go to out, rejected callbacks to errs.
// Records whose sequence is not above the last applied one are skipped.
func (r *Runner) Run(ctx context.Context, in io.Reader, out, errs RecordWriter) (Summary, error) {
	var summary Summary
	if in == nil {
		return summary, fmt.Errorf("input is nil")
	}
	if r.inspector == nil {
		return summary, fmt.Errorf("factory inspector is nil")
	}
	if r.engine == nil {
		if err := r.restore(ctx); err != nil {
			return summary, err
		}
	}

	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	pending := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		summary.Total++

		var rec model.CallbackRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			summary.Failed++
			if werr := writeRecord(errs, model.CallbackError{Error: err.Error()}); werr != nil {
				return summary, werr
			}
			continue
		}
		if r.resumed && rec.Seq <= r.lastSeq {
			summary.Skipped++
			continue
		}

		result, err := r.apply(ctx, rec)
		events := r.buffer.Drain()
		r.lastSeq = rec.Seq
		r.resumed = true

		if err != nil {
			summary.Failed++
			r.logger.Debug("callback rejected",
				zap.Uint64("seq", rec.Seq),
				zap.String("kind", rec.Kind),
				zap.Error(err),
			)
			if werr := writeRecord(errs, model.CallbackError{
				Seq:       rec.Seq,
				Kind:      rec.Kind,
				Timestamp: rec.Timestamp,
				Pool:      rec.Pool,
				Error:     err.Error(),
			}); werr != nil {
				return summary, werr
			}
		} else {
			summary.Applied++
			if out != nil {
				if err := out.Write(result); err != nil {
					return summary, fmt.Errorf("write result: %w", err)
				}
			}
		}

		if len(events) > 0 {
			for i := range events {
				events[i].Seq = rec.Seq
				events[i].LogIndex = i
			}
			if r.events != nil {
				if err := r.events.PutEventBatch(ctx, events); err != nil {
					return summary, fmt.Errorf("store events: %w", err)
				}
			}
			summary.Events += len(events)
		}

		pending++
		if r.cfg.CheckpointEvery > 0 && pending >= r.cfg.CheckpointEvery {
			if err := r.checkpoint(ctx); err != nil {
				return summary, err
			}
			pending = 0
		}
	}

	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("scan input: %w", err)
	}
	if pending > 0 {
		if err := r.checkpoint(ctx); err != nil {
			return summary, err
		}
	}

	summary.LastSeq = r.lastSeq
	r.logger.Info("replay complete",
		zap.Int("total", summary.Total),
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("events", summary.Events),
		zap.Uint64("last_seq", summary.LastSeq),
	)
	return summary, nil
}

// Snapshot captures the current replay state.
func (r *Runner) Snapshot(ctx context.Context) (model.ReplayState, error) {
	if r.engine == nil {
		return model.ReplayState{}, fmt.Errorf("runner not started")
	}

	registered := make(map[common.Address]struct{})
	for _, pool := range r.engine.RegisteredPools() {
		registered[pool] = struct{}{}
	}

	state := model.ReplayState{
		LastSeq:           r.lastSeq,
		ExitFeePercentage: r.engine.ExitFeePercentage().Dec(),
		Ledger:            r.engine.Ledger().Snapshot(),
	}
	for _, pool := range r.vault.Pools() {
		tokens, err := r.vault.PoolTokens(ctx, pool)
		if err != nil {
			return model.ReplayState{}, err
		}
		hexTokens := make([]string, len(tokens))
		for i, token := range tokens {
			hexTokens[i] = token.Hex()
		}
		_, ok := registered[pool]
		state.Pools = append(state.Pools, model.PoolRecord{
			Address:    pool.Hex(),
			Registered: ok,
			Tokens:     hexTokens,
			Balances:   formatAmounts(r.vault.Balances(pool)),
		})
	}
	return state, nil
}

func (r *Runner) restore(ctx context.Context) error {
	var (
		state model.ReplayState
		ok    bool
		err   error
	)
	if r.state != nil {
		state, ok, err = r.state.Load(ctx)
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}
	}

	exitFee := r.cfg.ExitFeePercentage
	if ok && state.ExitFeePercentage != "" {
		exitFee, err = ParseAmount(state.ExitFeePercentage)
		if err != nil {
			return fmt.Errorf("state exit fee: %w", err)
		}
	}

	r.vault = vault.NewMemory()
	r.buffer = &hook.EventBuffer{}
	r.clock = &replayClock{}
	r.sender = &replaySender{}

	ldg := ledger.New()
	var registered []common.Address
	if ok {
		if err := ldg.Restore(state.Ledger); err != nil {
			return fmt.Errorf("restore ledger: %w", err)
		}
		registered, err = r.restorePools(state.Pools)
		if err != nil {
			return err
		}
	}

	engine, err := hook.New(hook.Config{
		HookAddress:       r.cfg.HookAddress,
		Owner:             r.cfg.Owner,
		ExitFeePercentage: exitFee,
	}, hook.Deps{
		Guard:    guard.New(r.cfg.Factory, r.cfg.Router, r.inspector),
		Ledger:   ldg,
		Vault:    r.vault,
		Resolver: r.sender,
		Clock:    r.clock,
		Events:   r.buffer,
	}, r.logger)
	if err != nil {
		return err
	}
	engine.RestorePools(registered)
	r.engine = engine

	r.lastSeq = state.LastSeq
	r.resumed = ok
	if ok {
		r.logger.Info("resume from state",
			zap.Uint64("last_seq", state.LastSeq),
			zap.Int("pools", len(state.Pools)),
			zap.Int("positions", len(state.Ledger.Records)),
		)
	}
	return nil
}

func (r *Runner) restorePools(pools []model.PoolRecord) ([]common.Address, error) {
	var registered []common.Address
	for _, rec := range pools {
		pool, err := ParseAddress("pool", rec.Address)
		if err != nil {
			return nil, err
		}
		tokens, err := ParseAddresses(rec.Tokens)
		if err != nil {
			return nil, err
		}
		balances, err := ParseAmounts(rec.Balances)
		if err != nil {
			return nil, fmt.Errorf("pool %s balances: %w", rec.Address, err)
		}
		if err := r.vault.RegisterPool(pool, tokens); err != nil {
			return nil, err
		}
		if err := r.vault.AddLiquidity(pool, balances); err != nil {
			return nil, err
		}
		if rec.Registered {
			registered = append(registered, pool)
		}
	}
	return registered, nil
}

func (r *Runner) checkpoint(ctx context.Context) error {
	if r.state == nil {
		return nil
	}
	state, err := r.Snapshot(ctx)
	if err != nil {
		return err
	}
	err = r.retry(ctx, "save state", []zap.Field{zap.Uint64("last_seq", state.LastSeq)}, func(ctx context.Context) error {
		return r.state.Save(ctx, state)
	})
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	r.logger.Debug("checkpoint saved", zap.Uint64("last_seq", state.LastSeq))
	return nil
}

func (r *Runner) poolTokensWithRetry(ctx context.Context, pool common.Address) ([]common.Address, error) {
	var tokens []common.Address
	err := r.retry(ctx, "pool tokens fetch", []zap.Field{zap.String("pool", pool.Hex())}, func(ctx context.Context) error {
		var err error
		tokens, err = r.tokens.PoolTokens(ctx, pool)
		return err
	})
	return tokens, err
}

func writeRecord(writer RecordWriter, value interface{}) error {
	if writer == nil {
		return nil
	}
	if err := writer.Write(value); err != nil {
		return fmt.Errorf("write error record: %w", err)
	}
	return nil
}
