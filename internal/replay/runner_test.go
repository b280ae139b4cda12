package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lpIncentive/internal/guard"
	"lpIncentive/internal/hook"
	"lpIncentive/internal/model"
)

const (
	t0  = uint64(1_700_000_000)
	day = uint64(86400)
)

var (
	hookAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	factory  = common.HexToAddress("0x00000000000000000000000000000000000000fa")
	router   = common.HexToAddress("0x00000000000000000000000000000000000000ab")
	pool     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	alice    = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	tokenA   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB   = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type memWriter struct {
	values []interface{}
}

func (w *memWriter) Write(value interface{}) error {
	w.values = append(w.values, value)
	return nil
}

type memEvents struct {
	events []model.HookEvent
}

func (m *memEvents) PutEventBatch(_ context.Context, events []model.HookEvent) error {
	m.events = append(m.events, events...)
	return nil
}

type memState struct {
	state model.ReplayState
	saved bool
	saves int
}

func (m *memState) Load(context.Context) (model.ReplayState, bool, error) {
	return m.state, m.saved, nil
}

func (m *memState) Save(_ context.Context, state model.ReplayState) error {
	m.state = state
	m.saved = true
	m.saves++
	return nil
}

func jsonl(t *testing.T, records ...model.CallbackRecord) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := json.Marshal(rec)
		require.NoError(t, err)
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return &buf
}

func newRunner(t *testing.T, events *memEvents, state StateStore) *Runner {
	t.Helper()
	return NewRunner(RunConfig{
		HookAddress:     hookAddr,
		Owner:           owner,
		Factory:         factory,
		Router:          router,
		CheckpointEvery: 1,
	}, guard.NewStaticInspector([]common.Address{pool}), nil, events, state, zaptest.NewLogger(t))
}

func registerRecord(seq uint64) model.CallbackRecord {
	return model.CallbackRecord{
		Seq:            seq,
		Kind:           model.KindRegister,
		Timestamp:      t0,
		Pool:           pool.Hex(),
		Factory:        factory.Hex(),
		Tokens:         []string{tokenA.Hex(), tokenB.Hex()},
		EnableDonation: true,
	}
}

func liquidityRecord(seq uint64, kind string, ts uint64, amounts ...string) model.CallbackRecord {
	return model.CallbackRecord{
		Seq:           seq,
		Kind:          kind,
		Timestamp:     ts,
		Router:        router.Hex(),
		Sender:        alice.Hex(),
		Pool:          pool.Hex(),
		AmountsScaled: amounts,
	}
}

func TestRunnerEarlyWithdrawal(t *testing.T) {
	events := &memEvents{}
	runner := newRunner(t, events, nil)
	out := &memWriter{}
	errs := &memWriter{}

	input := jsonl(t,
		registerRecord(1),
		liquidityRecord(2, model.KindAfterAdd, t0, "100", "100"),
		liquidityRecord(3, model.KindAfterRemove, t0+day, "50", "50"),
		model.CallbackRecord{
			Seq:       4,
			Kind:      model.KindSwapFee,
			Timestamp: t0 + 8*day,
			Router:    router.Hex(),
			Sender:    alice.Hex(),
			Pool:      pool.Hex(),
			IndexIn:   0,
			IndexOut:  1,
			StaticFee: "10000000000000000",
		},
	)

	summary, err := runner.Run(context.Background(), input, out, errs)
	require.NoError(t, err)
	require.Equal(t, 4, summary.Applied)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, 2, summary.Events)
	require.Equal(t, uint64(4), summary.LastSeq)
	require.Empty(t, errs.values)

	require.Len(t, out.values, 4)
	register := out.values[0].(model.CallbackResult)
	require.True(t, register.Accepted)
	remove := out.values[2].(model.CallbackResult)
	require.Equal(t, []string{"48", "48"}, remove.AmountsRaw)
	swap := out.values[3].(model.CallbackResult)
	require.Equal(t, "9400000000000000", swap.FeePercentage)

	require.Len(t, events.events, 2)
	for i, event := range events.events {
		require.Equal(t, hook.EventExitFeeCharged, event.EventName)
		require.Equal(t, uint64(3), event.Seq)
		require.Equal(t, i, event.LogIndex)
		require.Equal(t, t0+day, event.Timestamp)
	}

	balances := runner.Vault().Balances(pool)
	require.Equal(t, uint64(52), balances[0].Uint64())
	require.Equal(t, uint64(52), balances[1].Uint64())
}

func TestRunnerRecordsRejections(t *testing.T) {
	runner := newRunner(t, &memEvents{}, nil)
	out := &memWriter{}
	errs := &memWriter{}

	untrusted := liquidityRecord(2, model.KindAfterAdd, t0, "1", "1")
	untrusted.Router = common.HexToAddress("0x00000000000000000000000000000000000000cd").Hex()

	unknownPool := registerRecord(3)
	unknownPool.Pool = common.HexToAddress("0x2222222222222222222222222222222222222222").Hex()

	input := jsonl(t,
		registerRecord(1),
		untrusted,
		unknownPool,
		model.CallbackRecord{Seq: 4, Kind: "bogus"},
	)
	input.WriteString("not json\n")

	summary, err := runner.Run(context.Background(), input, out, errs)
	require.NoError(t, err)
	require.Equal(t, 5, summary.Total)
	require.Equal(t, 2, summary.Applied)
	require.Equal(t, 3, summary.Failed)

	refused := out.values[1].(model.CallbackResult)
	require.False(t, refused.Accepted)

	require.Len(t, errs.values, 3)
	first := errs.values[0].(model.CallbackError)
	require.Equal(t, uint64(2), first.Seq)
	require.Contains(t, first.Error, "untrusted router")

	require.Empty(t, runner.Engine().Ledger().Entries(pool, alice))
	balances := runner.Vault().Balances(pool)
	require.True(t, balances[0].IsZero())
}

func TestRunnerDropsRefusedPool(t *testing.T) {
	state := &memState{}
	runner := newRunner(t, &memEvents{}, state)
	out := &memWriter{}

	stranger := common.HexToAddress("0x2222222222222222222222222222222222222222")
	refused := registerRecord(2)
	refused.Pool = stranger.Hex()
	noDonation := registerRecord(3)
	noDonation.EnableDonation = false

	summary, err := runner.Run(context.Background(), jsonl(t, registerRecord(1), refused, noDonation), out, nil)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Applied)
	require.False(t, out.values[1].(model.CallbackResult).Accepted)
	require.False(t, out.values[2].(model.CallbackResult).Accepted)

	require.False(t, runner.Vault().HasPool(stranger))
	require.Equal(t, []common.Address{pool}, runner.Vault().Pools())
	require.Len(t, state.state.Pools, 1)
	require.Equal(t, pool.Hex(), state.state.Pools[0].Address)
	require.True(t, state.state.Pools[0].Registered)
}

type failingWriter struct{}

func (failingWriter) Write(interface{}) error {
	return errors.New("disk full")
}

func TestRunnerAbortsWhenErrorRecordWriteFails(t *testing.T) {
	runner := newRunner(t, &memEvents{}, nil)
	untrusted := liquidityRecord(2, model.KindAfterAdd, t0, "1", "1")
	untrusted.Router = common.HexToAddress("0x00000000000000000000000000000000000000cd").Hex()

	summary, err := runner.Run(context.Background(), jsonl(t, registerRecord(1), untrusted), &memWriter{}, failingWriter{})
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, 1, summary.Failed)

	_, err = newRunner(t, &memEvents{}, nil).Run(context.Background(), strings.NewReader("not json\n"), nil, failingWriter{})
	require.ErrorContains(t, err, "write error record")
}

func TestRunnerRollsBackVaultOnHookFailure(t *testing.T) {
	runner := newRunner(t, &memEvents{}, nil)
	errs := &memWriter{}

	noSender := liquidityRecord(3, model.KindAfterRemove, t0+day, "10", "10")
	noSender.Sender = ""

	input := jsonl(t,
		registerRecord(1),
		liquidityRecord(2, model.KindAfterAdd, t0, "100", "100"),
		noSender,
	)
	summary, err := runner.Run(context.Background(), input, &memWriter{}, errs)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)

	balances := runner.Vault().Balances(pool)
	require.Equal(t, uint64(100), balances[0].Uint64())
	entries := runner.Engine().Ledger().Entries(pool, alice)
	require.Equal(t, uint64(100), entries[0].Uint64())
}

func TestRunnerSetExitFee(t *testing.T) {
	events := &memEvents{}
	runner := newRunner(t, events, nil)
	out := &memWriter{}
	errs := &memWriter{}

	input := jsonl(t,
		model.CallbackRecord{Seq: 1, Kind: model.KindSetExitFee, Timestamp: t0, Sender: alice.Hex(), ExitFee: "0"},
		model.CallbackRecord{Seq: 2, Kind: model.KindSetExitFee, Timestamp: t0, Sender: owner.Hex(), ExitFee: "0"},
		registerRecord(3),
		liquidityRecord(4, model.KindAfterAdd, t0, "100", "100"),
		liquidityRecord(5, model.KindAfterRemove, t0+day, "100", "100"),
	)
	summary, err := runner.Run(context.Background(), input, out, errs)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Contains(t, errs.values[0].(model.CallbackError).Error, "not the owner")

	require.Len(t, events.events, 1)
	require.Equal(t, hook.EventExitFeePercentageChanged, events.events[0].EventName)

	remove := out.values[len(out.values)-1].(model.CallbackResult)
	require.Equal(t, []string{"100", "100"}, remove.AmountsRaw)
	require.Equal(t, uint64(0), runner.Engine().Ledger().DepositClock(alice))
}

func TestRunnerResumesFromState(t *testing.T) {
	state := &memState{}
	records := []model.CallbackRecord{
		registerRecord(1),
		liquidityRecord(2, model.KindAfterAdd, t0, "100", "100"),
		liquidityRecord(3, model.KindAfterRemove, t0+day, "100", "100"),
	}

	first := newRunner(t, &memEvents{}, state)
	summary, err := first.Run(context.Background(), jsonl(t, records[:2]...), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Applied)
	require.Equal(t, 2, state.saves)
	require.Equal(t, uint64(2), state.state.LastSeq)
	require.Len(t, state.state.Pools, 1)
	require.True(t, state.state.Pools[0].Registered)

	events := &memEvents{}
	out := &memWriter{}
	second := newRunner(t, events, state)
	summary, err = second.Run(context.Background(), jsonl(t, records...), out, nil)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Skipped)
	require.Equal(t, 1, summary.Applied)

	remove := out.values[0].(model.CallbackResult)
	require.Equal(t, []string{"95", "95"}, remove.AmountsRaw)
	require.Len(t, events.events, 2)

	require.Empty(t, state.state.Ledger.Clocks)
	balances := second.Vault().Balances(pool)
	require.Equal(t, uint64(5), balances[0].Uint64())
}

func TestRunnerFileState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "replay.json")
	store := &FileStateStore{Path: path}

	runner := newRunner(t, &memEvents{}, store)
	_, err := runner.Run(context.Background(), jsonl(t,
		registerRecord(1),
		liquidityRecord(2, model.KindAfterAdd, t0, "7", "9"),
	), nil, nil)
	require.NoError(t, err)

	state, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), state.LastSeq)
	require.Equal(t, hook.DefaultExitFeePercentage.Dec(), state.ExitFeePercentage)
	require.Len(t, state.Ledger.Records, 1)
	require.Equal(t, []string{"7", "9"}, state.Ledger.Records[0].Amounts)
	require.Equal(t, []model.DepositClock{{Provider: alice.Hex(), Since: t0}}, state.Ledger.Clocks)
	require.NotEmpty(t, state.UpdatedAt)
}

func TestRunnerRequiresTokens(t *testing.T) {
	runner := newRunner(t, &memEvents{}, nil)
	errs := &memWriter{}
	rec := registerRecord(1)
	rec.Tokens = nil

	summary, err := runner.Run(context.Background(), jsonl(t, rec), nil, errs)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.True(t, strings.Contains(errs.values[0].(model.CallbackError).Error, "no tokens"))
}

type staticTokens []common.Address

func (s staticTokens) PoolTokens(context.Context, common.Address) ([]common.Address, error) {
	return s, nil
}

func TestRunnerFetchesTokens(t *testing.T) {
	runner := NewRunner(RunConfig{
		HookAddress: hookAddr,
		Owner:       owner,
		Factory:     factory,
		Router:      router,
	}, guard.NewStaticInspector([]common.Address{pool}), staticTokens{tokenA, tokenB}, nil, nil, zaptest.NewLogger(t))

	rec := registerRecord(1)
	rec.Tokens = nil
	summary, err := runner.Run(context.Background(), jsonl(t, rec), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Applied)

	tokens, err := runner.Vault().PoolTokens(context.Background(), pool)
	require.NoError(t, err)
	require.Equal(t, []common.Address{tokenA, tokenB}, tokens)
}

type fixedDecimals map[common.Address]uint8

func (f fixedDecimals) Decimals(_ context.Context, token common.Address) (uint8, error) {
	return f[token], nil
}

func TestRunnerScalesRawAmounts(t *testing.T) {
	runner := newRunner(t, &memEvents{}, nil).WithDecimals(fixedDecimals{tokenA: 6, tokenB: 18})
	add := liquidityRecord(2, model.KindAfterAdd, t0)
	add.AmountsRaw = []string{"2000000", "5"}

	summary, err := runner.Run(context.Background(), jsonl(t, registerRecord(1), add), &memWriter{}, &memWriter{})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Applied)

	entries := runner.Engine().Ledger().Entries(pool, alice)
	require.Equal(t, "2000000000000000000", entries[0].Dec())
	require.Equal(t, uint64(5), entries[1].Uint64())

	balances := runner.Vault().Balances(pool)
	require.Equal(t, uint64(2000000), balances[0].Uint64())
}
