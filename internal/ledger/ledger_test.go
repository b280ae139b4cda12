package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"lpIncentive/internal/fixedpoint"
)

var (
	poolA    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	poolB    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	provider = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func amounts(values ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = uint256.NewInt(v)
	}
	return out
}

func requireEntries(t *testing.T, l *Ledger, pool common.Address, want ...uint64) {
	t.Helper()
	got := l.Entries(pool, provider)
	require.Len(t, got, len(want))
	for i, v := range want {
		require.Equal(t, v, got[i].Uint64(), "token %d", i)
	}
}

func TestDepositThenWithdrawSameAmounts(t *testing.T) {
	sequences := [][][]uint64{
		{{100, 200}},
		{{1, 0}, {0, 1}, {5, 5}},
		{{0, 0}},
		{{7, 9, 11}, {3, 0, 1}},
	}

	for _, deposits := range sequences {
		l := New()
		total := make([]uint64, len(deposits[0]))
		for _, dep := range deposits {
			require.NoError(t, l.RecordDeposit(poolA, provider, amounts(dep...), 1000))
			for i, v := range dep {
				total[i] += v
			}
		}

		all, err := l.RecordWithdrawal(poolA, provider, amounts(total...))
		require.NoError(t, err)
		require.True(t, all)
		requireEntries(t, l, poolA, make([]uint64, len(total))...)
	}
}

func TestWithdrawMoreThanDepositedFloorsAtZero(t *testing.T) {
	l := New()
	require.NoError(t, l.RecordDeposit(poolA, provider, amounts(10, 50), 1000))

	all, err := l.RecordWithdrawal(poolA, provider, amounts(25, 20))
	require.NoError(t, err)
	require.False(t, all)
	requireEntries(t, l, poolA, 0, 30)

	all, err = l.RecordWithdrawal(poolA, provider, amounts(1, 1000))
	require.NoError(t, err)
	require.True(t, all)
	requireEntries(t, l, poolA, 0, 0)
}

func TestDepositClockStartsOnceAndClears(t *testing.T) {
	l := New()
	require.Zero(t, l.DepositClock(provider))

	require.NoError(t, l.RecordDeposit(poolA, provider, amounts(1), 1000))
	require.NoError(t, l.RecordDeposit(poolB, provider, amounts(1, 1), 2000))
	require.Equal(t, uint64(1000), l.DepositClock(provider))

	l.ClearDepositClock(provider)
	require.Zero(t, l.DepositClock(provider))

	require.NoError(t, l.RecordDeposit(poolA, provider, amounts(1), 3000))
	require.Equal(t, uint64(3000), l.DepositClock(provider))
}

func TestRecordsArePoolScoped(t *testing.T) {
	l := New()
	require.NoError(t, l.RecordDeposit(poolA, provider, amounts(5, 5), 1000))
	require.NoError(t, l.RecordDeposit(poolB, provider, amounts(9, 9), 1000))

	all, err := l.RecordWithdrawal(poolA, provider, amounts(5, 5))
	require.NoError(t, err)
	require.True(t, all)
	requireEntries(t, l, poolB, 9, 9)
}

func TestLengthMismatch(t *testing.T) {
	l := New()
	require.NoError(t, l.RecordDeposit(poolA, provider, amounts(5, 5), 1000))

	err := l.RecordDeposit(poolA, provider, amounts(5), 1000)
	require.ErrorIs(t, err, ErrLengthMismatch)

	_, err = l.RecordWithdrawal(poolA, provider, amounts(1, 1, 1))
	require.ErrorIs(t, err, ErrLengthMismatch)
	requireEntries(t, l, poolA, 5, 5)
}

func TestWithdrawWithoutRecord(t *testing.T) {
	l := New()
	all, err := l.RecordWithdrawal(poolA, provider, amounts(5, 5))
	require.NoError(t, err)
	require.True(t, all)
	require.Nil(t, l.Entries(poolA, provider))
}

func TestDepositOverflowLeavesLedgerUntouched(t *testing.T) {
	l := New()
	max := new(uint256.Int).SetAllOne()
	require.NoError(t, l.RecordDeposit(poolA, provider, []*uint256.Int{uint256.NewInt(1), max}, 1000))

	err := l.RecordDeposit(poolA, provider, amounts(4, 1), 1000)
	require.ErrorIs(t, err, fixedpoint.ErrArithmeticOverflow)

	got := l.Entries(poolA, provider)
	require.Equal(t, uint64(1), got[0].Uint64())
	require.True(t, got[1].Eq(max))
}

func TestEntriesReturnsCopy(t *testing.T) {
	l := New()
	require.NoError(t, l.RecordDeposit(poolA, provider, amounts(5), 1000))

	got := l.Entries(poolA, provider)
	got[0].SetUint64(99)
	requireEntries(t, l, poolA, 5)
}

func TestSnapshotRestore(t *testing.T) {
	l := New()
	require.NoError(t, l.RecordDeposit(poolB, provider, amounts(3, 4), 1500))
	require.NoError(t, l.RecordDeposit(poolA, provider, amounts(1, 2), 1600))

	snap := l.Snapshot()
	require.Len(t, snap.Records, 2)
	require.Equal(t, poolA.Hex(), snap.Records[0].Pool)
	require.Equal(t, []string{"1", "2"}, snap.Records[0].Amounts)
	require.Len(t, snap.Clocks, 1)
	require.Equal(t, uint64(1500), snap.Clocks[0].Since)

	restored := New()
	require.NoError(t, restored.Restore(snap))
	require.Equal(t, snap, restored.Snapshot())
	require.Equal(t, uint64(1500), restored.DepositClock(provider))
}

func TestClearedClockLeavesSnapshot(t *testing.T) {
	l := New()
	require.NoError(t, l.RecordDeposit(poolA, provider, amounts(1, 2), 1000))
	l.ClearDepositClock(provider)
	require.Empty(t, l.Snapshot().Clocks)
}
