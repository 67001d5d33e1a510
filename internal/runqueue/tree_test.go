package runqueue

import (
	"testing"

	"github.com/arctir-kernel/cfsproc/internal/proc"
	"github.com/arctir-kernel/cfsproc/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.KernelConfig {
	return &config.KernelConfig{
		NProc:       8,
		MinGran:     2,
		NiceClamp:   30,
		WeightBase:  1024,
		WeightRatio: 1.25,
	}
}

func runnable(pid int, nice int, vruntime int64) *proc.Proc {
	return &proc.Proc{Pid: pid, State: proc.Runnable, Nice: nice, VirtualRuntime: vruntime}
}

func TestExtractMinOnEmpty(t *testing.T) {
	rq := New(testConfig())
	assert.True(t, rq.IsEmpty())
	assert.Nil(t, rq.ExtractMin())
}

func TestSingleProcessScenario(t *testing.T) {
	// spec §8 scenario 1: NPROC=8, latency=4, min_gran=2.
	rq := New(testConfig())
	p := runnable(1, 0, 0)
	rq.Insert(p)

	require.Equal(t, 1, rq.Count())
	require.EqualValues(t, 1024, rq.Weight())
	require.EqualValues(t, 4, rq.Period())

	extracted := rq.ExtractMin()
	require.NotNil(t, extracted)
	assert.Equal(t, 1, extracted.Pid)
	assert.EqualValues(t, 4, extracted.MaxExecTime)
	assert.NoError(t, rq.Validate())
}

func TestTwoEqualWeightProcesses(t *testing.T) {
	// spec §8 scenario 2.
	rq := New(testConfig())
	p1 := runnable(1, 0, 0)
	p2 := runnable(2, 0, 0)
	rq.Insert(p1)
	rq.Insert(p2)

	require.Equal(t, 2, rq.Count())
	require.EqualValues(t, 2048, rq.Weight())

	extracted := rq.ExtractMin()
	require.NotNil(t, extracted)
	assert.Equal(t, 1, extracted.Pid, "BST equal-keys-right: inserted-first is extracted first")
	assert.EqualValues(t, 2, extracted.MaxExecTime)
}

func TestInsertExtractIdempotentOnSingleton(t *testing.T) {
	rq := New(testConfig())
	for i := 0; i < 5; i++ {
		p := runnable(i+1, 0, 0)
		rq.Insert(p)
		extracted := rq.ExtractMin()
		require.NotNil(t, extracted)
		assert.Equal(t, p.Pid, extracted.Pid)
		assert.True(t, rq.IsEmpty())
		assert.Nil(t, rq.MinVRuntime())
	}
}

func TestExtractMinReturnsSmallestVRuntime(t *testing.T) {
	rq := New(testConfig())
	vruntimes := []int64{5, 1, 9, 3, 7, 2, 8}
	for i, vr := range vruntimes {
		rq.Insert(runnable(i+1, 0, vr))
		require.NoError(t, rq.Validate())
	}

	var lastVR int64 = -1
	for !rq.IsEmpty() {
		p := rq.ExtractMin()
		require.NotNil(t, p)
		assert.GreaterOrEqual(t, p.VirtualRuntime, lastVR)
		lastVR = p.VirtualRuntime
		require.NoError(t, rq.Validate())
	}
}

func TestInsertExtractRoundTripNeverIncreasesKey(t *testing.T) {
	rq := New(testConfig())
	p := runnable(1, 0, 3)
	rq.Insert(p)
	rq.Insert(runnable(2, 0, 10))
	rq.Insert(runnable(3, 0, 1))

	extracted := rq.ExtractMin()
	require.NotNil(t, extracted)
	assert.LessOrEqual(t, extracted.VirtualRuntime, p.VirtualRuntime)
}

func TestRedBlackBalanceUnderManyInserts(t *testing.T) {
	rq := New(&config.KernelConfig{NProc: 64, MinGran: 2, NiceClamp: 30, WeightBase: 1024, WeightRatio: 1.25})
	for i := 0; i < 64; i++ {
		rq.Insert(runnable(i+1, i%30, int64(63-i)))
		require.NoError(t, rq.Validate())
	}
	for !rq.IsEmpty() {
		require.NotNil(t, rq.ExtractMin())
		require.NoError(t, rq.Validate())
	}
}

func TestExtractMinRefusesNonRunnable(t *testing.T) {
	rq := New(testConfig())
	p := runnable(1, 0, 0)
	rq.Insert(p)
	p.State = proc.Sleeping // simulate the transient race spec §9 documents
	assert.Nil(t, rq.ExtractMin())
}

func TestCalculateWeightBoundary(t *testing.T) {
	assert.Equal(t, 1024, rqWeightFor(0))
	assert.Less(t, rqWeightFor(1), rqWeightFor(0))
	assert.Less(t, rqWeightFor(10), rqWeightFor(1))
	assert.Equal(t, rqWeightFor(30), rqWeightFor(31), "nice > 30 clamps to 30")
	assert.Equal(t, rqWeightFor(30), rqWeightFor(1000))
}

func rqWeightFor(nice int) int {
	rq := New(testConfig())
	p := runnable(1, nice, 0)
	rq.Insert(p)
	return p.ProcWeight
}

func TestInsertSkippedWhenFull(t *testing.T) {
	cfg := &config.KernelConfig{NProc: 2, MinGran: 2, NiceClamp: 30, WeightBase: 1024, WeightRatio: 1.25}
	rq := New(cfg)
	rq.Insert(runnable(1, 0, 0))
	rq.Insert(runnable(2, 0, 1))
	assert.True(t, rq.IsFull())

	overflow := runnable(3, 0, 2)
	rq.Insert(overflow)
	assert.Equal(t, 2, rq.Count(), "insert on a full runqueue is silently skipped")
}
