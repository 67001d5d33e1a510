package proc

import (
	"testing"

	"github.com/arctir-kernel/cfsproc/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.KernelConfig {
	return &config.KernelConfig{NProc: 3, NOFile: 4}
}

func TestAllocProcAssignsUniquePids(t *testing.T) {
	table := NewTable(testConfig())

	p1 := table.AllocProc()
	require.NotNil(t, p1)
	p2 := table.AllocProc()
	require.NotNil(t, p2)

	assert.Equal(t, Embryo, p1.State)
	assert.NotEqual(t, p1.Pid, p2.Pid)
}

func TestAllocProcExhaustion(t *testing.T) {
	table := NewTable(testConfig())
	for i := 0; i < table.Len(); i++ {
		require.NotNil(t, table.AllocProc())
	}
	assert.Nil(t, table.AllocProc(), "pool is full")
}

func TestRevertReturnsSlotToUnused(t *testing.T) {
	table := NewTable(testConfig())
	p := table.AllocProc()
	require.NotNil(t, p)
	table.Revert(p)
	assert.Equal(t, Unused, p.State)
	assert.Zero(t, p.Pid)
}

func TestFindByPid(t *testing.T) {
	table := NewTable(testConfig())
	p := table.AllocProc()
	require.NotNil(t, p)

	found := table.FindByPid(p.Pid)
	assert.Same(t, p, found)
	assert.Nil(t, table.FindByPid(p.Pid+1000))
}

func TestReapZeroesIdentity(t *testing.T) {
	table := NewTable(testConfig())
	p := table.AllocProc()
	require.NotNil(t, p)
	p.State = Zombie
	p.Name = "child"
	p.Killed = true

	table.Reap(p)
	assert.Equal(t, Unused, p.State)
	assert.Zero(t, p.Pid)
	assert.Empty(t, p.Name)
	assert.False(t, p.Killed)
}
