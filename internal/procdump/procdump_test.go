package procdump

import (
	"io"
	"strings"
	"testing"

	"github.com/arctir-kernel/cfsproc/internal/hw"
	"github.com/arctir-kernel/cfsproc/internal/kernel"
	"github.com/arctir-kernel/cfsproc/internal/proc"
	"github.com/arctir-kernel/cfsproc/pkg/config"
	"github.com/arctir-kernel/cfsproc/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	cfg := &config.KernelConfig{NProc: 8, NOFile: 4, MinGran: 2, NiceClamp: 30, WeightBase: 1024, WeightRatio: 1.25}
	log := logrus.New()
	log.Out = io.Discard
	return kernel.New(cfg, log.WithField("test", true), hw.NewSimProvider(), 1)
}

func TestDumpListsLiveProcesses(t *testing.T) {
	k := testKernel(t)
	p := k.UserInit()

	out := Dump(k)
	plain := utils.Decolorise(out)

	assert.Contains(t, plain, "initcode")
	assert.Contains(t, plain, p.State.String())
}

func TestDumpOmitsUnusedSlots(t *testing.T) {
	k := testKernel(t)
	k.UserInit()

	out := utils.Decolorise(Dump(k))
	assert.Equal(t, 1, strings.Count(out, "initcode"))
}

func TestDumpIncludesSleeperBacktrace(t *testing.T) {
	k := testKernel(t)
	p := k.UserInit()
	p.State = proc.Sleeping
	p.Context.BackTrace = []uintptr{0x1000, 0x2000}

	out := Dump(k)
	assert.Contains(t, out, "0x1000")
	assert.Contains(t, out, "0x2000")
}
