package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/arctir-kernel/cfsproc/internal/hw"
	"github.com/arctir-kernel/cfsproc/internal/kernel"
	"github.com/arctir-kernel/cfsproc/internal/proc"
	"github.com/arctir-kernel/cfsproc/internal/procdump"
	"github.com/arctir-kernel/cfsproc/internal/sched"
	"github.com/arctir-kernel/cfsproc/pkg/config"
	"github.com/arctir-kernel/cfsproc/pkg/klog"
	"github.com/arctir-kernel/cfsproc/pkg/utils"
	"github.com/integrii/flaggy"
	"github.com/mgutz/str"
	"github.com/samber/lo"
)

const defaultVersion = "unversioned"

var (
	commit  string
	version = defaultVersion
	date    string

	configFlag bool
	debugFlag  bool
	scriptFlag string
)

func main() {
	updateBuildInfo()

	info := fmt.Sprintf(
		"%s\nDate: %s\nCommit: %s\nOS: %s\nArch: %s",
		version, date, commit, runtime.GOOS, runtime.GOARCH,
	)

	flaggy.SetName("cfsproc")
	flaggy.SetDescription("A completely-fair process scheduler core, run standalone")
	flaggy.DefaultParser.AdditionalHelpPrepend = "https://github.com/arctir-kernel/cfsproc"

	flaggy.Bool(&configFlag, "c", "config", "Print the default tunables and exit")
	flaggy.Bool(&debugFlag, "d", "debug", "Enable debug logging")
	flaggy.String(&scriptFlag, "s", "script", `Space-separated lifecycle script to run, e.g. "fork yield exit wait"`)
	flaggy.SetVersion(info)
	flaggy.Parse()

	if configFlag {
		out, err := config.Dump(config.Default())
		if err != nil {
			log.Fatal(err.Error())
		}
		fmt.Print(out)
		os.Exit(0)
	}

	cfg, err := config.New("cfsproc", debugFlag)
	if err != nil {
		log.Fatal(err.Error())
	}

	logger := klog.New(cfg, version)
	k := kernel.New(cfg, logger, hw.NewSimProvider(), 1)
	initProc := k.UserInit()

	if scriptFlag == "" {
		scriptFlag = "fork yield fork yield exit wait exit wait"
	}
	runScript(k, initProc, scriptFlag)

	drain(k)

	fmt.Println(procdump.Dump(k))
}

// runScript drives the kernel through a sequence of lifecycle operations
// named on the command line, tokenized the way the teacher tokenizes a
// shell command before exec'ing it (str.ToArgv) — here interpreted against
// the process table rather than a subprocess. Each "fork" moves the
// script's notion of the current process into the new child; each "exit"
// moves it back to whichever process forked the one that just exited.
//
// Yield and exit are only valid on the process a CPU is actually running
// (spec §4.E), so every step that makes a new process "current" dispatches
// it off the runqueue first — safe in this single-threaded script because
// at most one process is ever sitting in the runqueue between steps.
func runScript(k *kernel.Kernel, initProc *proc.Proc, script string) {
	tokens := str.ToArgv(script)
	current := initProc
	if dispatched := dispatchTop(k); dispatched != nil {
		current = dispatched
	}
	var ancestors []*proc.Proc

	for _, tok := range tokens {
		switch strings.ToLower(tok) {
		case "fork":
			pid, err := k.Fork(current)
			if err != nil {
				fmt.Printf("fork: %s\n", err)
				continue
			}
			if dispatched := dispatchTop(k); dispatched != nil {
				ancestors = append(ancestors, current)
				current = dispatched
			}
		case "yield":
			k.Yield(current)
			if current.State != proc.Running {
				if dispatched := dispatchTop(k); dispatched != nil {
					current = dispatched
				}
			}
		case "exit":
			k.Exit(current)
			if n := len(ancestors); n > 0 {
				current, ancestors = ancestors[n-1], ancestors[:n-1]
			}
		case "wait":
			if _, err := k.Wait(current); err != nil {
				fmt.Printf("wait: %s\n", err)
			}
		default:
			fmt.Printf("unrecognized script token: %q\n", tok)
		}
	}
}

// dispatchTop extracts whatever is at the head of the runqueue and marks
// it RUNNING, mimicking a scheduler tick picking it straight back up.
func dispatchTop(k *kernel.Kernel) *proc.Proc {
	p := k.RunQueue.ExtractMin()
	if p == nil {
		return nil
	}
	k.Table.Lock.Lock()
	p.State = proc.Running
	k.Table.Lock.Unlock()
	return p
}

// drain starts the per-CPU scheduler loop briefly so any runnable work the
// script left behind gets a chance to run out its slices before the final
// dump, then stops it.
func drain(k *kernel.Kernel) {
	m := sched.NewManager(k)
	cpu := k.CPU(0)
	m.Start(cpu, func(p *proc.Proc) int64 { return 1 })
	time.Sleep(20 * time.Millisecond)
	m.Stop(cpu)
}

func updateBuildInfo() {
	if version != defaultVersion {
		return
	}
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if revision, ok := lo.Find(buildInfo.Settings, func(s debug.BuildSetting) bool {
		return s.Key == "vcs.revision"
	}); ok {
		commit = revision.Value
		version = utils.SafeTruncate(commit, 7)
	}
	if t, ok := lo.Find(buildInfo.Settings, func(s debug.BuildSetting) bool {
		return s.Key == "vcs.time"
	}); ok {
		date = t.Value
	}
}
