// Command pgtune computes a tuned postgresql.conf for a described machine
// and workload. It is a thin demo of the tuning engine: it gathers host
// facts (or takes flag overrides), builds a Request, runs Optimize, and
// renders the result.
package main

import (
	"fmt"
	"os"

	"github.com/flanksource/pg-autotune/pkg/pgtune"
	"github.com/flanksource/pg-autotune/pkg/sysinfo"
	"github.com/spf13/cobra"
)

var (
	flagRAM     string
	flagCPUs    int
	flagConn    int
	flagWork    string
	flagTier    string
	flagMode    string
	flagVersion int
	flagData    string
	flagWAL     string
	flagOutput  string
	flagSet     []string
)

func main() {
	root := &cobra.Command{
		Use:   "pgtune",
		Short: "Compute a tuned postgresql.conf for a described machine and workload",
	}

	tune := &cobra.Command{
		Use:   "tune",
		Short: "Detect (or accept) host facts and render a tuned configuration",
		RunE:  runTune,
	}
	tune.Flags().StringVar(&flagRAM, "ram", "", "total RAM (e.g. 16GB); detected from host if omitted")
	tune.Flags().IntVar(&flagCPUs, "cpus", 0, "usable CPU count; detected from host if omitted")
	tune.Flags().IntVar(&flagConn, "conn", 100, "desired max user connections")
	tune.Flags().StringVar(&flagWork, "workload", "TP", "workload kind: TP, ANALYTIC, HTAP, VECTOR, LOG, SOLTP, SEARCH, TSR_IOT, TSR_HTAP")
	tune.Flags().StringVar(&flagTier, "tier", "MEDIUM", "sizing tier: MINI, MEDIUM, LARGE, MALL, BIGT, HUGE")
	tune.Flags().StringVar(&flagMode, "mode", "NONE", "optimization mode: NONE, SPIDEY, OPTIMUS_PRIME, PRIMORDIAL")
	tune.Flags().IntVar(&flagVersion, "version", 17, "target PostgreSQL major version (13-18)")
	tune.Flags().StringVar(&flagData, "data-disk", "", "data disk tag (e.g. nvme_pcie_v4); detected from host if omitted")
	tune.Flags().StringVar(&flagWAL, "wal-disk", "", "WAL disk tag; defaults to --data-disk")
	tune.Flags().StringVar(&flagOutput, "output", "conf", "output format: conf or json")
	tune.Flags().StringArrayVar(&flagSet, "set", nil, "pin a tunable to an explicit value, key=value (repeatable)")

	root.AddCommand(tune, versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pgtune engine version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pgtune (pg-autotune engine)")
		},
	}
}

func runTune(cmd *cobra.Command, args []string) error {
	info, err := sysinfo.DetectSystemInfo()
	if err != nil {
		return fmt.Errorf("detecting host facts: %w", err)
	}

	ramBytes := info.EffectiveMemory()
	if flagRAM != "" {
		ramBytes, err = parseSizeFlag(flagRAM)
		if err != nil {
			return &exitError{code: 2, err: err}
		}
	}

	cpus := info.EffectiveCPUCount()
	if flagCPUs > 0 {
		cpus = flagCPUs
	}

	dataTag := flagData
	if dataTag == "" {
		dataTag = sysinfo.DetectDiskClassTag()
	}
	walTag := flagWAL
	if walTag == "" {
		walTag = dataTag
	}

	dataDisk, err := pgtune.MakeDisk(pgtune.DiskSpec{Tag: dataTag})
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	walDisk, err := pgtune.MakeDisk(pgtune.DiskSpec{Tag: walTag})
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	tier, err := parseTier(flagTier)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	mode, err := parseMode(flagMode)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	cat, err := pgtune.ResolveCatalog(flagVersion)
	if err != nil {
		return &exitError{code: 3, err: err}
	}
	overrides, err := parseKeywordOverrides(flagSet, cat)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	keywords, err := pgtune.MakeTuningKeywords(overrides, flagVersion)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	req, err := pgtune.MakeTuneRequest(pgtune.Options{
		Version:            flagVersion,
		Workload:           pgtune.WorkloadKind(flagWork),
		Tier:               tier,
		Mode:               mode,
		TotalRAMBytes:      ramBytes,
		UsableCPUCount:     cpus,
		MaxUserConnections: flagConn,
	}, keywords, dataDisk, walDisk)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	resp, err := pgtune.Optimize(req)
	if err != nil {
		return &exitError{code: 3, err: err}
	}

	switch flagOutput {
	case "json":
		out, err := pgtune.RenderJSON(resp, cat)
		if err != nil {
			return &exitError{code: 3, err: err}
		}
		fmt.Println(string(out))
	default:
		text, err := pgtune.RenderString(resp, cat)
		if err != nil {
			return &exitError{code: 3, err: err}
		}
		fmt.Print(text)
	}
	return nil
}

func parseTier(s string) (pgtune.Tier, error) {
	for _, t := range pgtune.AllTiers {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

func parseMode(s string) (pgtune.OptimizationMode, error) {
	switch s {
	case "NONE":
		return pgtune.OptModeNone, nil
	case "SPIDEY":
		return pgtune.OptModeSpidey, nil
	case "OPTIMUS_PRIME":
		return pgtune.OptModeOptimusPrime, nil
	case "PRIMORDIAL":
		return pgtune.OptModePrimordial, nil
	default:
		return 0, fmt.Errorf("unknown optimization mode %q", s)
	}
}

// exitError pairs an error with the process exit code it maps to:
// 2 for validation failures, 3 for engine failures, 64 for host errors.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	return 64
}
