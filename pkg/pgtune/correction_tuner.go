package pgtune

import (
	"math"

	"github.com/samber/lo"
)

// ---- Phase 1: Connection budget --------------------------------------------

func calcMaxConnections(req *Request, resp *Response) (any, error) {
	requested := req.MaxUserConnections
	if requested <= 0 {
		requested = 100
	}
	if req.Workload.IsAnalytic() {
		n := requested
		if n < 10 {
			n = 10
		}
		if n > 40 {
			n = 40
		}
		return n, nil
	}
	return requested, nil
}

func calcSuperuserReservedConnections(req *Request, resp *Response) (any, error) {
	n := resp.GetInt("max_connections")
	v := ceilDiv(n*5, 100)
	if v < 2 {
		v = 2
	}
	return v, nil
}

func calcReservedConnections(req *Request, resp *Response) (any, error) {
	n := resp.GetInt("max_connections")
	v := ceilDiv(n*2, 100)
	if v < 1 {
		v = 1
	}
	return v, nil
}

func phaseConnectionBudget(req *Request, resp *Response) (bool, error) {
	changed, err := resp.TriggerTuning(map[Scope][]string{
		ScopeConnection: {"max_connections", "superuser_reserved_connections", "reserved_connections"},
	}, req)
	if err != nil {
		return false, err
	}

	n := resp.GetInt("max_connections")
	reserved := resp.GetInt("superuser_reserved_connections") + resp.GetInt("reserved_connections")
	if reserved > n/4 {
		resp.Warnf("reserved connection pool (%d) exceeds max_connections/4 (%d); clamping", reserved, n/4)
		// Split the capped pool 2:1 between superuser and role slots. The
		// usual >=2/>=1 floors do not apply here: re-imposing them would
		// push the sum back above the cap, and for very small connection
		// counts (n <= 3, cap 0) back to n itself, leaving no slot for an
		// ordinary client.
		cap := n / 4
		su := cap * 2 / 3
		rc := cap - su
		_ = resp.ItemTuning("superuser_reserved_connections", su)
		_ = resp.ItemTuning("reserved_connections", rc)
	}

	return len(changed) > 0, nil
}

// ---- Phase 2: Memory budget -------------------------------------------------

func calcSharedBuffers(req *Request, resp *Response) (any, error) {
	usable := usableRAM(req.TotalRAMBytes)
	v := uint64(tierFraction(req.Tier) * float64(usable))
	return clampU64(v, 128*miB, uint64(0.4*float64(usable))), nil
}

func calcEffectiveCacheSize(req *Request, resp *Response) (any, error) {
	usable := usableRAM(req.TotalRAMBytes)
	sb := resp.GetUint64("shared_buffers")
	v := uint64(0.70*float64(usable)) - sb
	hi := usable - sb
	return clampU64(v, 256*miB, hi), nil
}

func calcWorkMem(req *Request, resp *Response) (any, error) {
	usable := usableRAM(req.TotalRAMBytes)
	sb := resp.GetUint64("shared_buffers")
	ecs := resp.GetUint64("effective_cache_size")
	n := resp.GetInt("max_connections")
	if n < 1 {
		n = 1
	}
	pf := parallelFactor(req.Mode)
	remaining := int64(usable) - int64(sb) - int64(ecs)
	if remaining < 0 {
		remaining = 0
	}
	v := uint64(float64(remaining) / (float64(n) * pf))
	if v < 64*1024 {
		v = 64 * 1024
	}
	// A prior memory-budget shrink is sticky: without the cap, trigger
	// re-evaluation on the next sweep would restore the unshrunk value and
	// the shrink/restore pair would oscillate until the sweep budget runs out.
	if capAny, ok := resp.Get(workMemCapKey); ok {
		if capVal, ok := capAny.(uint64); ok && v > capVal {
			v = capVal
		}
	}
	return v, nil
}

// Cache-only bookkeeping keys: sweep-sticky state the correction pass
// carries between trigger re-evaluations. Not catalog items, never rendered.
const (
	workMemCapKey           = "_work_mem_cap"
	checkpointTimeoutIdxKey = "_checkpoint_timeout_idx"
	vacuumCostDelayFloorKey = "_vacuum_cost_delay_floor"
)

func calcMaintenanceWorkMem(req *Request, resp *Response) (any, error) {
	usable := usableRAM(req.TotalRAMBytes)
	return clampU64(usable/16, 64*miB, 2*giB), nil
}

func calcAutovacuumWorkMem(req *Request, resp *Response) (any, error) {
	return resp.GetUint64("maintenance_work_mem"), nil
}

func calcTempBuffers(req *Request, resp *Response) (any, error) {
	wm := resp.GetUint64("work_mem")
	return clampU64(wm, 8*miB, 128*miB), nil
}

func worstCaseMem(req *Request, resp *Response) uint64 {
	sb := resp.GetUint64("shared_buffers")
	n := uint64(resp.GetInt("max_connections"))
	tb := resp.GetUint64("temp_buffers")
	wm := resp.GetUint64("work_mem")
	pf := parallelFactor(req.Mode)
	mwm := resp.GetUint64("maintenance_work_mem")
	avWorkers := uint64(resp.GetInt("autovacuum_max_workers"))
	if avWorkers == 0 {
		avWorkers = 1
	}
	perConn := tb + uint64(pf*float64(wm))
	return sb + n*perConn + mwm*avWorkers
}

func phaseMemoryBudget(req *Request, resp *Response) (bool, error) {
	changed, err := resp.TriggerTuning(map[Scope][]string{
		ScopeMemory: {"shared_buffers", "effective_cache_size", "work_mem", "maintenance_work_mem", "autovacuum_work_mem", "temp_buffers"},
	}, req)
	if err != nil {
		return false, err
	}

	usable := usableRAM(req.TotalRAMBytes)
	wcm := worstCaseMem(req, resp)
	if wcm > usable {
		if wcm == 0 {
			return false, &MemoryBudgetInfeasibleError{UsableRAMBytes: usable, WorstCaseMemBytes: wcm}
		}
		shrink := float64(usable) / float64(wcm)
		wm := resp.GetUint64("work_mem")
		newWM := uint64(float64(wm) * shrink)
		if newWM < 64*1024 {
			newWM = 64 * 1024
		}
		resp.cache[workMemCapKey] = newWM
		_ = resp.ItemTuning("work_mem", newWM)
		tb := clampU64(newWM, 8*miB, 128*miB)
		_ = resp.ItemTuning("temp_buffers", tb)
		changed = append(changed, "work_mem", "temp_buffers")

		wcm = worstCaseMem(req, resp)
		if wcm > usable {
			return false, &MemoryBudgetInfeasibleError{UsableRAMBytes: usable, WorstCaseMemBytes: wcm}
		}
	}

	return len(changed) > 0, nil
}

// ---- Phase 3: WAL & checkpoint ----------------------------------------------

func calcWalBuffers(req *Request, resp *Response) (any, error) {
	sb := resp.GetUint64("shared_buffers")
	v := clampU64(sb/32, 16*miB, 2*giB)
	return alignUp(v, walSegmentSize), nil
}

// alignUp rounds v up to the nearest multiple of unit. Not a
// midpoint rounding: WAL buffers must never round down below the
// clamp floor.
func alignUp(v, unit uint64) uint64 {
	if unit == 0 {
		return v
	}
	if v%unit == 0 {
		return v
	}
	return (v/unit + 1) * unit
}

func calcWalWriterDelay(req *Request, resp *Response) (any, error) {
	const k = 2
	walBuf := resp.GetUint64("wal_buffers")
	flushMs := walTimeMillis(walBuf, req.WALDisk.ThroughputMiBps)
	delayMs := flushMs / k
	if delayMs < 10 {
		delayMs = 10
	}
	if delayMs > 10_000 {
		delayMs = 10_000
	}
	return uint64(delayMs), nil
}

func calcCheckpointTimeout(req *Request, resp *Response) (any, error) {
	idx, ok := resp.Get(checkpointTimeoutIdxKey)
	if !ok {
		idx = checkpointTimeoutIndex(req.Tier, req.Mode)
	}
	i := idx.(int)
	if i >= len(checkpointTimeoutLadder) {
		i = len(checkpointTimeoutLadder) - 1
	}
	return uint64(checkpointTimeoutLadder[i]) * 60, nil // seconds
}

func calcCheckpointCompletionTarget(req *Request, resp *Response) (any, error) {
	if req.DataDisk.IsHDDClass() {
		return 0.8, nil
	}
	return 0.9, nil
}

func calcMaxWalSize(req *Request, resp *Response) (any, error) {
	checkpointSeconds := resp.GetUint64("checkpoint_timeout")
	target := resp.GetFloat("checkpoint_completion_target")
	const safety = 1.0
	bytesF := float64(checkpointSeconds) * req.WALDisk.ThroughputMiBps * float64(miB) * target * safety
	v := clampU64(uint64(bytesF), 2*giB, 64*giB)
	return alignUp(v, walSegmentSize), nil
}

func calcMinWalSize(req *Request, resp *Response) (any, error) {
	maxWal := resp.GetUint64("max_wal_size")
	return alignUp(maxWal/4, walSegmentSize), nil
}

// checkpointFlushAlpha scales the checkpoint-time model's worst-case flush
// (alpha * wal_buffers bytes) by how bursty a workload's writes are:
// bulk/analytic workloads churn more dirty WAL per checkpoint window than
// steady small-transaction OLTP; append-heavy but not bulk-analytic
// workloads (log ingestion, search indexing, time-series writes) sit
// between the two.
func checkpointFlushAlpha(workload WorkloadKind) float64 {
	switch workload {
	case WorkloadAnalytic, WorkloadHTAP, WorkloadTSRHTAP:
		return 2.0
	case WorkloadLog, WorkloadSearch, WorkloadVector, WorkloadTSRIOT:
		return 1.5
	default: // TP, SOLTP
		return 1.0
	}
}

func phaseWALCheckpoint(req *Request, resp *Response) (bool, error) {
	changed, err := resp.TriggerTuning(map[Scope][]string{
		ScopeFilesystem: {"wal_buffers", "checkpoint_timeout", "checkpoint_completion_target", "max_wal_size", "min_wal_size", "wal_writer_delay"},
	}, req)
	if err != nil {
		return false, err
	}

	idxVal, ok := resp.Get(checkpointTimeoutIdxKey)
	idx := checkpointTimeoutIndex(req.Tier, req.Mode)
	if ok {
		idx = idxVal.(int)
	}

	for attempt := 0; attempt < 3; attempt++ {
		checkpointSeconds := float64(resp.GetUint64("checkpoint_timeout"))
		walBuf := resp.GetUint64("wal_buffers")
		alpha := checkpointFlushAlpha(req.Workload)
		dataAmount := uint64(float64(walBuf) * alpha)
		util := checkpointDataDiskUtilization(checkpointSeconds, req.DataDisk.ThroughputMiBps, dataAmount)
		if util <= 0.9 {
			break
		}
		if idx >= len(checkpointTimeoutLadder)-1 {
			break
		}
		idx++
		resp.cache[checkpointTimeoutIdxKey] = idx
		_ = resp.ItemTuning("checkpoint_timeout", uint64(checkpointTimeoutLadder[idx])*60)
		maxWal, _ := calcMaxWalSize(req, resp)
		_ = resp.ItemTuning("max_wal_size", maxWal)
		minWal, _ := calcMinWalSize(req, resp)
		_ = resp.ItemTuning("min_wal_size", minWal)
		changed = append(changed, "checkpoint_timeout")
	}

	return len(changed) > 0, nil
}

// ---- Phase 4: Vacuum & autovacuum -------------------------------------------

func calcAutovacuumMaxWorkers(req *Request, resp *Response) (any, error) {
	v := ceilDiv(req.UsableCPUCount, 4)
	if v < 1 {
		v = 1
	}
	if v > 8 {
		v = 8
	}
	return v, nil
}

type vacuumCostProfile struct {
	limit int
	delay uint64 // milliseconds
	hit   int
	miss  int
	dirty int
}

func vacuumCostProfileFor(mode OptimizationMode) vacuumCostProfile {
	switch mode {
	case OptModeNone:
		return vacuumCostProfile{limit: 200, delay: 20, hit: 1, miss: 2, dirty: 20}
	case OptModeSpidey:
		return vacuumCostProfile{limit: 500, delay: 10, hit: 1, miss: 2, dirty: 20}
	case OptModeOptimusPrime:
		return vacuumCostProfile{limit: 2000, delay: 2, hit: 1, miss: 2, dirty: 20}
	default: // PRIMORDIAL
		return vacuumCostProfile{limit: 3000, delay: 0, hit: 1, miss: 2, dirty: 20}
	}
}

func calcVacuumCostLimit(req *Request, resp *Response) (any, error) {
	return vacuumCostProfileFor(req.Mode).limit, nil
}
func calcVacuumCostDelay(req *Request, resp *Response) (any, error) {
	delay := vacuumCostProfileFor(req.Mode).delay
	// A prior budget-violation tightening is sticky across sweeps, same as
	// the work_mem cap: re-deriving the mode profile's delay would undo the
	// tightening and the pair would never converge.
	if floorAny, ok := resp.Get(vacuumCostDelayFloorKey); ok {
		if floor, ok := floorAny.(uint64); ok && floor > delay {
			delay = floor
		}
	}
	return delay, nil
}
func calcVacuumCostPageHit(req *Request, resp *Response) (any, error) {
	return vacuumCostProfileFor(req.Mode).hit, nil
}
func calcVacuumCostPageMiss(req *Request, resp *Response) (any, error) {
	return vacuumCostProfileFor(req.Mode).miss, nil
}
func calcVacuumCostPageDirty(req *Request, resp *Response) (any, error) {
	return vacuumCostProfileFor(req.Mode).dirty, nil
}

// vacuumDirtyPageCost reads vacuum_cost_page_dirty from the resolved
// catalog when the current version still carries it as a tunable GUC. The
// v18+ overlay (catalog_overlays.go) deletes that key from the catalog
// entirely, and TriggerTuning correctly skips re-deriving an
// absent key, but the budget-violation check below still needs a
// per-dirty-page cost figure to divide by regardless of whether the GUC
// is still user-settable, since the physical cost of dirtying a page
// doesn't disappear when PostgreSQL stops exposing a knob for it. Reading
// the missing key through Response.GetInt would silently return 0 and
// divide by zero (Go floats turn that into +Inf rather than panicking),
// which would report every v18+ request as a budget violation regardless
// of actual disk throughput. Fall back to the same constant the mode
// profile assigned before the GUC was removed.
func vacuumDirtyPageCost(req *Request, resp *Response) float64 {
	if _, ok := resp.Get("vacuum_cost_page_dirty"); ok {
		return resp.GetFloat("vacuum_cost_page_dirty")
	}
	return float64(vacuumCostProfileFor(req.Mode).dirty)
}

func calcAutovacuumVacuumScaleFactor(req *Request, resp *Response) (any, error) {
	table := []float64{0.20, 0.10, 0.05, 0.04, 0.02, 0.01}
	return table[req.Tier], nil
}
func calcAutovacuumVacuumThreshold(req *Request, resp *Response) (any, error) {
	table := []int{50, 50, 100, 200, 500, 1000}
	return table[req.Tier], nil
}
func calcAutovacuumAnalyzeScaleFactor(req *Request, resp *Response) (any, error) {
	table := []float64{0.10, 0.05, 0.03, 0.02, 0.01, 0.005}
	return table[req.Tier], nil
}
func calcAutovacuumAnalyzeThreshold(req *Request, resp *Response) (any, error) {
	table := []int{50, 50, 100, 200, 500, 1000}
	return table[req.Tier], nil
}

func phaseVacuumAutovacuum(req *Request, resp *Response) (bool, error) {
	changed, err := resp.TriggerTuning(map[Scope][]string{
		ScopeMaintenance: {
			"autovacuum_max_workers",
			"vacuum_cost_limit", "vacuum_cost_delay",
			"vacuum_cost_page_hit", "vacuum_cost_page_miss", "vacuum_cost_page_dirty",
			"autovacuum_vacuum_scale_factor", "autovacuum_vacuum_threshold",
			"autovacuum_analyze_scale_factor", "autovacuum_analyze_threshold",
		},
	}, req)
	if err != nil {
		return false, err
	}

	for attempt := 0; attempt < 3; attempt++ {
		limit := float64(resp.GetInt("vacuum_cost_limit"))
		delay := resp.GetFloat("vacuum_cost_delay")
		if delay == 0 {
			delay = 1 // avoid divide-by-zero; PRIMORDIAL's 0ms floor is a ceiling target only
		}
		hit := float64(resp.GetInt("vacuum_cost_page_hit"))
		miss := float64(resp.GetInt("vacuum_cost_page_miss"))
		dirty := vacuumDirtyPageCost(req, resp)

		budgetPerSec := math.Ceil(limit / delay * 1000)
		maxDirtyPages := math.Floor(budgetPerSec / dirty)
		maxDirtyData := IOPSToThroughput(maxDirtyPages)

		page551 := math.Floor(budgetPerSec / (5*hit + 5*miss + dirty))
		data551 := IOPSToThroughput(page551 * 6)

		dataThroughput := req.DataDisk.ThroughputMiBps
		violated := maxDirtyData > dataThroughput || data551 > 0.5*dataThroughput
		if !violated {
			break
		}
		newDelay := uint64(math.Ceil(delay * 1.5))
		if newDelay > 100 {
			newDelay = 100
		}
		if newDelay == resp.GetUint64("vacuum_cost_delay") {
			// Already tightened to the ceiling and still violated: accept.
			break
		}
		resp.cache[vacuumCostDelayFloorKey] = newDelay
		_ = resp.ItemTuning("vacuum_cost_delay", newDelay)
		changed = append(changed, "vacuum_cost_delay")
	}

	return len(changed) > 0, nil
}

// VacuumScaleCurve exposes the dead-tuple trigger projection for a given
// autovacuum threshold/scale pair, so callers can preview the trigger
// curve before applying it.
func VacuumScaleCurve(threshold int, scaleFactor float64) map[string]int {
	return vacuumScaleCurve(threshold, scaleFactor)
}

// ---- Phase 5: Parallelism & background writer -------------------------------

func calcMaxWorkerProcesses(req *Request, resp *Response) (any, error) {
	v := req.UsableCPUCount
	if v < 8 {
		v = 8
	}
	return v, nil
}

func calcMaxParallelWorkers(req *Request, resp *Response) (any, error) {
	v := ceilDiv(req.UsableCPUCount*3, 4)
	mwp := resp.GetInt("max_worker_processes")
	if v > mwp {
		v = mwp
	}
	return v, nil
}

func calcMaxParallelWorkersPerGather(req *Request, resp *Response) (any, error) {
	ladder := []int{0, 2, 4, 8}
	idx := int(req.Tier) / 2
	if req.Mode >= OptModeOptimusPrime {
		idx++
	}
	if idx >= len(ladder) {
		idx = len(ladder) - 1
	}
	v := ladder[idx]
	mpw := resp.GetInt("max_parallel_workers")
	if v > mpw {
		v = mpw
	}
	return v, nil
}

func calcMaxParallelMaintenanceWorkers(req *Request, resp *Response) (any, error) {
	v := ceilDiv(req.UsableCPUCount, 4)
	if v > 4 {
		v = 4
	}
	if v < 1 {
		v = 1
	}
	return v, nil
}

func calcBgwriterDelay(req *Request, resp *Response) (any, error) {
	iops := req.DataDisk.RandomIOPS
	switch {
	case iops >= 100_000:
		return uint64(10), nil
	case iops >= 10_000:
		return uint64(50), nil
	default:
		return uint64(200), nil
	}
}

func calcBgwriterLruMaxpages(req *Request, resp *Response) (any, error) {
	iops := req.DataDisk.RandomIOPS
	v := int(iops / 100)
	if v < 100 {
		v = 100
	}
	if v > 1000 {
		v = 1000
	}
	return v, nil
}

func phaseParallelismBgwriter(req *Request, resp *Response) (bool, error) {
	changed, err := resp.TriggerTuning(map[Scope][]string{
		ScopeVM:          {"max_worker_processes", "max_parallel_workers", "max_parallel_maintenance_workers"},
		ScopeQueryTuning: {"max_parallel_workers_per_gather"},
		ScopeDiskIOPS:    {"bgwriter_delay", "bgwriter_lru_maxpages"},
	}, req)
	if err != nil {
		return false, err
	}
	return len(changed) > 0, nil
}

// ---- Phase 6: Logging --------------------------------------------------------

func calcLogRotationAge(req *Request, resp *Response) (any, error) {
	// Inversely proportional to tier: bigger systems rotate more often by
	// time and lean less on size-based rotation.
	table := []uint64{3 * 24 * 3600, 24 * 3600, 24 * 3600, 6 * 3600, 6 * 3600, 4 * 3600}
	return table[req.Tier], nil
}

func calcLogRotationSize(req *Request, resp *Response) (any, error) {
	table := []uint64{32 * miB, 32 * miB, 256 * miB, 256 * miB, 256 * miB, 256 * miB}
	return table[req.Tier], nil
}

func calcLogAutovacuumMinDuration(req *Request, resp *Response) (any, error) {
	return uint64(600), nil // seconds
}

func calcLogConnDisconnDuration(req *Request, resp *Response) (any, error) {
	return req.Mode >= OptModeSpidey, nil
}

func calcLogCheckpoints(req *Request, resp *Response) (any, error) {
	return true, nil
}

func calcLogErrorVerbosity(req *Request, resp *Response) (any, error) {
	if req.Mode >= OptModeOptimusPrime {
		return "VERBOSE", nil
	}
	return "DEFAULT", nil
}

func calcLogStatement(req *Request, resp *Response) (any, error) {
	switch {
	case req.Mode >= OptModePrimordial:
		return "all", nil
	case req.Mode >= OptModeOptimusPrime:
		return "mod", nil
	case req.Mode >= OptModeSpidey:
		return "ddl", nil
	default:
		return "none", nil
	}
}

func calcLogLockWaits(req *Request, resp *Response) (any, error) {
	return req.Mode >= OptModeOptimusPrime, nil
}

func calcLogReplicationCommands(req *Request, resp *Response) (any, error) {
	return req.Mode >= OptModeOptimusPrime, nil
}

func phaseLogging(req *Request, resp *Response) (bool, error) {
	changed, err := resp.TriggerTuning(map[Scope][]string{
		ScopeLogging: {
			"log_rotation_age", "log_rotation_size", "log_autovacuum_min_duration",
			"log_connections", "log_disconnections", "log_duration",
			"log_checkpoints", "log_error_verbosity", "log_statement",
			"log_lock_waits", "log_replication_commands",
		},
	}, req)
	if err != nil {
		return false, err
	}
	return len(changed) > 0, nil
}

// ---- Orchestration (C6 + C7) ------------------------------------------------

// correctionPhase is one named, ordered step of the correction pass.
type correctionPhase struct {
	name string
	run  func(*Request, *Response) (bool, error)
}

var allPhases = []correctionPhase{
	{"connection_budget", phaseConnectionBudget},
	{"memory_budget", phaseMemoryBudget},
	{"wal_checkpoint", phaseWALCheckpoint},
	{"vacuum_autovacuum", phaseVacuumAutovacuum},
	{"parallelism_bgwriter", phaseParallelismBgwriter},
}

// reconvergePhases is the subset re-run by the final-convergence sweep:
// everything except the connection budget, which is settled once up front.
var reconvergePhases = allPhases[1:]

const maxConvergenceSweeps = 4

// Optimize runs the general tuner then the correction tuner, returning a
// fully consistent Response or the first error encountered.
func Optimize(req *Request) (*Response, error) {
	resp, err := GeneralTune(req)
	if err != nil {
		return nil, err
	}

	for _, phase := range allPhases {
		if _, err := phase.run(req, resp); err != nil {
			return nil, err
		}
	}
	if _, err := phaseLogging(req, resp); err != nil {
		return nil, err
	}

	var residual []string
	converged := false
	for sweep := 0; sweep < maxConvergenceSweeps; sweep++ {
		anyChanged := false
		residual = nil
		for _, phase := range reconvergePhases {
			changed, err := phase.run(req, resp)
			if err != nil {
				return nil, err
			}
			if changed {
				anyChanged = true
				residual = append(residual, phase.name)
			}
		}
		if !anyChanged {
			converged = true
			break
		}
	}
	if !converged {
		return nil, &CorrectionDidNotConvergeError{Residual: lo.Uniq(residual)}
	}

	// Explicit keyword overrides are pinned last: a caller who names a
	// tunable directly wins over both the general and correction tuners
	// and is never re-derived afterward.
	for key, value := range req.Keywords {
		if err := resp.ItemTuning(key, value); err != nil {
			return nil, err
		}
	}

	resp.FlushWarnings()
	return resp, nil
}
