package pgtune

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// scenario is one end-to-end tuning case: build constructs the Request;
// check asserts the expected outcome against the Optimize result.
type scenario struct {
	name  string
	build func(t *testing.T) *Request
	check func(t *testing.T, resp *Response, err error)
}

func scenarioDisk(t *testing.T, tag string) DiskPerf {
	t.Helper()
	d, err := MakeDisk(DiskSpec{Tag: tag})
	require.NoError(t, err)
	return d
}

// scenarios covers the engine end to end: a tiny OLTP box, a large
// analytics box, an over-subscribed connection count, an unknown disk
// tag, a version overlay that removes a tunable, and render determinism.
var scenarios = []scenario{
	{
		name: "TinyOLTP",
		build: func(t *testing.T) *Request {
			disk := scenarioDisk(t, "sata_ssd")
			req, err := MakeTuneRequest(Options{
				Version: 16, Tier: TierMini, Workload: WorkloadTP, Mode: OptModeNone,
				TotalRAMBytes: 4 * giB, UsableCPUCount: 2, MaxUserConnections: 50,
			}, nil, disk, disk)
			require.NoError(t, err)
			return req
		},
		check: func(t *testing.T, resp *Response, err error) {
			require.NoError(t, err)
			require.Equal(t, 50, resp.GetInt("max_connections"), "OLTP workload keeps the requested connection count")
			require.GreaterOrEqual(t, resp.GetUint64("work_mem"), uint64(4*miB), "work_mem >= 4 MiB")
			// checkpoint_timeout(5 min) * a 550 MiB/s WAL disk * completion_target
			// exceeds even the largest WAL budget, so max_wal_size clamps to
			// its 64 GiB ceiling.
			require.Equal(t, uint64(64*giB), resp.GetUint64("max_wal_size"))
			require.Equal(t, 1, resp.GetInt("autovacuum_max_workers"), "ceil(2 cpu / 4) == 1")
		},
	},
	{
		name: "LargeAnalytics",
		build: func(t *testing.T) *Request {
			disk := scenarioDisk(t, "nvme_pcie_v4")
			req, err := MakeTuneRequest(Options{
				Version: 17, Tier: TierLarge, Workload: WorkloadAnalytic, Mode: OptModeOptimusPrime,
				TotalRAMBytes: 128 * giB, UsableCPUCount: 32, MaxUserConnections: 40,
			}, nil, disk, disk)
			require.NoError(t, err)
			return req
		},
		check: func(t *testing.T, resp *Response, err error) {
			require.NoError(t, err)
			require.Equal(t, 40, resp.GetInt("max_connections"), "requested connections already sit at the analytics ladder ceiling")
			require.GreaterOrEqual(t, resp.GetInt("vacuum_cost_limit"), 2000, "OPTIMUS_PRIME mode raises the vacuum cost budget")
			require.GreaterOrEqual(t, resp.GetUint64("max_wal_size"), uint64(16*giB), "a fast WAL disk and long checkpoint_timeout push max_wal_size well past its 2 GiB floor")
			require.GreaterOrEqual(t, resp.GetInt("max_parallel_workers_per_gather"), 1)
		},
	},
	{
		name: "OverSubscribedMemory",
		build: func(t *testing.T) *Request {
			disk := scenarioDisk(t, "sata_ssd")
			req, err := MakeTuneRequest(Options{
				Version: 16, Tier: TierMini, Workload: WorkloadTP, Mode: OptModeNone,
				TotalRAMBytes: 2 * giB, UsableCPUCount: 1, MaxUserConnections: 500,
			}, nil, disk, disk)
			require.NoError(t, err)
			return req
		},
		check: func(t *testing.T, resp *Response, err error) {
			require.Nil(t, resp)
			require.Error(t, err)
			require.IsType(t, &MemoryBudgetInfeasibleError{}, err)
		},
	},
	{
		name: "UnknownDiskTag",
		build: func(t *testing.T) *Request {
			_, err := MakeDisk(DiskSpec{Tag: "UNOBTANIUM"})
			require.Error(t, err)
			require.IsType(t, &InvalidDiskSpecError{}, err)
			return nil
		},
		check: func(t *testing.T, resp *Response, err error) {
			// build already asserted the failure; Optimize is never reached.
		},
	},
	{
		name: "VersionOverlayRemove",
		build: func(t *testing.T) *Request {
			v17, rerr := ResolveCatalog(17)
			require.NoError(t, rerr)
			_, ok := v17.Lookup("vacuum_cost_page_dirty")
			require.True(t, ok, "v17 still carries vacuum_cost_page_dirty")

			v18, rerr := ResolveCatalog(18)
			require.NoError(t, rerr)
			_, ok = v18.Lookup("vacuum_cost_page_dirty")
			require.False(t, ok, "v18's overlay deletes vacuum_cost_page_dirty")

			disk := scenarioDisk(t, "sata_ssd")
			req, err := MakeTuneRequest(Options{
				Version: 18, Tier: TierMini, Workload: WorkloadTP, Mode: OptModeNone,
				TotalRAMBytes: 4 * giB, UsableCPUCount: 2, MaxUserConnections: 50,
			}, nil, disk, disk)
			require.NoError(t, err)
			return req
		},
		check: func(t *testing.T, resp *Response, err error) {
			// The phase-4 budget check still has to run without the removed
			// GUC available to read, without dividing by zero or treating
			// every v18 request as a cost-budget violation regardless of
			// actual disk throughput (see vacuumDirtyPageCost).
			require.NoError(t, err)
			_, ok := resp.Get("vacuum_cost_page_dirty")
			require.False(t, ok, "the resolved v18 Response has no vacuum_cost_page_dirty item")
			require.Less(t, resp.GetFloat("vacuum_cost_delay"), 100.0,
				"vacuum_cost_delay should not be pinned to its ceiling by a spurious always-violated check")
		},
	},
	{
		name: "DeterministicRender",
		build: func(t *testing.T) *Request {
			disk := scenarioDisk(t, "nvme_pcie_v4")
			req, err := MakeTuneRequest(Options{
				Version: 17, Tier: TierLarge, Workload: WorkloadAnalytic, Mode: OptModeOptimusPrime,
				TotalRAMBytes: 128 * giB, UsableCPUCount: 32, MaxUserConnections: 40,
			}, nil, disk, disk)
			require.NoError(t, err)
			return req
		},
		check: func(t *testing.T, resp *Response, err error) {
			require.NoError(t, err)
			cat, cerr := ResolveCatalog(resp.Version)
			require.NoError(t, cerr)
			first, rerr := RenderString(resp, cat)
			require.NoError(t, rerr)

			// Re-run the identical request from scratch and compare renders.
			disk := scenarioDisk(t, "nvme_pcie_v4")
			req2, err2 := MakeTuneRequest(Options{
				Version: 17, Tier: TierLarge, Workload: WorkloadAnalytic, Mode: OptModeOptimusPrime,
				TotalRAMBytes: 128 * giB, UsableCPUCount: 32, MaxUserConnections: 40,
			}, nil, disk, disk)
			require.NoError(t, err2)
			resp2, err2 := Optimize(req2)
			require.NoError(t, err2)
			second, rerr2 := RenderString(resp2, cat)
			require.NoError(t, rerr2)

			require.Equal(t, first, second)
		},
	},
}

func TestScenarios(t *testing.T) {
	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			req := sc.build(t)
			if req == nil {
				// The failure happened at disk/request construction time,
				// before there was a Request to optimize.
				sc.check(t, nil, nil)
				return
			}
			resp, err := Optimize(req)
			sc.check(t, resp, err)
		})
	}
}

// TestScenarios_UniversalInvariants checks the cross-parameter invariants
// hold for every scenario that successfully produces a Response.
func TestScenarios_UniversalInvariants(t *testing.T) {
	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			req := sc.build(t)
			if req == nil {
				t.Skip("scenario fails before producing a Request")
			}
			resp, err := Optimize(req)
			if err != nil {
				t.Skipf("scenario expects a failure (%v), nothing to check invariants against", err)
			}
			assertUniversalInvariants(t, req, resp)
		})
	}
}

// A non-analytic workload keeps a requested connection count as small as
// 1-3. The reserved-pool clamp must leave room for at least one ordinary
// client: superuser_reserved_connections + reserved_connections < n even
// when n/4 rounds down to zero.
func TestOptimize_TinyConnectionCounts(t *testing.T) {
	disk := scenarioDisk(t, "sata_ssd")
	for conn := 1; conn <= 3; conn++ {
		req, err := MakeTuneRequest(Options{
			Version: 16, Tier: TierMini, Workload: WorkloadTP, Mode: OptModeNone,
			TotalRAMBytes: 4 * giB, UsableCPUCount: 2, MaxUserConnections: conn,
		}, nil, disk, disk)
		require.NoError(t, err)

		resp, err := Optimize(req)
		require.NoError(t, err)
		require.Equal(t, conn, resp.GetInt("max_connections"))
		reserved := resp.GetInt("superuser_reserved_connections") + resp.GetInt("reserved_connections")
		require.Less(t, reserved, conn, "reserved slots must leave room for an ordinary client at n=%d", conn)
		assertUniversalInvariants(t, req, resp)
	}
}

// Doubling RAM never decreases shared_buffers; doubling CPU never
// decreases max_worker_processes, for a fixed workload/mode/version.
func TestOptimize_Monotonicity(t *testing.T) {
	disk := scenarioDisk(t, "sas_ssd")
	base := func(ram uint64, cpu int) *Request {
		req, err := MakeTuneRequest(Options{
			Version: 16, Tier: TierMedium, Workload: WorkloadTP, Mode: OptModeSpidey,
			TotalRAMBytes: ram, UsableCPUCount: cpu, MaxUserConnections: 100,
		}, nil, disk, disk)
		require.NoError(t, err)
		return req
	}

	small, err := Optimize(base(8*giB, 4))
	require.NoError(t, err)
	big, err := Optimize(base(16*giB, 8))
	require.NoError(t, err)

	require.GreaterOrEqual(t, big.GetUint64("shared_buffers"), small.GetUint64("shared_buffers"))
	require.GreaterOrEqual(t, big.GetInt("max_worker_processes"), small.GetInt("max_worker_processes"))
}

// assertUniversalInvariants checks the cross-parameter constraints that
// must hold structurally for any successful Response, regardless of
// scenario.
func assertUniversalInvariants(t *testing.T, req *Request, resp *Response) {
	t.Helper()

	usable := usableRAM(req.TotalRAMBytes)
	sb := resp.GetUint64("shared_buffers")
	ecs := resp.GetUint64("effective_cache_size")
	require.LessOrEqual(t, sb+ecs, usable, "shared_buffers + effective_cache_size <= usable RAM")
	require.LessOrEqual(t, worstCaseMem(req, resp), usable, "worst-case memory <= usable RAM")

	minWal := resp.GetUint64("min_wal_size")
	maxWal := resp.GetUint64("max_wal_size")
	require.LessOrEqual(t, minWal, maxWal, "min_wal_size <= max_wal_size")
	require.Zero(t, minWal%walSegmentSize, "min_wal_size is a multiple of wal_segment_size")
	require.Zero(t, maxWal%walSegmentSize, "max_wal_size is a multiple of wal_segment_size")

	require.LessOrEqual(t, resp.GetInt("autovacuum_max_workers"), resp.GetInt("max_worker_processes"),
		"autovacuum_max_workers <= max_worker_processes")

	mwpg := resp.GetInt("max_parallel_workers_per_gather")
	mpw := resp.GetInt("max_parallel_workers")
	mwp := resp.GetInt("max_worker_processes")
	require.LessOrEqual(t, mwpg, mpw, "max_parallel_workers_per_gather <= max_parallel_workers")
	require.LessOrEqual(t, mpw, mwp, "max_parallel_workers <= max_worker_processes")

	reservedTotal := resp.GetInt("superuser_reserved_connections") + resp.GetInt("reserved_connections")
	require.Less(t, reservedTotal, resp.GetInt("max_connections"),
		"superuser_reserved_connections + reserved_connections < max_connections")
}
