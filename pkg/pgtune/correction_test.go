package pgtune

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// A PRIMORDIAL-mode request against a mid-range SSD starts with a vacuum
// cost budget far above what the data disk can absorb, so the phase-4
// budget check has to tighten vacuum_cost_delay across several sweeps.
// The tightened value must survive trigger re-evaluation (it is carried as
// a sweep-sticky floor) or the reset/tighten pair would oscillate until
// the sweep cap reports a spurious non-convergence.
func TestOptimize_VacuumTighteningSticksAndConverges(t *testing.T) {
	disk := scenarioDisk(t, "sata_ssd")
	req, err := MakeTuneRequest(Options{
		Version: 16, Tier: TierMedium, Workload: WorkloadTP, Mode: OptModePrimordial,
		TotalRAMBytes: 16 * giB, UsableCPUCount: 8, MaxUserConnections: 50,
	}, nil, disk, disk)
	require.NoError(t, err)

	resp, err := Optimize(req)
	require.NoError(t, err)

	delay := resp.GetUint64("vacuum_cost_delay")
	require.Greater(t, delay, uint64(0), "PRIMORDIAL's 0ms profile delay must be tightened for a 550 MiB/s disk")
	require.LessOrEqual(t, delay, uint64(100))
}

// The slowest rung of the disk ladder needs the deepest tightening; it must
// still settle inside the correction pass's sweep budget.
func TestOptimize_PrimordialOnHDDConverges(t *testing.T) {
	disk := scenarioDisk(t, "hdd_v1")
	req, err := MakeTuneRequest(Options{
		Version: 16, Tier: TierMedium, Workload: WorkloadTP, Mode: OptModePrimordial,
		TotalRAMBytes: 16 * giB, UsableCPUCount: 8, MaxUserConnections: 50,
	}, nil, disk, disk)
	require.NoError(t, err)

	resp, err := Optimize(req)
	require.NoError(t, err)
	require.Greater(t, resp.GetUint64("vacuum_cost_delay"), uint64(0))
	assertUniversalInvariants(t, req, resp)
}

// Keyword overrides are pinned after the correction pass and win over every
// derived value (the make_tuning_keywords external interface).
func TestOptimize_KeywordOverrideWins(t *testing.T) {
	kw, err := MakeTuningKeywords(map[string]any{"max_connections": 321}, 16)
	require.NoError(t, err)

	disk := scenarioDisk(t, "sas_ssd")
	req, err := MakeTuneRequest(Options{
		Version: 16, Tier: TierMedium, Workload: WorkloadTP, Mode: OptModeNone,
		TotalRAMBytes: 16 * giB, UsableCPUCount: 8, MaxUserConnections: 100,
	}, kw, disk, disk)
	require.NoError(t, err)

	resp, err := Optimize(req)
	require.NoError(t, err)
	require.Equal(t, 321, resp.GetInt("max_connections"))
}

func TestItemTuning_UnknownKeyFails(t *testing.T) {
	disk := scenarioDisk(t, "sas_ssd")
	req, err := MakeTuneRequest(Options{
		Version: 16, Tier: TierMedium, Workload: WorkloadTP, Mode: OptModeNone,
		TotalRAMBytes: 8 * giB, UsableCPUCount: 4, MaxUserConnections: 100,
	}, nil, disk, disk)
	require.NoError(t, err)

	resp, err := Optimize(req)
	require.NoError(t, err)

	err = resp.ItemTuning("not_a_tunable", 1)
	require.Error(t, err)
	require.IsType(t, &UnknownTunableError{}, err)
}

func TestVacuumScaleCurve_SubLinearTriggerGrowth(t *testing.T) {
	curve := VacuumScaleCurve(1000, 0.01)
	require.Equal(t, 1000+3000, curve["300k"])
	require.Equal(t, 1000+50_000, curve["5m"])
	require.Equal(t, 1000+250_000, curve["25m"])
	require.Equal(t, 1000+3_000_000, curve["300m"])

	// The trigger fraction shrinks as tables grow: trigger/rows at 300M is
	// far below trigger/rows at 300K.
	small := float64(curve["300k"]) / 300_000
	large := float64(curve["300m"]) / 300_000_000
	require.Less(t, large, small)
}
