package pgtune

import (
	"math"

	"github.com/flanksource/pg-autotune/pkg/utils"
)

const (
	miB = uint64(utils.MB)
	giB = uint64(utils.GB)

	walSegmentSize = 16 * miB // default wal_segment_size, matches initdb's default
)

// usableRAM is total RAM minus an OS reservation of max(1 GiB, 5% of
// total); every memory-budget formula works against this figure.
func usableRAM(totalRAM uint64) uint64 {
	reserved := uint64(float64(totalRAM) * 0.05)
	if reserved < giB {
		reserved = giB
	}
	if reserved >= totalRAM {
		return 0
	}
	return totalRAM - reserved
}

// tierFraction is the shared_buffers share of usable RAM per sizing tier,
// ranging 0.15..0.40 from MINI to HUGE.
func tierFraction(tier Tier) float64 {
	table := []float64{0.15, 0.25, 0.25, 0.30, 0.35, 0.40}
	if int(tier) < 0 || int(tier) >= len(table) {
		return table[0]
	}
	return table[tier]
}

// parallelFactor maps optimization mode to the per-connection work_mem
// multiplier used by the memory-budget phase. NONE and SPIDEY are
// conservative; OPTIMUS_PRIME and PRIMORDIAL both saturate at 3.
func parallelFactor(mode OptimizationMode) float64 {
	switch mode {
	case OptModeNone:
		return 1.5
	case OptModeSpidey:
		return 2
	default:
		return 3
	}
}

// clampU64 bounds v into [lo, hi].
func clampU64(v, lo, hi uint64) uint64 {
	return utils.CapValue(v, lo, hi, nil)
}

func clampF64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return int(math.Ceil(float64(a) / float64(b)))
}

// checkpointTimeoutLadder is the ordered set of allowed checkpoint_timeout
// values, in minutes.
var checkpointTimeoutLadder = []int{5, 10, 15, 30, 60}

// checkpointTimeoutIndex returns the starting rung on the ladder for a
// given tier and optimization mode: bigger tiers and more aggressive modes
// start further along the ladder (longer timeouts, fewer but larger
// checkpoints).
func checkpointTimeoutIndex(tier Tier, mode OptimizationMode) int {
	idx := int(tier) / 2 // MINI,MEDIUM->0; LARGE,MALL->1; BIGT,HUGE->2
	if mode >= OptModeOptimusPrime {
		idx++
	}
	if idx >= len(checkpointTimeoutLadder) {
		idx = len(checkpointTimeoutLadder) - 1
	}
	return idx
}

// walTimeMillis estimates the wall-clock time to flush dataAmount bytes of
// WAL at walThroughputMiBps: per-segment rotation (rename + fsync)
// overhead plus the raw write time.
func walTimeMillis(dataAmount uint64, walThroughputMiBps float64) float64 {
	const fileRotationTimeMs = 0.21 * 2
	numSegments := dataAmount/walSegmentSize + 1
	rotateTime := float64(numSegments) * fileRotationTimeMs
	writeTime := (float64(dataAmount) / float64(miB)) / walThroughputMiBps * 1000
	return rotateTime + writeTime
}

// checkpointDataDiskUtilization estimates the fraction of a checkpoint
// window spent writing dataAmount bytes to the data disk.
func checkpointDataDiskUtilization(checkpointSeconds float64, dataThroughputMiBps float64, dataAmount uint64) float64 {
	if checkpointSeconds <= 0 {
		return 1
	}
	dataWriteTimeSeconds := (float64(dataAmount) / float64(miB)) / dataThroughputMiBps
	return dataWriteTimeSeconds / checkpointSeconds
}

// vacuumScaleCurve projects the dead-tuple count that trips autovacuum at
// representative table sizes for a given threshold/scale pair.
func vacuumScaleCurve(threshold int, scaleFactor float64) map[string]int {
	fn := func(numRows int) int {
		return int(math.Floor(float64(threshold) + scaleFactor*float64(numRows)))
	}
	return map[string]int{
		"10k":  fn(10_000),
		"300k": fn(300_000),
		"5m":   fn(5_000_000),
		"25m":  fn(25_000_000),
		"300m": fn(300_000_000),
		"1b":   fn(1_000_000_000),
		"10b":  fn(10_000_000_000),
	}
}
