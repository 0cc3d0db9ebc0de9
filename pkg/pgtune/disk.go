package pgtune

import "github.com/flanksource/pg-autotune/pkg/utils"

// bytesPerPage is the one database page moved per IO used to convert
// between random IOPS and sequential throughput.
const bytesPerPage = 8 * utils.KB

// DiskPerf is a resolved disk descriptor: a random-IOPS figure and a
// sequential-throughput figure in MiB/s, always present together even
// when only one was supplied (the conversion fills in the other).
type DiskPerf struct {
	Tag             string
	RandomIOPS      float64
	ThroughputMiBps float64
}

// diskLadderEntry is one rung of the fixed, monotonic disk-class ladder.
type diskLadderEntry struct {
	tag             string
	randomIOPS      float64
	throughputMiBps float64
}

// diskLadder is ordered from slowest to fastest; it is consulted only by
// tag, so order does not affect lookup, but keeping it ascending documents
// the intended monotonic relationship between rungs.
var diskLadder = []diskLadderEntry{
	{tag: "hdd_v1", randomIOPS: 150, throughputMiBps: 120},
	{tag: "hdd_v2", randomIOPS: 250, throughputMiBps: 200},
	{tag: "san_v1", randomIOPS: 5_000, throughputMiBps: 400},
	{tag: "san_v2", randomIOPS: 15_000, throughputMiBps: 700},
	{tag: "sata_ssd", randomIOPS: 25_000, throughputMiBps: 550},
	{tag: "sas_ssd", randomIOPS: 40_000, throughputMiBps: 900},
	{tag: "nvme_pcie_v3", randomIOPS: 250_000, throughputMiBps: 2_000},
	{tag: "nvme_pcie_v4", randomIOPS: 600_000, throughputMiBps: 5_000},
	{tag: "nvme_pcie_v5", randomIOPS: 1_200_000, throughputMiBps: 10_000},
}

func lookupDiskTag(tag string) (diskLadderEntry, bool) {
	for _, e := range diskLadder {
		if e.tag == tag {
			return e, true
		}
	}
	return diskLadderEntry{}, false
}

// IOPSToThroughput converts a random-IOPS figure to MiB/s assuming one
// 8-KiB database page moves per IO.
func IOPSToThroughput(iops float64) float64 {
	return iops * float64(bytesPerPage) / float64(utils.MB)
}

// ThroughputToIOPS is the inverse of IOPSToThroughput.
func ThroughputToIOPS(mibps float64) float64 {
	return mibps * float64(utils.MB) / float64(bytesPerPage)
}

// DiskSpec is the user-facing disk description: either a qualitative tag
// from the ladder, or an explicit (random_iops, throughput) pair. When
// both a tag and explicit numbers are given the explicit numbers win.
type DiskSpec struct {
	Tag             string
	RandomIOPS      float64
	ThroughputMiBps float64
}

// MakeDisk resolves a DiskSpec into a DiskPerf.
func MakeDisk(spec DiskSpec) (DiskPerf, error) {
	if spec.RandomIOPS > 0 || spec.ThroughputMiBps > 0 {
		iops := spec.RandomIOPS
		tput := spec.ThroughputMiBps
		if iops == 0 {
			iops = ThroughputToIOPS(tput)
		}
		if tput == 0 {
			tput = IOPSToThroughput(iops)
		}
		return DiskPerf{Tag: spec.Tag, RandomIOPS: iops, ThroughputMiBps: tput}, nil
	}
	entry, ok := lookupDiskTag(spec.Tag)
	if !ok {
		return DiskPerf{}, &InvalidDiskSpecError{Tag: spec.Tag}
	}
	return DiskPerf{Tag: entry.tag, RandomIOPS: entry.randomIOPS, ThroughputMiBps: entry.throughputMiBps}, nil
}

// MeanOfTags blends several disk-class tags into one synthetic DiskPerf
// using the generalized mean over each tag's IOPS and throughput figures.
// This supports requests that describe a multi-disk array where one role
// (data vs WAL) maps to more than one physical class.
func MeanOfTags(tags []string, p float64) (DiskPerf, error) {
	if len(tags) == 0 {
		return DiskPerf{}, &InvalidDiskSpecError{Tag: ""}
	}
	iops := make([]float64, 0, len(tags))
	tput := make([]float64, 0, len(tags))
	for _, tag := range tags {
		entry, ok := lookupDiskTag(tag)
		if !ok {
			return DiskPerf{}, &InvalidDiskSpecError{Tag: tag}
		}
		iops = append(iops, entry.randomIOPS)
		tput = append(tput, entry.throughputMiBps)
	}
	return DiskPerf{
		Tag:             "blend",
		RandomIOPS:      utils.GeneralizedMean(iops, p),
		ThroughputMiBps: utils.GeneralizedMean(tput, p),
	}, nil
}

// IsHDDClass reports whether the disk's tag belongs to the rotational
// part of the ladder; several correction-pass formulas (checkpoint
// completion target, random_page_cost) branch on this.
func (d DiskPerf) IsHDDClass() bool {
	return d.Tag == "hdd_v1" || d.Tag == "hdd_v2"
}
