package pgtune

import "fmt"

// Keywords is a validated bag of catalog-key overrides supplied by the
// caller. Unknown keys fail construction.
type Keywords map[string]any

// MakeTuningKeywords validates that every override key names a tunable
// present in the resolved catalog for version, then returns the bag.
func MakeTuningKeywords(overrides map[string]any, version int) (Keywords, error) {
	cat, err := ResolveCatalog(version)
	if err != nil {
		return nil, err
	}
	kw := make(Keywords, len(overrides))
	for k, v := range overrides {
		if _, ok := cat.items[k]; !ok {
			return nil, &InvalidRequestError{Reason: fmt.Sprintf("unknown keyword override %q", k)}
		}
		kw[k] = v
	}
	return kw, nil
}

// Request is the immutable input to Optimize. Construct it only through
// MakeTuneRequest, which enforces the range invariants.
type Request struct {
	Version            int
	Workload           WorkloadKind
	Tier               Tier
	Mode               OptimizationMode
	BackupTool         BackupToolTier
	TotalRAMBytes      uint64
	UsableCPUCount     int
	MaxUserConnections int
	DataDisk           DiskPerf
	WALDisk            DiskPerf
	Keywords           Keywords
	TargetScope        HardwareScope
}

const (
	minRAMBytes = 2 * 1024 * 1024 * 1024 // 2 GiB
	minVersion  = 13
	maxVersion  = 18
)

// Options is the caller-facing set of scalar choices that, together with
// disks and keywords, builds a Request.
type Options struct {
	Version            int
	Workload           WorkloadKind
	Tier               Tier
	Mode               OptimizationMode
	BackupTool         BackupToolTier
	TotalRAMBytes      uint64
	UsableCPUCount     int
	MaxUserConnections int
	TargetScope        HardwareScope
}

// MakeTuneRequest validates ranges and constructs an immutable Request.
func MakeTuneRequest(opts Options, keywords Keywords, dataDisk, walDisk DiskPerf) (*Request, error) {
	if opts.TotalRAMBytes < minRAMBytes {
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("total RAM %d bytes below minimum of 2 GiB", opts.TotalRAMBytes)}
	}
	if opts.UsableCPUCount < 1 {
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("usable CPU count %d must be >= 1", opts.UsableCPUCount)}
	}
	if opts.Version < minVersion || opts.Version > maxVersion {
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("version %d not in [%d, %d]", opts.Version, minVersion, maxVersion)}
	}
	if opts.MaxUserConnections < 0 {
		return nil, &InvalidRequestError{Reason: "max user connections must be >= 0"}
	}
	if dataDisk.RandomIOPS <= 0 {
		return nil, &InvalidDiskSpecError{Tag: dataDisk.Tag}
	}
	if walDisk.RandomIOPS <= 0 {
		return nil, &InvalidDiskSpecError{Tag: walDisk.Tag}
	}
	if opts.TargetScope == "" {
		opts.TargetScope = HardwareDatabase
	}
	if keywords == nil {
		keywords = Keywords{}
	}
	return &Request{
		Version:            opts.Version,
		Workload:           opts.Workload,
		Tier:               opts.Tier,
		Mode:               opts.Mode,
		BackupTool:         opts.BackupTool,
		TotalRAMBytes:      opts.TotalRAMBytes,
		UsableCPUCount:     opts.UsableCPUCount,
		MaxUserConnections: opts.MaxUserConnections,
		DataDisk:           dataDisk,
		WALDisk:            walDisk,
		Keywords:           keywords,
		TargetScope:        opts.TargetScope,
	}, nil
}
