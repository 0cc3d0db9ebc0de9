package pgtune

// Scope groups tunables for organization and rendering only; it carries no
// tuning semantics of its own.
type Scope string

const (
	ScopeVM          Scope = "vm"
	ScopeConnection  Scope = "conn"
	ScopeFilesystem  Scope = "fs"
	ScopeMemory      Scope = "memory"
	ScopeDiskIOPS    Scope = "iops"
	ScopeNetwork     Scope = "net"
	ScopeLogging     Scope = "log"
	ScopeQueryTuning Scope = "query"
	ScopeMaintenance Scope = "maint"
	ScopeBackup      Scope = "backup"
	ScopeExtra       Scope = "extra"
	ScopeOthers      Scope = "others"
)

// HardwareScope distinguishes kernel-level tunables (sysctl-style) from
// database-level GUCs (postgresql.conf). The engine only renders the
// latter but the catalog carries both.
type HardwareScope string

const (
	HardwareKernel   HardwareScope = "kernel"
	HardwareDatabase HardwareScope = "database"
)

// Tier is a qualitative machine-size class, ordered from smallest to
// largest; tune_op/trigger formulas and per-tier defaults are keyed on it.
type Tier int

const (
	TierMini Tier = iota
	TierMedium
	TierLarge
	TierMall
	TierBigt
	TierHuge
)

func (t Tier) String() string {
	switch t {
	case TierMini:
		return "MINI"
	case TierMedium:
		return "MEDIUM"
	case TierLarge:
		return "LARGE"
	case TierMall:
		return "MALL"
	case TierBigt:
		return "BIGT"
	case TierHuge:
		return "HUGE"
	default:
		return "UNKNOWN"
	}
}

// AllTiers lists every tier in ascending order. Per-tier tables are indexed
// by the Tier value itself, in this same order.
var AllTiers = []Tier{TierMini, TierMedium, TierLarge, TierMall, TierBigt, TierHuge}

// OptimizationMode is the aggressiveness ladder; NONE < SPIDEY <
// OPTIMUS_PRIME < PRIMORDIAL. The ordering is meaningful: comparisons like
// `mode >= OptModeSpidey` are used by several correction phases.
type OptimizationMode int

const (
	OptModeNone OptimizationMode = iota
	OptModeSpidey
	OptModeOptimusPrime
	OptModePrimordial
)

func (m OptimizationMode) String() string {
	switch m {
	case OptModeNone:
		return "NONE"
	case OptModeSpidey:
		return "SPIDEY"
	case OptModeOptimusPrime:
		return "OPTIMUS_PRIME"
	case OptModePrimordial:
		return "PRIMORDIAL"
	default:
		return "UNKNOWN"
	}
}

// WorkloadKind names the declared shape of the queries the server expects.
type WorkloadKind string

const (
	WorkloadTP       WorkloadKind = "TP"
	WorkloadAnalytic WorkloadKind = "ANALYTIC"
	WorkloadHTAP     WorkloadKind = "HTAP"
	WorkloadVector   WorkloadKind = "VECTOR"
	WorkloadLog      WorkloadKind = "LOG"
	WorkloadSOLTP    WorkloadKind = "SOLTP"
	WorkloadSearch   WorkloadKind = "SEARCH"
	WorkloadTSRIOT   WorkloadKind = "TSR_IOT"
	WorkloadTSRHTAP  WorkloadKind = "TSR_HTAP"
)

// IsAnalytic reports whether the workload should be treated by the
// connection-budget phase as an analytics-style workload (clamped
// max_connections ladder).
func (w WorkloadKind) IsAnalytic() bool {
	switch w {
	case WorkloadAnalytic, WorkloadHTAP, WorkloadTSRHTAP:
		return true
	default:
		return false
	}
}

// BackupToolTier names the backup tooling class a request is sized for.
// It is carried on the Request; no catalog formula reads it.
type BackupToolTier string

const (
	BackupToolNone       BackupToolTier = "none"
	BackupToolPgBackup   BackupToolTier = "pg_basebackup"
	BackupToolPgBackRest BackupToolTier = "pgbackrest"
	BackupToolWALG       BackupToolTier = "wal-g"
)
