package pgtune

// baseCatalogEntries builds the version-0 base catalog: every rule the
// engine knows about, before any version overlay is applied.
// Formula-bearing entries share the calc functions used by the correction
// tuner's phases (correction_tuner.go) so that the general tuner's initial
// pass and the correction pass's trigger re-evaluation are the same pure
// function read against a growing cache.
func baseCatalogEntries() []rawEntry {
	return []rawEntry{
		// --- Connection budget (phase 1) ---
		{key: "max_connections", Item: Item{
			Scope: ScopeConnection, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "maximum concurrent client connections",
			Default: 100, TuneOp: calcMaxConnections, Trigger: calcMaxConnections,
		}},
		{key: "superuser_reserved_connections", Item: Item{
			Scope: ScopeConnection, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "connection slots reserved for superusers",
			Default: 3, TuneOp: calcSuperuserReservedConnections, Trigger: calcSuperuserReservedConnections,
		}},
		{key: "reserved_connections", Item: Item{
			Scope: ScopeConnection, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "connection slots reserved for non-replication roles",
			Default: 1, TuneOp: calcReservedConnections, Trigger: calcReservedConnections,
		}},

		// --- Memory budget (phase 2) ---
		{key: "shared_buffers", Item: Item{
			Scope: ScopeMemory, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "dedicated shared memory for caching table/index pages",
			Default: uint64(128 * miB), TuneOp: calcSharedBuffers, Trigger: calcSharedBuffers,
		}},
		{key: "effective_cache_size", Item: Item{
			Scope: ScopeMemory, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "planner's estimate of total OS + shared buffer cache",
			Default: uint64(256 * miB), TuneOp: calcEffectiveCacheSize, Trigger: calcEffectiveCacheSize,
		}},
		{key: "work_mem", Item: Item{
			Scope: ScopeMemory, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "per-sort/hash working memory, per operation",
			Default: uint64(4 * miB), TuneOp: calcWorkMem, Trigger: calcWorkMem,
		}},
		{key: "maintenance_work_mem", Item: Item{
			Scope: ScopeMemory, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "working memory for VACUUM, CREATE INDEX, ALTER TABLE",
			Default: uint64(64 * miB), TuneOp: calcMaintenanceWorkMem, Trigger: calcMaintenanceWorkMem,
		}},
		{key: "autovacuum_work_mem", Item: Item{
			Scope: ScopeMemory, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "working memory per autovacuum worker; mirrors maintenance_work_mem",
			Default: uint64(64 * miB), TuneOp: calcAutovacuumWorkMem, Trigger: calcAutovacuumWorkMem,
		}},
		{key: "temp_buffers", Item: Item{
			Scope: ScopeMemory, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "per-session buffer for temporary tables",
			Default: uint64(8 * miB), TuneOp: calcTempBuffers, Trigger: calcTempBuffers,
		}},

		// --- WAL & checkpoint (phase 3) ---
		{key: "wal_buffers", Item: Item{
			Scope: ScopeFilesystem, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "shared memory for WAL data not yet written to disk",
			Default: uint64(16 * miB), TuneOp: calcWalBuffers, Trigger: calcWalBuffers,
		}},
		{key: "wal_writer_delay", Item: Item{
			Scope: ScopeFilesystem, HWScope: HardwareDatabase, Unit: UnitMilliseconds,
			Comment: "WAL writer flush interval",
			Default: uint64(200), TuneOp: calcWalWriterDelay, Trigger: calcWalWriterDelay,
		}},
		{key: "checkpoint_timeout", Item: Item{
			Scope: ScopeFilesystem, HWScope: HardwareDatabase, Unit: UnitSeconds,
			Comment: "maximum time between automatic WAL checkpoints",
			Default: uint64(300), TuneOp: calcCheckpointTimeout, Trigger: calcCheckpointTimeout,
		}},
		{key: "checkpoint_completion_target", Item: Item{
			Scope: ScopeFilesystem, HWScope: HardwareDatabase, Unit: UnitFloat,
			Comment: "fraction of checkpoint_timeout to spread checkpoint I/O across",
			Default: 0.9, TuneOp: calcCheckpointCompletionTarget, Trigger: calcCheckpointCompletionTarget,
		}},
		{key: "max_wal_size", Item: Item{
			Scope: ScopeFilesystem, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "soft ceiling on WAL volume between checkpoints",
			Default: uint64(2 * giB), TuneOp: calcMaxWalSize, Trigger: calcMaxWalSize,
		}},
		{key: "min_wal_size", Item: Item{
			Scope: ScopeFilesystem, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "WAL volume kept recycled for reuse rather than removed",
			Default: uint64(512 * miB), TuneOp: calcMinWalSize, Trigger: calcMinWalSize,
		}},

		// --- Vacuum & autovacuum (phase 4) ---
		{key: "autovacuum_max_workers", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "maximum concurrent autovacuum worker processes",
			Default: 1, TuneOp: calcAutovacuumMaxWorkers, Trigger: calcAutovacuumMaxWorkers,
		}},
		{key: "vacuum_cost_limit", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "cost budget consumed before a vacuum sleeps",
			Default: 200, TuneOp: calcVacuumCostLimit, Trigger: calcVacuumCostLimit,
		}},
		{key: "vacuum_cost_delay", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitMilliseconds,
			Comment: "sleep duration once the vacuum cost budget is spent",
			Default: uint64(20), TuneOp: calcVacuumCostDelay, Trigger: calcVacuumCostDelay,
		}},
		{key: "vacuum_cost_page_hit", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "cost of a vacuum page found already in cache",
			Default: 1, TuneOp: calcVacuumCostPageHit, Trigger: calcVacuumCostPageHit,
		}},
		{key: "vacuum_cost_page_miss", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "cost of a vacuum page read from disk",
			Default: 2, TuneOp: calcVacuumCostPageMiss, Trigger: calcVacuumCostPageMiss,
		}},
		{key: "vacuum_cost_page_dirty", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "cost of a vacuum page dirtied by the vacuum itself",
			Default: 20, TuneOp: calcVacuumCostPageDirty, Trigger: calcVacuumCostPageDirty,
		}},
		{key: "autovacuum_vacuum_scale_factor", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitFloat,
			Comment: "fraction of table size added to the vacuum trigger threshold",
			Default: 0.2, TuneOp: calcAutovacuumVacuumScaleFactor, Trigger: calcAutovacuumVacuumScaleFactor,
		}},
		{key: "autovacuum_vacuum_threshold", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "minimum dead-tuple count that triggers a vacuum",
			Default: 50, TuneOp: calcAutovacuumVacuumThreshold, Trigger: calcAutovacuumVacuumThreshold,
		}},
		{key: "autovacuum_analyze_scale_factor", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitFloat,
			Comment: "fraction of table size added to the analyze trigger threshold",
			Default: 0.1, TuneOp: calcAutovacuumAnalyzeScaleFactor, Trigger: calcAutovacuumAnalyzeScaleFactor,
		}},
		{key: "autovacuum_analyze_threshold", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "minimum changed-row count that triggers an analyze",
			Default: 50, TuneOp: calcAutovacuumAnalyzeThreshold, Trigger: calcAutovacuumAnalyzeThreshold,
		}},

		// --- Parallelism & background writer (phase 5) ---
		{key: "max_worker_processes", Item: Item{
			Scope: ScopeVM, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "maximum background worker process slots",
			Default: 8, TuneOp: calcMaxWorkerProcesses, Trigger: calcMaxWorkerProcesses,
		}},
		{key: "max_parallel_workers", Item: Item{
			Scope: ScopeVM, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "maximum worker processes usable for parallel queries, total",
			Default: 8, TuneOp: calcMaxParallelWorkers, Trigger: calcMaxParallelWorkers,
		}},
		{key: "max_parallel_workers_per_gather", Item: Item{
			Scope: ScopeQueryTuning, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "maximum parallel workers planned for one Gather node",
			Default: 2, TuneOp: calcMaxParallelWorkersPerGather, Trigger: calcMaxParallelWorkersPerGather,
		}},
		{key: "max_parallel_maintenance_workers", Item: Item{
			Scope: ScopeMaintenance, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "maximum parallel workers for CREATE INDEX / VACUUM",
			Default: 2, TuneOp: calcMaxParallelMaintenanceWorkers, Trigger: calcMaxParallelMaintenanceWorkers,
		}},
		{key: "bgwriter_delay", Item: Item{
			Scope: ScopeDiskIOPS, HWScope: HardwareDatabase, Unit: UnitMilliseconds,
			Comment: "interval between background writer rounds",
			Default: uint64(200), TuneOp: calcBgwriterDelay, Trigger: calcBgwriterDelay,
		}},
		{key: "bgwriter_lru_maxpages", Item: Item{
			Scope: ScopeDiskIOPS, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "maximum pages the background writer flushes per round",
			Default: 100, TuneOp: calcBgwriterLruMaxpages, Trigger: calcBgwriterLruMaxpages,
		}},

		// --- Logging (phase 6) ---
		{key: "log_rotation_age", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitSeconds,
			Comment: "maximum lifetime of one log file before rotation",
			Default: uint64(24 * 3600), TuneOp: calcLogRotationAge, Trigger: calcLogRotationAge,
		}},
		{key: "log_rotation_size", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitBytes,
			Comment: "maximum size of one log file before rotation",
			Default: uint64(256 * miB), TuneOp: calcLogRotationSize, Trigger: calcLogRotationSize,
		}},
		{key: "log_autovacuum_min_duration", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitSeconds,
			Comment: "log autovacuum runs lasting at least this long",
			Default: uint64(600), TuneOp: calcLogAutovacuumMinDuration, Trigger: calcLogAutovacuumMinDuration,
		}},
		{key: "log_connections & log_disconnections & log_duration", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitBoolean,
			Comment: "log session connect/disconnect events and statement duration",
			Default: false, TuneOp: calcLogConnDisconnDuration, Trigger: calcLogConnDisconnDuration,
		}},
		{key: "log_checkpoints", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitBoolean,
			Comment: "log each checkpoint",
			Default: true, TuneOp: calcLogCheckpoints, Trigger: calcLogCheckpoints,
		}},
		{key: "log_error_verbosity", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitEnum,
			Comment: "amount of detail in each log entry",
			Default: "DEFAULT", TuneOp: calcLogErrorVerbosity, Trigger: calcLogErrorVerbosity,
		}},
		{key: "log_statement", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitEnum,
			Comment: "classes of SQL statements logged",
			Default: "none", TuneOp: calcLogStatement, Trigger: calcLogStatement,
		}},
		{key: "log_lock_waits", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitBoolean,
			Comment: "log sessions waiting longer than deadlock_timeout for a lock",
			Default: false, TuneOp: calcLogLockWaits, Trigger: calcLogLockWaits,
		}},
		{key: "log_replication_commands", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitBoolean,
			Comment: "log replication protocol commands",
			Default: false, TuneOp: calcLogReplicationCommands, Trigger: calcLogReplicationCommands,
		}},
		{key: "log_line_prefix", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitEnum,
			Comment: "printf-style prefix for each log line",
			Default: `%m [%p] %quser=%u@%r@%a_db=%d,backend=%b,xid=%x %v,log=%l`,
		}},
		{key: "log_timezone", Item: Item{
			Scope: ScopeLogging, HWScope: HardwareDatabase, Unit: UnitEnum,
			Comment: "timezone used for log timestamps",
			Default: "UTC",
		}},

		// --- Disk & query tuning: initial formula or static/tier default, no trigger ---
		{key: "random_page_cost", Item: Item{
			Scope: ScopeQueryTuning, HWScope: HardwareDatabase, Unit: UnitFloat,
			Comment: "planner cost estimate for a non-sequential page fetch",
			Default: 4.0, TuneOp: calcRandomPageCost,
		}},
		{key: "effective_io_concurrency", Item: Item{
			Scope: ScopeDiskIOPS, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "expected concurrent I/Os the storage can service",
			Default: 1, TuneOp: calcEffectiveIOConcurrency,
		}},
		{key: "default_statistics_target", Item: Item{
			Scope: ScopeQueryTuning, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "default number of histogram buckets collected by ANALYZE",
			TierDefaults: map[Tier]any{
				TierMini: 100, TierMedium: 100, TierLarge: 200, TierMall: 300, TierBigt: 500, TierHuge: 500,
			},
		}},
		{key: "max_wal_senders", Item: Item{
			Scope: ScopeBackup, HWScope: HardwareDatabase, Unit: UnitInteger,
			Comment: "maximum concurrent replication/backup connections",
			TierDefaults: map[Tier]any{
				TierMini: 3, TierMedium: 3, TierLarge: 5, TierMall: 5, TierBigt: 7, TierHuge: 7,
			},
		}},
		{key: "wal_level", Item: Item{
			Scope: ScopeBackup, HWScope: HardwareDatabase, Unit: UnitEnum,
			Comment: "amount of information written to WAL",
			Default: "replica",
		}},
		{key: "huge_pages", Item: Item{
			Scope: ScopeVM, HWScope: HardwareDatabase, Unit: UnitEnum,
			Comment: "request Linux huge pages for shared memory",
			TuneOp: calcHugePages, Default: "try",
		}},

		// --- Kernel scope: excluded from the database render target by
		// default. ---
		{key: "vm.swappiness", Item: Item{
			Scope: ScopeVM, HWScope: HardwareKernel, Unit: UnitInteger,
			Comment: "kernel preference for swapping vs. reclaiming page cache",
			Default: 10,
		}},
	}
}

func calcRandomPageCost(req *Request, resp *Response) (any, error) {
	if req.DataDisk.IsHDDClass() {
		return 4.0, nil
	}
	return 1.1, nil
}

func calcEffectiveIOConcurrency(req *Request, resp *Response) (any, error) {
	if req.DataDisk.IsHDDClass() {
		return 2, nil
	}
	v := int(req.DataDisk.RandomIOPS / 10_000)
	if v < 100 {
		return v + 100, nil
	}
	return 256, nil
}

func calcHugePages(req *Request, resp *Response) (any, error) {
	if req.TotalRAMBytes >= 32*giB {
		return "on", nil
	}
	return "try", nil
}
