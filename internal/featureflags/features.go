package featureflags

var (
	// ByteCounts adds the nonzero buckets of each file's byte histogram
	// to the distribution results.
	ByteCounts = new("ByteCounts", false)

	// ArchiveMembers analyzes each member of a recognised archive
	// (zip, tar, tar.gz, ...) instead of the archive file as a whole.
	ArchiveMembers = new("ArchiveMembers", true)

	// Profiler serves Go's pprof handlers alongside the worker metrics endpoint.
	Profiler = new("Profiler", false)
)
