package pthash

// Reporter is the write-only, best-effort progress side channel the
// displacement engine talks to. It is deliberately small and
// backend-agnostic, mirroring the logger.Logger pattern used elsewhere to
// decouple a library from any one concrete logging stack: callers can wire
// in whatever they already use (see report_glog.go for one concrete
// adapter) without this package depending on it directly.
//
// Calls to a Reporter happen from multiple part workers concurrently; a
// Reporter implementation must be safe for concurrent use. Ordering across
// parts is not guaranteed.
type Reporter interface {
	// Progress reports how far a part's displacement search has gotten.
	// pctComplete is in [0, 100]. displacements is the running eviction
	// count for the bucket currently being placed.
	Progress(part int, pctComplete float64, displacements int)

	// Info reports a one-off diagnostic message, e.g. a build summary.
	Info(format string, args ...interface{})
}

// noopReporter discards everything. It is the default so that Construct
// never pays for formatting progress strings unless a caller asks for them.
type noopReporter struct{}

func (noopReporter) Progress(int, float64, int)    {}
func (noopReporter) Info(string, ...interface{})   {}

// DefaultReporter is the no-op Reporter used when Params.Reporter is nil.
var DefaultReporter Reporter = noopReporter{}
