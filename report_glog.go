package pthash

import "github.com/aristanetworks/glog"

// GlogReporter adapts Reporter onto aristanetworks/glog, the same way
// goarista's logger.Glog adapts its own Logger interface: a thin wrapper so
// the engine itself never imports glog directly, only this optional file
// does.
type GlogReporter struct {
	// InfoLevel gates Progress/Info calls behind glog.V, same default (0)
	// as goarista's Glog adapter.
	InfoLevel glog.Level
}

func (g *GlogReporter) Progress(part int, pctComplete float64, displacements int) {
	glog.V(g.InfoLevel).Infof("part %d: %.2f%% done, chain %d", part, pctComplete, displacements)
}

func (g *GlogReporter) Info(format string, args ...interface{}) {
	glog.V(g.InfoLevel).Infof(format, args...)
}
