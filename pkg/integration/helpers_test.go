package integration

import (
	"testing"

	"github.com/apigate-dev/apigate/pkg/config"
	"github.com/apigate-dev/apigate/pkg/monitoring"
)

func newTestMonitor(t *testing.T) *monitoring.Monitor {
	t.Helper()
	cfg := config.DefaultConfig()
	monitor, err := monitoring.NewMonitor(&cfg.Monitoring)
	if err != nil {
		t.Fatalf("NewMonitor failed: %v", err)
	}
	return monitor
}

// assertCounter sums a counter family across its label sets and compares
// against want.
func assertCounter(t *testing.T, monitor *monitoring.Monitor, name string, want float64) {
	t.Helper()

	families, err := monitor.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}

	if total != want {
		t.Errorf("Expected %s total %v, got %v", name, want, total)
	}
}
