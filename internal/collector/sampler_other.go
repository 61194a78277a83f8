//go:build !linux

package collector

import (
	"runtime"
	"time"

	"github.com/agenttop/agenttop/internal/telemetry"
)

// runtimeSampler reports process-level numbers from the Go runtime on
// platforms without procfs. CPU, network, and disk counters stay at zero.
type runtimeSampler struct{}

// NewSystemSampler returns the fallback sampler for non-Linux platforms.
func NewSystemSampler() Sampler {
	return &runtimeSampler{}
}

func (runtimeSampler) Sample() (telemetry.SystemSample, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return telemetry.SystemSample{
		Timestamp:     time.Now(),
		MemoryUsedMB:  float64(ms.HeapInuse+ms.StackInuse) / (1024 * 1024),
		MemoryTotalMB: float64(ms.Sys) / (1024 * 1024),
		ThreadCount:   runtime.NumGoroutine(),
	}, nil
}
