//go:build linux

package collector

import (
	"testing"
	"time"
)

func TestIsWholeDisk(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"sda", true},
		{"sda1", false},
		{"sdb", true},
		{"vda", true},
		{"vda2", false},
		{"hda", true},
		{"nvme0n1", true},
		{"nvme0n1p1", false},
		{"loop0", false},
		{"dm-0", false},
		{"ram0", false},
	}
	for _, tt := range tests {
		if got := isWholeDisk(tt.name); got != tt.want {
			t.Errorf("isWholeDisk(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestProcfsSampler(t *testing.T) {
	s := NewSystemSampler()

	first, err := s.Sample()
	if err != nil {
		t.Fatalf("first sample: %v", err)
	}
	// CPU usage needs a delta; the first reading is always 0.
	if first.CPUPercent != 0 {
		t.Errorf("first CPU reading = %f, want 0", first.CPUPercent)
	}
	if first.MemoryTotalMB <= 0 {
		t.Errorf("memory total = %f, want positive", first.MemoryTotalMB)
	}
	if first.MemoryUsedMB < 0 || first.MemoryUsedMB > first.MemoryTotalMB {
		t.Errorf("memory used = %f of %f", first.MemoryUsedMB, first.MemoryTotalMB)
	}

	time.Sleep(20 * time.Millisecond)
	second, err := s.Sample()
	if err != nil {
		t.Fatalf("second sample: %v", err)
	}
	if second.CPUPercent < 0 || second.CPUPercent > 100 {
		t.Errorf("CPU reading = %f, want 0..100", second.CPUPercent)
	}
	if second.ThreadCount < 1 {
		t.Errorf("thread count = %d, want at least 1", second.ThreadCount)
	}
}
