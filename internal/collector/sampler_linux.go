//go:build linux

package collector

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agenttop/agenttop/internal/telemetry"
)

// procfsSampler reads system metrics from the Linux /proc filesystem.
// No CGO is required. CPU usage is computed from the delta between
// consecutive /proc/stat readings, so the first sample reports 0%.
type procfsSampler struct {
	prevTotal uint64
	prevIdle  uint64
}

// NewSystemSampler returns a Sampler backed by procfs.
func NewSystemSampler() Sampler {
	return &procfsSampler{}
}

func (p *procfsSampler) Sample() (telemetry.SystemSample, error) {
	sample := telemetry.SystemSample{Timestamp: time.Now()}

	total, idle, err := readProcStat()
	if err != nil {
		return sample, fmt.Errorf("read /proc/stat: %w", err)
	}
	if p.prevTotal > 0 && total > p.prevTotal {
		dTotal := total - p.prevTotal
		dIdle := idle - p.prevIdle
		sample.CPUPercent = float64(dTotal-dIdle) / float64(dTotal) * 100
	}
	p.prevTotal, p.prevIdle = total, idle

	totalMB, availMB, err := readMeminfo()
	if err != nil {
		return sample, fmt.Errorf("read /proc/meminfo: %w", err)
	}
	sample.MemoryTotalMB = totalMB
	sample.MemoryUsedMB = totalMB - availMB

	// Network and disk counters are cumulative since boot; failures here
	// are tolerable and leave the counters at zero.
	if rx, tx, err := readNetDev(); err == nil {
		sample.NetRxBytes = rx
		sample.NetTxBytes = tx
	}
	if rd, wr, err := readDiskstats(); err == nil {
		sample.DiskReadBytes = rd
		sample.DiskWriteBytes = wr
	}

	if threads, err := readThreadCount(); err == nil {
		sample.ThreadCount = threads
	}

	return sample, nil
}

// readProcStat returns the aggregate jiffy counters from the first line of
// /proc/stat: total across all fields and idle (idle + iowait).
func readProcStat() (total, idle uint64, err error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return 0, 0, fmt.Errorf("empty /proc/stat")
	}
	fields := strings.Fields(sc.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0, fmt.Errorf("unexpected /proc/stat format: %q", sc.Text())
	}

	for i, field := range fields[1:] {
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parsing /proc/stat field %d: %w", i+1, err)
		}
		total += v
		// Fields 4 and 5 (idle, iowait) count as idle time.
		if i == 3 || i == 4 {
			idle += v
		}
	}
	return total, idle, nil
}

// readMeminfo returns MemTotal and MemAvailable in megabytes.
func readMeminfo() (totalMB, availMB float64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		kb, perr := strconv.ParseFloat(fields[1], 64)
		if perr != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalMB = kb / 1024
		case "MemAvailable:":
			availMB = kb / 1024
		}
	}
	if totalMB == 0 {
		return 0, 0, fmt.Errorf("MemTotal not found in /proc/meminfo")
	}
	return totalMB, availMB, nil
}

// readNetDev sums received and transmitted bytes across all interfaces
// except loopback from /proc/net/dev.
func readNetDev() (rx, tx uint64, err error) {
	f, err := os.Open("/proc/net/dev")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue // header lines
		}
		iface := strings.TrimSpace(line[:colon])
		if iface == "lo" {
			continue
		}
		fields := strings.Fields(line[colon+1:])
		if len(fields) < 9 {
			continue
		}
		if v, perr := strconv.ParseUint(fields[0], 10, 64); perr == nil {
			rx += v
		}
		if v, perr := strconv.ParseUint(fields[8], 10, 64); perr == nil {
			tx += v
		}
	}
	return rx, tx, nil
}

// readDiskstats sums sectors read and written across whole-disk devices
// from /proc/diskstats, converted to bytes with the conventional 512-byte
// sector size.
func readDiskstats() (readBytes, writeBytes uint64, err error) {
	f, err := os.Open("/proc/diskstats")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 10 {
			continue
		}
		name := fields[2]
		// Skip partitions and virtual devices; count sd*/vd*/nvme*n* disks.
		if !isWholeDisk(name) {
			continue
		}
		if v, perr := strconv.ParseUint(fields[5], 10, 64); perr == nil {
			readBytes += v * 512
		}
		if v, perr := strconv.ParseUint(fields[9], 10, 64); perr == nil {
			writeBytes += v * 512
		}
	}
	return readBytes, writeBytes, nil
}

// isWholeDisk reports whether a diskstats device name looks like a whole
// disk rather than a partition (sda yes, sda1 no; nvme0n1 yes, nvme0n1p1 no).
func isWholeDisk(name string) bool {
	if strings.HasPrefix(name, "nvme") {
		return !strings.Contains(name, "p")
	}
	if strings.HasPrefix(name, "sd") || strings.HasPrefix(name, "vd") || strings.HasPrefix(name, "hd") {
		return name[len(name)-1] < '0' || name[len(name)-1] > '9'
	}
	return false
}

// readThreadCount reads the Threads field from /proc/self/status.
func readThreadCount() (int, error) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "Threads:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				return strconv.Atoi(fields[1])
			}
		}
	}
	return 0, fmt.Errorf("Threads not found in /proc/self/status")
}
