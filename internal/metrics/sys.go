// Package metrics records per-operation latency, status and token usage in
// sqlite and reports process health.
package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"time"
)

var startedAt = time.Now()

// SysHealth is a snapshot of the running process and its data directory.
type SysHealth struct {
	AllocMB      uint64
	SysMB        uint64
	NumGC        uint32
	Goroutines   int
	Uptime       time.Duration
	DataFiles    int
	DataDiskSize string
}

// GetSysHealth collects the snapshot. dataDir is the directory holding the
// sqlite files; a missing directory counts as empty.
func GetSysHealth(dataDir string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	files, size := usage(dataDir)
	return SysHealth{
		AllocMB:      m.Alloc >> 20,
		SysMB:        m.Sys >> 20,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		Uptime:       time.Since(startedAt).Truncate(time.Second),
		DataFiles:    files,
		DataDiskSize: formatBytes(size),
	}
}

func (h SysHealth) String() string {
	return fmt.Sprintf("up %s, mem %d/%d MB, gc %d, goroutines %d, data %s in %d files",
		h.Uptime, h.AllocMB, h.SysMB, h.NumGC, h.Goroutines, h.DataDiskSize, h.DataFiles)
}

// usage counts regular files under dir and sums their sizes. Unreadable
// entries are skipped.
func usage(dir string) (files int, size int64) {
	filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				return err
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			size += info.Size()
		}
		return nil
	})
	return files, size
}

func formatBytes(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	v, i := float64(n), 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f %s", v, units[i])
}
