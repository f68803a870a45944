// Package sysinfo describes the host a solve runs on.
package sysinfo

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"carpsolver/internal/model"
)

var (
	once   sync.Once
	cached model.SysInfo
)

// Get probes the host once and returns the cached result afterwards.
// Probe failures leave the affected fields at their runtime fallbacks.
func Get() model.SysInfo {
	once.Do(func() { cached = probe() })
	return cached
}

func probe() model.SysInfo {
	info := model.SysInfo{Platform: runtime.GOOS, CPU: runtime.GOARCH, Cores: runtime.NumCPU()}
	if h, err := host.Info(); err == nil && h.Platform != "" {
		info.Platform = h.Platform
	}
	if c, err := cpu.Info(); err == nil && len(c) > 0 {
		info.CPU = c[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAM = fmt.Sprintf("%d GB", vm.Total/1024/1024/1024)
	}
	return info
}
