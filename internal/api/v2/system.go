package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/plantcare-go/plantcare/internal/buildinfo"
)

// SystemInfo describes the host and the running binary.
type SystemInfo struct {
	OS            string    `json:"os"`
	Architecture  string    `json:"architecture"`
	Hostname      string    `json:"hostname"`
	Platform      string    `json:"platform"`
	PlatformVer   string    `json:"platform_version"`
	KernelVersion string    `json:"kernel_version"`
	UpTime        uint64    `json:"uptime_seconds"`
	BootTime      time.Time `json:"boot_time"`
	AppStart      time.Time `json:"app_start_time"`
	AppUptime     int64     `json:"app_uptime_seconds"`
	NumCPU        int       `json:"num_cpu"`
	CPUModel      string    `json:"cpu_model"`
	GoVersion     string    `json:"go_version"`
	Version       string    `json:"version"`
	Commit        string    `json:"commit"`
	Models        ModelInfo `json:"models"`
}

// ModelInfo reports which inference assets are available.
type ModelInfo struct {
	GrowthLoaded  bool `json:"growth_loaded"`
	DiseaseLoaded bool `json:"disease_loaded"`
	SchemaColumns int  `json:"schema_columns"`
	Threads       int  `json:"threads"`
	XNNPACK       bool `json:"xnnpack"`
}

// ResourceInfo represents system resource usage data
type ResourceInfo struct {
	CPUUsage    float64 `json:"cpu_usage_percent"`
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryFree  uint64  `json:"memory_free"`
	MemoryUsage float64 `json:"memory_usage_percent"`
	ProcessMem  float64 `json:"process_memory_mb"`
	ProcessCPU  float64 `json:"process_cpu_percent"`
	Goroutines  int     `json:"goroutines"`
}

func (c *Controller) initSystemRoutes() {
	systemGroup := c.Group.Group("/system")
	systemGroup.GET("/info", c.GetSystemInfo)
	systemGroup.GET("/resources", c.GetResourceInfo)
}

// GetSystemInfo handles GET /api/v2/system/info
func (c *Controller) GetSystemInfo(ctx echo.Context) error {
	hostInfo, err := host.Info()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get host information", http.StatusInternalServerError)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = buildinfo.UnknownValue
	}

	build := buildinfo.Current()
	info := SystemInfo{
		OS:            runtime.GOOS,
		Architecture:  runtime.GOARCH,
		Hostname:      hostname,
		Platform:      hostInfo.Platform,
		PlatformVer:   hostInfo.PlatformVersion,
		KernelVersion: hostInfo.KernelVersion,
		UpTime:        hostInfo.Uptime,
		BootTime:      time.Unix(int64(hostInfo.BootTime), 0).UTC(),
		AppStart:      c.startTime,
		AppUptime:     int64(time.Since(c.startTime).Seconds()),
		NumCPU:        runtime.NumCPU(),
		CPUModel:      cpuid.CPU.BrandName,
		GoVersion:     runtime.Version(),
		Version:       build.GetVersion(),
		Commit:        build.GetCommit(),
		Models: ModelInfo{
			GrowthLoaded:  c.Models.CheckGrowth() == nil,
			DiseaseLoaded: c.Models.CheckDisease() == nil,
			SchemaColumns: c.schemaColumns(),
			Threads:       c.Settings.Models.Threads,
			XNNPACK:       c.Settings.Models.UseXNNPACK,
		},
	}

	return ctx.JSON(http.StatusOK, info)
}

// GetResourceInfo handles GET /api/v2/system/resources. CPU usage is the
// average since the previous call.
func (c *Controller) GetResourceInfo(ctx echo.Context) error {
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get memory information", http.StatusInternalServerError)
	}

	resources := ResourceInfo{
		MemoryTotal: memInfo.Total,
		MemoryUsed:  memInfo.Used,
		MemoryFree:  memInfo.Free,
		MemoryUsage: memInfo.UsedPercent,
		Goroutines:  runtime.NumGoroutine(),
	}

	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		resources.CPUUsage = cpuPercent[0]
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if procMem, err := proc.MemoryInfo(); err == nil && procMem != nil {
			resources.ProcessMem = float64(procMem.RSS) / 1024 / 1024
		}
		resources.ProcessCPU, _ = proc.CPUPercent()
	}

	return ctx.JSON(http.StatusOK, resources)
}
