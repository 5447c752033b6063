// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

// VersionDTO version information for API response
// VersionDTO 版本信息 API 响应对象
type VersionDTO struct {
	Version   string `json:"version"`   // Current version // 当前版本
	GitTag    string `json:"gitTag"`    // Git tag // Git 标签
	BuildTime string `json:"buildTime"` // Build time // 构建时间
}

// DiskUsageDTO NFS 根目录磁盘使用情况
type DiskUsageDTO struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"usedPercent"`
}

// HealthDTO 健康检查响应
type HealthDTO struct {
	Status   string        `json:"status"` // ok / degraded
	Database string        `json:"database"`
	NFS      string        `json:"nfs"`
	Disk     *DiskUsageDTO `json:"disk,omitempty"`
	Storage  string        `json:"storage"`
	Running  int           `json:"running"` // 正在执行的备份数
	Version  VersionDTO    `json:"version"`
}
