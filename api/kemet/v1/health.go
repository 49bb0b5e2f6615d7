package v1

import (
	"github.com/gogf/gf/v2/frame/g"
)

// HealthReq 健康检查请求
type HealthReq struct {
	g.Meta `path:"/v1/health" method:"get" tags:"health"`
}

// HealthRes 健康检查响应
type HealthRes struct {
	g.Meta  `mime:"application/json"`
	Status  string `json:"status"`  // ok / degraded
	Version string `json:"version"` // 服务版本
}
