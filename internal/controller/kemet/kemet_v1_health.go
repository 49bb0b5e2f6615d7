package kemet

import (
	"context"

	v1 "github.com/kemet-ai/kemet/api/kemet/v1"
)

// Health 健康检查
func (c *ControllerV1) Health(ctx context.Context, req *v1.HealthReq) (res *v1.HealthRes, err error) {
	return &v1.HealthRes{
		Status:  "ok",
		Version: c.version,
	}, nil
}
