package file_store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/kemet-ai/kemet/core/errors"
)

// SaveImageToLocal 保存图片到本地存储
// 路径为 upload/image/对话id/文件名
func SaveImageToLocal(ctx context.Context, conversationId string, fileName string, data []byte) (finalPath string, err error) {
	targetDir := filepath.Join("upload", "image", conversationId)

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		g.Log().Errorf(ctx, "Failed to create directory %s: %v", targetDir, err)
		return "", errors.Newf(errors.ErrFileUploadFailed, "failed to create directory %s: %v", targetDir, err)
	}

	finalPath = filepath.Join(targetDir, fileName)

	if err := os.WriteFile(finalPath, data, 0644); err != nil {
		g.Log().Errorf(ctx, "Failed to write file %s: %v", finalPath, err)
		_ = os.Remove(finalPath)
		return "", errors.Newf(errors.ErrFileUploadFailed, "failed to write file %s: %v", finalPath, err)
	}

	g.Log().Infof(ctx, "Image saved to local storage: %s", finalPath)
	return finalPath, nil
}
