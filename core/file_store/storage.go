package file_store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gctx"
)

// StorageType 存储类型
type StorageType string

const (
	StorageTypeMinIO StorageType = "minio"
	StorageTypeLocal StorageType = "local"
)

var storageType StorageType

// InitStorage 初始化存储系统
// 图片落盘用于问答审计和离线回放，minio未配置时退回本地存储
func InitStorage() {
	ctx := gctx.New()

	storageTypeStr := g.Cfg().MustGet(ctx, "storage.type", "local").String()

	switch StorageType(storageTypeStr) {
	case StorageTypeMinIO:
		endpoint := g.Cfg().MustGet(ctx, "minio.endpoint", "").String()
		if endpoint == "" {
			SetStorageType(StorageTypeLocal)
			g.Log().Infof(ctx, "MinIO not configured, using local storage")
			InitUploadDirectories()
			return
		}

		accessKey := g.Cfg().MustGet(ctx, "minio.accessKey").String()
		secretKey := g.Cfg().MustGet(ctx, "minio.secretKey").String()
		bucketName := g.Cfg().MustGet(ctx, "minio.bucketName").String()
		ssl := g.Cfg().MustGet(ctx, "minio.ssl", false).Bool()

		if err := InitMinIO(ctx, endpoint, accessKey, secretKey, bucketName, ssl); err != nil {
			g.Log().Fatalf(ctx, "failed to initialize MinIO: %v", err)
			return
		}

		SetStorageType(StorageTypeMinIO)
		g.Log().Infof(ctx, "Using MinIO storage as configured")
		InitUploadDirectories()
	default:
		SetStorageType(StorageTypeLocal)
		g.Log().Infof(ctx, "Using local storage")
		InitUploadDirectories()
	}
}

// InitUploadDirectories 初始化 upload 目录结构
func InitUploadDirectories() {
	ctx := gctx.New()

	dir := filepath.Join("upload", "image")
	if err := os.MkdirAll(dir, 0755); err != nil {
		g.Log().Warningf(ctx, "Failed to create directory %s: %v", dir, err)
	}
}

// SetStorageType 设置存储类型
func SetStorageType(storageTypeVal StorageType) {
	storageType = storageTypeVal
}

// GetStorageType 获取存储类型
func GetStorageType() StorageType {
	return storageType
}

// SaveQueryImage 保存随提问上传的图片
// 根据配置选择本地或MinIO，返回可写入消息元数据的存储路径
func SaveQueryImage(ctx context.Context, conversationId, fileName string, data []byte) (string, error) {
	if GetStorageType() == StorageTypeMinIO {
		_, key, err := SaveImageToMinIO(ctx, GetMinIOConfig().Client, GetMinIOConfig().BucketName, conversationId, fileName, data)
		return key, err
	}
	return SaveImageToLocal(ctx, conversationId, fileName, data)
}
