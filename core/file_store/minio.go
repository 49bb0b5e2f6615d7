package file_store

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Client     *minio.Client
	BucketName string
}

var minioConfig MinIOConfig

// InitMinIO 初始化 MinIO 存储
func InitMinIO(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, ssl bool) error {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: ssl,
	})
	if err != nil {
		return errors.Newf(errors.ErrInternalError, "failed to create MinIO client: %v", err)
	}

	minioConfig = MinIOConfig{
		Client:     client,
		BucketName: bucketName,
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return errors.Newf(errors.ErrInternalError, "failed to check if bucket exists: %v", err)
	}
	if exists {
		g.Log().Printf(ctx, "Bucket '%s' already exists, skipping creation.", bucketName)
		return nil
	}

	err = client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: ""})
	if err != nil {
		return errors.Newf(errors.ErrInternalError, "failed to create bucket: %v", err)
	}

	g.Log().Printf(ctx, "Created bucket '%s'", bucketName)
	return nil
}

// GetMinIOConfig 获取MinIO配置
func GetMinIOConfig() *MinIOConfig {
	return &minioConfig
}

// SaveImageToMinIO 保存图片到MinIO
// 先落本地一份，再上传到 bucket/image/对话id/文件名
func SaveImageToMinIO(ctx context.Context, client *minio.Client, bucketName string, conversationId string, fileName string, data []byte) (localPath string, objectKey string, err error) {
	localPath, err = SaveImageToLocal(ctx, conversationId, fileName, data)
	if err != nil {
		return "", "", err
	}

	objectKey = filepath.ToSlash(filepath.Join("image", conversationId, fileName))

	contentType := http.DetectContentType(data)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = client.PutObject(ctx, bucketName, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		g.Log().Errorf(ctx, "Failed to upload image to MinIO: %v", err)
		return localPath, "", errors.Newf(errors.ErrFileUploadFailed, "failed to upload to MinIO: %v", err)
	}

	g.Log().Infof(ctx, "Image uploaded to MinIO: bucket=%s, key=%s", bucketName, objectKey)
	return localPath, objectKey, nil
}

// GetFileNameFromURL 从URL中提取文件名
func GetFileNameFromURL(url string) string {
	parts := strings.Split(url, "/")
	name := parts[len(parts)-1]
	if name == "" {
		name = "unknown_file"
	}
	return name
}

// DeleteObject 删除指定的对象
func DeleteObject(ctx context.Context, client *minio.Client, bucketName, objectName string) error {
	err := client.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return errors.Newf(errors.ErrFileDeleteFailed, "failed to delete object %s: %v", objectName, err)
	}
	g.Log().Infof(ctx, "Deleted object '%s' from bucket '%s'", objectName, bucketName)
	return nil
}

// DownloadFile 从 bucket 下载文件到本地
func DownloadFile(ctx context.Context, client *minio.Client, bucketName, objectName, destFile string) error {
	if err := os.MkdirAll(filepath.Dir(destFile), 0755); err != nil {
		return errors.Newf(errors.ErrFileReadFailed, "failed to create directory for %s: %v", destFile, err)
	}
	err := client.FGetObject(ctx, bucketName, objectName, destFile, minio.GetObjectOptions{})
	if err != nil {
		return errors.Newf(errors.ErrFileReadFailed, "failed to download file %s: %v", objectName, err)
	}
	g.Log().Infof(ctx, "Downloaded '%s' from bucket '%s' to '%s'", objectName, bucketName, destFile)
	return nil
}
