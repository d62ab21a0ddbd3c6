package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage MinIO产物存储实现
// 语料库产物发布到对象存储，供笔记本环境直接拉取
type MinioStorage struct {
	client     *minio.Client // MinIO客户端
	bucketName string        // 存储桶名称
}

// MinioConfig MinIO存储配置
type MinioConfig struct {
	Endpoint  string // MinIO服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
	Bucket    string // 存储桶名称
}

// NewMinioStorage 创建MinIO存储实例
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	// 创建MinIO客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	// 检查存储桶是否存在，不存在则创建
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %v", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %v", err)
		}
	}

	return &MinioStorage{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// Save 上传产物到MinIO
func (s *MinioStorage) Save(reader io.Reader, name string) (ArtifactInfo, error) {
	// 语料库文件体量有限，读入内存以获取大小
	content, err := io.ReadAll(reader)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("failed to read artifact content: %v", err)
	}

	size := int64(len(content))
	contentType := getMimeType(name)

	_, err = s.client.PutObject(
		context.Background(),
		s.bucketName,
		name,
		bytes.NewReader(content),
		size,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("failed to upload artifact: %v", err)
	}

	return ArtifactInfo{
		Name:     name,
		Size:     size,
		MimeType: contentType,
	}, nil
}

// Open 打开MinIO中的产物
func (s *MinioStorage) Open(name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(
		context.Background(),
		s.bucketName,
		name,
		minio.GetObjectOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %v", err)
	}

	// GetObject是惰性的，Stat确认对象确实存在
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("artifact %s not found: %v", name, err)
	}

	return obj, nil
}

// Delete 删除产物
func (s *MinioStorage) Delete(name string) error {
	err := s.client.RemoveObject(
		context.Background(),
		s.bucketName,
		name,
		minio.RemoveObjectOptions{},
	)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %v", err)
	}
	return nil
}

// List 列出桶中所有产物
func (s *MinioStorage) List() ([]ArtifactInfo, error) {
	var artifacts []ArtifactInfo

	ctx := context.Background()
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list artifacts: %v", obj.Err)
		}
		artifacts = append(artifacts, ArtifactInfo{
			Name:     obj.Key,
			Size:     obj.Size,
			MimeType: getMimeType(obj.Key),
		})
	}

	return artifacts, nil
}

// Exists 检查产物是否存在
func (s *MinioStorage) Exists(name string) (bool, error) {
	_, err := s.client.StatObject(
		context.Background(),
		s.bucketName,
		name,
		minio.StatObjectOptions{},
	)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
