package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"career-agent-go/internal/config"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadResumeFile 流式上传原始简历并同时计算MD5，返回对象键和MD5
	UploadResumeFile(ctx context.Context, sessionID, fileExt string, reader io.Reader, fileSize int64) (string, string, error)

	// GetResumeFile 按对象键下载简历原文件
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)

	// GetPresignedURL 获取预签名下载URL
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)

	// DeleteResumeFile 删除简历文件
	DeleteResumeFile(ctx context.Context, objectKey string) error
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供简历文件的对象存储功能
type MinIO struct {
	client       *minio.Client
	cfg          *config.MinIOConfig
	resumeBucket string
	logger       *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	resumeBucket := cfg.ResumeBucket
	if resumeBucket == "" {
		resumeBucket = "resumes"
	}

	m := &MinIO{
		client:       client,
		cfg:          cfg,
		resumeBucket: resumeBucket,
		logger:       logger,
	}

	if err := m.ensureBucketExists(resumeBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保简历存储桶 %s 存在失败: %w", resumeBucket, err)
	}

	// 简历文件按配置自动过期
	if cfg.ResumeExpireDays > 0 {
		if err := m.setupBucketLifecycle(context.Background(), resumeBucket, "expire-resumes", cfg.ResumeExpireDays); err != nil {
			logger.Printf("[MinIO] Warning: failed to set lifecycle for bucket %s: %v", resumeBucket, err)
		}
	}

	logger.Printf("[MinIO] Client initialized for endpoint %s, bucket %s", cfg.Endpoint, resumeBucket)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] Bucket %s created", bucketName)
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// UploadResumeFile 流式上传原始简历文件并同时计算MD5。
// 对象键形如 resume/{sessionID}/original.pdf，返回 (objectKey, md5Hex, error)。
func (m *MinIO) UploadResumeFile(ctx context.Context, sessionID, fileExt string, reader io.Reader, fileSize int64) (string, string, error) {
	objectKey := fmt.Sprintf("resume/%s/original%s", sessionID, fileExt)
	contentType := getContentType(fileExt)

	// TeeReader让上传和MD5计算共用同一次读取
	md5Hash := md5.New()
	teeReader := io.TeeReader(reader, md5Hash)

	info, err := m.client.PutObject(ctx, m.resumeBucket, objectKey, teeReader,
		fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", "", fmt.Errorf("上传简历 %s/%s 失败: %w", m.resumeBucket, objectKey, err)
	}

	md5Hex := hex.EncodeToString(md5Hash.Sum(nil))
	m.logger.Printf("[MinIO] Uploaded resume %s, ETag: %s, Size: %d", objectKey, info.ETag, info.Size)
	return objectKey, md5Hex, nil
}

// UploadResumeFromBytes 从字节数组上传简历，测试和数据修复场景使用
func (m *MinIO) UploadResumeFromBytes(ctx context.Context, sessionID, fileExt string, data []byte) (string, string, error) {
	return m.UploadResumeFile(ctx, sessionID, fileExt, bytes.NewReader(data), int64(len(data)))
}

// GetResumeFile 按对象键下载简历原文件
func (m *MinIO) GetResumeFile(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.resumeBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.resumeBucket, objectKey, err)
	}
	defer obj.Close()

	// Stat区分对象不存在与读取失败
	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", m.resumeBucket, objectKey, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.resumeBucket, objectKey, err)
	}
	m.logger.Printf("[MinIO] Downloaded %d bytes from %s (ContentType=%s)", len(data), objectKey, stat.ContentType)
	return data, nil
}

// GetPresignedURL 获取预签名下载URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := m.client.PresignedGetObject(ctx, m.resumeBucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteResumeFile 删除简历文件
func (m *MinIO) DeleteResumeFile(ctx context.Context, objectKey string) error {
	err := m.client.RemoveObject(ctx, m.resumeBucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}

// StatObject 暴露底层的StatObject方法，用于测试或特定场景
func (m *MinIO) StatObject(ctx context.Context, objectKey string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, m.resumeBucket, objectKey, opts)
}

// 获取内容类型
func getContentType(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
