package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"career-agent-go/internal/config"
	"career-agent-go/internal/storage/models"
)

var mysqlTracer = otel.Tracer("career-agent-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，为数据库操作添加OpenTelemetry追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				// 未找到记录是业务正常情况，不作为错误上报
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// MySQL 提供会话、消息和路线图快照的持久化
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间关闭SQL日志
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.CounselSession{},
		&models.ConversationMessage{},
		&models.RoadmapSnapshot{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// NewSessionID 生成时间有序的会话ID
func NewSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	return id.String(), nil
}

// CreateSession 创建新的咨询会话记录，SessionID为空时自动生成
func (m *MySQL) CreateSession(ctx context.Context, session *models.CounselSession) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.CreateSession", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if session.SessionID == "" {
		id, err := NewSessionID()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		session.SessionID = id
	}
	span.SetAttributes(attribute.String("session.id", session.SessionID))

	if err := m.db.WithContext(ctx).Create(session).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("创建会话失败: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetSessionByID 按会话ID查询会话，未找到时返回 gorm.ErrRecordNotFound
func (m *MySQL) GetSessionByID(ctx context.Context, sessionID string) (*models.CounselSession, error) {
	var session models.CounselSession
	err := m.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSessionResume 记录会话的简历对象键和文本MD5
func (m *MySQL) UpdateSessionResume(ctx context.Context, sessionID, objectKey, textMD5 string) error {
	updates := map[string]interface{}{
		"resume_object_key": objectKey,
		"resume_text_md5":   textMD5,
	}
	return m.db.WithContext(ctx).Model(&models.CounselSession{}).
		Where("session_id = ?", sessionID).Updates(updates).Error
}

// AppendMessages 批量追加会话消息。
// (session_id, ordinal) 唯一索引上的冲突按幂等处理，重放不会产生重复消息。
func (m *MySQL) AppendMessages(ctx context.Context, messages []models.ConversationMessage) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.AppendMessages", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(messages)))

	if len(messages) == 0 {
		span.SetStatus(codes.Ok, "no messages to append")
		return nil
	}

	err := m.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "ordinal"}},
			DoNothing: true,
		}).Create(&messages).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("追加会话消息失败: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetMessages 按序号升序返回会话的全部消息
func (m *MySQL) GetMessages(ctx context.Context, sessionID string) ([]models.ConversationMessage, error) {
	var messages []models.ConversationMessage
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("ordinal ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("查询会话消息失败: %w", err)
	}
	return messages, nil
}

// MaxMessageOrdinal 返回会话消息的最大序号，会话还没有消息时返回 -1。
// 追加消息的序号必须以这里为准，缓存中的历史长度不可信。
func (m *MySQL) MaxMessageOrdinal(ctx context.Context, sessionID string) (int, error) {
	var maxOrdinal int
	err := m.db.WithContext(ctx).Model(&models.ConversationMessage{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(ordinal), -1)").
		Scan(&maxOrdinal).Error
	if err != nil {
		return 0, fmt.Errorf("查询会话消息最大序号失败: %w", err)
	}
	return maxOrdinal, nil
}

// SaveRoadmapSnapshot 保存一次路线图生成结果
func (m *MySQL) SaveRoadmapSnapshot(ctx context.Context, snapshot *models.RoadmapSnapshot) error {
	return m.db.WithContext(ctx).Create(snapshot).Error
}

// GetLatestRoadmapSnapshot 返回会话最近一次生成的路线图，未生成过返回 gorm.ErrRecordNotFound
func (m *MySQL) GetLatestRoadmapSnapshot(ctx context.Context, sessionID string) (*models.RoadmapSnapshot, error) {
	var snapshot models.RoadmapSnapshot
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("generated_at DESC, snapshot_id DESC").
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
