package utils

import (
	"context"
	"log"
	"time"

	"notes_nest/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// QuietLogger 自定义 GORM 日志器：只打印慢查询和真实错误
type QuietLogger struct {
	SlowThreshold time.Duration
}

func (l *QuietLogger) LogMode(level logger.LogLevel) logger.Interface {
	return l
}

func (l *QuietLogger) Info(ctx context.Context, msg string, data ...interface{}) {}

func (l *QuietLogger) Warn(ctx context.Context, msg string, data ...interface{}) {}

func (l *QuietLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	// "record not found" 属于正常业务路径，不打印
	if msg != "record not found" {
		log.Printf("[GORM Error] "+msg, data...)
	}
}

func (l *QuietLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && err.Error() != "record not found" {
		log.Printf("[GORM Error] %s [%v] [rows:%d] %s", err, elapsed, rows, sql)
	} else if elapsed >= l.SlowThreshold {
		log.Printf("[SLOW SQL] [%v] [rows:%d] %s", elapsed, rows, sql)
	}
}

// InitDB 初始化数据库连接并建表
func InitDB(databaseURL string) error {
	var err error
	DB, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		TranslateError: true,
		Logger: &QuietLogger{
			SlowThreshold: 100 * time.Millisecond,
		},
	})
	if err != nil {
		return err
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	// 连接池配置
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(20)

	if err := Migrate(DB); err != nil {
		return err
	}

	log.Println("✅ Database connected")
	return nil
}

// Migrate 建表并补充无法用 struct tag 表达的约束
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Friendship{},
		&model.Note{},
		&model.NoteAuthor{},
	); err != nil {
		return err
	}

	// 同一对用户（不分方向）只允许一条好友关系记录。
	// 表达式索引只有 Postgres 支持，测试用的 SQLite 跳过。
	if db.Dialector.Name() == "postgres" {
		return db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_friendships_user_pair
			 ON friendships (LEAST(requester_id, addressee_id), GREATEST(requester_id, addressee_id))`,
		).Error
	}
	return nil
}

// GetDB 获取数据库连接
func GetDB() *gorm.DB {
	return DB
}

// CloseDB 关闭数据库连接
func CloseDB() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
