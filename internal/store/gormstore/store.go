package gormstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/Maxnito501/geminibo/internal/plan"
)

// Store 用 Gorm + SQLite 持久化交易计划。
type Store struct {
	db *gorm.DB
}

// planModel 是 Plan 的存储映射。
type planModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Symbol        string         `gorm:"column:symbol;index"`
	Shares        float64        `gorm:"column:shares"`
	EntryPrice    float64        `gorm:"column:entry_price"`
	TargetPrice   float64        `gorm:"column:target_price"`
	StopLoss      float64        `gorm:"column:stop_loss"`
	Status        string         `gorm:"column:status;index"`
	Note          string         `gorm:"column:note"`
	LastCheckJSON datatypes.JSON `gorm:"column:last_check_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (planModel) TableName() string { return "trade_plans" }

// NewStore 打开（或创建）计划库。
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 计划库路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&planModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// Close 关闭底层连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SavePlan 写入一份新计划。
func (s *Store) SavePlan(p plan.Plan) error {
	model := toModel(p)
	model.UpdatedAtUnix = time.Now().Unix()
	return s.db.Create(&model).Error
}

// GetPlan 按 ID 取计划。
func (s *Store) GetPlan(id string) (plan.Plan, error) {
	var model planModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return plan.Plan{}, fmt.Errorf("plan %s not found", id)
		}
		return plan.Plan{}, err
	}
	return fromModel(model), nil
}

// ListPlans 列出计划；status 为空列全部，按创建时间升序。
func (s *Store) ListPlans(status plan.Status) ([]plan.Plan, error) {
	query := s.db.Order("created_at asc")
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	var models []planModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]plan.Plan, len(models))
	for i, m := range models {
		out[i] = fromModel(m)
	}
	return out, nil
}

// UpdateStatus 更新计划状态。
func (s *Store) UpdateStatus(id string, status plan.Status) error {
	res := s.db.Model(&planModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":     string(status),
		"updated_at": time.Now().Unix(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("plan %s not found", id)
	}
	return nil
}

// RecordCheck 把最近一次风险检查结果附在计划上。
func (s *Store) RecordCheck(id string, result plan.CheckResult) error {
	buf, err := json.Marshal(result)
	if err != nil {
		return err
	}
	res := s.db.Model(&planModel{}).Where("id = ?", id).Updates(map[string]any{
		"last_check_json": datatypes.JSON(buf),
		"updated_at":      time.Now().Unix(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("plan %s not found", id)
	}
	return nil
}

// DeletePlan 删除计划。
func (s *Store) DeletePlan(id string) error {
	res := s.db.Delete(&planModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("plan %s not found", id)
	}
	return nil
}

func toModel(p plan.Plan) planModel {
	return planModel{
		ID:            p.ID,
		Symbol:        p.Symbol,
		Shares:        p.Shares,
		EntryPrice:    p.EntryPrice,
		TargetPrice:   p.TargetPrice,
		StopLoss:      p.StopLoss,
		Status:        string(p.Status),
		Note:          p.Note,
		CreatedAtUnix: p.CreatedAt.Unix(),
	}
}

func fromModel(m planModel) plan.Plan {
	return plan.Plan{
		ID:          m.ID,
		Symbol:      m.Symbol,
		Shares:      m.Shares,
		EntryPrice:  m.EntryPrice,
		TargetPrice: m.TargetPrice,
		StopLoss:    m.StopLoss,
		Status:      plan.Status(m.Status),
		Note:        m.Note,
		CreatedAt:   time.Unix(m.CreatedAtUnix, 0).UTC(),
	}
}
