package advisorylog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Maxnito501/geminibo/internal/indicator"
	"github.com/Maxnito501/geminibo/internal/regime"
)

// 中文说明：
// 建议日志：每次为某个 symbol 产出的行情建议都追加一条，便于事后复盘
// 「当时系统说了什么」。只追加、按时间倒序查询。

// Record 是一条落库的建议。
type Record struct {
	ID         int64   `json:"id"`
	Timestamp  int64   `json:"ts"`
	Symbol     string  `json:"symbol"`
	Regime     string  `json:"regime"`
	Confidence string  `json:"confidence"`
	Advisory   string  `json:"advisory"`
	RSI        float64 `json:"rsi"`
	RVOL       float64 `json:"rvol"`
	WallRatio  float64 `json:"wall_ratio"`
	ChangePct  float64 `json:"change_pct"`
	LastPrice  float64 `json:"last_price"`
}

// Store 管理建议日志库。
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// NewStore 打开（或创建）日志库并建表。
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("advisory log: 路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS advisory_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		regime TEXT NOT NULL,
		confidence TEXT NOT NULL,
		advisory TEXT NOT NULL,
		rsi REAL NOT NULL,
		rvol REAL NOT NULL,
		wall_ratio REAL NOT NULL,
		change_pct REAL NOT NULL,
		last_price REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_advisory_symbol_ts ON advisory_log(symbol, ts DESC);`)
	return err
}

// Close 关闭数据库。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append 落一条建议。
func (s *Store) Append(ctx context.Context, ind indicator.Indicators, sig regime.Signal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO advisory_log (ts, symbol, regime, confidence, advisory, rsi, rvol, wall_ratio, change_pct, last_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), ind.Symbol, string(sig.Regime), string(sig.Confidence), sig.Advisory,
		ind.RSI, ind.RVOL, ind.WallRatio, ind.ChangePct, ind.LastPrice,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List 按时间倒序取最近的记录；symbol 为空表示不过滤。
func (s *Store) List(ctx context.Context, symbol string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `SELECT id, ts, symbol, regime, confidence, advisory, rsi, rvol, wall_ratio, change_pct, last_price
		FROM advisory_log`
	args := []any{}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Symbol, &rec.Regime, &rec.Confidence,
			&rec.Advisory, &rec.RSI, &rec.RVOL, &rec.WallRatio, &rec.ChangePct, &rec.LastPrice); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
