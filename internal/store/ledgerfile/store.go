package ledgerfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Maxnito501/geminibo/internal/ledger"
)

// 中文说明：
// 账本落盘：启动时从 JSON 文件恢复 Book，变更后整体重写。
// 先写临时文件再 rename，避免写一半留下损坏的账本。

type Store struct {
	path string
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ledger file: 路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string { return s.path }

// Load 把文件内容导入 book。文件不存在视为空账本，不报错。
func (s *Store) Load(book *ledger.Book) error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return book.Import(data)
}

// Save 导出 book 并原子写入。
func (s *Store) Save(book *ledger.Book) error {
	data, err := book.Export()
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
