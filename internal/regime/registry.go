package regime

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Maxnito501/geminibo/internal/logger"
)

// 中文说明：
// 规则注册表：阈值与建议文案可以放在一个 YAML 文件里，运行期修改后热加载。
// 文件缺失时使用内置默认值；文件损坏时保留上一份有效配置并告警。

// RulesFile 映射规则配置文件。阈值用 map 而不是结构体：
// 只有文件里出现的键才覆盖默认值，显式写 0 也生效（例如关掉 clear_path）。
type RulesFile struct {
	Thresholds map[string]float64 `yaml:"thresholds"`
	Advisories map[string]string  `yaml:"advisories"`
}

const rulesSchema = `{
  "type": "object",
  "properties": {
    "thresholds": {
      "type": "object",
      "additionalProperties": {"type": "number", "minimum": 0}
    },
    "advisories": {
      "type": "object",
      "additionalProperties": {"type": "string", "minLength": 1}
    }
  },
  "additionalProperties": false
}`

// Registry 管理规则配置文件的加载与监听。
type Registry struct {
	path       string
	classifier *Classifier
	schema     *jsonschema.Schema

	mu       sync.Mutex
	loadedAt time.Time
	version  int64
}

// NewRegistry 绑定 classifier 并尝试加载 path。path 为空表示仅用内置默认。
func NewRegistry(path string, c *Classifier) (*Registry, error) {
	if c == nil {
		return nil, fmt.Errorf("regime registry: classifier 不能为空")
	}
	schema, err := jsonschema.CompileString("rules.schema.json", rulesSchema)
	if err != nil {
		return nil, fmt.Errorf("regime registry: compile schema: %w", err)
	}
	r := &Registry{path: strings.TrimSpace(path), classifier: c, schema: schema}
	if r.path == "" {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		if os.IsNotExist(err) {
			logger.Infof("规则文件 %s 不存在，使用内置默认", r.path)
			return r, nil
		}
		return nil, err
	}
	return r, nil
}

// Reload 读取并校验规则文件，成功后整体应用到 classifier。
func (r *Registry) Reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}
	var file RulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("regime registry: 解析 %s 失败: %w", r.path, err)
	}
	if err := r.validate(raw); err != nil {
		return err
	}

	th := DefaultThresholds()
	for key, val := range file.Thresholds {
		if !applyThreshold(&th, strings.ToLower(strings.TrimSpace(key)), val) {
			logger.Warnf("规则文件 %s: 未知阈值 %q，忽略", r.path, key)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifier.SetThresholds(th)
	for key, text := range file.Advisories {
		r.classifier.SetAdvisory(Regime(strings.ToLower(strings.TrimSpace(key))), text)
	}
	r.loadedAt = time.Now()
	r.version++
	logger.Infof("规则配置已加载: %s (v%d)", r.path, r.version)
	return nil
}

// applyThreshold 按键名写入阈值，返回键是否已知。
func applyThreshold(th *Thresholds, key string, val float64) bool {
	switch key {
	case "wall_block_ratio":
		th.WallBlockRatio = val
	case "wall_block_rsi":
		th.WallBlockRSI = val
	case "dumping_rvol":
		th.DumpingRVOL = val
	case "churning_rvol":
		th.ChurningRVOL = val
	case "flat_epsilon":
		th.FlatEpsilon = val
	case "breakout_rvol":
		th.BreakoutRVOL = val
	case "accumulation_rsi":
		th.AccumulationRSI = val
	case "accumulation_rvol":
		th.AccumulationRVOL = val
	case "clear_path_ratio":
		th.ClearPathRatio = val
	case "extreme_rsi":
		th.ExtremeRSI = val
	default:
		return false
	}
	return true
}

// validate 先转成 JSON 值再跑 schema 校验（yaml.v3 解码结果与 JSON 类型不完全一致）。
func (r *Registry) validate(raw []byte) error {
	var node any
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	buf, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("regime registry: %w", err)
	}
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return err
	}
	if err := r.schema.Validate(doc); err != nil {
		return fmt.Errorf("regime registry: schema 校验失败: %w", err)
	}
	return nil
}

// Version 返回当前已加载的版本号（0 表示仅默认值）。
func (r *Registry) Version() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// Watch 监听规则文件变更并热加载，ctx 取消后退出。
// 文件不存在或监听失败只记日志，不影响主流程。
func (r *Registry) Watch(ctx context.Context) {
	if r.path == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("规则文件监听初始化失败: %v", err)
		return
	}
	defer watcher.Close()
	// 监听目录而不是文件本身，编辑器原子替换时 inode 会变。
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		logger.Warnf("规则文件监听失败: %v", err)
		return
	}
	target := filepath.Clean(r.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.Reload(); err != nil {
				logger.Warnf("规则热加载失败，沿用上一份配置: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("规则文件监听错误: %v", err)
		}
	}
}
