package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	gbcfg "github.com/Maxnito501/geminibo/internal/config"
	"github.com/Maxnito501/geminibo/internal/ledger"
	"github.com/Maxnito501/geminibo/internal/logger"
	"github.com/Maxnito501/geminibo/internal/regime"
	"github.com/Maxnito501/geminibo/internal/store/advisorylog"
	"github.com/Maxnito501/geminibo/internal/store/gormstore"
	"github.com/Maxnito501/geminibo/internal/store/ledgerfile"
	apihttp "github.com/Maxnito501/geminibo/internal/transport/http/api"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务与规则热加载。
type App struct {
	cfg         *gbcfg.Config
	httpServer  *apihttp.Server
	registry    *regime.Registry
	book        *ledger.Book
	ledgerStore *ledgerfile.Store
	advisoryLog *advisorylog.Store
	planStore   *gormstore.Store
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *gbcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务并监听规则文件，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.httpServer == nil {
		return fmt.Errorf("http server not initialized")
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infof("HTTP 服务监听 %s", a.httpServer.Addr())
		if err := a.httpServer.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.registry != nil {
		group.Go(func() error {
			a.registry.Watch(ctx)
			return nil
		})
	}

	err := group.Wait()
	a.shutdown()
	return err
}

// shutdown 收尾：账本落盘、存储关闭。
func (a *App) shutdown() {
	if a.ledgerStore != nil && a.book != nil {
		if err := a.ledgerStore.Save(a.book); err != nil {
			logger.Errorf("退出时账本落盘失败: %v", err)
		}
	}
	if a.advisoryLog != nil {
		if err := a.advisoryLog.Close(); err != nil {
			logger.Warnf("关闭建议日志失败: %v", err)
		}
	}
	if a.planStore != nil {
		if err := a.planStore.Close(); err != nil {
			logger.Warnf("关闭计划库失败: %v", err)
		}
	}
}
