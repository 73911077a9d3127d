package apihttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Maxnito501/geminibo/internal/advisor"
	"github.com/Maxnito501/geminibo/internal/ledger"
	"github.com/Maxnito501/geminibo/internal/logger"
	"github.com/Maxnito501/geminibo/internal/market"
	"github.com/Maxnito501/geminibo/internal/pkg/symbol"
	"github.com/Maxnito501/geminibo/internal/report"
	"github.com/Maxnito501/geminibo/internal/store/advisorylog"
	"github.com/Maxnito501/geminibo/internal/store/gormstore"
	"github.com/Maxnito501/geminibo/internal/store/ledgerfile"
)

// Router 暴露建议 / 账本 / 计划相关的全部接口。
type Router struct {
	Advisor     *advisor.Service
	Book        *ledger.Book
	LedgerFile  *ledgerfile.Store
	Plans       *gormstore.Store
	AdvisoryLog *advisorylog.Store
	Source      market.Source

	GoalTarget     float64
	DefaultFeeTier ledger.FeeTier

	Interval string
	Lookback int
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/advice", r.handleAdviseWatchlist)
	group.GET("/advice/:symbol", r.handleAdvise)
	group.GET("/logs/advisory", r.handleAdvisoryLog)
	group.GET("/report/:symbol", r.handleReport)

	group.POST("/ledger/buy", r.handleBuy)
	group.POST("/ledger/sell", r.handleSell)
	group.GET("/ledger/positions", r.handlePositions)
	group.GET("/ledger/history", r.handleHistory)
	group.DELETE("/ledger/history/:id", r.handleDeleteRecord)
	group.GET("/ledger/missed-profit", r.handleMissedProfit)
	group.GET("/ledger/goal", r.handleGoal)
	group.GET("/ledger/export", r.handleExport)
	group.POST("/ledger/import", r.handleImport)

	group.GET("/watchlist", r.handleWatchlist)
	group.POST("/watchlist", r.handleWatchlistAdd)
	group.DELETE("/watchlist/:symbol", r.handleWatchlistRemove)

	if r.Plans != nil {
		group.POST("/plans", r.handlePlanCreate)
		group.GET("/plans", r.handlePlanList)
		group.GET("/plans/:id", r.handlePlanGet)
		group.POST("/plans/:id/close", r.handlePlanClose)
		group.DELETE("/plans/:id", r.handlePlanDelete)
		group.POST("/plans/check", r.handlePlanCheck)
	}
}

func (r *Router) handleAdvise(c *gin.Context) {
	sym := symbol.Normalize(c.Param("symbol"))
	if sym == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 不能为空"})
		return
	}
	advice, err := r.Advisor.Advise(c.Request.Context(), sym)
	if err != nil {
		logger.Errorf("[api] advise failed ip=%s symbol=%s err=%v", c.ClientIP(), sym, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, advice)
}

func (r *Router) handleAdviseWatchlist(c *gin.Context) {
	symbols := r.Book.Watchlist()
	if len(symbols) == 0 {
		c.JSON(http.StatusOK, gin.H{"advice": gin.H{}})
		return
	}
	out := r.Advisor.AdviseAll(c.Request.Context(), symbols)
	c.JSON(http.StatusOK, gin.H{"advice": out})
}

func (r *Router) handleAdvisoryLog(c *gin.Context) {
	if r.AdvisoryLog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "建议日志未启用"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := r.AdvisoryLog.List(c.Request.Context(), c.Query("symbol"), limit)
	if err != nil {
		logger.Errorf("[api] advisory log list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (r *Router) handleReport(c *gin.Context) {
	sym := symbol.Normalize(c.Param("symbol"))
	if sym == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 不能为空"})
		return
	}
	ctx := c.Request.Context()

	bars, err := r.Source.FetchBars(ctx, sym, r.interval(), r.lookback())
	if err != nil {
		logger.Errorf("[api] report bars failed ip=%s symbol=%s err=%v", c.ClientIP(), sym, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	advice, err := r.Advisor.Advise(ctx, sym)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err = report.Render(c.Writer, report.Input{
		Symbol:     sym,
		Bars:       bars,
		Indicators: advice.Indicators,
		Signal:     advice.Signal,
		History:    r.Book.History(),
	})
	if err != nil {
		logger.Errorf("[api] report render failed symbol=%s err=%v", sym, err)
	}
}

func (r *Router) interval() string {
	if r.Interval == "" {
		return "1d"
	}
	return r.Interval
}

func (r *Router) lookback() int {
	if r.Lookback <= 0 {
		return 60
	}
	return r.Lookback
}

// livePrices 为给定 symbol 集合取现价，取不到的留空。
func (r *Router) livePrices(ctx context.Context, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		snap, err := r.Source.FetchSnapshot(fetchCtx, sym)
		cancel()
		if err != nil {
			logger.Warnf("[api] live price unavailable symbol=%s err=%v", sym, err)
			continue
		}
		if snap.LastPrice > 0 {
			out[sym] = snap.LastPrice
		}
	}
	return out
}

func uniqueSymbols(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
