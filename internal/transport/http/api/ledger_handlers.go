package apihttp

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Maxnito501/geminibo/internal/ledger"
	"github.com/Maxnito501/geminibo/internal/logger"
)

const maxImportBytes = 8 << 20

type tradeRequest struct {
	Symbol  string  `json:"symbol"`
	Qty     float64 `json:"qty"`
	Price   float64 `json:"price"`
	FeeTier string  `json:"fee_tier"`
	Note    string  `json:"note"`
}

func (r *Router) resolveTier(raw string) (ledger.FeeTier, error) {
	if raw == "" {
		if r.DefaultFeeTier.Valid() {
			return r.DefaultFeeTier, nil
		}
		return ledger.FeeTierStreaming, nil
	}
	return ledger.ParseFeeTier(raw)
}

// persistLedger 把账本写回磁盘。失败只记日志：内存状态已是用户想要的样子。
func (r *Router) persistLedger() {
	if r.LedgerFile == nil {
		return
	}
	if err := r.LedgerFile.Save(r.Book); err != nil {
		logger.Errorf("[api] ledger persist failed: %v", err)
	}
}

func (r *Router) handleBuy(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tier, err := r.resolveTier(req.FeeTier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := r.Book.RecordBuy(req.Symbol, req.Qty, req.Price, tier, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.persistLedger()
	logger.Infof("[api] buy ip=%s symbol=%s qty=%.2f price=%.4f tier=%s", c.ClientIP(), view.Symbol, req.Qty, req.Price, tier)
	c.JSON(http.StatusOK, gin.H{"position": view})
}

func (r *Router) handleSell(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tier, err := r.resolveTier(req.FeeTier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := r.Book.RecordSell(req.Symbol, req.Qty, req.Price, tier, time.Now(), req.Note)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ledger.ErrInsufficientHoldings) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	r.persistLedger()
	logger.Infof("[api] sell ip=%s symbol=%s qty=%.2f price=%.4f net=%.2f", c.ClientIP(), rec.Symbol, req.Qty, req.Price, rec.NetProfit)
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

func (r *Router) handlePositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": r.Book.Positions()})
}

func (r *Router) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"history":      r.Book.History(),
		"total_profit": r.Book.TotalRealizedProfit(),
	})
}

func (r *Router) handleDeleteRecord(c *gin.Context) {
	id := c.Param("id")
	if err := r.Book.DeleteRecord(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	r.persistLedger()
	logger.Infof("[api] delete record ip=%s id=%s", c.ClientIP(), id)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) handleMissedProfit(c *gin.Context) {
	history := r.Book.History()
	symbols := make([]string, 0, len(history))
	for _, rec := range history {
		symbols = append(symbols, rec.Symbol)
	}
	prices := r.livePrices(c.Request.Context(), uniqueSymbols(symbols))
	entries := r.Book.MissedProfitReport(prices)

	total := 0.0
	for _, e := range entries {
		total += e.MissedProfit
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total_missed": total})
}

func (r *Router) handleGoal(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"target":   r.GoalTarget,
		"realized": r.Book.TotalRealizedProfit(),
		"progress": r.Book.GoalProgress(r.GoalTarget),
	})
}

func (r *Router) handleExport(c *gin.Context) {
	data, err := r.Book.Export()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="ledger.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (r *Router) handleImport(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := r.Book.Import(data); err != nil {
		logger.Warnf("[api] ledger import rejected ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	r.persistLedger()
	logger.Infof("[api] ledger imported ip=%s records=%d", c.ClientIP(), len(r.Book.History()))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) handleWatchlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"watchlist": r.Book.Watchlist()})
}

func (r *Router) handleWatchlistAdd(c *gin.Context) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added := r.Book.AddSymbol(req.Symbol)
	if added {
		r.persistLedger()
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "watchlist": r.Book.Watchlist()})
}

func (r *Router) handleWatchlistRemove(c *gin.Context) {
	removed := r.Book.RemoveSymbol(c.Param("symbol"))
	if removed {
		r.persistLedger()
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed, "watchlist": r.Book.Watchlist()})
}
