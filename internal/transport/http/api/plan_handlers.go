package apihttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Maxnito501/geminibo/internal/logger"
	"github.com/Maxnito501/geminibo/internal/plan"
)

type planCreateRequest struct {
	Symbol      string  `json:"symbol"`
	Shares      float64 `json:"shares"`
	EntryPrice  float64 `json:"entry_price"`
	TargetPrice float64 `json:"target_price"`
	StopLoss    float64 `json:"stop_loss"`
	Note        string  `json:"note"`
}

func (r *Router) handlePlanCreate(c *gin.Context) {
	var req planCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := plan.New(req.Symbol, req.Shares, req.EntryPrice, req.TargetPrice, req.StopLoss, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.Note = strings.TrimSpace(req.Note)
	if err := r.Plans.SavePlan(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] plan created ip=%s id=%s symbol=%s rr=%.2f", c.ClientIP(), p.ID, p.Symbol, p.RRRatio())
	c.JSON(http.StatusOK, gin.H{"plan": p, "rr_ratio": p.RRRatio()})
}

func (r *Router) handlePlanList(c *gin.Context) {
	status := plan.Status(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	plans, err := r.Plans.ListPlans(status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (r *Router) handlePlanGet(c *gin.Context) {
	p, err := r.Plans.GetPlan(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": p, "rr_ratio": p.RRRatio()})
}

func (r *Router) handlePlanClose(c *gin.Context) {
	id := c.Param("id")
	if err := r.Plans.UpdateStatus(id, plan.StatusClosed); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] plan closed ip=%s id=%s", c.ClientIP(), id)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) handlePlanDelete(c *gin.Context) {
	if err := r.Plans.DeletePlan(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handlePlanCheck 对全部 active 计划对照现价做一轮风险检查，结果回写计划库。
func (r *Router) handlePlanCheck(c *gin.Context) {
	plans, err := r.Plans.ListPlans(plan.StatusActive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(plans) == 0 {
		c.JSON(http.StatusOK, gin.H{"results": []plan.CheckResult{}})
		return
	}

	symbols := make([]string, 0, len(plans))
	for _, p := range plans {
		symbols = append(symbols, p.Symbol)
	}
	prices := r.livePrices(c.Request.Context(), uniqueSymbols(symbols))

	now := time.Now()
	results := make([]plan.CheckResult, 0, len(plans))
	for _, p := range plans {
		live, ok := prices[p.Symbol]
		if !ok {
			logger.Warnf("[api] plan check skipped id=%s symbol=%s: no live price", p.ID, p.Symbol)
			continue
		}
		res := plan.Check(p, live, now)
		if err := r.Plans.RecordCheck(p.ID, res); err != nil {
			logger.Warnf("[api] plan check record failed id=%s err=%v", p.ID, err)
		}
		results = append(results, res)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
