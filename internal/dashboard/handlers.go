package dashboard

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fundingflow/internal/funding"
	"fundingflow/internal/models"
)

const topSpreadLimit = 10

type exchangeInfo struct {
	ID           models.ExchangeID `json:"id"`
	Label        string            `json:"label"`
	Abbreviation string            `json:"abbreviation"`
	Color        string            `json:"color"`
	State        string            `json:"state,omitempty"`
	Assets       []models.Asset    `json:"assets"`
}

type settlementResponse struct {
	Exchange   models.ExchangeID `json:"exchange"`
	Asset      models.Asset      `json:"asset"`
	Timestamps []int64           `json:"timestamps"`
	funding.Settlement
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleRows(c *gin.Context) {
	left, right, ok := s.exchangePair(c)
	if !ok {
		return
	}
	window, ok := s.window(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"left":   left,
		"right":  right,
		"window": window,
		"rows":   funding.Rows(s.series, left, right, window),
	})
}

func (s *Server) handleSettlement(c *gin.Context) {
	exchange, ok := parseExchange(c, "exchange")
	if !ok {
		return
	}
	asset, ok := parseAsset(c)
	if !ok {
		return
	}
	window, ok := s.window(c)
	if !ok {
		return
	}

	notional := s.cfg.DefaultNotional
	if raw := c.Query("notional"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			badRequest(c, fmt.Sprintf("invalid notional %q", raw))
			return
		}
		notional = v
	}

	series, found := s.series.Snapshot(exchange, asset)
	if !found {
		notFound(c, exchange, asset)
		return
	}

	c.JSON(http.StatusOK, settlementResponse{
		Exchange:   exchange,
		Asset:      asset,
		Timestamps: series.Timestamps,
		Settlement: funding.Combine(series.Rates, notional, window),
	})
}

func (s *Server) handleSpreadStats(c *gin.Context) {
	left, right, ok := s.exchangePair(c)
	if !ok {
		return
	}
	asset, ok := parseAsset(c)
	if !ok {
		return
	}

	ls, found := s.series.Snapshot(left, asset)
	if !found {
		notFound(c, left, asset)
		return
	}
	rs, found := s.series.Snapshot(right, asset)
	if !found {
		notFound(c, right, asset)
		return
	}

	points := funding.Align(ls, rs)
	c.JSON(http.StatusOK, gin.H{
		"asset":       asset,
		"left":        left,
		"right":       right,
		"stats":       funding.Stats(points),
		"top_spreads": funding.TopSpreads(points, topSpreadLimit),
	})
}

func (s *Server) handleExchanges(c *gin.Context) {
	var states map[models.ExchangeID]string
	if s.status != nil {
		clients := s.status.Clients()
		states = make(map[models.ExchangeID]string, len(clients))
		for id, st := range clients {
			states[id] = st.String()
		}
	}

	out := make([]exchangeInfo, 0, len(models.Exchanges()))
	for _, id := range models.Exchanges() {
		assets := s.series.Assets(id)
		if assets == nil {
			assets = []models.Asset{}
		}
		out = append(out, exchangeInfo{
			ID:           id,
			Label:        id.Label(),
			Abbreviation: id.Abbreviation(),
			Color:        id.Color(),
			State:        states[id],
			Assets:       assets,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"exchanges":           out,
		"refresh_interval_ms": s.refreshIntervalMs,
	})
}

func (s *Server) exchangePair(c *gin.Context) (models.ExchangeID, models.ExchangeID, bool) {
	left, ok := parseExchange(c, "left")
	if !ok {
		return "", "", false
	}
	right, ok := parseExchange(c, "right")
	if !ok {
		return "", "", false
	}
	return left, right, true
}

func (s *Server) window(c *gin.Context) (int, bool) {
	raw := c.Query("window")
	if raw == "" {
		return s.cfg.DefaultWindow, true
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		badRequest(c, fmt.Sprintf("window must be a positive integer, got %q", raw))
		return 0, false
	}
	return k, true
}

func parseExchange(c *gin.Context, param string) (models.ExchangeID, bool) {
	raw := c.Query(param)
	id, ok := models.ParseExchange(raw)
	if !ok {
		badRequest(c, fmt.Sprintf("unknown exchange %q for %s", raw, param))
		return "", false
	}
	return id, true
}

func parseAsset(c *gin.Context) (models.Asset, bool) {
	raw := c.Query("asset")
	asset, ok := models.ParseAsset(strings.ToUpper(strings.TrimSpace(raw)))
	if !ok {
		badRequest(c, fmt.Sprintf("unknown asset %q", raw))
		return "", false
	}
	return asset, true
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFound(c *gin.Context, exchange models.ExchangeID, asset models.Asset) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
		"error": fmt.Sprintf("no series for %s %s", exchange, asset),
	})
}
