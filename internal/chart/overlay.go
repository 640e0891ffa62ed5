package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/trendrunner/tokentrader/internal/logx"
	"github.com/trendrunner/tokentrader/internal/types"
)

var log = logx.New("chart")

// visionPrompt is the fixed prompt accompanying every chart submission.
const visionPrompt = "Assess this intraday chart for momentum continuation risk. Return the strict JSON schema only."

// Overlay implements the execution stage's pipeline.VisionOverlay contract
// by composing capture, cache, rate limit, and the vision client.
type Overlay struct {
	capture     Capturer
	vision      VisionClient
	chartCache  *TTLCache
	visionCache *TTLCache
	limiter     *RateLimiter
}

func NewOverlay(capture Capturer, vision VisionClient, chartTTL, visionTTL int, perMinute int) *Overlay {
	return &Overlay{
		capture:     capture,
		vision:      vision,
		chartCache:  NewTTLCache(time.Duration(chartTTL) * time.Second),
		visionCache: NewTTLCache(time.Duration(visionTTL) * time.Second),
		limiter:     NewRateLimiter(perMinute),
	}
}

// Evaluate satisfies pipeline.VisionOverlay: it returns (ai_quality_delta,
// ok). ok is false whenever capture, the rate limit, or the vision schema
// fails; the execution stage then falls back to entry_score = statistics_score.
func (o *Overlay) Evaluate(ctx context.Context, c types.Candidate) (float64, bool) {
	if o.capture == nil || o.vision == nil {
		return 0, false
	}

	interval := IntervalForAge(c.TokenAgeHours)
	visionKey := fmt.Sprintf("%s|%s|%s", c.Symbol+"|"+c.Chain, c.PairAddress, interval)

	if cached, ok := o.visionCache.Get(visionKey); ok {
		result := cached.(VisionResult)
		return result.QualityScoreDelta, true
	}

	if !o.limiter.Allow() {
		return 0, false
	}

	chartKey := fmt.Sprintf("%s|%s|%s", c.Chain, c.PairAddress, interval)
	var png []byte
	if cached, ok := o.chartCache.Get(chartKey); ok {
		png = cached.([]byte)
	} else {
		captured, err := o.capture.Capture(ctx, c.Chain, c.PairAddress, interval)
		if err != nil {
			log.Printf("capture failed for %s: %v", c.Symbol, err)
			return 0, false
		}
		png = captured
		o.chartCache.Set(chartKey, png)
	}

	result, ok := o.vision.Evaluate(ctx, png, visionPrompt)
	if !ok {
		return 0, false
	}
	o.visionCache.Set(visionKey, result)
	return result.QualityScoreDelta, true
}
