// Package config loads every threshold the pipeline, autosell evaluator,
// and lending sentinel use into a single immutable settings record, read
// once at process start: godotenv for local overrides, os.Getenv with a
// default, strconv for parsing.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Settings is threaded explicitly through constructors; nothing reads the
// environment after Load returns.
type Settings struct {
	// Process
	APIHost string
	APIPort int
	Mode    string // PAPER | LIVE

	// Aggregator
	AggregatorBaseURL  string
	AggregatorChunkSize int
	AggregatorMaxAddrs  int
	HTTPTimeoutSec      int

	// Meta-aggregator (route quotes)
	MetaAggregatorBaseURL string

	// Selection stage
	V24Min           float64
	LiqMin           float64
	T5, T1, T24      float64
	MaxResults       int
	SoftMin          int
	SoftFillSortKey  string // "vol24h" | "liqUsd"

	// Quality gate
	AgeMinHours  float64
	AgeMaxHours  float64
	MaxAbsM5     float64
	MaxAbsH1     float64
	MaxAbsH6     float64
	MaxAbsH24    float64
	QualityMin   float64

	// Statistics scoring
	StatMin      float64
	WeightLiq    float64
	WeightVol    float64
	WeightAge    float64
	WeightMom    float64
	WeightFlow   float64

	// Risk / anti-chase
	RebuyCooldownMin       float64
	MaxDeviationMultiplier float64

	// Execution stage
	BuysPerRun      int
	AITopK          int
	AIMult          float64
	AIMaxAbs        float64
	EntryMin        float64
	PerBuyFraction  float64
	TargetPosVol    float64
	MinFreeCash     float64
	StartingCash    float64

	// Threshold computation
	SLFloor          float64
	SLCap            float64
	TP1Default       float64
	TP2Default       float64
	TP1TakeFraction  float64

	// Consistency guard
	JumpFactor     float64
	AltCycles      int
	FingerprintWindow int
	StalenessHorizonSec int

	// Orchestrator cadence
	TrendIntervalSec    int
	PriceIntervalSec    int
	SentinelIntervalSec int
	RecentWindowHours   int

	// Lending sentinel
	HFRelooop               float64
	HFWarning               float64
	HFDanger                float64
	HFEmergency             float64
	SignificantDeviationHF  float64
	SignificantDeviationEquityPct float64
	AlertCooldownSeconds    int
	RescueMaxCap            float64
	RescueMin               float64
	RescueBackoffMin        int

	// Telegram
	TelegramBotToken string
	ChatIDFile       string

	// RPC / signing (config-missing if empty; operations fail, process does not crash)
	EVMRPCURL     string
	EVMSignerKey  string
	SolanaRPCURL  string
	SolanaSignerKey string

	// Lending sentinel pool contract (config-missing if empty; sentinel stays unwired)
	AavePoolAddress string
	AaveUSDCAddress string

	// Persistence
	DatabaseDSN string
}

func getStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Load reads .env (if present) then the process environment into a
// Settings record. Missing non-critical values fall back to documented
// defaults; missing credentials are left empty and surface as a
// config-missing error only when the operation that needs them runs.
func Load() *Settings {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] .env not found, relying on process environment")
	}

	return &Settings{
		APIHost: getStr("API_HOST", "0.0.0.0"),
		APIPort: getInt("API_PORT", 8080),
		Mode:    getStr("MODE", "PAPER"),

		AggregatorBaseURL:   getStr("AGGREGATOR_BASE_URL", "https://api.dexscreener.com"),
		AggregatorChunkSize: getInt("AGGREGATOR_CHUNK_SIZE", 30),
		AggregatorMaxAddrs:  getInt("AGGREGATOR_MAX_ADDRS", 300),
		HTTPTimeoutSec:      getInt("HTTP_TIMEOUT_SEC", 12),

		MetaAggregatorBaseURL: getStr("META_AGGREGATOR_BASE_URL", "https://li.quest"),

		V24Min:          getFloat("V24_MIN", 50000),
		LiqMin:          getFloat("LIQ_MIN", 20000),
		T5:              getFloat("T5", 3),
		T1:              getFloat("T1", 4),
		T24:             getFloat("T24", 10),
		MaxResults:      getInt("MAX_RESULTS", 40),
		SoftMin:         getInt("SOFT_MIN", 10),
		SoftFillSortKey: getStr("SOFT_FILL_SORT_KEY", "vol24h"),

		AgeMinHours: getFloat("AGE_MIN", 0.5),
		AgeMaxHours: getFloat("AGE_MAX", 720),
		MaxAbsM5:    getFloat("MAX_ABS_M5", 60),
		MaxAbsH1:    getFloat("MAX_ABS_H1", 150),
		MaxAbsH6:    getFloat("MAX_ABS_H6", 400),
		MaxAbsH24:   getFloat("MAX_ABS_H24", 1000),
		QualityMin:  getFloat("QUALITY_MIN", 35),

		StatMin:    getFloat("STAT_MIN", 45),
		WeightLiq:  getFloat("WEIGHT_LIQ", 1.0),
		WeightVol:  getFloat("WEIGHT_VOL", 1.2),
		WeightAge:  getFloat("WEIGHT_AGE", 0.6),
		WeightMom:  getFloat("WEIGHT_MOM", 1.4),
		WeightFlow: getFloat("WEIGHT_FLOW", 0.8),

		RebuyCooldownMin:       getFloat("REBUY_COOLDOWN_MIN", 45),
		MaxDeviationMultiplier: getFloat("MAX_DEVIATION_MULTIPLIER", 1.05),

		BuysPerRun:     getInt("BUYS_PER_RUN", 3),
		AITopK:         getInt("AI_TOP_K", 3),
		AIMult:         getFloat("AI_MULT", 1.0),
		AIMaxAbs:       getFloat("AI_MAX_ABS", 15),
		EntryMin:       getFloat("ENTRY_MIN", 50),
		PerBuyFraction: getFloat("PER_BUY_FRACTION", 0.05),
		TargetPosVol:   getFloat("TARGET_POS_VOL", 0.03),
		MinFreeCash:    getFloat("MIN_FREE_CASH", 50),
		StartingCash:   getFloat("STARTING_CASH", 10000),

		SLFloor:         getFloat("SL_FLOOR", 0.06),
		SLCap:           getFloat("SL_CAP", 0.25),
		TP1Default:      getFloat("TP1_DEFAULT", 0.15),
		TP2Default:      getFloat("TP2_DEFAULT", 0.30),
		TP1TakeFraction: getFloat("TP1_TAKE_FRACTION", 0.35),

		JumpFactor:          getFloat("JUMP_FACTOR", 5),
		AltCycles:           getInt("ALT_CYCLES", 2),
		FingerprintWindow:   getInt("FINGERPRINT_WINDOW", 12),
		StalenessHorizonSec: getInt("STALENESS_HORIZON_SEC", 300),

		TrendIntervalSec:    getInt("TREND_INTERVAL_SEC", 60),
		PriceIntervalSec:    getInt("PRICE_INTERVAL_SEC", 20),
		SentinelIntervalSec: getInt("SENTINEL_INTERVAL_SEC", 30),
		RecentWindowHours:   getInt("RECENT_WINDOW_HOURS", 24),

		HFRelooop:                     getFloat("HF_RELOOP", 2.0),
		HFWarning:                     getFloat("HF_WARNING", 1.5),
		HFDanger:                      getFloat("HF_DANGER", 1.2),
		HFEmergency:                   getFloat("HF_EMERGENCY", 1.05),
		SignificantDeviationHF:        getFloat("SIGNIFICANT_DEVIATION_HF", 0.05),
		SignificantDeviationEquityPct: getFloat("SIGNIFICANT_DEVIATION_EQUITY_PCT", 0.03),
		AlertCooldownSeconds:          getInt("ALERT_COOLDOWN_SECONDS", 1800),
		RescueMaxCap:                  getFloat("RESCUE_MAX_CAP", 500),
		RescueMin:                     getFloat("RESCUE_MIN", 25),
		RescueBackoffMin:              getInt("RESCUE_BACKOFF_MIN", 10),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatIDFile:       getStr("TELEGRAM_CHAT_ID_FILE", "chat_id.txt"),

		EVMRPCURL:       os.Getenv("EVM_RPC_URL"),
		EVMSignerKey:    os.Getenv("EVM_SIGNER_KEY"),
		SolanaRPCURL:    os.Getenv("SOLANA_RPC_URL"),
		SolanaSignerKey: os.Getenv("SOLANA_SIGNER_KEY"),

		AavePoolAddress: os.Getenv("AAVE_POOL_ADDRESS"),
		AaveUSDCAddress: os.Getenv("AAVE_USDC_ADDRESS"),

		DatabaseDSN: getStr("DATABASE_DSN", "trendrunner.db"),
	}
}
