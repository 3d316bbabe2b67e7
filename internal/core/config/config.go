package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type FixtureCacheCfg struct {
	Enabled   bool
	RedisAddr string
	TTL       time.Duration
	OpTimeout time.Duration
}

type EventsCfg struct {
	Enabled bool
	Brokers string
	Topic   string
}

type Config struct {
	Addr           string
	LogLevel       string
	LogConsole     bool
	IUT            string
	APIDescription string
	MaxCollections int
	ProbeTimeout   time.Duration
	DocCacheSize   int
	BBoxH3Res      int
	FixtureCache   FixtureCacheCfg
	Events         EventsCfg
}

func FromEnv() Config {
	res := getint("ETS_BBOX_H3_RES", 5)
	if res < 0 {
		res = 0
	}
	if res > 15 {
		res = 15
	}

	return Config{
		Addr:           getenv("ADDR", ""),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		IUT:            getenv("ETS_IUT", ""),
		APIDescription: getenv("ETS_API_DESCRIPTION", ""),
		MaxCollections: getint("ETS_MAX_COLLECTIONS", 3),
		ProbeTimeout:   getduration("ETS_PROBE_TIMEOUT", 30*time.Second),
		DocCacheSize:   getint("ETS_DOC_CACHE_SIZE", 64),
		BBoxH3Res:      res,
		FixtureCache: FixtureCacheCfg{
			Enabled:   getbool("FIXTURE_CACHE_ENABLED", false),
			RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
			TTL:       getduration("FIXTURE_CACHE_TTL", 10*time.Minute),
			OpTimeout: getduration("FIXTURE_CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "ets-verdicts"),
		},
	}
}

// BrokerList splits a comma separated broker list, dropping blanks.
func (e EventsCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
