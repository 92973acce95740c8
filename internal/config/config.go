package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JoeShih716/go-accountant/pkg/mysql"
)

// EnvPrefix 環境變數覆寫的前綴 (ACCOUNTANT_*)
const EnvPrefix = "ACCOUNTANT"

// LedgerType 使用哪種 Ledger 實作
type LedgerType string

const (
	LedgerMySQL    LedgerType = "mysql"
	LedgerPostgres LedgerType = "postgres"
	LedgerMutex    LedgerType = "mutex"
	LedgerLMAX     LedgerType = "lmax"
)

// Valid 是否為支援的 LedgerType
func (t LedgerType) Valid() bool {
	switch t {
	case LedgerMySQL, LedgerPostgres, LedgerMutex, LedgerLMAX:
		return true
	}
	return false
}

// InMemory 是否為記憶體 Ledger (需要 WAL)
func (t LedgerType) InMemory() bool {
	return t == LedgerMutex || t == LedgerLMAX
}

// Config 服務完整設定
type Config struct {
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	GRPC     GRPCConfig     `yaml:"grpc" mapstructure:"grpc"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	MySQL    mysql.Config   `yaml:"mysql" mapstructure:"mysql"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka" mapstructure:"kafka"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// LedgerConfig Ledger 相關設定
type LedgerConfig struct {
	Type           LedgerType `yaml:"type" mapstructure:"type"`
	WALPath        string     `yaml:"wal_path" mapstructure:"wal_path"`
	QueueSize      int        `yaml:"queue_size" mapstructure:"queue_size"`
	StrictWithdraw bool       `yaml:"strict_withdraw" mapstructure:"strict_withdraw"`
	// Seed 啟動時是否從 SQL 載入帳戶到記憶體 Ledger
	Seed string `yaml:"seed" mapstructure:"seed"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	RateLimitRPS    int           `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type PostgresConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// Enabled 是否有設定 PostgreSQL
func (c PostgresConfig) Enabled() bool {
	return c.URL != ""
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// Enabled 是否有設定 Kafka
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// Load 載入設定
// 順序: .env (若存在) -> YAML 檔 (若存在) -> ACCOUNTANT_* 環境變數 -> 預設值
// 環境變數名稱為 key 轉大寫並把 "." 換成 "_"，例如 ACCOUNTANT_MYSQL_DB_NAME
//
// 參數:
//
//	path: YAML 檔路徑，空字串表示只用環境變數與預設值
//
// 回傳:
//
//	Config: 補全後的設定
//	error: 讀檔、解析或驗證失敗
func Load(path string) (Config, error) {
	// .env 不存在不算錯誤
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv 只對已知的 key 生效，沒有 YAML 時也要能從環境變數覆寫
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Ledger.Type = LedgerType(strings.ToLower(string(cfg.Ledger.Type)))

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys 可以用環境變數覆寫的設定
var envKeys = []string{
	"ledger.type",
	"ledger.wal_path",
	"ledger.queue_size",
	"ledger.strict_withdraw",
	"ledger.seed",
	"grpc.addr",
	"http.addr",
	"http.rate_limit_rps",
	"http.cors_origins",
	"http.shutdown_timeout",
	"mysql.host",
	"mysql.port",
	"mysql.user",
	"mysql.password",
	"mysql.db_name",
	"mysql.log_level",
	"postgres.url",
	"kafka.brokers",
	"kafka.topic",
	"log.level",
	"log.development",
}

// WithDefaults 補全未設定的欄位
func (c Config) WithDefaults() Config {
	if c.Ledger.Type == "" {
		c.Ledger.Type = LedgerMutex
	}
	if c.Ledger.WALPath == "" {
		c.Ledger.WALPath = "wal.log"
	}
	if c.Ledger.QueueSize == 0 {
		c.Ledger.QueueSize = 1024
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimitRPS == 0 {
		c.HTTP.RateLimitRPS = 100
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "accountant.balance_changed"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.MySQL.Enabled() {
		c.MySQL = c.MySQL.WithDefaults()
	}
	return c
}

// Validate 檢查設定之間的相依
func (c Config) Validate() error {
	if !c.Ledger.Type.Valid() {
		return fmt.Errorf("unknown ledger type %q", c.Ledger.Type)
	}
	if c.Ledger.Type == LedgerMySQL && !c.MySQL.Enabled() {
		return errors.New("ledger type mysql requires mysql.host")
	}
	if c.Ledger.Type == LedgerPostgres && !c.Postgres.Enabled() {
		return errors.New("ledger type postgres requires postgres.url")
	}
	switch LedgerType(c.Ledger.Seed) {
	case "":
	case LedgerMySQL:
		if !c.MySQL.Enabled() {
			return errors.New("ledger.seed mysql requires mysql.host")
		}
	case LedgerPostgres:
		if !c.Postgres.Enabled() {
			return errors.New("ledger.seed postgres requires postgres.url")
		}
	default:
		return fmt.Errorf("ledger.seed must be mysql or postgres, got %q", c.Ledger.Seed)
	}
	return nil
}
