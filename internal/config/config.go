package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Server struct {
	ListenAddress    string        `yaml:"listen_address"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	CORSOrigins      []string      `yaml:"cors_origins"`
	ViewTTL          time.Duration `yaml:"view_ttl"`
	ProfileViewLimit int           `yaml:"profile_view_limit"` // 每个用户缓存的个人主页视图上限
}

type Store struct {
	Backend  string `yaml:"backend"` // mongo | memory
	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`
}

type MySQL struct {
	DSN string `yaml:"dsn"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type Auth struct {
	AccessSecret  string `yaml:"access_secret"`
	RefreshSecret string `yaml:"refresh_secret"`
	// 第三方登录回调共享密钥，为空时关闭该入口
	ExternalSecret string `yaml:"external_secret"`
}

type Jobs struct {
	ToggleMode        string        `yaml:"toggle_mode"` // compat | locked
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	RelayInterval     time.Duration `yaml:"relay_interval"`
}

type Config struct {
	Server Server `yaml:"server"`
	Store  Store  `yaml:"store"`
	MySQL  MySQL  `yaml:"mysql"`
	Redis  Redis  `yaml:"redis"`
	Kafka  Kafka  `yaml:"kafka"`
	SMTP   SMTP   `yaml:"smtp"`
	Auth   Auth   `yaml:"auth"`
	Jobs   Jobs   `yaml:"jobs"`
}

// Load 依次读取 yaml 文件（可选）、.env、环境变量，最后补默认值
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err = yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	// .env 不存在时忽略
	_ = godotenv.Load()
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	num := func(key string, dst *int) error {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}

	str("HTTP_ADDR", &c.Server.ListenAddress)
	list("CORS_ORIGINS", &c.Server.CORSOrigins)
	str("STORE_BACKEND", &c.Store.Backend)
	str("MONGO_URI", &c.Store.MongoURI)
	str("MONGO_DB", &c.Store.MongoDB)
	str("MYSQL_DSN", &c.MySQL.DSN)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	str("SMTP_HOST", &c.SMTP.Host)
	str("SMTP_USERNAME", &c.SMTP.Username)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)
	str("JWT_ACCESS_SECRET", &c.Auth.AccessSecret)
	str("JWT_REFRESH_SECRET", &c.Auth.RefreshSecret)
	str("EXTERNAL_LOGIN_SECRET", &c.Auth.ExternalSecret)
	str("TOGGLE_MODE", &c.Jobs.ToggleMode)

	for key, dst := range map[string]*int{
		"REDIS_DB":           &c.Redis.DB,
		"SMTP_PORT":          &c.SMTP.Port,
		"PROFILE_VIEW_LIMIT": &c.Server.ProfileViewLimit,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*time.Duration{
		"VIEW_TTL":           &c.Server.ViewTTL,
		"RECONCILE_INTERVAL": &c.Jobs.ReconcileInterval,
		"RELAY_INTERVAL":     &c.Jobs.RelayInterval,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ViewTTL == 0 {
		c.Server.ViewTTL = 15 * time.Minute
	}
	if c.Server.ProfileViewLimit == 0 {
		c.Server.ProfileViewLimit = 8
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "mongo"
	}
	if c.Store.MongoURI == "" {
		c.Store.MongoURI = "mongodb://127.0.0.1:27017"
	}
	if c.Store.MongoDB == "" {
		c.Store.MongoDB = "campus_feed"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "campus-feed-interactions"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.Jobs.ToggleMode == "" {
		c.Jobs.ToggleMode = "compat"
	}
	if c.Jobs.ReconcileInterval == 0 {
		c.Jobs.ReconcileInterval = 5 * time.Minute
	}
	if c.Jobs.RelayInterval == 0 {
		c.Jobs.RelayInterval = time.Second
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "mongo", "memory":
	default:
		return fmt.Errorf("store.backend must be mongo or memory, got %q", c.Store.Backend)
	}
	switch c.Jobs.ToggleMode {
	case "compat", "locked":
	default:
		return fmt.Errorf("jobs.toggle_mode must be compat or locked, got %q", c.Jobs.ToggleMode)
	}
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return fmt.Errorf("auth.access_secret and auth.refresh_secret are required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	return nil
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
