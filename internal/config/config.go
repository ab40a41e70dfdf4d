package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Files    FilesConfig    `yaml:"files"`
	Endpoint EndpointConfig `yaml:"endpoint"`
	Limits   LimitsConfig   `yaml:"limits"`
	Timing   TimingConfig   `yaml:"timing"`
	Bot      BotConfig      `yaml:"bot"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Email    EmailConfig    `yaml:"email"`
}

type FilesConfig struct {
	Accounts string `yaml:"accounts"`
	Proxies  string `yaml:"proxies"`
}

type EndpointConfig struct {
	BaseURL     string `yaml:"baseURL"`
	GameBaseURL string `yaml:"gameBaseURL"`
	// CheckURL is the remote endpoints document consulted when
	// advancedAntiDetection is on.
	CheckURL              string         `yaml:"checkURL"`
	AdvancedAntiDetection bool           `yaml:"advancedAntiDetection"`
	TimeoutMs             int            `yaml:"timeoutMs"`
	Retry                 RetryConfig    `yaml:"retry"`
}

type RetryConfig struct {
	Count  int `yaml:"count"`
	WaitMs int `yaml:"waitMs"`
}

type LimitsConfig struct {
	MaxThreads        int     `yaml:"maxThreads"`
	MaxThreadsNoProxy int     `yaml:"maxThreadsNoProxy"`
	PerAccountQPS     float64 `yaml:"perAccountQPS"`
	PerAccountBurst   int     `yaml:"perAccountBurst"`
}

type TimingConfig struct {
	CycleSleepMinutes   int `yaml:"cycleSleepMinutes"`
	StepDelayMs         int `yaml:"stepDelayMs"`
	TaskDelayMs         int `yaml:"taskDelayMs"`
	SellDelayMs         int `yaml:"sellDelayMs"`
	SpeedDelayMs        int `yaml:"speedDelayMs"`
	GameStartDelayMs    int `yaml:"gameStartDelayMs"`
	GameSettleDelayMs   int `yaml:"gameSettleDelayMs"`
	BatchPauseMs        int `yaml:"batchPauseMs"`
	AccountTimeoutHours int `yaml:"accountTimeoutHours"`
	// Random pre-session sleep applied in proxy mode, in seconds.
	StartDelayMinS int `yaml:"startDelayMinS"`
	StartDelayMaxS int `yaml:"startDelayMaxS"`
}

type BotConfig struct {
	AutoTask      bool     `yaml:"autoTask"`
	AutoBuyPet    bool     `yaml:"autoBuyPet"`
	AutoSellPet   bool     `yaml:"autoSellPet"`
	MaxSpeedLevel int      `yaml:"maxSpeedLevel"`
	SkipTasks     []string `yaml:"skipTasks"`
	InviteCode    string   `yaml:"inviteCode"`
}

type StorageConfig struct {
	SQLitePath string `yaml:"sqlitePath"`
}

type ServerConfig struct {
	Addr string     `yaml:"addr"`
	Cors CorsConfig `yaml:"cors"`
}

type CorsConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

type EmailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	SMTPHost string   `yaml:"smtpHost"`
	SMTPPort int      `yaml:"smtpPort"`
	From     string   `yaml:"from"`
	AuthCode string   `yaml:"authCode"`
	To       []string `yaml:"to"`
}

func (c EndpointConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c RetryConfig) Wait() time.Duration {
	if c.WaitMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.WaitMs) * time.Millisecond
}

func (c TimingConfig) CycleSleep() time.Duration {
	if c.CycleSleepMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.CycleSleepMinutes) * time.Minute
}

func (c TimingConfig) StepDelay() time.Duration {
	if c.StepDelayMs <= 0 {
		return 1 * time.Second
	}
	return time.Duration(c.StepDelayMs) * time.Millisecond
}

func (c TimingConfig) TaskDelay() time.Duration {
	if c.TaskDelayMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.TaskDelayMs) * time.Millisecond
}

func (c TimingConfig) SellDelay() time.Duration {
	if c.SellDelayMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.SellDelayMs) * time.Millisecond
}

func (c TimingConfig) SpeedDelay() time.Duration {
	if c.SpeedDelayMs <= 0 {
		return 1 * time.Second
	}
	return time.Duration(c.SpeedDelayMs) * time.Millisecond
}

func (c TimingConfig) GameStartDelay() time.Duration {
	if c.GameStartDelayMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.GameStartDelayMs) * time.Millisecond
}

func (c TimingConfig) GameSettleDelay() time.Duration {
	if c.GameSettleDelayMs <= 0 {
		return 6 * time.Second
	}
	return time.Duration(c.GameSettleDelayMs) * time.Millisecond
}

func (c TimingConfig) BatchPause() time.Duration {
	if c.BatchPauseMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.BatchPauseMs) * time.Millisecond
}

func (c TimingConfig) AccountTimeout() time.Duration {
	if c.AccountTimeoutHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.AccountTimeoutHours) * time.Hour
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Files.Accounts == "" {
		c.Files.Accounts = "./data.txt"
	}
	if c.Files.Proxies == "" {
		c.Files.Proxies = "./proxy.txt"
	}
	if c.Endpoint.GameBaseURL == "" {
		c.Endpoint.GameBaseURL = "https://fire.xname.app"
	}
	if c.Endpoint.CheckURL == "" {
		c.Endpoint.CheckURL = "https://raw.githubusercontent.com/zainarain279/APIs-checking/refs/heads/main/endpoints.json"
	}
	if c.Endpoint.Retry.Count < 0 {
		c.Endpoint.Retry.Count = 0
	}
	if c.Endpoint.Retry.Count == 0 {
		c.Endpoint.Retry.Count = 1
	}
	if c.Limits.MaxThreads <= 0 {
		c.Limits.MaxThreads = 10
	}
	if c.Limits.MaxThreadsNoProxy <= 0 {
		c.Limits.MaxThreadsNoProxy = 10
	}
	if c.Limits.PerAccountQPS <= 0 {
		c.Limits.PerAccountQPS = 1
	}
	if c.Limits.PerAccountBurst <= 0 {
		c.Limits.PerAccountBurst = 2
	}
	if c.Timing.StartDelayMinS <= 0 {
		c.Timing.StartDelayMinS = 1
	}
	if c.Timing.StartDelayMaxS <= 0 {
		c.Timing.StartDelayMaxS = 15
	}
	if c.Bot.MaxSpeedLevel <= 0 {
		c.Bot.MaxSpeedLevel = 10
	}
	if c.Bot.InviteCode == "" {
		c.Bot.InviteCode = "58A11"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./data/xstar_farm.db"
	}
}

func (c Config) validate() error {
	if c.Endpoint.BaseURL == "" && !c.Endpoint.AdvancedAntiDetection {
		return errors.New("endpoint.baseURL is required unless advancedAntiDetection is on")
	}
	if c.Timing.StartDelayMaxS < c.Timing.StartDelayMinS {
		return errors.New("timing.startDelayMaxS must be >= timing.startDelayMinS")
	}
	if c.Email.Enabled {
		if c.Email.SMTPHost == "" || c.Email.From == "" || len(c.Email.To) == 0 {
			return errors.New("email.smtpHost, email.from and email.to are required when email is enabled")
		}
	}
	return nil
}
