// Package config loads service and solver settings from an optional YAML
// file, then lets environment variables override them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"carpsolver/internal/opt"
)

type Config struct {
	Solver   Solver   `yaml:"solver" json:"solver"`
	Server   Server   `yaml:"server" json:"server"`
	Store    Store    `yaml:"store" json:"store"`
	Broker   Broker   `yaml:"broker" json:"broker"`
	Auth     Auth     `yaml:"auth" json:"-"`
	Webhooks Webhooks `yaml:"webhooks" json:"webhooks"`
	Log      Log      `yaml:"log" json:"log"`
}

type Solver struct {
	Termination       time.Duration `yaml:"termination" json:"termination"`
	Seed              int64         `yaml:"seed" json:"seed"`
	Workers           int           `yaml:"workers" json:"workers"`
	MaxWorkers        int           `yaml:"maxWorkers" json:"maxWorkers"`
	SafetyMargin      time.Duration `yaml:"safetyMargin" json:"safetyMargin"`
	WorkerMargin      time.Duration `yaml:"workerMargin" json:"workerMargin"`
	Mode              string        `yaml:"mode" json:"mode"`
	Schedule          opt.Schedule  `yaml:"schedule" json:"schedule"`
	AnnealSlice       time.Duration `yaml:"annealSlice" json:"annealSlice"`
	AnnealAttempts    int           `yaml:"annealAttempts" json:"annealAttempts"`
	IntensifyAttempts int           `yaml:"intensifyAttempts" json:"intensifyAttempts"`
	CheckEvery        int           `yaml:"checkEvery" json:"checkEvery"`
}

type Server struct {
	Port            string        `yaml:"port" json:"port"`
	RateRPS         float64       `yaml:"rateRps" json:"rateRps"`
	RateBurst       int           `yaml:"rateBurst" json:"rateBurst"`
	MaxTermination  time.Duration `yaml:"maxTermination" json:"maxTermination"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
}

type Store struct {
	DatabaseURL string `yaml:"databaseUrl" json:"-"`
	SQLitePath  string `yaml:"sqlitePath" json:"sqlitePath"`
}

type Broker struct {
	RedisURL string `yaml:"redisUrl" json:"-"`
}

type Auth struct {
	Mode       string `yaml:"mode"`
	HMACSecret string `yaml:"hmacSecret"`
}

type Webhooks struct {
	MaxAttempts int           `yaml:"maxAttempts" json:"maxAttempts"`
	Interval    time.Duration `yaml:"interval" json:"interval"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

type Log struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Solver: Solver{
			Termination:       30 * time.Second,
			Seed:              1,
			MaxWorkers:        opt.DefaultMaxWorkers,
			SafetyMargin:      opt.DefaultSafetyMargin,
			WorkerMargin:      opt.DefaultWorkerMargin,
			Mode:              string(opt.ModeAnnealIntensify),
			Schedule:          opt.Schedule{Initial: opt.DefaultInitialTemp, Floor: opt.DefaultFloorTemp},
			AnnealSlice:       opt.DefaultAnnealSlice,
			IntensifyAttempts: opt.DefaultIntensifyAttempts,
			CheckEvery:        opt.DefaultCheckEvery,
		},
		Server: Server{
			Port:            "8080",
			RateRPS:         2,
			RateBurst:       4,
			MaxTermination:  5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth:     Auth{Mode: "dev"},
		Webhooks: Webhooks{MaxAttempts: 10, Interval: time.Second, Timeout: 5 * time.Second},
		Log:      Log{Level: "info"},
	}
}

// Load reads defaults, then the YAML file at path when non-empty, then
// the environment.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := c.ApplyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Server.Port)
	str("DATABASE_URL", &c.Store.DatabaseURL)
	str("SQLITE_PATH", &c.Store.SQLitePath)
	str("REDIS_URL", &c.Broker.RedisURL)
	str("AUTH_MODE", &c.Auth.Mode)
	str("AUTH_HMAC_SECRET", &c.Auth.HMACSecret)
	str("CARP_MODE", &c.Solver.Mode)
	str("LOG_LEVEL", &c.Log.Level)

	ints := []struct {
		key string
		dst *int
	}{
		{"RATE_BURST", &c.Server.RateBurst},
		{"WEBHOOK_MAX_ATTEMPTS", &c.Webhooks.MaxAttempts},
		{"CARP_WORKERS", &c.Solver.Workers},
		{"CARP_MAX_WORKERS", &c.Solver.MaxWorkers},
		{"CARP_INTENSIFY_ATTEMPTS", &c.Solver.IntensifyAttempts},
	}
	for _, e := range ints {
		if v := os.Getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.Server.RateRPS = f
	}
	if v := os.Getenv("CARP_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CARP_SEED: %w", err)
		}
		c.Solver.Seed = n
	}
	if v := os.Getenv("CARP_TERMINATION"); v != "" {
		d, err := ParseSeconds(v)
		if err != nil {
			return fmt.Errorf("CARP_TERMINATION: %w", err)
		}
		c.Solver.Termination = d
	}
	return nil
}

// Validate rejects settings the solver or server cannot run with.
func (c Config) Validate() error {
	if _, err := opt.ParseMode(c.Solver.Mode); err != nil {
		return err
	}
	if c.Solver.Schedule.Initial < c.Solver.Schedule.Floor || c.Solver.Schedule.Floor < 0 {
		return fmt.Errorf("schedule: need 0 <= floor <= initial, got %v..%v", c.Solver.Schedule.Floor, c.Solver.Schedule.Initial)
	}
	if c.Solver.Workers < 0 || c.Solver.MaxWorkers < 0 {
		return fmt.Errorf("worker counts must be >= 0")
	}
	if c.Server.RateRPS < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("rate limits must be >= 0")
	}
	return nil
}

// Options converts solver settings for a run with the given termination
// time and seed.
func (s Solver) Options(termination time.Duration, seed int64) opt.Options {
	mode, _ := opt.ParseMode(s.Mode)
	return opt.Options{
		Termination:  termination,
		Seed:         seed,
		Workers:      s.Workers,
		MaxWorkers:   s.MaxWorkers,
		SafetyMargin: s.SafetyMargin,
		WorkerMargin: s.WorkerMargin,
		Mode:         mode,
		AnnealSlice:  s.AnnealSlice,
		Annealer: opt.Annealer{
			Schedule:          s.Schedule,
			MaxAttempts:       s.AnnealAttempts,
			IntensifyAttempts: s.IntensifyAttempts,
			CheckEvery:        s.CheckEvery,
		},
	}
}

// ParseSeconds reads a duration given either as seconds ("2.5") or in Go
// duration syntax ("2500ms").
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
