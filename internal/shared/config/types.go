// Package config defines the shared configuration structures used across
// the engine. Values are populated by the infrastructure config loader.
package config

import "fmt"

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	Mode       string `mapstructure:"mode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// EngineConfig tunes the entitlement engine itself.
type EngineConfig struct {
	// JobWorkers is the number of concurrent async job executors.
	JobWorkers int `mapstructure:"job_workers"`
	// OrphanSweepMinutes is the interval between orphaned product/content
	// version garbage collection sweeps.
	OrphanSweepMinutes int `mapstructure:"orphan_sweep_minutes"`
	// PoolSweepMinutes is the interval between expired pool sweeps.
	PoolSweepMinutes int `mapstructure:"pool_sweep_minutes"`
	// ContentAccessCacheTTLMinutes bounds how long generated content access
	// payloads are served from cache before being rebuilt.
	ContentAccessCacheTTLMinutes int `mapstructure:"content_access_cache_ttl_minutes"`
}
