package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32

	// RedisAddr switches admission state to a shared Redis backing store
	// when set; empty keeps the in-process map.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// AdmissionSweepEvery is how often idle admission state is swept.
	AdmissionSweepEvery time.Duration

	// ElevatedActors bypass the ownership check in batch mutations.
	ElevatedActors []string

	BatchCap  int
	DetailCap int
	PageSize  int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("WARDEN_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("WARDEN_LOG_LEVEL", "info"),
		LogFormat: EnvString("WARDEN_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("WARDEN_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("WARDEN_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("WARDEN_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("WARDEN_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("WARDEN_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("WARDEN_DATABASE_URL", ""),
		DBSchema:    EnvString("WARDEN_DB_SCHEMA", "warden"),
		DBMaxConns:  int32(EnvInt("WARDEN_DB_MAX_CONNS", 10)),
		DBMinConns:  int32(EnvInt("WARDEN_DB_MIN_CONNS", 1)),

		RedisAddr:     EnvString("WARDEN_REDIS_ADDR", ""),
		RedisPassword: EnvString("WARDEN_REDIS_PASSWORD", ""),
		RedisDB:       EnvInt("WARDEN_REDIS_DB", 1),

		ReadinessRequireDB: EnvBool("WARDEN_READINESS_REQUIRE_DB", false),

		AdmissionSweepEvery: EnvDuration("WARDEN_ADMISSION_SWEEP_EVERY", 5*time.Minute),

		ElevatedActors: EnvStringList("WARDEN_ELEVATED_ACTORS", nil),

		BatchCap:  EnvInt("WARDEN_BATCH_CAP", 50),
		DetailCap: EnvInt("WARDEN_DETAIL_CAP", 25),
		PageSize:  EnvInt("WARDEN_PAGE_SIZE", 10),
	}
}
