package config

import (
	"errors"
	"strings"

	"github.com/lottoml/lotto-engine/internal/ml"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	MongoDB    MongoDBConfig
	JWT        JWTConfig
	Admin      AdminConfig
	Feed       FeedConfig
	ML         MLConfig
	Simulation SimulationConfig
	Scheduler  SchedulerConfig
	RateLimit  RateLimitConfig
	LogLevel   string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Mode         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration. An empty Secret leaves the
// admin routes open.
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// AdminConfig holds the credentials accepted by the login route. An empty
// PasswordHash disables login.
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// FeedConfig holds publisher feed configuration
type FeedConfig struct {
	BaseURL           string
	PageURL           string
	CurrentDrawNo     int
	MockAPI           bool
	RequestsPerSecond float64
	TimeoutSeconds    int
}

// MLConfig holds model hyperparameters
type MLConfig struct {
	ml.Config      `mapstructure:",squash"`
	TrainOnStartup bool
	RetrainOnSync  bool
}

// SimulationConfig holds Monte-Carlo engine configuration
type SimulationConfig struct {
	Workers   int
	BatchSize int
	// ReferenceDrawNo pins the graded draw; 0 uses the latest archived draw
	ReferenceDrawNo int
	MaxJobs         int
}

// SchedulerConfig holds the periodic sync schedule
type SchedulerConfig struct {
	Enabled  bool
	SyncSpec string
	Timezone string
}

// RateLimitConfig bounds requests per client on the simulation routes
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// An explicitly empty variable overrides the default, e.g. MONGODB_URI= selects in-memory storage
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "8000")
	v.SetDefault("Server.Mode", "release")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "lotto")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	v.SetDefault("Admin.Username", "admin")
	v.SetDefault("Admin.PasswordHash", "")
	v.SetDefault("LogLevel", "info")

	v.SetDefault("Feed.BaseURL", "https://www.dhlottery.co.kr/common.do")
	v.SetDefault("Feed.PageURL", "https://www.dhlottery.co.kr/gameResult.do?method=byWin")
	v.SetDefault("Feed.CurrentDrawNo", 0)
	v.SetDefault("Feed.MockAPI", false)
	v.SetDefault("Feed.RequestsPerSecond", 5.0)
	v.SetDefault("Feed.TimeoutSeconds", 10)

	d := ml.DefaultConfig()
	v.SetDefault("ML.forest.trees", d.Forest.Trees)
	v.SetDefault("ML.forest.max_depth", d.Forest.MaxDepth)
	v.SetDefault("ML.forest.max_features", d.Forest.MaxFeatures)
	v.SetDefault("ML.forest.min_samples_leaf", d.Forest.MinSamplesLeaf)
	v.SetDefault("ML.boosting.stages", d.Boosting.Stages)
	v.SetDefault("ML.boosting.max_depth", d.Boosting.MaxDepth)
	v.SetDefault("ML.boosting.learning_rate", d.Boosting.LearningRate)
	v.SetDefault("ML.boosting.min_samples_leaf", d.Boosting.MinSamplesLeaf)
	v.SetDefault("ML.network.hidden", d.Network.Hidden)
	v.SetDefault("ML.network.max_epochs", d.Network.MaxEpochs)
	v.SetDefault("ML.network.batch_size", d.Network.BatchSize)
	v.SetDefault("ML.network.learning_rate", d.Network.LearningRate)
	v.SetDefault("ML.network.alpha", d.Network.Alpha)
	v.SetDefault("ML.network.patience", d.Network.Patience)
	v.SetDefault("ML.network.tol", d.Network.Tol)
	v.SetDefault("ML.test_fraction", d.TestFraction)
	v.SetDefault("ML.seed", d.Seed)
	v.SetDefault("ML.TrainOnStartup", false)
	v.SetDefault("ML.RetrainOnSync", false)

	v.SetDefault("Simulation.Workers", 0)
	v.SetDefault("Simulation.BatchSize", 65536)
	v.SetDefault("Simulation.ReferenceDrawNo", 0)
	v.SetDefault("Simulation.MaxJobs", 16)

	v.SetDefault("Scheduler.Enabled", false)
	v.SetDefault("Scheduler.SyncSpec", "0 21 * * 6")
	v.SetDefault("Scheduler.Timezone", "Asia/Seoul")

	v.SetDefault("RateLimit.RequestsPerSecond", 2.0)
	v.SetDefault("RateLimit.Burst", 5)
}
