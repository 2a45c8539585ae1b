package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"agronomist/db"
	ahttp "agronomist/http"
	"agronomist/logging"
	"agronomist/ml"
	"agronomist/monitoring"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
		Path  string `yaml:"path"`
	} `yaml:"log"`
	ML struct {
		ModelsDir  string `yaml:"models_dir"`
		SourcePath string `yaml:"source_path"`
	} `yaml:"ml"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger := logging.New(config.Log.Level, config.Log.Path)
	defer logger.Sync()

	// 3. Initialize database
	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	// 4. Model registry, trainer and predictor
	registry, err := ml.NewRegistry(config.ML.ModelsDir, logger)
	if err != nil {
		logger.Fatal("registry init failed", zap.Error(err))
	}
	defer registry.Close()
	if err := registry.Watch(); err != nil {
		logger.Warn("artifact watcher unavailable", zap.Error(err))
	}

	trainer := ml.NewTrainer(registry, config.ML.SourcePath, logger)
	predictor := ml.NewPredictor(registry, trainer, logger)

	// 5. Event hub
	hub := monitoring.NewHub(logger)
	go hub.Run()
	hub.StartHeartbeat(30 * time.Second)
	defer hub.Stop()

	// 6. HTTP server
	serverConfig := ahttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds != 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) != 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	api := ahttp.NewAPI(trainer, predictor, registry, hub, logger)
	server := ahttp.NewServer(serverConfig, api, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	hub.PublishStatus(monitoring.StatusEvent{Component: "server", Status: "started"})

	// 7. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
