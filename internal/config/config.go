package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string

	CaptureSource string // "device" (local camera) or "udp" (network cameras pushing JPEG)
	CameraDevice  string // device index or capture URL handed to gocv
	CaptureWidth  int
	CaptureHeight int
	CamerasPort   int

	ModelPath           string
	ConfigPath          string
	LabelsPath          string
	ModelOutput         string // "classification" or "ssd"
	ModelInputSize      int
	ConfidenceThreshold float64

	DictionarySource string // "embedded", "file" or "sqlite"
	DictionaryPath   string
	DatabasePath     string

	OCRLanguages []string
	UpdateBuffer int // pending session updates kept per subscriber
	LogDirectory string
}

// Load reads the optional .env file and then the process environment.
func Load() *Config {
	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	return &Config{
		Port:                getEnvAsInt("PORT", 8080),
		Password:            getEnv("PASSWORD", "pantry"),
		CaptureSource:       getEnv("CAPTURE_SOURCE", "device"),
		CameraDevice:        getEnv("CAMERA_DEVICE", "0"),
		CaptureWidth:        getEnvAsInt("CAPTURE_WIDTH", 640),
		CaptureHeight:       getEnvAsInt("CAPTURE_HEIGHT", 480),
		CamerasPort:         getEnvAsInt("CAMERAS_PORT", 8081),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "ingredients.onnx")),
		ConfigPath:          getEnv("CONFIG_PATH", ""),
		LabelsPath:          getEnv("LABELS_PATH", filepath.Join(".", "models", "labels.txt")),
		ModelOutput:         getEnv("MODEL_OUTPUT", "classification"),
		ModelInputSize:      getEnvAsInt("MODEL_INPUT_SIZE", 224),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.8),
		DictionarySource:    getEnv("DICTIONARY_SOURCE", "embedded"),
		DictionaryPath:      getEnv("DICTIONARY_PATH", filepath.Join(".", "data", "ingredients.txt")),
		DatabasePath:        getEnv("DB_PATH", filepath.Join(".", "data", "pantry.db")),
		OCRLanguages:        getEnvAsList("OCR_LANGUAGES", []string{"eng"}),
		UpdateBuffer:        getEnvAsInt("UPDATE_BUFFER", 4),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
