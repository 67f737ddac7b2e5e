package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrInvalid marks configuration values that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	FrameSkip          int           `validate:"min=1"` // Co którą klatkę wykrywać (1=każdą, 3=co trzecią)
	WorkerCount        int           `validate:"min=1"` // Liczba workerów detekcji
	CoastingTolerance  int           `validate:"min=0"` // Ile pominiętych detekcji pokazujemy ostatni box
	StressLabels       []string      `validate:"dive,required"`
	MaxPending         int           `validate:"min=1"` // Ile wyników może czekać w buforze kolejności
	TaskTimeout        time.Duration `validate:"min=0"` // 0 = bez limitu
	KeepAllFrames      bool
	Enhance            bool
	DetectorModel      string
	DetectorConfig     string
	DetectionThreshold float64 `validate:"gt=0,lte=1"`
	EmotionModel       string
	EmotionThreshold   float64 `validate:"gte=0,lte=1"`
	OnnxLibrary        string
	OutputCodec        string `validate:"len=4"`
	DatabasePath       string
	PreviewAddr        string
	PreviewToken       string
	LogDirectory       string `validate:"required"`
}

// Load reads an optional .env file and then the environment. Values that are
// present but unparseable are reported instead of silently replaced.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: loading .env: %v", ErrInvalid, err)
	}

	p := &parser{}
	cfg := &Config{
		FrameSkip:          p.getEnvAsInt("FRAME_SKIP", 3),
		WorkerCount:        p.getEnvAsInt("WORKER_COUNT", 4),
		CoastingTolerance:  p.getEnvAsInt("COASTING_TOLERANCE", 10),
		StressLabels:       getEnvAsList("STRESS_LABELS", []string{"fear", "angry", "sad"}),
		MaxPending:         p.getEnvAsInt("MAX_PENDING", 64),
		TaskTimeout:        p.getEnvAsDuration("TASK_TIMEOUT", 0),
		KeepAllFrames:      p.getEnvAsBool("KEEP_ALL_FRAMES", false),
		Enhance:            p.getEnvAsBool("ENHANCE", false),
		DetectorModel:      getEnv("DETECTOR_MODEL", filepath.Join(".", "models", "res10_300x300_ssd_iter_140000.caffemodel")),
		DetectorConfig:     getEnv("DETECTOR_CONFIG", filepath.Join(".", "models", "deploy.prototxt")),
		DetectionThreshold: p.getEnvAsFloat("DETECTION_THRESHOLD", 0.5),
		EmotionModel:       getEnvAllowEmpty("EMOTION_MODEL", filepath.Join(".", "models", "emotion-ferplus-8.onnx")),
		EmotionThreshold:   p.getEnvAsFloat("EMOTION_THRESHOLD", 0.3),
		OnnxLibrary:        getEnv("ONNX_LIBRARY", "libonnxruntime.so"),
		OutputCodec:        getEnv("OUTPUT_CODEC", "mp4v"),
		DatabasePath:       getEnv("DB_PATH", ""),
		PreviewAddr:        getEnv("PREVIEW_ADDR", ""),
		PreviewToken:       getEnv("PREVIEW_TOKEN", ""),
		LogDirectory:       getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// DetectorInstances is the number of detection networks to load. A task that
// hits TaskTimeout leaves its network busy until inference returns, so one
// spare instance keeps the next frames from queueing behind it.
func (c *Config) DetectorInstances() int {
	if c.TaskTimeout > 0 {
		return c.WorkerCount + 1
	}
	return c.WorkerCount
}

var validate = validator.New()

// Validate checks every option against its allowed range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s, got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// parser collects parse errors so that every bad variable is reported at once.
type parser struct {
	errs []error
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty is getEnv for options where an empty value switches the
// feature off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func (p *parser) getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.Atoi(value)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s=%q is not an integer", key, value))
			return defaultValue
		}
		return intValue
	}
	return defaultValue
}

func (p *parser) getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s=%q is not a number", key, value))
			return defaultValue
		}
		return floatValue
	}
	return defaultValue
}

func (p *parser) getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s=%q is not a boolean", key, value))
			return defaultValue
		}
		return boolValue
	}
	return defaultValue
}

func (p *parser) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s=%q is not a duration", key, value))
			return defaultValue
		}
		return d
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return SplitList(value)
}

// SplitList splits a comma separated list, trimming and lower-casing items.
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
