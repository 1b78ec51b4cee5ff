package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/scrumdinger/go/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var ErrScrumNotFound = errors.New("scrum not found")

// Config holds runtime settings read from the environment.
type Config struct {
	LogLevel   string
	LogFormat  string // "console" or "json"
	ScrumsFile string
	TickHz     int
}

// NewConfigFromEnv reads settings from the environment (with defaults).
// A .env file in the working directory is loaded first if present.
func NewConfigFromEnv() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	return Config{
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "console"),
		ScrumsFile: getEnv("SCRUMDINGER_SCRUMS_FILE", ""),
		TickHz:     getEnvAsInt("SCRUMDINGER_TICK_HZ", 60),
	}
}

// TickFrequency converts TickHz to a ticker interval.
func (c Config) TickFrequency() time.Duration {
	if c.TickHz <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickHz)
}

// SetupLogging configures the global zerolog logger.
func (c Config) SetupLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.LogFormat != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

type scrumsFile struct {
	Scrums []scrumEntry `yaml:"scrums"`
}

type scrumEntry struct {
	Title           string   `yaml:"title"`
	LengthInMinutes int      `yaml:"length_in_minutes"`
	Theme           string   `yaml:"theme"`
	Attendees       []string `yaml:"attendees"`
}

// LoadScrums reads scrum definitions from a YAML file. An empty path
// yields the sample scrums.
func LoadScrums(path string) ([]models.DailyScrum, error) {
	if path == "" {
		return models.SampleData(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scrums file: %w", err)
	}
	return ParseScrums(data)
}

// ParseScrums decodes the YAML scrums document.
func ParseScrums(data []byte) ([]models.DailyScrum, error) {
	var file scrumsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scrums: %w", err)
	}

	scrums := make([]models.DailyScrum, 0, len(file.Scrums))
	for i, entry := range file.Scrums {
		theme := models.ThemeSeafoam
		if entry.Theme != "" {
			parsed, err := models.ParseTheme(entry.Theme)
			if err != nil {
				return nil, fmt.Errorf("scrum %d (%q): %w", i, entry.Title, err)
			}
			theme = parsed
		}
		if entry.LengthInMinutes < 0 {
			return nil, fmt.Errorf("scrum %d (%q): length must not be negative", i, entry.Title)
		}
		scrums = append(scrums, models.NewDailyScrum(entry.Title, entry.Attendees, entry.LengthInMinutes, theme))
	}
	return scrums, nil
}

// FindScrum looks a scrum up by title, ignoring case.
func FindScrum(scrums []models.DailyScrum, title string) (models.DailyScrum, error) {
	for _, s := range scrums {
		if strings.EqualFold(s.Title, strings.TrimSpace(title)) {
			return s, nil
		}
	}
	return models.DailyScrum{}, fmt.Errorf("%w: %q", ErrScrumNotFound, title)
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
