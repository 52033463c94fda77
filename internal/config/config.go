package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendBeep  = "beep"
	BackendMpris = "mpris"

	DefaultMprisService = "org.mpris.MediaPlayer2.vlc"
	DefaultSearchLimit  = 20
	MaxSearchLimit      = 50
	DefaultCacheTTL     = 24 * time.Hour
	HTTPTimeoutSeconds  = 10
	PositionInterval    = 250 * time.Millisecond
	FrameInterval       = 100 * time.Millisecond
	SeekStepSeconds     = 5.0
	PaletteSize         = 4
)

type Config struct {
	SpotifyClientID     string
	SpotifyClientSecret string
	SearchLimit         int
	AudioBackend        string
	MprisService        string
	LogFile             string
	LogLevel            string
	OverlayPath         string
	CacheTTL            time.Duration
	NoCache             bool
}

// LoadDotEnv reads .env from the working directory if present. Variables
// already set in the environment win.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

func Load() *Config {
	return &Config{
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SearchLimit:         getSearchLimit(),
		AudioBackend:        getAudioBackend(),
		MprisService:        getEnvOrDefault("MPRIS_SERVICE", DefaultMprisService),
		LogFile:             getEnvOrDefault("CHROMAPLAY_LOG_FILE", defaultLogFile()),
		LogLevel:            getEnvOrDefault("CHROMAPLAY_LOG_LEVEL", "info"),
		OverlayPath:         os.Getenv("CHROMAPLAY_OVERLAY_PATH"),
		CacheTTL:            getCacheTTL(),
		NoCache:             getBool("CHROMAPLAY_NO_CACHE"),
	}
}

func (c *Config) HasSpotifyCredentials() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

func getSearchLimit() int {
	limitStr := os.Getenv("CHROMAPLAY_SEARCH_LIMIT")
	if limitStr == "" {
		return DefaultSearchLimit
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

func getAudioBackend() string {
	backend := strings.ToLower(getEnvOrDefault("CHROMAPLAY_AUDIO_BACKEND", BackendBeep))
	if backend != BackendMpris {
		return BackendBeep
	}
	return backend
}

func getCacheTTL() time.Duration {
	hoursStr := os.Getenv("CHROMAPLAY_CACHE_TTL_HOURS")
	if hoursStr == "" {
		return DefaultCacheTTL
	}
	hours, err := strconv.ParseFloat(hoursStr, 64)
	if err != nil || hours <= 0 {
		return DefaultCacheTTL
	}
	return time.Duration(hours * float64(time.Hour))
}

func getBool(key string) bool {
	value := strings.ToLower(os.Getenv(key))
	return value == "1" || value == "true" || value == "yes"
}

func defaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "chromaplay", "chromaplay.log")
}

func getEnvOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
