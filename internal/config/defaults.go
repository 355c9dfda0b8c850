package config

import "time"

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.EnvFile == "" {
		cfg.EnvFile = "./.env"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 200
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 10 * time.Minute
	}

	applyService(&cfg.Services.Transcription, openAIBaseURL, "whisper-1", "OPENAI_API_KEY", 5*time.Minute, 0, 0)
	applyService(&cfg.Services.Diagnosis, openAIBaseURL, "gpt-4o-mini", "OPENAI_API_KEY", 3*time.Minute, 0.2, 6000)
	applyService(&cfg.Services.Chat.ServiceConfig, openAIBaseURL, "gpt-4o-mini", "OPENAI_API_KEY", 2*time.Minute, 0.3, 2000)
	applyService(&cfg.Services.OCR.ServiceConfig, openRouterBaseURL, "qwen/qwen-2.5-vl-7b-instruct", "OPENROUTER_API_KEY", 60*time.Second, 0.1, 3000)
	if cfg.Services.Chat.HistoryWindow == 0 {
		cfg.Services.Chat.HistoryWindow = 5
	}
	if cfg.Services.Chat.SourceContextChars == 0 {
		cfg.Services.Chat.SourceContextChars = 3000
	}
	if cfg.Services.OCR.MaxImageDimension == 0 {
		cfg.Services.OCR.MaxImageDimension = 2048
	}
	if cfg.Services.OCR.Title == "" {
		cfg.Services.OCR.Title = "Medical Diagnostic Tool"
	}

	if cfg.Audio.ChunkThresholdMB == 0 {
		cfg.Audio.ChunkThresholdMB = 24
	}
	if cfg.Audio.SegmentMinutes == 0 {
		cfg.Audio.SegmentMinutes = 10
	}
	if cfg.Audio.FFmpegPath == "" {
		cfg.Audio.FFmpegPath = "ffmpeg"
	}

	if cfg.Uploads.Audio == nil {
		cfg.Uploads.Audio = []string{".mp3", ".wav", ".m4a", ".mp4", ".mpeg", ".mpga", ".ogg", ".webm", ".flac"}
	}
	if cfg.Uploads.Images == nil {
		cfg.Uploads.Images = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}
	}
	if cfg.Uploads.Documents == nil {
		cfg.Uploads.Documents = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".txt", ".md"}
	}

	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = 2 * time.Hour
	}
	if cfg.Sessions.CleanupInterval == 0 {
		cfg.Sessions.CleanupInterval = 10 * time.Minute
	}

	if cfg.Archive.DatabasePath == "" {
		cfg.Archive.DatabasePath = "/usr/local/var/medscribe/data/db/reports.db"
	}
	if cfg.Archive.IndexPath == "" {
		cfg.Archive.IndexPath = "/usr/local/var/medscribe/data/indices/reports.bleve"
	}
}

func applyService(s *ServiceConfig, baseURL, model, keyEnv string, timeout time.Duration, temp float32, maxTokens int) {
	if s.BaseURL == "" {
		s.BaseURL = baseURL
	}
	if s.Model == "" {
		s.Model = model
	}
	if s.APIKeyEnv == "" {
		s.APIKeyEnv = keyEnv
	}
	if s.Timeout == 0 {
		s.Timeout = timeout
	}
	if s.Temperature == nil {
		s.Temperature = &temp
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = maxTokens
	}
}
