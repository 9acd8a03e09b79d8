package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"news-shorts-pipeline/types"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "NEWS_SHORTS_CONFIG"
	unsplashKeyEnv    = "UNSPLASH_ACCESS_KEY"
	giphyKeyEnv       = "GIPHY_API_KEY"
	openAIKeyEnv      = "OPENAI_API_KEY"
	youtubeIDEnv      = "YOUTUBE_CLIENT_ID"
	youtubeSecretEnv  = "YOUTUBE_CLIENT_SECRET"
	youtubeRefreshEnv = "YOUTUBE_REFRESH_TOKEN"
	ttsCommandEnv     = "TTS_COMMAND"

	DefaultPath = "config.yaml"
)

// placeholders are values shipped in templates that must be replaced
var placeholders = map[string]bool{
	"":                      true,
	"YOUR_ACCESS_KEY_HERE":  true,
	"YOUR_API_KEY_HERE":     true,
	"changeme":              true,
	"<unsplash-access-key>": true,
}

var ErrNoSegments = errors.New("no segments configured")

type Config struct {
	Segments    []types.Segment   `yaml:"segments"`
	Rotation    RotationConfig    `yaml:"rotation"`
	Research    ResearchConfig    `yaml:"research"`
	Visuals     VisualsConfig     `yaml:"visuals"`
	Canvas      CanvasConfig      `yaml:"canvas"`
	Audio       AudioConfig       `yaml:"audio"`
	Render      RenderConfig      `yaml:"render"`
	Outro       OutroConfig       `yaml:"outro"`
	Metadata    MetadataConfig    `yaml:"metadata"`
	NLP         NLPConfig         `yaml:"nlp"`
	Upload      UploadConfig      `yaml:"upload"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	History     HistoryConfig     `yaml:"history"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Paths       PathsConfig       `yaml:"paths"`
	Credentials CredentialsConfig `yaml:"-"`
}

type RotationConfig struct {
	// ResetTo names the segment used when the cursor is absent or unknown.
	// Empty means the first configured segment.
	ResetTo string `yaml:"reset_to"`
}

type ResearchConfig struct {
	HeadlinesLimit int           `yaml:"headlines_limit"`
	PerSourceLimit int           `yaml:"per_source_limit"`
	MinSummaryLen  int           `yaml:"min_summary_len"`
	MaxSummaryLen  int           `yaml:"max_summary_len"`
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	JunkPatterns   []string      `yaml:"junk_patterns"`
}

type VisualsConfig struct {
	// Stages is the fallback order of image sources, first match wins
	Stages             []string      `yaml:"stages"`
	PageTimeout        time.Duration `yaml:"page_timeout"`
	BrowserEnabled     bool          `yaml:"browser_enabled"`
	BrowserTimeout     time.Duration `yaml:"browser_timeout"`
	BrowserConcurrency int           `yaml:"browser_concurrency"`
	ChromePath         string        `yaml:"chrome_path"`
	MinImageWidth      int           `yaml:"min_image_width"`
	MinImageHeight     int           `yaml:"min_image_height"`
	ImageSelectors     []string      `yaml:"image_selectors"`
	StockOrientation   string        `yaml:"stock_orientation"`
	MaxQueryTerms      int           `yaml:"max_query_terms"`
	MaxDownloadBytes   int64         `yaml:"max_download_bytes"`
}

type CanvasConfig struct {
	Width          int      `yaml:"width"`
	Height         int      `yaml:"height"`
	TextAreaHeight int      `yaml:"text_area_height"`
	Background     string   `yaml:"background"`
	FontPath       string   `yaml:"font_path"`
	FontCandidates []string `yaml:"font_candidates"`
	BuiltinFont    bool     `yaml:"builtin_font_fallback"`
	HeadlineSize   float64  `yaml:"headline_size"`
	HeadlineWidth  int      `yaml:"headline_width"`
	HeadlineColor  string   `yaml:"headline_color"`
	HeadlineTop    int      `yaml:"headline_top"`
	SummarySize    float64  `yaml:"summary_size"`
	SummaryWidth   int      `yaml:"summary_width"`
	SummaryColor   string   `yaml:"summary_color"`
	SummaryGap     int      `yaml:"summary_gap"`
	LineSpacing    float64  `yaml:"line_spacing"`
	IncludeSummary bool     `yaml:"include_summary"`
}

type AudioConfig struct {
	Voice           string        `yaml:"voice"`
	MinClipDuration float64       `yaml:"min_clip_duration"`
	Slack           float64       `yaml:"slack"`
	Retries         int           `yaml:"retries"`
	Timeout         time.Duration `yaml:"timeout"`
	TTSCommand      string        `yaml:"tts_command"`
}

type RenderConfig struct {
	FPS          int           `yaml:"fps"`
	ZoomCeiling  float64       `yaml:"zoom_ceiling"`
	Motions      []string      `yaml:"motions"`
	VideoCodec   string        `yaml:"video_codec"`
	AudioCodec   string        `yaml:"audio_codec"`
	AudioBitrate string        `yaml:"audio_bitrate"`
	Preset       string        `yaml:"preset"`
	Timeout      time.Duration `yaml:"timeout"`
}

type OutroConfig struct {
	Enabled   bool     `yaml:"enabled"`
	GIFPath   string   `yaml:"gif_path"`
	Narration string   `yaml:"narration"`
	Duration  float64  `yaml:"duration"`
	Lines     []string `yaml:"lines"`
	GIFWidth  int      `yaml:"gif_width"`
}

type MetadataConfig struct {
	MaxBuzzwords     int      `yaml:"max_buzzwords"`
	ClosingBuzzwords int      `yaml:"closing_buzzwords"`
	StaticHashtags   []string `yaml:"static_hashtags"`
	DescriptionFile  string   `yaml:"description_file"`
}

type NLPConfig struct {
	// Engine is "heuristic" or "openai"
	Engine         string        `yaml:"engine"`
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url"`
	MinTokenLen    int           `yaml:"min_token_len"`
	Timeout        time.Duration `yaml:"timeout"`
	ExtraStopwords []string      `yaml:"extra_stopwords"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	DefaultLanguage   string `yaml:"default_language"`
}

type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

type HistoryConfig struct {
	// Backend is "file" (one URL per line) or "sqlite"
	Backend string `yaml:"backend"`
}

type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

type PathsConfig struct {
	History     string `yaml:"history"`
	HistoryDB   string `yaml:"history_db"`
	LastSegment string `yaml:"last_segment"`
	Output      string `yaml:"output"`
	Work        string `yaml:"work"`
	Logs        string `yaml:"logs"`
	State       string `yaml:"state"`
}

// CredentialsConfig is populated from the environment only
type CredentialsConfig struct {
	UnsplashAccessKey   string
	GiphyAPIKey         string
	OpenAIAPIKey        string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
}

// Load reads config.yaml, fills defaults and applies environment overrides
func Load(path string) (*Config, error) {
	// Load .env (local dev only)
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a Config with defaults and env overrides applied
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.fillZeroes()
	return cfg, nil
}

// WriteTemplate creates a starter config at path. It refuses to overwrite.
func WriteTemplate(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// Validate fails fast on anything that would make a run pointless
func (c *Config) Validate() error {
	if len(c.Segments) == 0 {
		return ErrNoSegments
	}
	seen := make(map[string]bool)
	for _, seg := range c.Segments {
		if strings.TrimSpace(seg.Name) == "" {
			return fmt.Errorf("segment with empty name")
		}
		if seen[seg.Name] {
			return fmt.Errorf("duplicate segment %q", seg.Name)
		}
		seen[seg.Name] = true
		for _, src := range seg.Sources {
			switch src.Kind {
			case types.KindFeed, types.KindCustom, types.KindReddit:
			default:
				return fmt.Errorf("segment %q source %q: unknown kind %q", seg.Name, src.Name, src.Kind)
			}
		}
	}
	if c.Rotation.ResetTo != "" && !seen[c.Rotation.ResetTo] {
		return fmt.Errorf("rotation.reset_to %q is not a configured segment", c.Rotation.ResetTo)
	}
	if IsPlaceholder(c.Credentials.UnsplashAccessKey) {
		return fmt.Errorf("%s not set (or still a placeholder)", unsplashKeyEnv)
	}
	if c.NLP.Engine == "openai" && IsPlaceholder(c.Credentials.OpenAIAPIKey) {
		return fmt.Errorf("nlp.engine is openai but %s not set", openAIKeyEnv)
	}
	if c.Upload.Enabled && (c.Credentials.YouTubeClientID == "" || c.Credentials.YouTubeClientSecret == "" || c.Credentials.YouTubeRefreshToken == "") {
		return fmt.Errorf("upload enabled but %s, %s or %s not set", youtubeIDEnv, youtubeSecretEnv, youtubeRefreshEnv)
	}
	switch c.History.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
	if c.Render.ZoomCeiling <= 1.0 {
		return fmt.Errorf("render.zoom_ceiling must be > 1.0, got %.3f", c.Render.ZoomCeiling)
	}
	if c.Canvas.TextAreaHeight >= c.Canvas.Height {
		return fmt.Errorf("canvas.text_area_height (%d) must be below canvas.height (%d)", c.Canvas.TextAreaHeight, c.Canvas.Height)
	}
	return nil
}

// IsPlaceholder reports whether a credential is missing or a template value
func IsPlaceholder(v string) bool {
	return placeholders[strings.TrimSpace(v)]
}

// SegmentNames returns the configured rotation order
func (c *Config) SegmentNames() []string {
	names := make([]string, len(c.Segments))
	for i, s := range c.Segments {
		names[i] = s.Name
	}
	return names
}

func (c *Config) applyEnv() {
	c.Credentials = CredentialsConfig{
		UnsplashAccessKey:   os.Getenv(unsplashKeyEnv),
		GiphyAPIKey:         os.Getenv(giphyKeyEnv),
		OpenAIAPIKey:        os.Getenv(openAIKeyEnv),
		YouTubeClientID:     os.Getenv(youtubeIDEnv),
		YouTubeClientSecret: os.Getenv(youtubeSecretEnv),
		YouTubeRefreshToken: os.Getenv(youtubeRefreshEnv),
	}
	if v := os.Getenv(ttsCommandEnv); v != "" {
		c.Audio.TTSCommand = v
	}
}

// fillZeroes restores defaults for numeric fields explicitly zeroed in YAML
func (c *Config) fillZeroes() {
	d := Default()
	if c.Research.HeadlinesLimit <= 0 {
		c.Research.HeadlinesLimit = d.Research.HeadlinesLimit
	}
	if c.Research.Timeout <= 0 {
		c.Research.Timeout = d.Research.Timeout
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = d.Render.FPS
	}
	if len(c.Visuals.Stages) == 0 {
		c.Visuals.Stages = d.Visuals.Stages
	}
	if len(c.Render.Motions) == 0 {
		c.Render.Motions = d.Render.Motions
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 1
	}
	if c.Visuals.BrowserConcurrency <= 0 {
		c.Visuals.BrowserConcurrency = 1
	}
	if c.History.Backend == "" {
		c.History.Backend = "file"
	}
	if c.NLP.Engine == "" {
		c.NLP.Engine = "heuristic"
	}
}

// Default returns the tuned defaults for a 1080x1920 short
func Default() *Config {
	return &Config{
		Segments: []types.Segment{
			{Name: "Top Stories", Sources: []types.Source{
				{Name: "The Leading Report", URL: "https://theleadingreport.com/", Kind: types.KindCustom},
				{Name: "Associated Press", URL: "https://storage.googleapis.com/afs-prod/feeds/topnews.xml", Kind: types.KindFeed},
				{Name: "Reuters Top News", URL: "http://feeds.reuters.com/reuters/topNews", Kind: types.KindFeed},
				{Name: "NPR News", URL: "https://feeds.npr.org/1001/rss.xml", Kind: types.KindFeed},
			}},
			{Name: "Political", Sources: []types.Source{
				{Name: "The Leading Report", URL: "https://theleadingreport.com/", Kind: types.KindCustom},
				{Name: "Reuters Politics", URL: "http://feeds.reuters.com/reuters/politicsNews", Kind: types.KindFeed},
				{Name: "Politico", URL: "https://rss.politico.com/politico.xml", Kind: types.KindFeed},
				{Name: "The Hill", URL: "https://thehill.com/rss/syndicator/19109", Kind: types.KindFeed},
			}},
			{Name: "US National", Sources: []types.Source{
				{Name: "Reuters US News", URL: "http://feeds.reuters.com/reuters/domesticNews", Kind: types.KindFeed},
				{Name: "NPR National News", URL: "https://feeds.npr.org/1003/rss.xml", Kind: types.KindFeed},
				{Name: "Associated Press US", URL: "https://storage.googleapis.com/afs-prod/feeds/usnews.xml", Kind: types.KindFeed},
			}},
		},
		Research: ResearchConfig{
			HeadlinesLimit: 4,
			PerSourceLimit: 10,
			MinSummaryLen:  50,
			MaxSummaryLen:  600,
			Timeout:        15 * time.Second,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
			JunkPatterns: []string{
				`\[\s*\+\s*video\s*\]`,
				`(?i)\b(continue reading|read more)\b.*`,
				`<img.*?>`,
			},
		},
		Visuals: VisualsConfig{
			Stages:             []string{"page-metadata-image", "in-page-search", "stock-search"},
			PageTimeout:        15 * time.Second,
			BrowserEnabled:     true,
			BrowserTimeout:     45 * time.Second,
			BrowserConcurrency: 1,
			MinImageWidth:      300,
			MinImageHeight:     200,
			ImageSelectors:     []string{"article img", "figure img", "main img", ".entry-content img", "img"},
			StockOrientation:   "portrait",
			MaxQueryTerms:      5,
			MaxDownloadBytes:   10 * 1024 * 1024,
		},
		Canvas: CanvasConfig{
			Width:          1080,
			Height:         1920,
			TextAreaHeight: 1100,
			Background:     "#181818",
			FontCandidates: []string{
				"/usr/share/fonts/truetype/msttcorefonts/Arial.ttf",
				"/Library/Fonts/Arial.ttf",
				"/System/Library/Fonts/Helvetica.ttc",
				"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
				"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			},
			BuiltinFont:    true,
			HeadlineSize:   90,
			HeadlineWidth:  980,
			HeadlineColor:  "#FFFFFF",
			HeadlineTop:    150,
			SummarySize:    60,
			SummaryWidth:   950,
			SummaryColor:   "#CCCCCC",
			SummaryGap:     60,
			LineSpacing:    1.2,
			IncludeSummary: true,
		},
		Audio: AudioConfig{
			Voice:           "en-US-AriaNeural",
			MinClipDuration: 5,
			Slack:           1.5,
			Retries:         3,
			Timeout:         90 * time.Second,
		},
		Render: RenderConfig{
			FPS:          24,
			ZoomCeiling:  1.08,
			Motions:      []string{"center", "pan-right", "pan-left", "pan-down", "pan-up", "corner-top-left", "corner-bottom-right"},
			VideoCodec:   "libx264",
			AudioCodec:   "aac",
			AudioBitrate: "192k",
			Preset:       "fast",
			Timeout:      10 * time.Minute,
		},
		Outro: OutroConfig{
			Enabled:   true,
			GIFPath:   "snap_feed.gif",
			Narration: "Please like and subscribe.",
			Duration:  4,
			Lines:     []string{"LIKE", "& SUBSCRIBE"},
			GIFWidth:  450,
		},
		Metadata: MetadataConfig{
			MaxBuzzwords:     12,
			ClosingBuzzwords: 3,
			StaticHashtags:   []string{"#News", "#DailyNews", "#BreakingNews"},
			DescriptionFile:  "video_description.txt",
		},
		NLP: NLPConfig{
			Engine:      "heuristic",
			Model:       "gpt-4.1-mini",
			MinTokenLen: 4,
			Timeout:     30 * time.Second,
		},
		Upload: UploadConfig{
			Visibility:      "private",
			CategoryID:      "25",
			DefaultLanguage: "en",
		},
		Schedule: ScheduleConfig{
			Cron:     "0 */6 * * *",
			Timezone: "UTC",
		},
		History:  HistoryConfig{Backend: "file"},
		Pipeline: PipelineConfig{Workers: 1},
		Paths: PathsConfig{
			History:     "processed_urls.txt",
			HistoryDB:   "history.db",
			LastSegment: "last_segment.txt",
			Output:      ".",
			Work:        os.TempDir(),
			Logs:        "logs",
			State:       ".",
		},
	}
}
