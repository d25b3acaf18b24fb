package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

// Provider names accepted for agents.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

type AgentConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type AgentsConfig struct {
	Topic    AgentConfig `yaml:"topic"`
	Research AgentConfig `yaml:"research"`
	Rewrite  AgentConfig `yaml:"rewrite"`
}

type Config struct {
	TitleFont        string            `yaml:"title_font"`
	TitleFontSizeMin float64           `yaml:"title_font_size_min"`
	TitleFontSizeMax float64           `yaml:"title_font_size_max"`
	TitleMustBeBold  bool              `yaml:"title_must_be_bold"`
	BodyFont         string            `yaml:"body_font"`
	AllowedBodyFonts []string          `yaml:"allowed_body_fonts"`
	BodyFontSizeMin  float64           `yaml:"body_font_size_min"`
	ThemeFonts       map[string]string `yaml:"theme_fonts"`

	NotesFont        string  `yaml:"notes_font"`
	NotesFontSizeMin float64 `yaml:"notes_font_size_min"`
	NotesFontSizeMax float64 `yaml:"notes_font_size_max"`
	NotesFontColor   string  `yaml:"notes_font_color"`

	ExemptShapeNames []string `yaml:"exempt_shape_names"`
	BrandColors      []string `yaml:"brand_colors"`

	WCAGRatioNormal    float64  `yaml:"wcag_ratio_normal"`
	WCAGRatioLarge     float64  `yaml:"wcag_ratio_large"`
	WCAGLargeFontSize  float64  `yaml:"wcag_large_font_size"`
	WCAGGraphicRatio   float64  `yaml:"wcag_graphic_ratio"`
	RequiredHeaders    []string `yaml:"required_headers"`
	CriticalHeaders    []string `yaml:"critical_headers"`
	ExemptFirstSlide   bool     `yaml:"exempt_first_slide"`
	ExemptLastSlide    bool     `yaml:"exempt_last_slide"`
	ExemptSlides       []int    `yaml:"exempt_slides"`
	TargetReadingGrade float64  `yaml:"target_reading_grade"`

	WeaselWords       []string          `yaml:"weasel_words"`
	Jargon            map[string]string `yaml:"jargon"`
	DictionaryPath    string            `yaml:"dictionary_path"`
	SpellingAllowList []string          `yaml:"spelling_allow_list"`

	ReadingSpeedWPM       float64 `yaml:"reading_speed_wpm"`
	ActivityBufferMinutes float64 `yaml:"activity_buffer_minutes"`
	StandardSlideMinutes  float64 `yaml:"standard_slide_minutes"`

	Agents                AgentsConfig `yaml:"agents"`
	AnthropicAPIKey       string       `yaml:"anthropic_api_key"`
	OpenAIAPIKey          string       `yaml:"openai_api_key"`
	OpenAIBaseURL         string       `yaml:"openai_base_url"`
	GeminiAPIKey          string       `yaml:"gemini_api_key"`
	LLMBatchSize          int          `yaml:"llm_batch_size"`
	NotesScriptingLevel   string       `yaml:"notes_scripting_level"`
	SystemInstructionPath string       `yaml:"system_instruction_path"`
	KnowledgeBasePath     string       `yaml:"knowledge_base_path"`
	RetrievalTopK         int          `yaml:"retrieval_top_k"`

	DBPath                     string `yaml:"db_path"`
	ReportOutputDir            string `yaml:"report_output_dir"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`
	AuditConcurrency           int    `yaml:"audit_concurrency"`
	LogLevel                   string `yaml:"log_level"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
	SlackAPIURL    string `yaml:"slack_api_url"`
	DigestSchedule string `yaml:"digest_schedule"`
	Timezone       string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// Default returns the brand and audit defaults used when no config file is present.
func Default() Config {
	return Config{
		TitleFont:        "Rockwell",
		TitleFontSizeMin: 36,
		TitleFontSizeMax: 60,
		TitleMustBeBold:  true,
		BodyFont:         "Calibri",
		AllowedBodyFonts: []string{"Calibri", "MV Boli", "Arial"},
		BodyFontSizeMin:  25,

		NotesFont:        "Calibri",
		NotesFontSizeMin: 11,
		NotesFontSizeMax: 12,
		NotesFontColor:   "#000000",

		ExemptShapeNames: []string{"block", "cover", "mask", "clicktrigger"},
		BrandColors: []string{
			"#000000", "#FFFFFF", "#4481AC", "#FF914D", "#D9D9D9",
			"#F8D7C2", "#BCDDF4", "#FEE599", "#2F5496", "#6F3B55",
		},

		WCAGRatioNormal:    4.5,
		WCAGRatioLarge:     3.0,
		WCAGLargeFontSize:  18,
		WCAGGraphicRatio:   3.0,
		RequiredHeaders:    []string{"Instructional Activity:", "Instructional Time:", "Materials:", "Do:", "Talking Points:"},
		CriticalHeaders:    []string{"Instructional Activity:", "Instructional Time:"},
		ExemptFirstSlide:   true,
		ExemptLastSlide:    true,
		TargetReadingGrade: 9,

		WeaselWords: []string{
			"basically", "sort of", "kind of", "hopefully", "try to",
			"maybe", "perhaps", "I think", "various", "attempt to",
		},
		Jargon: map[string]string{
			"utilize":     "use",
			"facilitate":  "help",
			"implement":   "do/start",
			"leverage":    "use",
			"synergy":     "cooperation",
			"methodology": "method",
			"optimize":    "improve",
			"disseminate": "send/share",
		},
		SpellingAllowList: []string{
			"pptx", "wcag", "gagne", "rgb", "id", "qa", "calibri", "rockwell",
			"youtube", "linkedin", "tiktok", "instagram", "video", "intro",
			"outro", "agenda", "module",
		},

		ReadingSpeedWPM:       130,
		ActivityBufferMinutes: 5.0,
		StandardSlideMinutes:  0.5,

		Agents: AgentsConfig{
			Topic:    AgentConfig{Provider: ProviderGemini},
			Research: AgentConfig{Provider: ProviderGemini},
			Rewrite:  AgentConfig{Provider: ProviderGemini},
		},
		LLMBatchSize:        20,
		NotesScriptingLevel: "Light",
		RetrievalTopK:       3,

		DBPath:                     "./slideaudit.db",
		ReportOutputDir:            "./reports",
		ExternalHTTPTimeoutSeconds: defaultExternalHTTPTimeoutSeconds,
		AuditConcurrency:           4,
		LogLevel:                   "info",
		Timezone:                   "Local",
	}
}

// Load reads config.yaml (or $SLIDEAUDIT_CONFIG / the given path), applies
// environment overrides and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = "config.yaml"
		if envPath := os.Getenv("SLIDEAUDIT_CONFIG"); envPath != "" {
			path = envPath
		}
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.TitleFont, "TITLE_FONT")
	envOverride(&cfg.BodyFont, "BODY_FONT")
	envOverrideList(&cfg.AllowedBodyFonts, "ALLOWED_BODY_FONTS")
	envOverride(&cfg.NotesFont, "NOTES_FONT")
	envOverride(&cfg.DictionaryPath, "DICTIONARY_PATH")
	envOverride(&cfg.Agents.Topic.Provider, "AGENT_TOPIC_PROVIDER")
	envOverride(&cfg.Agents.Topic.Model, "AGENT_TOPIC_MODEL")
	envOverride(&cfg.Agents.Research.Provider, "AGENT_RESEARCH_PROVIDER")
	envOverride(&cfg.Agents.Research.Model, "AGENT_RESEARCH_MODEL")
	envOverride(&cfg.Agents.Rewrite.Provider, "AGENT_REWRITE_PROVIDER")
	envOverride(&cfg.Agents.Rewrite.Model, "AGENT_REWRITE_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverride(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	envOverride(&cfg.NotesScriptingLevel, "NOTES_SCRIPTING_LEVEL")
	envOverride(&cfg.SystemInstructionPath, "SYSTEM_INSTRUCTION_PATH")
	envOverride(&cfg.KnowledgeBasePath, "KNOWLEDGE_BASE_PATH")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.DigestSchedule, "DIGEST_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	ints := []struct {
		field *int
		key   string
	}{
		{&cfg.LLMBatchSize, "LLM_BATCH_SIZE"},
		{&cfg.RetrievalTopK, "RETRIEVAL_TOP_K"},
		{&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"},
		{&cfg.AuditConcurrency, "AUDIT_CONCURRENCY"},
	}
	for _, e := range ints {
		if err := envOverrideInt(e.field, e.key); err != nil {
			return err
		}
	}
	floats := []struct {
		field *float64
		key   string
	}{
		{&cfg.TargetReadingGrade, "TARGET_READING_GRADE"},
		{&cfg.ReadingSpeedWPM, "READING_SPEED_WPM"},
		{&cfg.ActivityBufferMinutes, "ACTIVITY_BUFFER_MINUTES"},
	}
	for _, e := range floats {
		if err := envOverrideFloat(e.field, e.key); err != nil {
			return err
		}
	}
	if err := envOverrideBool(&cfg.ExemptFirstSlide, "EXEMPT_FIRST_SLIDE"); err != nil {
		return err
	}
	if err := envOverrideBool(&cfg.ExemptLastSlide, "EXEMPT_LAST_SLIDE"); err != nil {
		return err
	}
	if raw := os.Getenv("EXEMPT_SLIDES"); raw != "" {
		cfg.ExemptSlides = nil
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return fmt.Errorf("invalid EXEMPT_SLIDES entry '%s': %w", part, err)
			}
			cfg.ExemptSlides = append(cfg.ExemptSlides, n)
		}
	}
	return nil
}

func (c *Config) normalize() {
	if c.BodyFont != "" && !containsFold(c.AllowedBodyFonts, c.BodyFont) {
		c.AllowedBodyFonts = append(c.AllowedBodyFonts, c.BodyFont)
	}
	if c.ThemeFonts == nil {
		c.ThemeFonts = map[string]string{}
	}
	defaults := map[string]string{
		"+mj-lt":      c.TitleFont,
		"+mn-lt":      c.BodyFont,
		"major-latin": c.TitleFont,
		"minor-latin": c.BodyFont,
	}
	for alias, font := range defaults {
		if _, ok := c.ThemeFonts[alias]; !ok {
			c.ThemeFonts[alias] = font
		}
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	for _, a := range []*AgentConfig{&c.Agents.Topic, &c.Agents.Research, &c.Agents.Rewrite} {
		a.Provider = strings.ToLower(strings.TrimSpace(a.Provider))
		if a.Provider == "" {
			a.Provider = ProviderGemini
		}
	}
}

// Validate checks value ranges. It does not require API keys; see ValidateLLM.
func (c *Config) Validate() error {
	if c.WCAGRatioNormal <= 1 || c.WCAGRatioNormal > 21 {
		return fmt.Errorf("invalid wcag_ratio_normal '%.2f': must be in (1, 21]", c.WCAGRatioNormal)
	}
	if c.WCAGRatioLarge <= 1 || c.WCAGRatioLarge > 21 {
		return fmt.Errorf("invalid wcag_ratio_large '%.2f': must be in (1, 21]", c.WCAGRatioLarge)
	}
	if c.WCAGGraphicRatio <= 1 || c.WCAGGraphicRatio > 21 {
		return fmt.Errorf("invalid wcag_graphic_ratio '%.2f': must be in (1, 21]", c.WCAGGraphicRatio)
	}
	if c.TitleFontSizeMin > c.TitleFontSizeMax {
		return fmt.Errorf("invalid title font window: min %.0f > max %.0f", c.TitleFontSizeMin, c.TitleFontSizeMax)
	}
	if c.NotesFontSizeMin > c.NotesFontSizeMax {
		return fmt.Errorf("invalid notes font window: min %.0f > max %.0f", c.NotesFontSizeMin, c.NotesFontSizeMax)
	}
	if c.ReadingSpeedWPM < 1 {
		return fmt.Errorf("invalid reading_speed_wpm '%.0f': must be >= 1", c.ReadingSpeedWPM)
	}
	if c.ActivityBufferMinutes < 0 {
		return fmt.Errorf("invalid activity_buffer_minutes '%.1f': must be >= 0", c.ActivityBufferMinutes)
	}
	if c.StandardSlideMinutes < 0 {
		return fmt.Errorf("invalid standard_slide_minutes '%.1f': must be >= 0", c.StandardSlideMinutes)
	}
	if c.LLMBatchSize < 1 {
		return fmt.Errorf("invalid llm_batch_size '%d': must be >= 1", c.LLMBatchSize)
	}
	if c.AuditConcurrency < 1 {
		return fmt.Errorf("invalid audit_concurrency '%d': must be >= 1", c.AuditConcurrency)
	}
	if c.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", c.ExternalHTTPTimeoutSeconds)
	}
	switch c.NotesScriptingLevel {
	case "Basic", "Light", "Heavy":
	default:
		return fmt.Errorf("notes_scripting_level must be 'Basic', 'Light' or 'Heavy', got '%s'", c.NotesScriptingLevel)
	}
	for name, a := range map[string]AgentConfig{"topic": c.Agents.Topic, "research": c.Agents.Research, "rewrite": c.Agents.Rewrite} {
		switch a.Provider {
		case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
		default:
			return fmt.Errorf("agents.%s.provider must be 'anthropic', 'openai' or 'gemini', got '%s'", name, a.Provider)
		}
	}
	if strings.EqualFold(c.Timezone, "Local") || c.Timezone == "" {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
		}
		c.Location = loc
	}
	if strings.TrimSpace(c.DigestSchedule) != "" {
		if _, err := ParseSchedule(c.DigestSchedule); err != nil {
			return fmt.Errorf("invalid digest_schedule '%s': %w", c.DigestSchedule, err)
		}
	}
	return nil
}

// ValidateLLM checks that every configured agent provider has credentials.
func (c *Config) ValidateLLM() error {
	for name, a := range map[string]AgentConfig{"topic": c.Agents.Topic, "research": c.Agents.Research, "rewrite": c.Agents.Rewrite} {
		switch a.Provider {
		case ProviderAnthropic:
			if c.AnthropicAPIKey == "" {
				return fmt.Errorf("anthropic_api_key is required when agents.%s.provider=anthropic", name)
			}
		case ProviderOpenAI:
			if c.OpenAIAPIKey == "" {
				return fmt.Errorf("openai_api_key is required when agents.%s.provider=openai", name)
			}
		case ProviderGemini:
			if c.GeminiAPIKey == "" {
				return fmt.Errorf("gemini_api_key is required when agents.%s.provider=gemini", name)
			}
		}
	}
	return nil
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

// IsExemptSlide applies the first/last/specific slide exemptions.
func (c Config) IsExemptSlide(number, total int) bool {
	if c.ExemptFirstSlide && number == 1 {
		return true
	}
	if c.ExemptLastSlide && total > 0 && number == total {
		return true
	}
	for _, n := range c.ExemptSlides {
		if n == number {
			return true
		}
	}
	return false
}

// ParseSchedule parses a standard 5-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(expr))
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideList(field *[]string, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	*field = nil
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			*field = append(*field, item)
		}
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
