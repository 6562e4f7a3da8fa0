package models

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// SettingDefinition describes a configurable application setting.
type SettingDefinition struct {
	Key         string   // DB key, e.g. "llm.provider"
	EnvVar      string   // Override env var, e.g. "REPCOACH_LLM_PROVIDER"
	Default     string   // Built-in default value
	Label       string   // Human-readable label
	Description string   // Help text
	FieldType   string   // "text", "password", "select", "number", "textarea"
	Options     []string // Valid values for "select" type
	Category    string   // Grouping key
	Sensitive   bool     // If true, value is encrypted in DB and masked on read
}

// SettingValue represents a resolved setting with its source.
type SettingValue struct {
	Key      string `json:"key"`
	Value    string `json:"-"`
	Source   string `json:"source"`   // "env", "db", "default"
	Masked   string `json:"value"`    // Display value (masked for sensitive settings)
	ReadOnly bool   `json:"readOnly"` // True if set via env var (not editable through the API)
}

// CategoryOrder defines the display order for setting categories.
var CategoryOrder = []string{"Model", "Generation", "Notifications", "Maintenance"}

// Batch failure policies accepted by generation.batch_failure_policy.
const (
	BatchPolicyAbort    = "abort"
	BatchPolicyRetry    = "retry"
	BatchPolicyFallback = "fallback"
)

// SettingsRegistry defines all known runtime settings.
var SettingsRegistry = []SettingDefinition{
	// --- Model ---
	{
		Key: "llm.provider", EnvVar: "REPCOACH_LLM_PROVIDER", Default: "openrouter",
		Label: "Provider", Description: "Text-completion backend used for program generation",
		FieldType: "select", Options: []string{"", "openrouter", "openai", "anthropic", "ollama", "gemini"},
		Category: "Model",
	},
	{
		Key: "llm.model", EnvVar: "REPCOACH_LLM_MODEL", Default: "",
		Label: "Model", Description: "Model name (empty uses the provider default, e.g. deepseek/deepseek-chat:free on OpenRouter)",
		FieldType: "text", Category: "Model",
	},
	{
		Key: "llm.api_key", EnvVar: "REPCOACH_LLM_API_KEY", Default: "",
		Label: "API Key", Description: "Provider API key (not needed for Ollama)",
		FieldType: "password", Category: "Model", Sensitive: true,
	},
	{
		Key: "llm.base_url", EnvVar: "REPCOACH_LLM_BASE_URL", Default: "",
		Label: "Base URL", Description: "Custom API endpoint (required for Ollama, optional for OpenAI-compatible gateways)",
		FieldType: "text", Category: "Model",
	},
	{
		Key: "llm.temperature", EnvVar: "REPCOACH_LLM_TEMPERATURE", Default: "0.7",
		Label: "Temperature", Description: "Sampling temperature (0.0 to 2.0)",
		FieldType: "number", Category: "Model",
	},
	{
		Key: "llm.max_tokens", EnvVar: "REPCOACH_LLM_MAX_TOKENS", Default: "4096",
		Label: "Max Tokens", Description: "Maximum output tokens per model call",
		FieldType: "number", Category: "Model",
	},
	// --- Generation ---
	{
		Key: "generation.default_goal", EnvVar: "", Default: "Maintenir le rythme",
		Label: "Default Goal", Description: "Goal used when a request carries no objectif",
		FieldType: "text", Category: "Generation",
	},
	{
		Key: "generation.chunk_max", EnvVar: "REPCOACH_CHUNK_MAX", Default: "15",
		Label: "Days per Model Call", Description: "Largest number of days requested from the model in one batch chunk (1 to 31)",
		FieldType: "number", Category: "Generation",
	},
	{
		Key: "generation.batch_failure_policy", EnvVar: "REPCOACH_BATCH_FAILURE_POLICY", Default: BatchPolicyAbort,
		Label: "Batch Failure Policy", Description: "What a week or month request does when one chunk cannot be parsed: abort the batch, retry the chunk, or fill it with fallback programs",
		FieldType: "select", Options: []string{BatchPolicyAbort, BatchPolicyRetry, BatchPolicyFallback},
		Category: "Generation",
	},
	{
		Key: "generation.chunk_retries", EnvVar: "", Default: "1",
		Label: "Chunk Retries", Description: "Extra attempts per chunk under the retry policy (0 to 5)",
		FieldType: "number", Category: "Generation",
	},
	{
		Key: "generation.timeout_seconds", EnvVar: "REPCOACH_GENERATION_TIMEOUT", Default: "300",
		Label: "Request Timeout (seconds)", Description: "Deadline for a whole generation request, batches included (10 to 1800)",
		FieldType: "number", Category: "Generation",
	},
	// --- Notifications ---
	{
		Key: "notify.urls", EnvVar: "REPCOACH_NOTIFY_URLS", Default: "",
		Label: "Broadcast URLs", Description: "Shoutrrr URLs alerted when generation degrades to a fallback or a batch fails. One per line.",
		FieldType: "textarea", Category: "Notifications",
	},
	// --- Maintenance ---
	{
		Key: "maintenance.interval_hours", EnvVar: "", Default: "24",
		Label: "Schedule Interval (hours)", Description: "How often background maintenance runs (1 to 168 hours)",
		FieldType: "number", Category: "Maintenance",
	},
	{
		Key: "maintenance.retention_days", EnvVar: "", Default: "90",
		Label: "Run History Retention (days)", Description: "Generation runs older than this are pruned (1 to 365 days)",
		FieldType: "number", Category: "Maintenance",
	},
}

// GetSetting returns a configuration value using the resolution chain:
// env var, then app_settings row, then built-in default.
func GetSetting(db *sql.DB, key string) string {
	def := findDefinition(key)
	if def == nil {
		return ""
	}

	// 1. Environment variable always wins.
	if def.EnvVar != "" {
		if v := os.Getenv(def.EnvVar); v != "" {
			return v
		}
	}

	// 2. Database setting.
	var raw string
	err := db.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&raw)
	if err == nil {
		if def.Sensitive && strings.HasPrefix(raw, "enc:") {
			decrypted, err := decryptValue(raw[4:])
			if err == nil {
				return decrypted
			}
			// Fall through to default if decryption fails.
		} else {
			return raw
		}
	}

	// 3. Built-in default.
	return def.Default
}

// SetSetting stores a configuration value in the database.
// Sensitive values are encrypted if REPCOACH_SECRET_KEY is set.
func SetSetting(db *sql.DB, key, value string) error {
	def := findDefinition(key)
	if def == nil {
		return fmt.Errorf("models: unknown setting key %q", key)
	}

	storeValue := value
	if def.Sensitive && value != "" {
		encrypted, err := encryptValue(value)
		if err != nil {
			return fmt.Errorf("models: encrypt setting %q: %w", key, err)
		}
		storeValue = "enc:" + encrypted
	}

	_, err := db.Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, storeValue,
	)
	if err != nil {
		return fmt.Errorf("models: set setting %q: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a setting from the database (reverts to env var or default).
func DeleteSetting(db *sql.DB, key string) error {
	_, err := db.Exec(`DELETE FROM app_settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("models: delete setting %q: %w", key, err)
	}
	return nil
}

// ListSettings returns all known settings with their resolved values and sources.
func ListSettings(db *sql.DB) []SettingValue {
	var results []SettingValue
	for _, def := range SettingsRegistry {
		sv := resolveSettingValue(db, def)
		results = append(results, sv)
	}
	return results
}

// ListSettingsByCategory returns settings grouped by category.
func ListSettingsByCategory(db *sql.DB) map[string][]SettingValue {
	groups := make(map[string][]SettingValue)
	for _, def := range SettingsRegistry {
		sv := resolveSettingValue(db, def)
		groups[def.Category] = append(groups[def.Category], sv)
	}
	return groups
}

// GetSettingDefinition returns the definition for a known setting key.
func GetSettingDefinition(key string) *SettingDefinition {
	return findDefinition(key)
}

// GetSettingValue returns the full SettingValue (with source, mask, etc.) for a key.
func GetSettingValue(db *sql.DB, key string) SettingValue {
	def := findDefinition(key)
	if def == nil {
		return SettingValue{Key: key}
	}
	return resolveSettingValue(db, *def)
}

// ValidateSetting checks value against the definition of key: select values
// must be one of the options and number fields must parse.
func ValidateSetting(key, value string) error {
	def := findDefinition(key)
	if def == nil {
		return fmt.Errorf("models: unknown setting key %q", key)
	}
	switch def.FieldType {
	case "select":
		if !slices.Contains(def.Options, value) {
			return fmt.Errorf("models: %q is not a valid value for %s", value, key)
		}
	case "number":
		if value == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("models: %s must be a number", key)
		}
	}
	return nil
}

// IsModelConfigured returns true if a model provider is configured.
func IsModelConfigured(db *sql.DB) bool {
	return GetSetting(db, "llm.provider") != ""
}

// GetDefaultGoal returns the goal used when a request names none.
func GetDefaultGoal(db *sql.DB) string {
	if v := strings.TrimSpace(GetSetting(db, "generation.default_goal")); v != "" {
		return v
	}
	return "Maintenir le rythme"
}

// GetChunkMax returns the largest chunk of days per model call.
func GetChunkMax(db *sql.DB) int {
	return intSetting(db, "generation.chunk_max", 1, 31, 15)
}

// GetBatchFailurePolicy returns the configured batch failure policy.
func GetBatchFailurePolicy(db *sql.DB) string {
	switch v := GetSetting(db, "generation.batch_failure_policy"); v {
	case BatchPolicyAbort, BatchPolicyRetry, BatchPolicyFallback:
		return v
	default:
		return BatchPolicyAbort
	}
}

// GetChunkRetries returns the extra attempts per chunk under the retry policy.
func GetChunkRetries(db *sql.DB) int {
	return intSetting(db, "generation.chunk_retries", 0, 5, 1)
}

// GetGenerationTimeout returns the deadline applied to one generation request.
func GetGenerationTimeout(db *sql.DB) time.Duration {
	return time.Duration(intSetting(db, "generation.timeout_seconds", 10, 1800, 300)) * time.Second
}

// GetMaintenanceIntervalHours returns the scheduler interval from app settings.
func GetMaintenanceIntervalHours(db *sql.DB) int {
	return intSetting(db, "maintenance.interval_hours", 1, 168, 24)
}

// GetMaintenanceRetentionDays returns the run history retention period.
func GetMaintenanceRetentionDays(db *sql.DB) int {
	return intSetting(db, "maintenance.retention_days", 1, 365, 90)
}

// intSetting parses key as an integer within [lo, hi], falling back to def.
func intSetting(db *sql.DB, key string, lo, hi, def int) int {
	if v := GetSetting(db, key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= lo && n <= hi {
			return n
		}
	}
	return def
}

// GetOrCreateSecretKey ensures a secret key exists for encrypting sensitive settings.
// Resolution order: REPCOACH_SECRET_KEY env var, the _internal.secret_key row,
// then a freshly generated key.
// The key is stored in plaintext in app_settings (since it IS the encryption key).
// Returns the key and sets it as an env var so the rest of the code can use it.
func GetOrCreateSecretKey(db *sql.DB) (key, source string, err error) {
	// 1. Check env var. If provided, persist to DB so the key survives
	//    even if the env var is later removed.
	if key = os.Getenv("REPCOACH_SECRET_KEY"); key != "" {
		_, _ = db.Exec(
			`INSERT INTO app_settings (key, value) VALUES ('_internal.secret_key', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key,
		)
		return key, "env", nil
	}

	// 2. Check DB for previously generated key.
	err = db.QueryRow(`SELECT value FROM app_settings WHERE key = '_internal.secret_key'`).Scan(&key)
	if err == nil && key != "" {
		os.Setenv("REPCOACH_SECRET_KEY", key)
		return key, "database", nil
	}

	// 3. Generate a new key.
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("models: generate secret key: %w", err)
	}
	key = base64.StdEncoding.EncodeToString(buf)

	_, err = db.Exec(
		`INSERT INTO app_settings (key, value) VALUES ('_internal.secret_key', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key,
	)
	if err != nil {
		return "", "", fmt.Errorf("models: store secret key: %w", err)
	}

	os.Setenv("REPCOACH_SECRET_KEY", key)
	return key, "generated", nil
}

// ListSettingsByCategoryOrdered returns settings grouped by category in the
// order defined by CategoryOrder.
func ListSettingsByCategoryOrdered(db *sql.DB) []CategoryGroup {
	groups := ListSettingsByCategory(db)
	var ordered []CategoryGroup
	seen := make(map[string]bool)
	for _, cat := range CategoryOrder {
		if settings, ok := groups[cat]; ok {
			ordered = append(ordered, CategoryGroup{Name: cat, Settings: settings})
			seen[cat] = true
		}
	}
	// Append any categories not in CategoryOrder (future-proofing).
	for cat, settings := range groups {
		if !seen[cat] {
			ordered = append(ordered, CategoryGroup{Name: cat, Settings: settings})
		}
	}
	return ordered
}

// CategoryGroup holds settings for a single category, for ordered rendering.
type CategoryGroup struct {
	Name     string         `json:"name"`
	Settings []SettingValue `json:"settings"`
}

// --- Internal helpers ---

func findDefinition(key string) *SettingDefinition {
	for i := range SettingsRegistry {
		if SettingsRegistry[i].Key == key {
			return &SettingsRegistry[i]
		}
	}
	return nil
}

func resolveSettingValue(db *sql.DB, def SettingDefinition) SettingValue {
	sv := SettingValue{Key: def.Key}

	// Check env var first.
	if def.EnvVar != "" {
		if v := os.Getenv(def.EnvVar); v != "" {
			sv.Value = v
			sv.Source = "env"
			sv.ReadOnly = true
			sv.Masked = maskValue(v, def.Sensitive)
			return sv
		}
	}

	// Check database.
	var raw string
	err := db.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, def.Key).Scan(&raw)
	if err == nil {
		sv.Source = "db"
		if def.Sensitive && strings.HasPrefix(raw, "enc:") {
			decrypted, err := decryptValue(raw[4:])
			if err == nil {
				sv.Value = decrypted
				sv.Masked = maskValue(decrypted, true)
			} else {
				sv.Value = ""
				sv.Masked = "(decryption failed)"
			}
		} else {
			sv.Value = raw
			sv.Masked = maskValue(raw, def.Sensitive)
		}
		return sv
	}

	// Default.
	sv.Value = def.Default
	sv.Source = "default"
	sv.Masked = maskValue(def.Default, def.Sensitive)
	return sv
}

func maskValue(value string, sensitive bool) string {
	if !sensitive || value == "" {
		return value
	}
	if len(value) <= 8 {
		return "••••••••"
	}
	return value[:4] + "••••" + value[len(value)-4:]
}

// --- Encryption helpers ---

// secretKey returns the 32-byte encryption key derived from REPCOACH_SECRET_KEY
// using HKDF (RFC 5869). Returns nil if the env var is not set.
func secretKey() []byte {
	key := os.Getenv("REPCOACH_SECRET_KEY")
	if key == "" {
		return nil
	}
	// Derive a proper 32-byte AES-256 key using HKDF with a fixed salt and info.
	h := hkdf.New(sha256.New, []byte(key), []byte("repcoach-settings-v1"), []byte("aes-256-gcm"))
	derived := make([]byte, 32)
	if _, err := io.ReadFull(h, derived); err != nil {
		return nil
	}
	return derived
}

func encryptValue(plaintext string) (string, error) {
	key := secretKey()
	if key == nil {
		return "", fmt.Errorf("models: REPCOACH_SECRET_KEY not set, cannot encrypt sensitive settings")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func decryptValue(encoded string) (string, error) {
	key := secretKey()
	if key == nil {
		return "", fmt.Errorf("models: REPCOACH_SECRET_KEY not set, cannot decrypt")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
