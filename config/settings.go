package config

import (
	"os"
	"strconv"
	"strings"
)

var (
	AppVersion        = "v1.0.0"
	AppPort           = "3000"
	AppDebug          = false
	AppBasePath       = ""
	AppTrustedProxies []string

	PathStorages = "storages"

	// DBURI selects the backing store. sqlite by default, postgres when the
	// scheme says so.
	DBURI = "file:storages/threadpilot.db?_foreign_keys=on"

	// JobsSecret guards the /jobs/run invocation surface. Empty means the
	// endpoint refuses every call.
	JobsSecret    string
	JobsBatchSize = 10
	// JobsTickerMinutes is the in-process run cadence. 0 disables the ticker
	// and leaves invocation to an external cron hitting /jobs/run.
	JobsTickerMinutes = 1
	// JobsClaimWindowSeconds is how far a claimed schedule's next_run is
	// pushed while it is being processed.
	JobsClaimWindowSeconds = 120

	ThreadsAPIBase     = "https://graph.threads.net"
	ThreadsAuthBase    = "https://threads.net"
	ThreadsAppID       string
	ThreadsAppSecret   string
	ThreadsRedirectURL string

	// PostingUTCOffset is the fixed civil timezone (hours east of UTC) used
	// for template time windows. Japan by default.
	PostingUTCOffset = 9

	// Retry policy for outbound platform calls.
	RetryMaxAttempts = 4
	RetryBaseDelayMs = 800

	// AIProvider selects the rewrite backend: "openai", "gemini" or empty to
	// disable the rewrite step entirely.
	AIProvider   string
	OpenAIAPIKey string
	OpenAIModel  = "gpt-4o-mini"
	GeminiAPIKey string
	GeminiModel  = "gemini-2.5-flash"

	ValkeyURI       string
	ValkeyKeyPrefix = "threadpilot"

	AppSecretKey = "changeme_please_change_me_in_prod_12345"
)

func init() {
	if v := strings.TrimSpace(os.Getenv("JOBS_SECRET")); v != "" {
		JobsSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("JOBS_BATCH_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			JobsBatchSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("JOBS_TICKER_MINUTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			JobsTickerMinutes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("POSTING_UTC_OFFSET")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= -12 && n <= 14 {
			PostingUTCOffset = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("THREADS_APP_ID")); v != "" {
		ThreadsAppID = v
	}
	if v := strings.TrimSpace(os.Getenv("THREADS_APP_SECRET")); v != "" {
		ThreadsAppSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("THREADS_REDIRECT_URL")); v != "" {
		ThreadsRedirectURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AI_PROVIDER")); v != "" {
		AIProvider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		OpenAIModel = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		GeminiAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); v != "" {
		GeminiModel = v
	}
	if v := strings.TrimSpace(os.Getenv("VALKEY_URI")); v != "" {
		ValkeyURI = v
	}
	if v := os.Getenv("APP_SECRET_KEY"); v != "" {
		AppSecretKey = v
	}
}
