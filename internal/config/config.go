package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifies the telephony provider used for outbound dialing.
type Provider string

const (
	ProviderPlivo  Provider = "plivo"
	ProviderTwilio Provider = "twilio"
)

// DefaultGreeting is spoken before the call is bridged to the agent room.
const DefaultGreeting = "Hello! Please hold while we connect you to our assistant."

// Config holds the call coordinator configuration, loaded from the environment.
type Config struct {
	Port     string
	Provider Provider

	// Plivo credentials
	PlivoAuthID     string
	PlivoAuthToken  string
	PlivoFromNumber string

	// Twilio credentials (only required when Provider == ProviderTwilio)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Webhook endpoints the provider calls back on
	WebhookBaseURL string

	// Default destination for /make_call and the optional startup dial
	TargetPhoneNumber string
	DialOnStart       bool

	Greeting string

	// LiveKit: the SIP bridge target and (optionally) room provisioning
	LiveKitWSURL     string
	LiveKitAPIKey    string
	LiveKitAPISecret string

	// Redis session registry (optional)
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Orphaned call records are evicted after this long without a hangup
	CallTTL time.Duration

	InstanceID string
}

// Load reads configuration from environment variables.
// .env loading (godotenv) happens in main before this is called.
func Load() *Config {
	return &Config{
		Port:     getEnvOrDefault("PORT", "8080"),
		Provider: Provider(strings.ToLower(getEnvOrDefault("TELEPHONY_PROVIDER", string(ProviderPlivo)))),

		PlivoAuthID:     os.Getenv("PLIVO_AUTH_ID"),
		PlivoAuthToken:  os.Getenv("PLIVO_AUTH_TOKEN"),
		PlivoFromNumber: os.Getenv("PLIVO_FROM_NUMBER"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),

		WebhookBaseURL: os.Getenv("WEBHOOK_BASE_URL"),

		TargetPhoneNumber: os.Getenv("TARGET_PHONE_NUMBER"),
		DialOnStart:       getEnvAsBoolOrDefault("DIAL_ON_START", false),

		Greeting: getEnvOrDefault("GREETING_TEXT", DefaultGreeting),

		LiveKitWSURL:     os.Getenv("LIVEKIT_WS_URL"),
		LiveKitAPIKey:    os.Getenv("LIVEKIT_API_KEY"),
		LiveKitAPISecret: os.Getenv("LIVEKIT_API_SECRET"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		CallTTL: getEnvAsDurationOrDefault("CALL_TTL", 4*time.Hour),

		InstanceID: getDynamicInstanceID(),
	}
}

// Validate checks that every required key is present. The process must not
// start the webhook server or place a call when this returns an error.
func (c *Config) Validate() error {
	var missing []string

	require := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}

	switch c.Provider {
	case ProviderPlivo:
		require("PLIVO_AUTH_ID", c.PlivoAuthID)
		require("PLIVO_AUTH_TOKEN", c.PlivoAuthToken)
		require("PLIVO_FROM_NUMBER", c.PlivoFromNumber)
	case ProviderTwilio:
		require("TWILIO_ACCOUNT_SID", c.TwilioAccountSID)
		require("TWILIO_AUTH_TOKEN", c.TwilioAuthToken)
		require("TWILIO_FROM_NUMBER", c.TwilioFromNumber)
	default:
		return fmt.Errorf("unknown telephony provider %q (expected %q or %q)", c.Provider, ProviderPlivo, ProviderTwilio)
	}

	require("WEBHOOK_BASE_URL", c.WebhookBaseURL)
	require("LIVEKIT_WS_URL", c.LiveKitWSURL)

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// FromNumber returns the caller number for the configured provider.
func (c *Config) FromNumber() string {
	if c.Provider == ProviderTwilio {
		return c.TwilioFromNumber
	}
	return c.PlivoFromNumber
}

// AnswerURL is the callback the provider fetches when the call is answered.
func (c *Config) AnswerURL() string {
	return strings.TrimSuffix(c.WebhookBaseURL, "/") + "/answer/"
}

// HangupURL is the callback the provider fetches when the call ends.
func (c *Config) HangupURL() string {
	return strings.TrimSuffix(c.WebhookBaseURL, "/") + "/hangup/"
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault gets environment variable as duration or returns default
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getDynamicInstanceID generates a unique identifier for this service instance.
// It first tries the system hostname (pod name in K8s), then falls back to an
// environment variable, and finally a timestamp-based ID.
func getDynamicInstanceID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return fmt.Sprintf("call-coordinator-%d", time.Now().UnixNano())
}
