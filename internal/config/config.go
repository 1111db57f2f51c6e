package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Photo failure policies for ExportConfig.PhotoPolicy.
const (
	PhotoPolicyOmit = "omit"
	PhotoPolicyFail = "fail"
)

// ExportConfig controls how contact cards are produced.
type ExportConfig struct {
	PhotoTimeout   time.Duration
	PhotoMaxBytes  int64
	PhotoMaxPixels int64
	JPEGQuality    int

	// PhotoAllowPrivate lets photo URLs reach loopback and private networks.
	PhotoAllowPrivate bool
	// PhotoAllowedHosts, when set, is the only set of hosts photos are fetched from.
	PhotoAllowedHosts []string
	PhotoMaxRedirects int

	// PhotoPolicy is either "omit" (emit the card without PHOTO) or "fail".
	PhotoPolicy string
	// Filename overrides the filename derived from the contact's full name.
	Filename string
}

// ProfileURL is a labeled profile link of the default contact.
type ProfileURL struct {
	Label string
	URL   string
}

// ContactConfig is the default contact served on /vcard and by the CLI.
type ContactConfig struct {
	FullName    string
	GivenName   string
	FamilyName  string
	Title       string
	Phone       string
	Email       string
	WorkURL     string
	ProfileURLs []ProfileURL
	PhotoRef    string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Timezone string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Export   ExportConfig
	Contact  ContactConfig
}

const defaultProfileURLs = "Instagram=https://www.instagram.com/habeeb.maryam," +
	"Facebook=https://www.facebook.com/share/1BGdCN1HT3/," +
	"TikTok=https://www.tiktok.com/@maryamh2199"

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"), // default only for non-sensitive value
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Export: ExportConfig{
			PhotoTimeout:      getEnvDuration("EXPORT_PHOTO_TIMEOUT", 5*time.Second),
			PhotoMaxBytes:     int64(getEnvInt("EXPORT_PHOTO_MAX_BYTES", 10<<20)),
			PhotoMaxPixels:    int64(getEnvInt("EXPORT_PHOTO_MAX_PIXELS", 25_000_000)),
			JPEGQuality:       getEnvInt("EXPORT_JPEG_QUALITY", 92),
			PhotoPolicy:       getEnvOneOf("EXPORT_PHOTO_POLICY", PhotoPolicyOmit, PhotoPolicyOmit, PhotoPolicyFail),
			Filename:          getEnv("EXPORT_FILENAME", ""),
			PhotoAllowPrivate: getEnvBool("EXPORT_PHOTO_ALLOW_PRIVATE", false),
			PhotoAllowedHosts: splitList(getEnv("EXPORT_PHOTO_ALLOWED_HOSTS", "")),
			PhotoMaxRedirects: getEnvInt("EXPORT_PHOTO_MAX_REDIRECTS", 3),
		},
		Contact: ContactConfig{
			FullName:    getEnv("CONTACT_FULL_NAME", "Maryam Habeeb"),
			GivenName:   getEnv("CONTACT_GIVEN_NAME", "Maryam"),
			FamilyName:  getEnv("CONTACT_FAMILY_NAME", "Habeeb"),
			Title:       getEnv("CONTACT_TITLE", "Real Estate Agent"),
			Phone:       getEnv("CONTACT_PHONE", "2486172270"),
			Email:       getEnv("CONTACT_EMAIL", "Maryam@iconrex.com"),
			WorkURL:     getEnv("CONTACT_WORK_URL", "https://www.zillow.com/profile/maryam690"),
			ProfileURLs: parseProfileURLs(getEnv("CONTACT_PROFILE_URLS", defaultProfileURLs)),
			PhotoRef:    getEnv("CONTACT_PHOTO_REF", "assets/Headshot.jpeg"),
		},
	}
}

// parseProfileURLs reads "Label=url,Label=url" pairs, keeping their order.
// Malformed pairs are skipped.
func parseProfileURLs(raw string) []ProfileURL {
	out := make([]ProfileURL, 0)
	for _, pair := range strings.Split(raw, ",") {
		label, u, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || label == "" || u == "" {
			continue
		}
		out = append(out, ProfileURL{Label: label, URL: u})
	}
	return out
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getEnvOneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(os.Getenv(key))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
