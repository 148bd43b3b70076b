// utils/safelog.go
// ============================================================================
// SAFE LOGGING - masks personal and financial data in production
// ============================================================================
// Ledger amounts, owner ids and charge ids are shortened or hidden when the
// service runs in production mode. Levels come from LOG_LEVEL.
// ============================================================================

package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
)

var (
	// IsProduction turns masking on.
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production" ||
		os.Getenv("ENV") == "production"

	LogLevel = parseLogLevel(os.Getenv("LOG_LEVEL"))
)

const (
	LogLevelDebug = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func parseLogLevel(level string) int {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ============================================================================
// MASKING
// ============================================================================

var (
	emailRegex              = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	ibanRegex               = regexp.MustCompile(`[A-Z]{2}\d{2}[A-Z0-9]{10,30}`)
	amountWithCurrencyRegex = regexp.MustCompile(`-?\b\d+([.,]\d{1,4})?\s*(€|EUR|CHF|GBP|USD|JPY|£|\$)`)
	uuidRegex               = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// MaskString hides emails, IBANs and currency amounts and shortens UUIDs.
func MaskString(input string) string {
	if !IsProduction {
		return input
	}
	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = ibanRegex.ReplaceAllString(result, "****IBAN****")
	result = amountWithCurrencyRegex.ReplaceAllString(result, "***")
	return uuidRegex.ReplaceAllStringFunc(result, shortenID)
}

func shortenID(id string) string {
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

func MaskAmount(amount string) string {
	if IsProduction {
		return "***"
	}
	return amount
}

// MaskID keeps the first 8 characters of an id in production.
func MaskID(id string) string {
	if !IsProduction {
		return id
	}
	return shortenID(id)
}

// ============================================================================
// LEVELLED LOGGING
// ============================================================================

func logAt(level int, prefix, format string, args ...interface{}) {
	if level < LogLevel {
		return
	}
	log.Printf("%s %s", prefix, MaskString(fmt.Sprintf(format, args...)))
}

func SafeDebug(format string, args ...interface{}) { logAt(LogLevelDebug, "[DEBUG]", format, args...) }
func SafeInfo(format string, args ...interface{})  { logAt(LogLevelInfo, "[INFO]", format, args...) }
func SafeWarn(format string, args ...interface{})  { logAt(LogLevelWarn, "[WARN]", format, args...) }

// SafeError is never filtered by level.
func SafeError(format string, args ...interface{}) {
	log.Printf("[ERROR] %s", MaskString(fmt.Sprintf(format, args...)))
}

// ============================================================================
// DOMAIN EVENTS
// ============================================================================

// LogAutoPost records the outcome of one auto-post pass. Counts are not
// sensitive and are never masked.
func LogAutoPost(asOf string, posted, advanced, failedSources int) {
	if LogLevel > LogLevelInfo {
		return
	}
	log.Printf("[AutoPost] asOf=%s posted=%d advanced=%d failed_sources=%d", asOf, posted, advanced, failedSources)
}

func LogLedgerWrite(action, chargeID, ownerID string, posted bool) {
	status := "POSTED"
	if !posted {
		status = "DUPLICATE"
	}
	log.Printf("[Ledger] %s - Charge: %s User: %s Status: %s", action, MaskID(chargeID), MaskID(ownerID), status)
}

func LogWebSocket(action, ownerID string) {
	log.Printf("[WS] %s - User: %s", action, MaskID(ownerID))
}

// LogAPIRequest logs a request without its body; ids in the path are masked.
func LogAPIRequest(method, path, userID string, statusCode int, duration string) {
	log.Printf("[API] %s %s - User: %s Status: %d Duration: %s",
		method, MaskString(path), MaskID(userID), statusCode, duration)
}

func GetEnvMode() string {
	if IsProduction {
		return "production"
	}
	return "development"
}

func LogStartup(appName, version, port string) {
	log.Printf("🚀 %s v%s starting...", appName, version)
	log.Printf("   Mode: %s", GetEnvMode())
	log.Printf("   Port: %s", port)
	log.Printf("   Log Level: %d", LogLevel)
	if IsProduction {
		log.Printf("   ⚠️  Production mode: sensitive data will be masked in logs")
	}
}
