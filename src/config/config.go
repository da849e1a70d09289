package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const DATE_PARSE_FORMAT = "2006-01-02"

// SalesEnabled is a global kill switch for ticket sales, controlled
// outside the core. Anything other than "false" keeps sales open.
func SalesEnabled() bool {
	return os.Getenv("SALES_ENABLED") != "false"
}

// CheckInDebounceWindow is the cooldown applied to repeated scans of the
// same code. Correctness does not depend on it; the conditional update in
// the check-in engine does.
func CheckInDebounceWindow() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("CHECKIN_DEBOUNCE_MS"))
	if err != nil || ms <= 0 {
		return 2 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// SaleExpiryAge returns how old a pending sale may grow before the
// background sweep expires it. Zero disables the sweep.
func SaleExpiryAge() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("SALE_EXPIRY_HOURS"))
	if err != nil || hours <= 0 {
		return 0
	}
	return time.Duration(hours) * time.Hour
}
