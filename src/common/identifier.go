package common

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"ticketflow/src/db"
	"ticketflow/src/models"
	"ticketflow/src/types"
	"time"
)

type CodeKind string

const (
	CodeKindSale   CodeKind = "sale"
	CodeKindTicket CodeKind = "ticket"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeTimestampFormat = "20060102-150405"

const maxCodeAttempts = 6

// codeRetryBackoff gives the clock a chance to move to the next second
// before the next attempt.
var codeRetryBackoff = 120 * time.Millisecond

func randomChars(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := 0; i < length; i++ {
		buf[i] = codeCharset[int(buf[i])%len(codeCharset)]
	}
	return string(buf), nil
}

func codePrefix(kind CodeKind) string {
	if kind == CodeKindSale {
		return "BUY"
	}
	return "TICKET"
}

func codeExists(ctx context.Context, kind CodeKind, candidate string) (bool, error) {
	conn := db.GetDb().WithContext(ctx)
	var count int64
	var err error
	if kind == CodeKindSale {
		err = conn.Model(&models.Sale{}).Where("sale_code = ?", candidate).Count(&count).Error
	} else {
		err = conn.Model(&models.Ticket{}).Where("ticket_code = ?", candidate).Count(&count).Error
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateCode produces a human-readable code {PREFIX}-{YYYYMMDD-HHMMSS}-{RND}.
// The existence check is advisory only: nothing reserves the code, so
// callers must still treat an insert-time uniqueness violation as
// retryable.
func GenerateCode(ctx context.Context, kind CodeKind) (string, error) {
	const op = "generateCode"
	prefix := codePrefix(kind)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		suffix, err := randomChars(3)
		if err != nil {
			return "", types.NewDependencyError(op, err)
		}
		candidate := fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format(codeTimestampFormat), suffix)
		exists, err := codeExists(ctx, kind, candidate)
		if err != nil {
			return "", types.NewDependencyError(op, err)
		}
		if !exists {
			return candidate, nil
		}
		log.Printf("Code collision on %s, retrying (%d/%d)\n", candidate, attempt+1, maxCodeAttempts)
		time.Sleep(codeRetryBackoff)
	}
	// Longer suffix guarantees termination when the short space is
	// exhausted within one timestamp bucket.
	suffix, err := randomChars(6)
	if err != nil {
		return "", types.NewDependencyError(op, err)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format(codeTimestampFormat), suffix), nil
}
