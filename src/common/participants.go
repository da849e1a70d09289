package common

import (
	"context"
	"fmt"
	"strings"
	"ticketflow/src/db"
	"ticketflow/src/models"
	"ticketflow/src/types"

	"github.com/gosimple/slug"
)

// NormalizeName folds a participant name into its comparison key:
// diacritics stripped, whitespace collapsed, uppercased. "Ana Silva" and
// "ana   silva" normalize to the same key.
func NormalizeName(name string) string {
	s := slug.Make(name)
	s = strings.ReplaceAll(s, "-", " ")
	return strings.ToUpper(s)
}

// CapitalizeWords is the display form stored alongside the key.
func CapitalizeWords(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		r := []rune(strings.ToLower(f))
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

type ExistingParticipant struct {
	Original   string
	Normalized string
}

// ExistingParticipantsForEvent loads the normalized roster of an event.
// excludeTicketID skips one ticket so a participant rename does not
// collide with itself.
func ExistingParticipantsForEvent(ctx context.Context, eventID uint, excludeTicketID uint) ([]ExistingParticipant, error) {
	const op = "existingParticipants"
	conn := db.GetDb().WithContext(ctx)
	query := conn.Model(&models.Ticket{}).Where("event_id = ?", eventID)
	if excludeTicketID > 0 {
		query = query.Where("id <> ?", excludeTicketID)
	}
	var tickets []models.Ticket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	existing := make([]ExistingParticipant, 0, len(tickets))
	for _, t := range tickets {
		existing = append(existing, ExistingParticipant{
			Original:   t.ParticipantName,
			Normalized: t.ParticipantKey,
		})
	}
	return existing, nil
}

// CheckDuplicateParticipants validates a candidate batch against the
// event roster and against itself. Every conflict is reported, not just
// the first, so the operator can fix the whole batch in one round.
func CheckDuplicateParticipants(candidates []string, existing []ExistingParticipant) error {
	const op = "checkDuplicateParticipants"
	seen := map[string]string{}
	for _, e := range existing {
		if _, ok := seen[e.Normalized]; !ok {
			seen[e.Normalized] = e.Original
		}
	}
	var messages []string
	batch := map[string]string{}
	for _, name := range candidates {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			messages = append(messages, "participant name must not be empty")
			continue
		}
		key := NormalizeName(trimmed)
		if original, ok := seen[key]; ok {
			messages = append(messages, fmt.Sprintf("%s is already registered for this event (as %s)", trimmed, original))
			continue
		}
		if first, ok := batch[key]; ok {
			messages = append(messages, fmt.Sprintf("%s appears more than once in this request (as %s)", trimmed, first))
			continue
		}
		batch[key] = trimmed
	}
	if len(messages) > 0 {
		return types.NewDuplicateError(op, strings.Join(messages, "; "))
	}
	return nil
}
