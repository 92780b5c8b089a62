// Package digest persists the daily selection.
package digest

import (
	"context"
	"fmt"
	"log"

	"github.com/TobiSchelling/TechBrief/internal/database"
)

// Store writes digest records.
type Store interface {
	UpsertDigest(date string, storyIDs []string) (created bool, err error)
}

// Assembler creates or replaces the digest for a calendar date.
type Assembler struct {
	store Store
}

// NewAssembler creates a new Assembler.
func NewAssembler(store Store) *Assembler {
	return &Assembler{store: store}
}

// Assemble writes ids as the digest for date in one atomic upsert. Running it
// again for the same date replaces the stored list. A date that is not
// YYYY-MM-DD is rejected before anything is written. A write failure is the
// one error the digest run reports to its caller.
func (a *Assembler) Assemble(ctx context.Context, date string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := database.ParseDate(date); err != nil {
		return err
	}
	created, err := a.store.UpsertDigest(date, ids)
	if err != nil {
		return fmt.Errorf("writing digest for %s: %w", date, err)
	}
	if created {
		log.Printf("Created digest for %s with %d stories", date, len(ids))
	} else {
		log.Printf("Updated existing digest for %s with %d stories", date, len(ids))
	}
	return nil
}
