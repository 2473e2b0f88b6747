// Package state records what happened to each job so a failed upload is visible after the run.
//
// The ledger is informational: the screenshot file on disk stays the only signal that decides
// whether a job is processed again. A record left in "captured" or "failed" marks a task whose
// screenshot exists but never reached the destination chat, which the resend command repairs.
package state

import (
	"context"
	"fmt"

	"github.com/researchaccelerator-hub/telegram-job/config"
	"github.com/researchaccelerator-hub/telegram-job/model"
)

// Ledger stores one JobRecord per job key.
type Ledger interface {
	// Get returns the record for key, or nil when none exists.
	Get(ctx context.Context, key string) (*model.JobRecord, error)

	// Put creates or replaces the record identified by rec.Key.
	Put(ctx context.Context, rec model.JobRecord) error

	// Close releases any connection held by the ledger.
	Close() error
}

// NopLedger discards every record.
type NopLedger struct{}

func (NopLedger) Get(context.Context, string) (*model.JobRecord, error) { return nil, nil }
func (NopLedger) Put(context.Context, model.JobRecord) error            { return nil }
func (NopLedger) Close() error                                          { return nil }

// NewLedger builds the ledger selected by cfg.Ledger.
func NewLedger(cfg config.Config) (Ledger, error) {
	switch cfg.Ledger {
	case config.LedgerNone, "":
		return NopLedger{}, nil
	case config.LedgerFile:
		return NewFileLedger(cfg.LedgerDir)
	case config.LedgerDapr:
		return NewDaprLedger(cfg.DaprGRPCPort, cfg.DaprStateStore)
	case config.LedgerRedis:
		return NewRedisLedger(cfg.RedisAddr, cfg.RedisDB), nil
	default:
		return nil, fmt.Errorf("unsupported ledger: %s", cfg.Ledger)
	}
}
