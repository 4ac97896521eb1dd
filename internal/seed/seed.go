// Package seed loads a fixture fleet into an empty store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/hsdfat8/assettrack/internal/logger"
	"gopkg.in/yaml.v3"
)

// SystemActor is recorded as the author of seeded change records
const SystemActor = "system"

//go:embed dataset.yaml
var defaultDataset []byte

// Dataset is the fixture file layout
type Dataset struct {
	Users        []UserFixture        `yaml:"users"`
	Transformers []TransformerFixture `yaml:"transformers"`
	Plans        []PlanFixture        `yaml:"plans"`
	Records      []RecordFixture      `yaml:"records"`
	Events       []EventFixture       `yaml:"events"`
}

type UserFixture struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	Email      string     `yaml:"email"`
	Phone      string     `yaml:"phone"`
	Role       string     `yaml:"role"`
	Department string     `yaml:"department"`
	Status     string     `yaml:"status"`
	LastLogin  *time.Time `yaml:"last_login"`
}

type TransformerFixture struct {
	ID             string     `yaml:"id"`
	Name           string     `yaml:"name"`
	Site           string     `yaml:"site"`
	Latitude       float64    `yaml:"latitude"`
	Longitude      float64    `yaml:"longitude"`
	Type           string     `yaml:"type"`
	BatteryPercent int        `yaml:"battery_percent"`
	SignalStrength int        `yaml:"signal_strength"`
	InstallDate    *time.Time `yaml:"install_date"`
	QRCode         string     `yaml:"qr_code"`
	GPSID          string     `yaml:"gps_id"`
}

type PlanFixture struct {
	ID            string     `yaml:"id"`
	TransformerID string     `yaml:"transformer_id"`
	Name          string     `yaml:"name"`
	Category      string     `yaml:"category"`
	Recurrence    string     `yaml:"recurrence"`
	NextDue       time.Time  `yaml:"next_due"`
	AssignedTo    string     `yaml:"assigned_to"`
	Checklist     []string   `yaml:"checklist"`
	StartedBy     string     `yaml:"started_by"`
	StartedAt     *time.Time `yaml:"started_at"`
}

type RecordFixture struct {
	ID            string    `yaml:"id"`
	TransformerID string    `yaml:"transformer_id"`
	PlanID        string    `yaml:"plan_id"`
	PerformedBy   string    `yaml:"performed_by"`
	Category      string    `yaml:"category"`
	PerformedAt   time.Time `yaml:"performed_at"`
	Notes         string    `yaml:"notes"`
	PhotoCount    int       `yaml:"photo_count"`
}

type EventFixture struct {
	ID            string    `yaml:"id"`
	TransformerID string    `yaml:"transformer_id"`
	ReconciledBy  string    `yaml:"reconciled_by"`
	ReconciledAt  time.Time `yaml:"reconciled_at"`
	GPSVerified   bool      `yaml:"gps_verified"`
	PhotoCount    int       `yaml:"photo_count"`
	Method        string    `yaml:"method"`
	Notes         string    `yaml:"notes"`
}

// Result counts what a load wrote
type Result struct {
	Users        int
	Transformers int
	Plans        int
	Records      int
	Events       int
	Skipped      bool
}

// Default returns the embedded demonstration dataset
func Default() (*Dataset, error) {
	return Parse(defaultDataset)
}

// LoadFile reads a dataset from disk
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML dataset
func Parse(data []byte) (*Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse seed dataset: %w", err)
	}
	return &d, nil
}

// Apply writes the dataset in one transaction. A store that already holds
// users or transformers is left untouched.
func (d *Dataset) Apply(ctx context.Context, store ports.TxStore, now time.Time) (Result, error) {
	log := logger.New("seed", "")

	populated, err := hasData(ctx, store)
	if err != nil {
		return Result{}, err
	}
	if populated {
		log.Infow("Store already populated, skipping seed")
		return Result{Skipped: true}, nil
	}

	w, err := d.build(now)
	if err != nil {
		return Result{}, err
	}

	tx, err := store.BeginTransaction(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, u := range w.users {
		if err := tx.Users().Create(ctx, u); err != nil {
			return Result{}, fmt.Errorf("failed to seed user %s: %w", u.ID, err)
		}
		if err := logCreate(ctx, tx, models.EntityUser, u.ID, u.Version, now); err != nil {
			return Result{}, err
		}
	}
	for _, t := range w.transformers {
		if err := tx.Transformers().Create(ctx, t); err != nil {
			return Result{}, fmt.Errorf("failed to seed transformer %s: %w", t.ID, err)
		}
		if err := logCreate(ctx, tx, models.EntityTransformer, t.ID, t.Version, now); err != nil {
			return Result{}, err
		}
	}
	for _, p := range w.plans {
		if err := tx.Plans().Create(ctx, p); err != nil {
			return Result{}, fmt.Errorf("failed to seed plan %s: %w", p.ID, err)
		}
		if err := logCreate(ctx, tx, models.EntityMaintenancePlan, p.ID, p.Version, now); err != nil {
			return Result{}, err
		}
	}
	for _, r := range w.records {
		if err := tx.Records().Create(ctx, r); err != nil {
			return Result{}, fmt.Errorf("failed to seed record %s: %w", r.ID, err)
		}
		if err := logCreate(ctx, tx, models.EntityMaintenanceRecord, r.ID, r.Version, now); err != nil {
			return Result{}, err
		}
	}
	for _, e := range w.events {
		if err := tx.Events().Append(ctx, e); err != nil {
			return Result{}, fmt.Errorf("failed to seed reconciliation event %s: %w", e.ID, err)
		}
		if err := logCreate(ctx, tx, models.EntityReconciliationEvent, e.ID, 1, now); err != nil {
			return Result{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to commit seed: %w", err)
	}

	res := Result{
		Users:        len(w.users),
		Transformers: len(w.transformers),
		Plans:        len(w.plans),
		Records:      len(w.records),
		Events:       len(w.events),
	}
	log.Infow("Seed completed",
		"users", res.Users, "transformers", res.Transformers, "plans", res.Plans,
		"records", res.Records, "events", res.Events)
	return res, nil
}

func hasData(ctx context.Context, store ports.TxStore) (bool, error) {
	users, err := store.Users().List(ctx, models.UserFilter{}, models.Page{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("failed to inspect users: %w", err)
	}
	transformers, err := store.Transformers().List(ctx, models.TransformerFilter{IncludeArchived: true}, models.Page{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("failed to inspect transformers: %w", err)
	}
	return len(users) > 0 || len(transformers) > 0, nil
}

func logCreate(ctx context.Context, tx ports.Transaction, kind models.EntityKind, id string, version int64, now time.Time) error {
	if version == 0 {
		version = 1
	}
	err := tx.Changes().Append(ctx, &models.ChangeRecord{
		Entity:     kind,
		EntityID:   id,
		ChangeType: models.ChangeTypeCreate,
		ChangedBy:  SystemActor,
		ChangedAt:  now,
		Version:    version,
		Summary:    "seeded",
	})
	if err != nil {
		return fmt.Errorf("failed to record seeded %s %s: %w", kind, id, err)
	}
	return nil
}
