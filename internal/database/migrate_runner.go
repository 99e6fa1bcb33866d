package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"forum/internal/middleware"

	"gorm.io/gorm"
)

// MigrationStore records which migrations have been applied.
type MigrationStore interface {
	GetAppliedMigrations(ctx context.Context) ([]int, error)
	ApplyMigration(ctx context.Context, version int, name, sql string) error
	RemoveMigration(ctx context.Context, version int) error
}

// MigrationLog is one row of the schema_migrations ledger.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "schema_migrations"
}

type migrationStore struct {
	db *gorm.DB
}

// NewMigrationStore returns a store backed by the schema_migrations table.
// Pass a transaction handle to make store writes part of that transaction.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

// GetAppliedMigrations lists applied versions in ascending order. A missing
// ledger table means nothing has been applied yet.
func (s *migrationStore) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	var versions []int
	err := s.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	switch {
	case err == nil:
		return versions, nil
	case errors.Is(err, gorm.ErrRecordNotFound), isMissingTableError(err):
		return []int{}, nil
	default:
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
}

// isMissingTableError matches the postgres and sqlite wording for an absent table.
func isMissingTableError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// ApplyMigration executes sql and writes the ledger row atomically.
func (s *migrationStore) ApplyMigration(ctx context.Context, version int, name, sql string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(sql).Error; err != nil {
			return fmt.Errorf("migration %06d_%s: %w", version, name, err)
		}
		if err := tx.Create(&MigrationLog{Version: version, Name: name}).Error; err != nil {
			return fmt.Errorf("record migration %06d: %w", version, err)
		}
		return nil
	})
}

func (s *migrationStore) RemoveMigration(ctx context.Context, version int) error {
	if err := s.db.WithContext(ctx).Where("version = ?", version).Delete(&MigrationLog{}).Error; err != nil {
		return fmt.Errorf("unrecord migration %06d: %w", version, err)
	}
	return nil
}

// versionSet is a lookup over migration versions.
type versionSet map[int]struct{}

func newVersionSet(versions []int) versionSet {
	set := make(versionSet, len(versions))
	for _, v := range versions {
		set[v] = struct{}{}
	}
	return set
}

func registeredVersions(registered []Migration) versionSet {
	set := make(versionSet, len(registered))
	for _, m := range registered {
		set[m.Version] = struct{}{}
	}
	return set
}

func (s versionSet) has(v int) bool {
	_, ok := s[v]
	return ok
}

// migrator runs a fixed list of migrations against one database.
type migrator struct {
	db         *gorm.DB
	registered []Migration
}

func newMigrator(db *gorm.DB, registered []Migration) *migrator {
	return &migrator{db: db, registered: registered}
}

// ensureLedger creates schema_migrations through the active dialect.
func (m *migrator) ensureLedger(ctx context.Context) error {
	mig := m.db.WithContext(ctx).Migrator()
	if mig.HasTable(&MigrationLog{}) {
		return nil
	}
	if err := mig.CreateTable(&MigrationLog{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// up applies every registered migration missing from the ledger, in version
// order, and returns how many ran. The ledger may not name versions this
// binary does not know.
func (m *migrator) up(ctx context.Context) (int, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return 0, err
	}
	store := NewMigrationStore(m.db)
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}
	if err := validateAppliedVersions(applied, m.registered); err != nil {
		return 0, err
	}

	pending := pendingMigrations(applied, m.registered)
	for _, mg := range pending {
		if err := store.ApplyMigration(ctx, mg.Version, mg.Name, mg.UpScript); err != nil {
			return 0, err
		}
		middleware.Logger.InfoContext(ctx, "Migration applied", slog.String("migration", mg.String()))
	}
	return len(pending), nil
}

// down reverts one applied migration. The down script and the ledger delete
// share a transaction, so a failing script leaves the version recorded.
func (m *migrator) down(ctx context.Context, version int) error {
	idx := slices.IndexFunc(m.registered, func(mg Migration) bool { return mg.Version == version })
	if idx < 0 {
		return fmt.Errorf("migration version %d not found", version)
	}
	mg := m.registered[idx]

	applied, err := NewMigrationStore(m.db).GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if !newVersionSet(applied).has(version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mg.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", mg.String(), err)
		}
		return NewMigrationStore(tx).RemoveMigration(ctx, version)
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "Migration reverted", slog.String("migration", mg.String()))
	return nil
}

// RunMigrations applies the embedded SQL migrations that are not yet recorded.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	n, err := newMigrator(db, migrations).up(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		middleware.Logger.InfoContext(ctx, "Schema up to date", slog.Int("migrations", len(migrations)))
	}
	return nil
}

// RollbackMigration reverts one embedded migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return newMigrator(db, migrations).down(ctx, version)
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	known := registeredVersions(registered)
	var unknown []int
	for _, v := range applied {
		if !known.has(v) {
			unknown = append(unknown, v)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	names := make([]string, len(unknown))
	for i, v := range unknown {
		names[i] = fmt.Sprintf("%06d", v)
	}
	return fmt.Errorf("schema_migrations records versions this build does not ship: %s", strings.Join(names, ", "))
}

func pendingMigrations(applied []int, registered []Migration) []Migration {
	done := newVersionSet(applied)
	var pending []Migration
	for _, m := range registered {
		if !done.has(m.Version) {
			pending = append(pending, m)
		}
	}
	return pending
}
