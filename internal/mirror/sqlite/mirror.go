// Package sqlite mirrors elections into a local SQLite database.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Mirror struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

func NewMirror(injector *do.Injector) (*Mirror, error) {
	config, err := do.Invoke[core.Config](injector)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	return Open(config.SQLitePath(), logger)
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string, logger logrus.FieldLogger) (*Mirror, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: gormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite mirror: %w", err)
	}

	err = db.AutoMigrate(&electionDB{}, &candidateDB{}, &voteRecordDB{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite mirror: %w", err)
	}

	logger = logger.WithField("component", "mirror.sqlite.Mirror")
	logger.WithField("path", path).Info("SQLite mirror opened")

	return &Mirror{
		db:     db,
		logger: logger,
	}, nil
}

func (m *Mirror) Load(ctx context.Context, address string) (core.Election, error) {
	var record electionDB

	err := m.db.WithContext(ctx).
		Preload("Candidates", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("VoteRecords", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("address = ?", address).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Election{}, fmt.Errorf("%w: %s", core.ErrElectionNotFound, address)
		}

		return core.Election{}, fmt.Errorf("failed to load election: %w", err)
	}

	return fromDB(record), nil
}

// Save replaces the election, its candidates and its roster in one transaction, unless the
// stored revision is already at or past election.Revision.
func (m *Mirror) Save(ctx context.Context, election core.Election) error {
	record := toDB(election)

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error { //nolint:wrapcheck
		var revisions []uint64

		err := tx.Model(&electionDB{}).Where("address = ?", record.Address).Pluck("revision", &revisions).Error
		if err != nil {
			return fmt.Errorf("failed to read revision: %w", err)
		}

		if len(revisions) > 0 && revisions[0] >= record.Revision {
			return fmt.Errorf("%w: %s is at revision %d", core.ErrStaleSnapshot, record.Address, revisions[0])
		}

		err = tx.Where("election_address = ?", record.Address).Delete(&candidateDB{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear candidates: %w", err)
		}

		err = tx.Where("election_address = ?", record.Address).Delete(&voteRecordDB{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear vote records: %w", err)
		}

		err = tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&record).Error
		if err != nil {
			return fmt.Errorf("failed to save election: %w", err)
		}

		if len(record.Candidates) > 0 {
			if err := tx.Create(&record.Candidates).Error; err != nil {
				return fmt.Errorf("failed to save candidates: %w", err)
			}
		}

		if len(record.VoteRecords) > 0 {
			if err := tx.Create(&record.VoteRecords).Error; err != nil {
				return fmt.Errorf("failed to save vote records: %w", err)
			}
		}

		return nil
	})
}

func (m *Mirror) Delete(ctx context.Context, address string) error {
	err := m.db.WithContext(ctx).Select(clause.Associations).Delete(&electionDB{Address: address}).Error
	if err != nil {
		return fmt.Errorf("failed to delete election: %w", err)
	}

	return nil
}

func (m *Mirror) Addresses(ctx context.Context) ([]string, error) {
	var addresses []string

	err := m.db.WithContext(ctx).Model(&electionDB{}).Order("address").Pluck("address", &addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}

	return addresses, nil
}

func (m *Mirror) HealthCheck() error {
	db, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}

	return nil
}

func (m *Mirror) Shutdown() error {
	db, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite mirror: %w", err)
	}

	m.logger.Info("SQLite mirror closed")

	return nil
}

func gormLogger() logger.Interface {
	return logger.Default.LogMode(logger.Warn)
}
