package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bitterfly/go-chaos/kategorie/config"
	"github.com/bitterfly/go-chaos/kategorie/game"
	"github.com/bitterfly/go-chaos/kategorie/schema"
)

type ErrorType int

const (
	InsertError ErrorType = iota
	OpenError
	MigrateError
	UpdateError
	QueryError
)

type DatabaseError struct {
	ErrorType ErrorType
	msg       error
}

func newMigrateError(err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: MigrateError,
		msg:       fmt.Errorf("database migrate error: %w", err),
	}
}

func newOpenError(err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: OpenError,
		msg:       fmt.Errorf("database open error: %w", err),
	}
}

func newInsertError(err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: InsertError,
		msg:       fmt.Errorf("database insert error: %w", err),
	}
}

func newUpdateError(err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: UpdateError,
		msg:       fmt.Errorf("database update error: %w", err),
	}
}

func newQueryError(err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: QueryError,
		msg:       fmt.Errorf("database query error: %w", err),
	}
}

func (e *DatabaseError) Error() string {
	return e.msg.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.msg
}

// storeError marks a failure of the database itself, as opposed to a game
// rule, so callers can tell the two apart with errors.Is.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*DatabaseError); !ok {
		err = newQueryError(err)
	}
	return fmt.Errorf("%w: %w", game.ErrStoreUnavailable, err)
}

func Open(info config.Database) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(info.String()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, newOpenError(err)
	}
	return db, nil
}

func Automigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schema.Room{}); err != nil {
		return newMigrateError(fmt.Errorf("schema room, %w", err))
	}
	if err := db.AutoMigrate(&schema.Player{}); err != nil {
		return newMigrateError(fmt.Errorf("schema player, %w", err))
	}
	if err := db.AutoMigrate(&schema.Round{}); err != nil {
		return newMigrateError(fmt.Errorf("schema round, %w", err))
	}
	return nil
}
