package sql

import (
	"fmt"
	"strings"

	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	// Embeds the SQLite wasm binary used by gormlite.
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/equipviz/equipviz/pkg/config"
	"github.com/equipviz/equipviz/pkg/store/sql/model"
)

type Store struct {
	db *gorm.DB
}

const sqliteBusyTimeoutMs = 10000

// newDialector picks the gorm driver from the store URL scheme:
// sqlite://<path>, postgres(ql)://..., mysql://<dsn> or sqlserver://....
//
//nolint:ireturn
func newDialector(storeURL string) (gorm.Dialector, error) {
	scheme, rest, ok := strings.Cut(storeURL, "://")
	if !ok {
		return nil, fmt.Errorf("store url %q has no scheme", storeURL)
	}

	switch scheme {
	case "sqlite":
		if rest == "" {
			return nil, fmt.Errorf("store url %q has no database path", storeURL)
		}
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", rest, sqliteBusyTimeoutMs)
		return gormlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(storeURL), nil
	case "mysql":
		return mysql.Open(rest), nil
	case "sqlserver":
		return sqlserver.Open(storeURL), nil
	default:
		return nil, fmt.Errorf("unsupported store url scheme %q", scheme)
	}
}

func NewSQLStore(logger *logrus.Logger, cfg *config.Config) (*Store, error) {
	dialector, err := newDialector(cfg.StoreURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewLogger(logger, LoggerConfig{
			SlowThreshold:             cfg.SlowQueryThreshold.Duration,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY between them.
		sqlDB.SetMaxOpenConns(1)
	}

	return &Store{db: db}, nil
}

// titleCollationSQL returns the statement that makes datasets.title compare
// case-sensitively, or "" when the backend already does. SQLite and PostgreSQL
// default to binary comparison; MySQL and SQL Server default to case-insensitive
// collations.
func titleCollationSQL(dialect string) string {
	switch dialect {
	case "mysql":
		return "ALTER TABLE datasets MODIFY title VARCHAR(100) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"
	case "sqlserver":
		return "ALTER TABLE datasets ALTER COLUMN title NVARCHAR(100) COLLATE Latin1_General_100_CS_AS NOT NULL"
	default:
		return ""
	}
}

// Migrate creates or updates the datasets and equipment_records tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&model.Dataset{}, &model.EquipmentRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	statement := titleCollationSQL(s.db.Dialector.Name())
	if statement == "" {
		return nil
	}

	// SQL Server refuses to alter a column covered by an index, so the unique
	// index is rebuilt around the change.
	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		migrator := transaction.Migrator()
		if migrator.HasIndex(&model.Dataset{}, model.DatasetOwnerTitleIndex) {
			if err := migrator.DropIndex(&model.Dataset{}, model.DatasetOwnerTitleIndex); err != nil {
				return err
			}
		}
		if err := transaction.Exec(statement).Error; err != nil {
			return err
		}

		return migrator.CreateIndex(&model.Dataset{}, model.DatasetOwnerTitleIndex)
	}); err != nil {
		return fmt.Errorf("failed to make dataset titles case sensitive: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	return sqlDB.Close()
}
