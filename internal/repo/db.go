package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// ErrEmptyDSN возвращается InitDB при пустой строке подключения.
var ErrEmptyDSN = errors.New("database dsn is empty")

// InitDB открывает базу и прогоняет миграции всех моделей.
// postgres:// и postgresql:// идут через pgx, всё остальное считается путём SQLite.
func InitDB(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrEmptyDSN
	}

	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgres(dsn) {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
	} else {
		db, err = gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, gcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if !isPostgres(dsn) {
		// SQLite: один писатель, иначе ловим SQLITE_BUSY на параллельных транзакциях
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// deleteOrphanItems удаляет из набора товары, на которые не осталось подписок.
// Вызывается внутри той же транзакции, что и удаление подписок.
func deleteOrphanItems(tx *gorm.DB, itemIDs []int64) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := tx.
		Where("id IN ?", itemIDs).
		Where("NOT EXISTS (SELECT 1 FROM subscriptions s WHERE s.item_id = items.id)").
		Delete(&model.Item{})
	return res.RowsAffected, res.Error
}
