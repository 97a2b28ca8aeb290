package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/mannyc2/watchify-app-sub000/internal/platform/envutil"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
)

// Service owns the GORM handle. The default driver is sqlite, a local
// single-writer file store; postgres is selected with DB_DRIVER=postgres.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	driver := envutil.String("DB_DRIVER", "sqlite")
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		host := envutil.String("POSTGRES_HOST", "localhost")
		port := envutil.String("POSTGRES_PORT", "5432")
		user := envutil.String("POSTGRES_USER", "postgres")
		password := envutil.String("POSTGRES_PASSWORD", "")
		name := envutil.String("POSTGRES_NAME", "watchify")
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			user, password, host, port, name,
		)
		dialector = postgres.Open(dsn)
	case "sqlite":
		path := envutil.String("SQLITE_PATH", "watchify.db")
		dialector = sqlite.Open(path + "?_foreign_keys=on")
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	serviceLog.Info("Database connected", "driver", driver)
	return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }
