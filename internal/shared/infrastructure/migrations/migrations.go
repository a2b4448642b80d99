package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// Run applies the schema for conn's driver, dispatching to
// RunPostgresMigrations or RunSQLiteMigrations as appropriate.
func Run(ctx context.Context, conn database.Connection) error {
	switch conn.Driver() {
	case database.DriverPostgres:
		pgConn, ok := conn.(interface{ Pool() *pgxpool.Pool })
		if !ok {
			return fmt.Errorf("postgres connection does not expose Pool()")
		}
		return RunPostgresMigrations(ctx, pgConn.Pool())
	case database.DriverSQLite:
		sqliteConn, ok := conn.(interface{ DB() *sql.DB })
		if !ok {
			return fmt.Errorf("sqlite connection does not expose DB()")
		}
		return RunSQLiteMigrations(ctx, sqliteConn.DB())
	default:
		return fmt.Errorf("unsupported driver: %s", conn.Driver())
	}
}
