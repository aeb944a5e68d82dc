// README: Migration file ordering and an opt-in run against Postgres.
package infra

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestMigrationNames_Ordered(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("migrationNames: %v", err)
	}
	want := []string{"001_rides.sql", "002_pricing_rates.sql", "003_ride_payments.sql"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("names = %v, want %v", names, want)
	}
}

func TestMigrate_Postgres(t *testing.T) {
	dsn := os.Getenv("BANTU_DB_DSN")
	if dsn == "" {
		t.Skip("BANTU_DB_DSN not set; skipping Postgres migration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := NewDB(ctx, dsn)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer pool.Close()

	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, pool); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}
	var n int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM pricing_rates`).Scan(&n); err != nil {
		t.Fatalf("count rates: %v", err)
	}
	if n < 4 {
		t.Fatalf("seeded rates = %d, want at least 4", n)
	}
}
