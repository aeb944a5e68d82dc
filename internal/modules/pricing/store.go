// README: Pricing store backed by PostgreSQL.
package pricing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ListRates returns the stored rate rows; classes without a row keep their default rate.
func (s *Store) ListRates(ctx context.Context) (Table, error) {
	rows, err := s.db.Query(ctx, `
		SELECT vehicle_class, base_fare, per_km, currency
		FROM pricing_rates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := Table{}
	for rows.Next() {
		var r Rate
		var class string
		if err := rows.Scan(&class, &r.BaseFare, &r.PerKm, &r.Currency); err != nil {
			return nil, err
		}
		r.Class = VehicleClass(class)
		if !r.Class.Valid() {
			continue
		}
		t[r.Class] = r
	}
	return t, rows.Err()
}
