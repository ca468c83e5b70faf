package health

import (
	"bytes"
	"context"
	"database/sql"
	"time"

	"github.com/libshelf/gate/store"
)

// probeTTL keeps roundtrip probe keys from accumulating.
const probeTTL = 5 * time.Second

// StoreCheck probes the backing store with a set/get roundtrip on a
// reserved key.
func StoreCheck(s store.Store) Checker {
	return CheckFunc{
		CheckName: "store",
		Fn: func(ctx context.Context) Result {
			key := "health:probe"
			want := []byte(time.Now().UTC().Format(time.RFC3339Nano))

			if err := s.SetTTL(ctx, key, want, probeTTL); err != nil {
				return Unhealthy("store write failed", err)
			}
			got, ok, err := s.Get(ctx, key)
			if err != nil {
				return Unhealthy("store read failed", err)
			}
			if !ok || !bytes.Equal(got, want) {
				return Unhealthy("store roundtrip mismatch", nil)
			}
			return Healthy("store roundtrip ok")
		},
	}
}

// DBCheck pings the relational database.
func DBCheck(db *sql.DB) Checker {
	return CheckFunc{
		CheckName: "database",
		Fn: func(ctx context.Context) Result {
			if err := db.PingContext(ctx); err != nil {
				return Unhealthy("database ping failed", err)
			}
			return Healthy("database ping ok")
		},
	}
}
