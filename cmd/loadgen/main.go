// Load generator: fires concurrent withdrawal batches at a single account so
// the optimistic-concurrency path actually races, then reports how many
// batches committed, how many lost the race, and whether the account ended
// with at most one pending order.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tdhoang/withdrawal-service/internal/adapter/idgen"
	"github.com/tdhoang/withdrawal-service/internal/adapter/storage"
	"github.com/tdhoang/withdrawal-service/internal/core/domain"
	"github.com/tdhoang/withdrawal-service/internal/core/service"
)

const (
	mysqlDSN    = "root:root@tcp(localhost:3306)/withdrawals?parseTime=true"
	redisAddr   = "localhost:6379"
	totalItems  = 200
	workers     = 10
	batchSize   = 8
	rounds      = 10
	accountName = "loadgen-account"
)

func main() {
	ctx := context.Background()

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	account := seed(ctx, db, rdb)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	withdrawals := service.NewWithdrawalService(mysqlAdapter, mysqlAdapter, redisAdapter, idgen.New(), zap.NewNop())

	var committed, conflicts, failures atomic.Int64
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			for r := 0; r < rounds; r++ {
				keys := randomBatch(account, rng)
				_, err := withdrawals.WithdrawForAccount(ctx, uuid.NewString(), account, keys)
				switch {
				case err == nil:
					committed.Add(1)
				case errors.Is(err, service.ErrConcurrentModification),
					errors.Is(err, service.ErrItemNotWithdrawable):
					conflicts.Add(1)
				default:
					failures.Add(1)
					log.Printf("worker %d: unexpected error: %v", w, err)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("committed=%d conflicts=%d failures=%d in %s\n",
		committed.Load(), conflicts.Load(), failures.Load(), elapsed)

	var pending int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders WHERE account_id = ? AND status = ?`,
		account, domain.OrderStatusPending).Scan(&pending); err != nil {
		log.Fatalf("failed to count pending orders: %v", err)
	}
	fmt.Printf("pending orders for %s: %d (want at most 1)\n", account, pending)
	if pending > 1 {
		log.Fatal("invariant violated: more than one pending order")
	}
}

func seed(ctx context.Context, db *sql.DB, rdb *redis.Client) string {
	account := fmt.Sprintf("%s-%s", accountName, uuid.NewString()[:8])

	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (id, ship_recipient, ship_line1, ship_city, ship_postal_code, ship_country)
		VALUES (?, 'Load Gen', '1 Bench St', 'Testville', '00000', 'US')`, account)
	if err != nil {
		log.Fatalf("failed to seed account: %v", err)
	}

	for i := 0; i < totalItems; i++ {
		_, err := db.ExecContext(ctx, `
			INSERT INTO inventory_items (item_id, sub_key, account_id, status, updated_at)
			VALUES (?, ?, ?, ?, NOW(3))`,
			fmt.Sprintf("%s-item-%03d", account, i), "default", account, domain.ItemStatusUnfulfilled)
		if err != nil {
			log.Fatalf("failed to seed item %d: %v", i, err)
		}
	}

	rdb.Del(ctx, "withdraw:pending:"+account)
	return account
}

func randomBatch(account string, rng *rand.Rand) []domain.ItemKey {
	keys := make([]domain.ItemKey, 0, batchSize)
	seen := make(map[int]bool)
	for len(keys) < batchSize {
		n := rng.Intn(totalItems)
		if seen[n] {
			continue
		}
		seen[n] = true
		keys = append(keys, domain.ItemKey{
			ItemID: fmt.Sprintf("%s-item-%03d", account, n),
			SubKey: "default",
		})
	}
	return keys
}
