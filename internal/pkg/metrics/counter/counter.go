package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/invoxly/invoxly/app/repository"
	"github.com/invoxly/invoxly/internal/pkg/cache"
)

const (
	ordersCreatedKey    = "payment:counters:orders_created"
	paymentsAppliedKey  = "payment:counters:payments_applied"
	webhooksReceivedKey = "payment:counters:webhooks_received"
)

func dateField(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// AddOrderCreated increments the pending orders-created counter in Redis
func AddOrderCreated() error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, ordersCreatedKey, dateField(time.Now()), 1).Err()
}

// AddPaymentApplied increments the pending payments-applied counter in Redis
func AddPaymentApplied() error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, paymentsAppliedKey, dateField(time.Now()), 1).Err()
}

// AddWebhookReceived increments the pending webhooks-received counter in Redis
func AddWebhookReceived() error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhooksReceivedKey, dateField(time.Now()), 1).Err()
}

// FlushAll drains all pending counters into the payment_daily_stats table
func FlushAll() error {
	orders, err := drainHash(ordersCreatedKey)
	if err != nil {
		return err
	}
	applied, err := drainHash(paymentsAppliedKey)
	if err != nil {
		return err
	}
	webhooks, err := drainHash(webhooksReceivedKey)
	if err != nil {
		return err
	}

	dates := make(map[string]struct{})
	for d := range orders {
		dates[d] = struct{}{}
	}
	for d := range applied {
		dates[d] = struct{}{}
	}
	for d := range webhooks {
		dates[d] = struct{}{}
	}
	if len(dates) == 0 {
		return nil
	}

	repo := repository.GetGlobalFactory().GetStatsRepository()
	for date := range dates {
		if err := repo.AddDailyStats(date, orders[date], applied[date], webhooks[date]); err != nil {
			return err
		}
	}
	return nil
}

// drainHash atomically moves a counter hash to a temporary key and reads it,
// so in-flight increments land in the next flush instead of getting lost.
func drainHash(redisKey string) (map[string]int64, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || err.Error() == "redis: nil" {
			return nil, nil
		}
		return nil, err
	}
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(data))
	for date, raw := range data {
		inc, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || inc == 0 {
			continue
		}
		out[date] = inc
	}
	return out, nil
}
