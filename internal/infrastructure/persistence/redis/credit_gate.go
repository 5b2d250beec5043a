// Package redis 提供用户额度的原子扣减实现
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// consumeScript 余额充足时扣减并返回剩余额度，不足时返回 -1，不做任何修改
var consumeScript = redis.NewScript(`
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if balance < amount then
	return -1
end
return redis.call('DECRBY', KEYS[1], amount)
`)

// CreditGate 基于 Redis 的额度闸门
type CreditGate struct {
	client *Client
}

// NewCreditGate 创建额度闸门
func NewCreditGate(client *Client) *CreditGate {
	return &CreditGate{client: client}
}

// TryConsume 原子地检查并扣减用户额度
//
// 余额不足时返回 (false, nil)，额度不回滚由调用方保证只在生成开始前调用一次。
func (g *CreditGate) TryConsume(ctx context.Context, userID string, amount int64, feature string) (bool, error) {
	ctx, span := tracer.Start(ctx, "credits.TryConsume")
	span.SetAttributes(
		attribute.String("credits.user_id", userID),
		attribute.Int64("credits.amount", amount),
		attribute.String("credits.feature", feature),
	)
	defer span.End()

	balanceKey := BuildCreditBalanceKey(userID)
	remaining, err := consumeScript.Run(ctx, g.client.rdb, []string{balanceKey}, amount).Int64()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to consume credits: %w", err)
	}

	if remaining < 0 {
		span.SetAttributes(attribute.Bool("credits.allowed", false))
		return false, nil
	}

	// 按功能维度记录当日用量，仅用于运营统计
	usageKey := BuildCreditUsageKey(userID, time.Now().UTC().Format("2006-01-02"))
	g.client.rdb.HIncrBy(ctx, usageKey, feature, amount)
	g.client.rdb.Expire(ctx, usageKey, 90*24*time.Hour)

	span.SetAttributes(
		attribute.Bool("credits.allowed", true),
		attribute.Int64("credits.remaining", remaining),
	)
	return true, nil
}

// Balance 查询用户剩余额度
func (g *CreditGate) Balance(ctx context.Context, userID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "credits.Balance")
	span.SetAttributes(attribute.String("credits.user_id", userID))
	defer span.End()

	val, err := g.client.Get(ctx, BuildCreditBalanceKey(userID))
	if IsNil(err) {
		return 0, nil
	}
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get credit balance: %w", err)
	}
	balance, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse credit balance: %w", err)
	}
	return balance, nil
}

// Grant 为用户增加额度
func (g *CreditGate) Grant(ctx context.Context, userID string, amount int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "credits.Grant")
	span.SetAttributes(
		attribute.String("credits.user_id", userID),
		attribute.Int64("credits.amount", amount),
	)
	defer span.End()

	balance, err := g.client.rdb.IncrBy(ctx, BuildCreditBalanceKey(userID), amount).Result()
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to grant credits: %w", err)
	}
	return balance, nil
}

// BuildCreditBalanceKey 构建额度余额键
func BuildCreditBalanceKey(userID string) string {
	return fmt.Sprintf("credits:balance:%s", userID)
}

// BuildCreditUsageKey 构建额度用量键
func BuildCreditUsageKey(userID, day string) string {
	return fmt.Sprintf("credits:usage:%s:%s", userID, day)
}
