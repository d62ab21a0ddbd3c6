package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix 页面缓存写入Redis的键统一加命名空间前缀
// Redis实例可能与其他工具共用，前缀把本系统的键圈在自己的键空间里
const redisKeyPrefix = "orientation:"

// RedisCache 基于Redis实现的页面缓存
// 页面内容在多次运行之间共享，适合反复调试选择器时减少上游请求
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache 创建一个新的Redis缓存
func NewRedisCache(config Config) (Cache, error) {
	// 配置Redis客户端
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// 测试连接
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
		ctx:    ctx,
	}, nil
}

// key 为缓存键加上命名空间前缀
func (r *RedisCache) key(k string) string {
	return redisKeyPrefix + k
}

// Get 获取缓存的页面内容
func (r *RedisCache) Get(key string) (string, bool, error) {
	value, err := r.client.Get(r.ctx, r.key(key)).Result()
	if err == redis.Nil {
		// 键不存在
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// Set 缓存页面内容
func (r *RedisCache) Set(key string, value string, ttl time.Duration) error {
	return r.client.Set(r.ctx, r.key(key), value, ttl).Err()
}

// Delete 删除缓存项
func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, r.key(key)).Err()
}

// Clear 清空本系统前缀下的全部缓存键
// 只扫描自己的键空间，同库中其他数据不受影响
func (r *RedisCache) Clear() error {
	iter := r.client.Scan(r.ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(r.ctx) {
		if err := r.client.Del(r.ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// 在包初始化时注册Redis缓存
func init() {
	RegisterCache("redis", NewRedisCache)
}
