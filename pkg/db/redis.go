// Package db содержит конструкторы клиентов внешних хранилищ.
package db

import "github.com/redis/go-redis/v9"

// ConnectRedis создаёт клиент Redis.
func ConnectRedis(addr, password string, database int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})
}
