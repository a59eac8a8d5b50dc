package redis

import "fmt"

// RateLimitUserKey 按用户的下单限流键。
func RateLimitUserKey(userID string) string {
	return fmt.Sprintf("catalog:rate_limit:user:%s", userID)
}

// RateLimitIPKey 解析不到用户时按 IP 降级限流。
func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("catalog:rate_limit:ip:%s", ip)
}
