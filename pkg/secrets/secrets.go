// Package secrets 提供了进程级缓存的命名密钥解析。
package secrets

import (
	"fmt"
	"os"
	"sync"
)

var (
	mu    sync.RWMutex
	cache = map[string]string{}
)

// Get 解析命名密钥并在进程内缓存结果，后续调用直接命中缓存。
// 当前实现从环境变量读取，配置文件中的敏感字段留空时由它补全。
func Get(name string) (string, error) {
	mu.RLock()
	if v, ok := cache[name]; ok {
		mu.RUnlock()
		return v, nil
	}
	mu.RUnlock()

	v, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("secret %s not found", name)
	}

	mu.Lock()
	cache[name] = v
	mu.Unlock()
	return v, nil
}
