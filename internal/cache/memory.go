package cache

import (
	"container/list"
	"sync"
	"time"
)

const defaultMemoryCapacity = 10240

// MemoryCache 进程内 TTL 缓存
// 容量有界，写满后按 LRU 淘汰；进程重启即丢失，只做去重降噪与限流，
// 不承担正确性保证（正确性由存储层的条件更新兜底）。
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // 队首为最近使用
	now      func() time.Time
}

type memoryEntry struct {
	key       string
	value     interface{}
	expiresAt time.Time
	count     int
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get 读取缓存值，过期视为未命中
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.lookup(key)
	if entry == nil {
		return nil, false
	}
	return entry.value, true
}

// Set 写入缓存值并设置 TTL
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if element, ok := c.entries[key]; ok {
		entry := element.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(element)
		return
	}
	c.evictIfFull()
	c.entries[key] = c.order.PushFront(&memoryEntry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})
}

// Del 删除缓存值
func (c *MemoryCache) Del(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		c.removeElement(element)
	}
}

// Allow 固定窗口限流
// 同一 key 在 windowSeconds 窗口内最多放行 maxCount 次，窗口过期后计数重置。
func (c *MemoryCache) Allow(key string, maxCount int, windowSeconds int) bool {
	if maxCount <= 0 || windowSeconds <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.lookup(key)
	if entry == nil {
		c.evictIfFull()
		c.entries[key] = c.order.PushFront(&memoryEntry{
			key:       key,
			expiresAt: c.now().Add(time.Duration(windowSeconds) * time.Second),
			count:     1,
		})
		return true
	}
	if entry.count >= maxCount {
		return false
	}
	entry.count++
	return true
}

// Len 当前缓存条数
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// lookup 返回未过期条目并将其移到队首，过期条目顺手删除。调用方需持有锁。
func (c *MemoryCache) lookup(key string) *memoryEntry {
	element, ok := c.entries[key]
	if !ok {
		return nil
	}
	entry := element.Value.(*memoryEntry)
	if c.now().After(entry.expiresAt) {
		c.removeElement(element)
		return nil
	}
	c.order.MoveToFront(element)
	return entry
}

func (c *MemoryCache) evictIfFull() {
	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		c.removeElement(oldest)
	}
}

func (c *MemoryCache) removeElement(element *list.Element) {
	entry := element.Value.(*memoryEntry)
	delete(c.entries, entry.key)
	c.order.Remove(element)
}
