package snapshot

import (
	"sync"
	"time"

	"setsuna/internal/grabber"
)

// Record はカメラごとの直近の取得結果を表す
type Record struct {
	CameraID   string          // カメラの識別子
	CapturedAt time.Time       // リクエスト到着時刻（取得完了時刻ではない）
	Outcome    grabber.Outcome // 取得結果
}

// Cache はカメラIDをキーとする直近結果のキャッシュ
// カメラ1台につきレコード1件で、新しいレコードが古いものを完全に置き換える
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Record
	ttl     time.Duration // 鮮度期間。0ならキャッシュは実質無効
}

// NewCache は新しいCacheを作成する
// ttlが負の場合は0に切り上げる
func NewCache(ttl time.Duration) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		entries: make(map[string]Record),
		ttl:     ttl,
	}
}

// Get は鮮度期間内のレコードがあれば返す
func (c *Cache) Get(cameraID string, now time.Time) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.entries[cameraID]
	if !ok {
		return Record{}, false
	}
	if now.Sub(rec.CapturedAt) > c.ttl {
		return Record{}, false
	}
	return rec, true
}

// Put はレコードを無条件で上書き保存する
// 失敗結果も保存する（到達不能なカメラへの連打を防ぐ）
func (c *Cache) Put(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rec.CameraID] = rec
}
