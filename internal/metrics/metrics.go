// Package metrics はカウンター集計とその公開を担う
//
// ローカルのレジストリで値を保持しつつ、OpenTelemetryの
// カウンター計装にも同じ増分を記録する
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry はカウンターを保持し、OTelカウンターにも増分を転写する
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64 // key = fullKey(名前, ラベル)
	meter    metric.Meter
	otelCtrs map[string]metric.Int64Counter // 名前 -> 計装
}

// NewRegistry は新しいRegistryを作成する
func NewRegistry() *Registry {
	m := otel.GetMeterProvider().Meter("setsuna")
	return &Registry{
		counters: make(map[string]*atomic.Int64),
		meter:    m,
		otelCtrs: make(map[string]metric.Int64Counter),
	}
}

// fullKey は名前とラベルから決定的なキーを作る
func fullKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Inc は名前付きカウンターをラベル付きでn増やす
// 同じ増分をOpenTelemetryのカウンター計装にも記録する
func (r *Registry) Inc(ctx context.Context, name string, labels map[string]string, n int64) {
	key := fullKey(name, labels)

	// ローカルレジストリ
	r.mu.RLock()
	c := r.counters[key]
	r.mu.RUnlock()
	if c == nil {
		r.mu.Lock()
		if c = r.counters[key]; c == nil {
			var v atomic.Int64
			r.counters[key] = &v
			c = &v
		}
		r.mu.Unlock()
	}
	c.Add(n)

	// OTelへの転写
	r.mu.RLock()
	inst := r.otelCtrs[name]
	r.mu.RUnlock()
	if inst == nil {
		r.mu.Lock()
		if inst = r.otelCtrs[name]; inst == nil {
			ctr, err := r.meter.Int64Counter(name)
			if err != nil {
				log.Debug().Err(err).Str("counter", name).Msg("OTelカウンター計装の作成に失敗しました")
			}
			r.otelCtrs[name] = ctr
			inst = ctr
		}
		r.mu.Unlock()
	}
	if inst != nil {
		attrs := make([]attribute.KeyValue, 0, len(labels))
		for k, v := range labels {
			attrs = append(attrs, attribute.String(k, v))
		}
		inst.Add(ctx, n, metric.WithAttributes(attrs...))
	}
}

// SnapshotLines は現在のカウンターをソート済みのテキスト行で返す
func (r *Registry) SnapshotLines() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.counters))
	for k := range r.counters {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		r.mu.RLock()
		v := r.counters[k].Load()
		r.mu.RUnlock()
		lines = append(lines, fmt.Sprintf("%s %d", k, v))
	}
	return lines
}

// SnapshotJSON はカウンター名と値のマップを返す
func (r *Registry) SnapshotJSON() map[string]int64 {
	out := make(map[string]int64)
	r.mu.RLock()
	for k, v := range r.counters {
		out[k] = v.Load()
	}
	r.mu.RUnlock()
	return out
}

// GinHandlerText はカウンターをテキスト形式で書き出す
func (r *Registry) GinHandlerText(c *gin.Context) {
	var b strings.Builder
	for _, line := range r.SnapshotLines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(b.String()))
}

// GinHandlerJSON はカウンターをJSON形式で書き出す
func (r *Registry) GinHandlerJSON(c *gin.Context) {
	c.JSON(http.StatusOK, r.SnapshotJSON())
}
