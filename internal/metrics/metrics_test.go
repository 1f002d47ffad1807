package metrics

import (
	"context"
	"testing"
)

// TestRegistryInc はカウンターの増分と集計をテストする
func TestRegistryInc(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	reg.Inc(ctx, "requests_total", map[string]string{"camera": "1"}, 1)
	reg.Inc(ctx, "requests_total", map[string]string{"camera": "1"}, 2)
	reg.Inc(ctx, "requests_total", map[string]string{"camera": "2"}, 1)
	reg.Inc(ctx, "busy_total", nil, 1)

	snapshot := reg.SnapshotJSON()

	if snapshot[`requests_total{camera=1}`] != 3 {
		t.Errorf("カウンター値が一致しません: got %d, want 3", snapshot[`requests_total{camera=1}`])
	}
	if snapshot[`requests_total{camera=2}`] != 1 {
		t.Errorf("カウンター値が一致しません: got %d, want 1", snapshot[`requests_total{camera=2}`])
	}
	if snapshot["busy_total"] != 1 {
		t.Errorf("ラベルなしカウンターが一致しません: got %d, want 1", snapshot["busy_total"])
	}
}

// TestRegistrySnapshotLines はテキスト出力の整列と書式をテストする
func TestRegistrySnapshotLines(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	reg.Inc(ctx, "b_counter", nil, 2)
	reg.Inc(ctx, "a_counter", nil, 1)

	lines := reg.SnapshotLines()

	if len(lines) != 2 {
		t.Fatalf("行数が一致しません: got %d, want 2", len(lines))
	}
	if lines[0] != "a_counter 1" {
		t.Errorf("1行目が一致しません: got %q", lines[0])
	}
	if lines[1] != "b_counter 2" {
		t.Errorf("2行目が一致しません: got %q", lines[1])
	}
}

// TestRegistryIncInvalidInstrumentName はOTel計装名として不正な名前でも
// ローカルのカウンターは集計されることをテストする
func TestRegistryIncInvalidInstrumentName(t *testing.T) {
	reg := NewRegistry()

	// 数字始まりはOTelの計装名として不正
	reg.Inc(context.Background(), "0invalid", nil, 1)

	if reg.SnapshotJSON()["0invalid"] != 1 {
		t.Errorf("ローカルカウンターが集計されていません: got %d", reg.SnapshotJSON()["0invalid"])
	}
}

// TestFullKey はキーの決定性をテストする
func TestFullKey(t *testing.T) {
	a := fullKey("c", map[string]string{"x": "1", "y": "2"})
	b := fullKey("c", map[string]string{"y": "2", "x": "1"})

	if a != b {
		t.Errorf("ラベル順序によってキーが変わっています: %q != %q", a, b)
	}
	if a != "c{x=1,y=2}" {
		t.Errorf("キーの書式が一致しません: got %q", a)
	}
}
