package snapshot

import "sync"

// flightCall は実行中の取得1件を表す
type flightCall struct {
	done chan struct{}
	rec  Record
	err  error
}

// flightGroup は同一カメラへの同時ミスを1回の取得に合流させる
// 先行の取得が実行中であれば、後続はその完了を待って同じ結果を受け取る
type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*flightCall
}

// newFlightGroup は新しいflightGroupを作成する
func newFlightGroup() *flightGroup {
	return &flightGroup{calls: make(map[string]*flightCall)}
}

// do はcameraIDに対してfnを実行する
// 同じcameraIDのfnが実行中の場合は起動せず、その結果を共有する
func (f *flightGroup) do(cameraID string, fn func() (Record, error)) (Record, error) {
	f.mu.Lock()
	if call, ok := f.calls[cameraID]; ok {
		f.mu.Unlock()
		<-call.done
		return call.rec, call.err
	}

	call := &flightCall{done: make(chan struct{})}
	f.calls[cameraID] = call
	f.mu.Unlock()

	call.rec, call.err = fn()

	f.mu.Lock()
	delete(f.calls, cameraID)
	f.mu.Unlock()

	close(call.done)
	return call.rec, call.err
}
