package grabber

// NewForStrategy は設定された取得方式に対応するGrabberを作成する
// 未知の方式はデフォルトのpipe方式として扱う
func NewForStrategy(strategy string) Grabber {
	if strategy == "file" {
		return NewFileGrabber()
	}
	return NewPipeGrabber()
}
