package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/gin-gonic/gin"

	"setsuna/internal/config"
	"setsuna/internal/snapshot"
)

// multipartBoundary はスナップショット応答の固定バウンダリトークン
const multipartBoundary = "BOUNDARY"

// SnapshotHandler はAPIエンドポイントの実装
type SnapshotHandler struct {
	config  *config.Config
	service *snapshot.Service
}

// statusPayload はクライアントへ返すステータスJSONの構造
type statusPayload struct {
	CameraID  string `json:"camera_id"`
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latency_ms"`
	Detail    string `json:"detail"`
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *SnapshotHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *SnapshotHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "running",
		"server": gin.H{
			"host": h.config.Server.Host,
			"port": h.config.Server.Port,
		},
		"snapshot": gin.H{
			"max_concurrency":   h.config.Snapshot.MaxConcurrency,
			"health_timeout_ms": h.config.Snapshot.GrabTimeoutMS,
			"snapshot_cache_ms": h.config.Snapshot.CacheMS,
			"strategy":          h.config.Snapshot.Strategy,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetCameraSnapshot はカメラのスナップショット取得エンドポイントの実装
// 成功時はステータスJSONとJPEG画像のマルチパート、失敗時はJSONのみを返す
func (h *SnapshotHandler) GetCameraSnapshot(c *gin.Context) {
	cameraID := c.Param("camera_id")

	rec, err := h.service.Take(c.Request.Context(), cameraID)
	if err != nil {
		// 入場制御による拒否だけが非200になる
		if errors.Is(err, snapshot.ErrBusy) {
			c.JSON(http.StatusServiceUnavailable, statusPayload{
				CameraID:  cameraID,
				OK:        false,
				LatencyMS: 0,
				Detail:    snapshot.DetailBusy,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, statusPayload{
			CameraID: cameraID,
			OK:       false,
			Detail:   "internal error",
		})
		return
	}

	status := statusPayload{
		CameraID:  cameraID,
		OK:        rec.Outcome.OK,
		LatencyMS: rec.Outcome.Latency.Milliseconds(),
		Detail:    rec.Outcome.Detail,
	}

	// 画像がなければJSONのみを返す（取得失敗も200で返す）
	if !rec.Outcome.OK || len(rec.Outcome.Image) == 0 {
		c.JSON(http.StatusOK, status)
		return
	}

	h.writeMultipart(c, status, rec.Outcome.Image)
}

// writeMultipart はステータスJSONとJPEG画像のマルチパート応答を書き出す
func (h *SnapshotHandler) writeMultipart(c *gin.Context, status statusPayload, image []byte) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(multipartBoundary); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// 1つ目のパート: ステータスJSON
	jsonHeader := textproto.MIMEHeader{}
	jsonHeader.Set("Content-Type", "application/json; charset=utf-8")
	part, err := mw.CreatePart(jsonHeader)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	payload, err := json.Marshal(status)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if _, err := part.Write(payload); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// 2つ目のパート: JPEG画像
	imageHeader := textproto.MIMEHeader{}
	imageHeader.Set("Content-Type", "image/jpeg")
	imageHeader.Set("Content-Disposition", "inline; filename=snapshot.jpg")
	part, err = mw.CreatePart(imageHeader)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if _, err := part.Write(image); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	if err := mw.Close(); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, "multipart/mixed; boundary="+multipartBoundary, buf.Bytes())
}
