package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/upload"
)

// UploadServiceInterface はアップロードハンドラーが必要とするサービスインターフェース。
type UploadServiceInterface interface {
	UploadDataURI(ctx context.Context, kind, file, folder string) (string, error)
	UploadRemote(ctx context.Context, rawURL, folder string) (string, error)
}

// UploadHandler はCDNへのアップロードを中継するHTTPハンドラー。
// serviceがnilの場合はCDNが未設定で、各操作は503を返す。
type UploadHandler struct {
	service UploadServiceInterface
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(service UploadServiceInterface) *UploadHandler {
	return &UploadHandler{service: service}
}

type uploadRequest struct {
	File   string `json:"file"`
	Folder string `json:"folder"`
}

type remoteUploadRequest struct {
	URL    string `json:"url"`
	Folder string `json:"folder"`
}

// Image は画像のdata URIをCDNにアップロードする。
// POST /api/upload/image
func (h *UploadHandler) Image(w http.ResponseWriter, r *http.Request) {
	h.uploadDataURI(w, r, upload.KindImage)
}

// Video は動画のdata URIをCDNにアップロードする。
// POST /api/upload/video
func (h *UploadHandler) Video(w http.ResponseWriter, r *http.Request) {
	h.uploadDataURI(w, r, upload.KindVideo)
}

// Remote はURLのメディアを取得してCDNにアップロードする。
// POST /api/upload/remote
func (h *UploadHandler) Remote(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewServiceUnavailableError("upload"))
		return
	}

	var req remoteUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("url"))
		return
	}

	url, err := h.service.UploadRemote(r.Context(), req.URL, req.Folder)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *UploadHandler) uploadDataURI(w http.ResponseWriter, r *http.Request, kind string) {
	if h.service == nil {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewServiceUnavailableError("upload"))
		return
	}

	var req uploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	url, err := h.service.UploadDataURI(r.Context(), kind, req.File, req.Folder)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
