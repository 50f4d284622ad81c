package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/venturex/internal/middleware"
	"github.com/hitoshi/venturex/internal/model"
)

// maxBodyBytes はJSONリクエストボディの上限。アップロードのdata URIを含むため大きめに取る。
const maxBodyBytes = 16 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// decodeJSON はリクエストボディをdstにデコードする。
// 空ボディや不正なJSONの場合はINVALID_REQUESTを書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewFileTooLargeError(maxErr.Limit))
			return false
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeMissingIdentity, model.ErrCodeMissingField,
		model.ErrCodeInvalidField, model.ErrCodeInvalidURL, model.ErrCodeInvalidAmount,
		model.ErrCodeInvalidStep, model.ErrCodeInvalidFile:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeIdentityMismatch, model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeCompanyNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidStepOrder:
		return http.StatusConflict
	case model.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeBelowMinimum:
		return http.StatusUnprocessableEntity
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeChatUnavailable, model.ErrCodeUploadFailed:
		return http.StatusBadGateway
	case model.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// callerIdentity はリクエストの呼び出し元IDを決定する。
// 検証済みIDがある場合はそれを使い、異なるuserIdパラメータはIDENTITY_MISMATCHとする。
// 検証がない場合はuserIdパラメータをそのまま使う。
func callerIdentity(r *http.Request, param string) (string, error) {
	param = strings.TrimSpace(param)
	if id, ok := middleware.IdentityFromContext(r.Context()); ok && id.Verified {
		if param != "" && param != id.ID {
			return "", model.NewIdentityMismatchError()
		}
		return id.ID, nil
	}
	if param == "" {
		return "", model.NewMissingIdentityError()
	}
	if err := model.CheckLength("userId", param, model.MaxIdentityLength); err != nil {
		return "", err
	}
	return param, nil
}

// optionalIdentity はcallerIdentityと同じ規則で呼び出し元を決めるが、未指定を許す。
func optionalIdentity(r *http.Request, param string) (string, error) {
	id, err := callerIdentity(r, param)
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeMissingIdentity {
		return "", nil
	}
	return id, err
}
