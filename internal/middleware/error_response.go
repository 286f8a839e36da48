package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ratmeow/weather-tracker/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// statusByCode はエラーコードとHTTPステータスの対応表。
var statusByCode = map[string]int{
	model.ErrCodeLoginRequirement:     http.StatusUnprocessableEntity,
	model.ErrCodePasswordRequirement:  http.StatusUnprocessableEntity,
	model.ErrCodeInvalidRequest:       http.StatusUnprocessableEntity,
	model.ErrCodeUserAlreadyExists:    http.StatusConflict,
	model.ErrCodeUserNotFound:         http.StatusNotFound,
	model.ErrCodeLocationNotFound:     http.StatusNotFound,
	model.ErrCodeWrongPassword:        http.StatusUnauthorized,
	model.ErrCodeSessionNotFound:      http.StatusUnauthorized,
	model.ErrCodeUnauthorized:         http.StatusUnauthorized,
	model.ErrCodeUserLocation:         http.StatusBadRequest,
	model.ErrCodeWeatherProviderError: http.StatusInternalServerError,
	model.ErrCodeSessionStoreError:    http.StatusInternalServerError,
	model.ErrCodeInternalError:        http.StatusInternalServerError,
}

// StatusForCode はエラーコードに対応するHTTPステータスを返す。
// 未知のコードは500とする。
func StatusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteError はerrをエラーコードに応じたステータスで書き込む。
// APIErrorでないエラーは詳細をログに記録し、内部エラーとして返す。
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		slog.Error("unhandled error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteInternalServerError(w)
		return
	}
	WriteErrorResponse(w, StatusForCode(apiErr.Code), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
