package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/leo/leo-picture-client/internal/model/response"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// RespondSuccess 以 code=0 的信封返回数据
func RespondSuccess[T any](w http.ResponseWriter, data T) {
	RespondJSON(w, http.StatusOK, response.Success(data))
}

// RespondFailure 以业务错误码返回，HTTP 状态仍为 200
func RespondFailure(w http.ResponseWriter, code int, message string) {
	RespondJSON(w, http.StatusOK, response.Failure(code, message))
}

// RespondError 发送错误响应，HTTP 状态与信封同时携带错误
func RespondError(w http.ResponseWriter, status, code int, message string) {
	RespondJSON(w, status, response.Failure(code, message))
}

// DecodeJSON 解析请求体，失败时返回 400
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		RespondError(w, http.StatusBadRequest, response.CodeParamsError, "请求参数错误")
		return false
	}
	return true
}
