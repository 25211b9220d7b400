package utils

import (
	"encoding/json"
	"net/http"
)

// Json пишет ответ в формате JSON с указанным статусом.
func Json(w http.ResponseWriter, httpStatus int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpStatus)
	return json.NewEncoder(w).Encode(data)
}

// Err пишет ошибку в виде {"error": "..."}.
func Err(w http.ResponseWriter, httpStatus int, err error) error {
	msg := http.StatusText(httpStatus)
	if err != nil {
		msg = err.Error()
	}
	return Json(w, httpStatus, map[string]string{"error": msg})
}
