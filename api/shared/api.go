package shared

import (
	"encoding/json"
	"net/http"
)

const ServerErrorMessage = "An error occurred, please try again later"

type apiError struct {
	Error string `json:"error"`
}

func NewError(description string) apiError {
	return apiError{
		Error: description,
	}
}

var ServerError = NewError(ServerErrorMessage)

func HttpError(w http.ResponseWriter, error apiError, code int) {
	WriteJSON(w, error, code)
}

func WriteJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	switch v := data.(type) {
	case []byte:
		w.Write(v)
	case string:
		w.Write([]byte(v))
	default:
		json.NewEncoder(w).Encode(data)
	}
}
