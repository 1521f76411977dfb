package shared

import (
	"context"
	"encoding/json"
	"net/http"
)

func encodeJSON(w http.ResponseWriter, code int, response interface{}) error {
	if response == nil {
		w.WriteHeader(code)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(response)
}

func EncodeResponse200(_ context.Context, w http.ResponseWriter, response interface{}) error {
	return encodeJSON(w, http.StatusOK, response)
}

func EncodeResponse201(_ context.Context, w http.ResponseWriter, response interface{}) error {
	return encodeJSON(w, http.StatusCreated, response)
}

func EncodeResponse204(_ context.Context, w http.ResponseWriter, response interface{}) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}
