package handler

import (
	"net/http"
	"strconv"
)

type recommendQuery struct {
	Algorithm        string
	K                int `validate:"min=1,max=100"`
	FilterInteracted bool
}

type similarQuery struct {
	ItemID string `validate:"required,max=256"`
	K      int    `validate:"min=1,max=50"`
}

// intParam reads an integer query parameter, returning def when absent.
func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func boolParam(r *http.Request, name string, def bool) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
