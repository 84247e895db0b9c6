package httpapi

import (
	"net/http"
)

func NewMux(source Pinger) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, source)
	return mux
}
