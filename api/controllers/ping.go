package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/pkg/config"
)

// Ping is the storefront's connectivity probe; it touches no dependencies.
func Ping(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"service": "storefront-api",
			"env":     cfg.App.Env,
			"status":  "ok",
		})
	}
}
