package handlers

import (
	"net/http"

	"github.com/upb/llm-dispatch/app"
	"github.com/upb/llm-dispatch/utils"
)

// Version is reported by the status endpoint
const Version = "0.1.0"

// HealthCheck returns a simple health check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck reports whether the completion client is wired
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		status := "ready"

		if deps.Dispatcher == nil {
			status = "not_ready"
			checks["dispatcher"] = "not_initialized"
		} else {
			checks["dispatcher"] = "configured"
			checks["provider"] = deps.Dispatcher.ProviderName()
		}

		code := http.StatusOK
		if status != "ready" {
			code = http.StatusServiceUnavailable
		}
		_ = utils.WriteJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}

// StatusHandler returns application status information. The credential is never included.
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"version":     Version,
			"environment": deps.Config.Environment,
		}

		if deps.Dispatcher != nil {
			cfg := deps.Dispatcher.Config()
			response["provider"] = deps.Dispatcher.ProviderName()
			response["default_model"] = cfg.DefaultModel
			response["fallback_model"] = cfg.FallbackModel
			response["max_attempts"] = cfg.MaxAttempts
		} else {
			response["provider"] = deps.Config.Dispatch.Provider
		}

		_ = utils.WriteJSON(w, http.StatusOK, response)
	}
}
