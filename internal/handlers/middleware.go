package handlers

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/internal/shared"
)

// HeaderUserID is set by the gateway after authentication.
const HeaderUserID = "X-User-ID"

func (h *HTTPHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderUserID)), 10, 64)
		if err != nil || userID <= 0 {
			writeError(w, h.logger, entities.CodeUnauthorized, "Authentication required", nil)
			return
		}

		ctx := shared.WithUserID(r.Context(), userID)
		ctx = shared.WithClient(ctx, entities.ClientContext{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
