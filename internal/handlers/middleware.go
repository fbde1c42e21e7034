package handlers

import (
	"log"
	"net/http"
	"time"

	"choreking/internal/models"
	"choreking/internal/security"
	"choreking/internal/service"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService) *Middleware {
	return &Middleware{authService: authService}
}

// currentFamily resolves the session cookie to the logged-in family.
// Returns nil when there is no usable session.
func (m *Middleware) currentFamily(r *http.Request) *models.Family {
	cookie, err := r.Cookie(security.SessionCookieName)
	if err != nil {
		return nil
	}
	session, err := m.authService.GetSession(cookie.Value)
	if err != nil {
		return nil
	}
	family, err := m.authService.GetFamily(session.FamilyID)
	if err != nil {
		return nil
	}
	return family
}

// statusRecorder captures the response status for the request log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging logs each request with method, path, status and duration
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, recorder.status, time.Since(start))
	})
}
