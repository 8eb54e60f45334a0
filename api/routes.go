package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"habit-tracker/handler"
	"habit-tracker/logger"
	"habit-tracker/metrics"
)

// corsMiddleware 处理 CORS 跨域请求
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// 处理预检请求
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// recoverMiddleware 捕获 panic 防止服务崩溃
func recoverMiddleware(l *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					l.Error("panic recovered",
						zap.Any("panic", err),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next(w, r)
		}
	}
}

// statusRecorder 记录响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// accessLogMiddleware 记录访问日志和请求耗时
func accessLogMiddleware(l *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next(rec, r)

			elapsed := time.Since(start)
			pattern := r.Pattern
			if pattern == "" {
				pattern = r.URL.Path
			}
			metrics.RecordHTTPRequest(r.Method, pattern, strconv.Itoa(rec.status), elapsed)
			l.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", elapsed),
			)
		}
	}
}

// chain 链接多个中间件
func chain(f http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		f = middlewares[i](f)
	}
	return f
}

func SetupRoutes(h *handler.Handler, l *zap.Logger) *http.ServeMux {
	l = logger.OrNop(l)
	mux := http.NewServeMux()

	withMiddlewares := func(f http.HandlerFunc) http.HandlerFunc {
		return chain(f, accessLogMiddleware(l), corsMiddleware, recoverMiddleware(l))
	}

	optionsHandler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	registerHabitRoutes := func(base string) {
		mux.HandleFunc("GET "+base+"/habits", withMiddlewares(h.ListHabits))
		mux.HandleFunc("POST "+base+"/habits", withMiddlewares(h.CreateHabit))
		mux.HandleFunc("OPTIONS "+base+"/habits", withMiddlewares(optionsHandler))

		// {id} 用于重命名，{name} 用于删除和打卡
		mux.HandleFunc("PUT "+base+"/habits/{id}", withMiddlewares(h.RenameHabit))
		mux.HandleFunc("DELETE "+base+"/habits/{name}", withMiddlewares(h.DeleteHabit))
		mux.HandleFunc("OPTIONS "+base+"/habits/{name}", withMiddlewares(optionsHandler))

		mux.HandleFunc("POST "+base+"/habits/{name}/done", withMiddlewares(h.MarkDone))
		mux.HandleFunc("DELETE "+base+"/habits/{name}/done", withMiddlewares(h.UnmarkDone))
		mux.HandleFunc("OPTIONS "+base+"/habits/{name}/done", withMiddlewares(optionsHandler))

		mux.HandleFunc("GET "+base+"/stats", withMiddlewares(h.GetStats))
		mux.HandleFunc("GET "+base+"/calendar", withMiddlewares(h.GetCalendar))
	}

	// Versioned routes with legacy aliases for backward compatibility
	registerHabitRoutes("/api/v1")
	registerHabitRoutes("/api")

	mux.HandleFunc("/health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
