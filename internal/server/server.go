package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shouni/go-scene-kit/pkg/domain"
	"github.com/shouni/go-scene-kit/pkg/engine"
	"github.com/shouni/go-scene-kit/pkg/region"
)

// StatusClientClosedRequest は呼び出し元が接続を切った場合のステータスです（nginx 互換）。
const StatusClientClosedRequest = 499

const maxRequestBody = 1 << 20

// SceneRunner はシーン生成を実行します。workflow.SceneRunner が実装します。
type SceneRunner interface {
	Run(ctx context.Context, req domain.SceneRequest) (*domain.SceneResult, error)
}

// StatusChecker は推論エンジンの状態を返します。*engine.Client が実装します。
type StatusChecker interface {
	SystemStats(ctx context.Context) (*engine.SystemStats, error)
}

// Server はシーン生成を HTTP で公開するのだ。
type Server struct {
	runner SceneRunner
	status StatusChecker
	router chi.Router
}

// New は Server を生成し、ルーティングを組み立てます。
func New(runner SceneRunner, status StatusChecker) *Server {
	s := &Server{runner: runner, status: status}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/engine/status", s.handleEngineStatus)
		r.Get("/regions", s.handleRegions)
		r.Post("/scenes", s.handleCreateScene)
	})
	s.router = r
	return s
}

// Handler はルーターを http.Handler として返します。
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe は ctx がキャンセルされるまで addr で待ち受け、その後グレースフルに停止します。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP サーバーを起動します", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("HTTP サーバーを停止します")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEngineStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.status.SystemStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, region.Presets())
}

func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	var req domain.SceneRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "リクエストの解析に失敗しました: " + err.Error()})
		return
	}

	result, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor はエラーの種類を HTTP ステータスに対応付けます。
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrTimedOut):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorBody{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	slog.WarnContext(r.Context(), "リクエストの処理に失敗しました",
		"path", r.URL.Path,
		slog.Int("status", code),
		"error", err,
	)
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("レスポンスの書き込みに失敗しました", "error", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.DebugContext(r.Context(), "HTTP リクエスト",
			"method", r.Method,
			"path", r.URL.Path,
			slog.Int("status", ww.Status()),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
