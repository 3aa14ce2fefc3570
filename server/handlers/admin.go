package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nnnkkk7/pgcompat/pkg/compat"
	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
	"github.com/nnnkkk7/pgcompat/pkg/patch"
	"github.com/nnnkkk7/pgcompat/pkg/query"
	"github.com/nnnkkk7/pgcompat/server/apierror"
	"github.com/nnnkkk7/pgcompat/server/types"
)

// SampleStatements are translated when a translate request lists none.
var SampleStatements = []string{
	"SELECT SUM(IF(amount > 0, amount, 0)) FROM `tabGL Entry`",
	"SELECT * FROM `tabGL Entry` FORCE INDEX (posting_date) WHERE posting_date = '2024-01-01'",
	"SELECT IFNULL(item_name, 'N/A') FROM tabItem",
	"SELECT name, IF(status = 'Closed', IF(per_billed < 100, 'To Bill', 'Completed'), status) FROM `tabSales Order`",
}

// AdminHandler serves the administrative API: patch status and
// reinstallation, pipeline inspection, statement execution through the
// installed session, diagnostics and compatibility function management.
type AdminHandler struct {
	registry   *patch.Registry
	wrap       patch.WrapFunc
	translator query.SQLTranslator
	classifier query.StatementClassifier
	installer  *compat.Installer
	buffer     *diagnostic.Buffer
	pinger     Pinger
	logger     *slog.Logger

	// The installed session runs one statement at a time.
	queryMu sync.Mutex
}

// AdminOption configures an AdminHandler.
type AdminOption func(*AdminHandler)

// WithRegistry enables the patch and query endpoints. wrap is used for
// reinstallation.
func WithRegistry(registry *patch.Registry, wrap patch.WrapFunc) AdminOption {
	return func(h *AdminHandler) {
		h.registry = registry
		h.wrap = wrap
	}
}

// WithInstaller enables the compatibility function endpoints.
func WithInstaller(installer *compat.Installer) AdminOption {
	return func(h *AdminHandler) {
		h.installer = installer
	}
}

// WithBuffer sets the buffer the diagnostics endpoints read from.
func WithBuffer(buffer *diagnostic.Buffer) AdminOption {
	return func(h *AdminHandler) {
		h.buffer = buffer
	}
}

// Pinger checks database reachability. connection.Manager satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WithPinger makes the health endpoint report an unreachable database.
func WithPinger(pinger Pinger) AdminOption {
	return func(h *AdminHandler) {
		h.pinger = pinger
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) AdminOption {
	return func(h *AdminHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewAdminHandler creates a new admin handler. translator backs the
// translate endpoint and should not emit diagnostics.
func NewAdminHandler(translator query.SQLTranslator, opts ...AdminOption) *AdminHandler {
	if translator == nil {
		translator = query.NewTranslator()
	}
	h := &AdminHandler{
		translator: translator,
		classifier: query.NewClassifier(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the admin endpoints on r.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/patches", h.ListPatches)
		r.Post("/patches/reinstall", h.ReinstallPatches)

		r.Post("/translate", h.Translate)
		r.Post("/query", h.Query)

		r.Get("/diagnostics", h.ListDiagnostics)
		r.Get("/diagnostics/{id}", h.GetDiagnostic)

		r.Post("/functions/install", h.InstallFunctions)
		r.Get("/functions/verify", h.VerifyFunctions)
	})
}

// Health handles GET /health.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "database ping failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unreachable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Status handles GET /api/v1/status.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	data := &types.StatusData{
		Version:           patch.Version,
		DatabaseConnected: h.registry != nil,
	}
	if h.registry != nil {
		data.Patch = h.registry.Status()
	}
	if h.installer != nil {
		data.FunctionsInstalled = h.installer.Installed(r.Context())
	}
	if h.buffer != nil {
		data.BufferedRecords = h.buffer.Len()
	}

	writeJSON(w, http.StatusOK, types.StatusResponse{Success: true, Data: data})
}

// ListPatches handles GET /api/v1/patches.
func (h *AdminHandler) ListPatches(w http.ResponseWriter, r *http.Request) {
	executorInstalled := h.registry != nil && h.registry.Installed()
	functionsInstalled := h.installer != nil && h.installer.Installed(r.Context())

	writeJSON(w, http.StatusOK, types.PatchesResponse{
		Success: true,
		Data:    patch.Catalog(executorInstalled, functionsInstalled),
	})
}

// ReinstallPatches handles POST /api/v1/patches/reinstall.
func (h *AdminHandler) ReinstallPatches(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil || h.wrap == nil {
		sendError(w, apierror.NewUnavailableError("Patch reinstallation"))
		return
	}

	h.queryMu.Lock()
	h.registry.Reinstall(h.wrap)
	h.queryMu.Unlock()

	h.logger.InfoContext(r.Context(), "resilient executor reinstalled")
	writeJSON(w, http.StatusOK, types.ReinstallResponse{
		Success: true,
		Message: "PostgreSQL patches reloaded successfully",
		Data:    h.registry.Status(),
	})
}

// Translate handles POST /api/v1/translate. It never touches the database.
func (h *AdminHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req types.TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		sendError(w, apierror.NewInvalidParameterError("body", "invalid JSON"))
		return
	}

	statements := req.Statements
	if len(statements) == 0 {
		statements = SampleStatements
	}

	results := make([]types.TranslateResult, 0, len(statements))
	for _, stmt := range statements {
		tr := h.translator.Translate(r.Context(), stmt)
		results = append(results, types.NewTranslateResult(tr, h.classifier.Classify(stmt)))
	}

	writeJSON(w, http.StatusOK, types.TranslateResponse{Success: true, Data: results})
}

// Query handles POST /api/v1/query. The statement runs through the installed
// session and is committed on success; a failure rolls the session back.
func (h *AdminHandler) Query(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		sendError(w, apierror.NewUnavailableError("Query execution"))
		return
	}

	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, apierror.NewInvalidParameterError("body", "invalid JSON"))
		return
	}
	if req.SQL == "" {
		sendError(w, apierror.NewInvalidParameterError("sql", "statement is required"))
		return
	}

	ctx := r.Context()
	executionID := uuid.NewString()

	h.queryMu.Lock()
	defer h.queryMu.Unlock()

	sess := h.registry.Current()
	result, err := sess.Execute(ctx, req.SQL, req.Args...)
	if err != nil {
		if rbErr := sess.Rollback(ctx); rbErr != nil {
			h.logger.WarnContext(ctx, "rollback after failed query",
				slog.String("executionId", executionID),
				slog.String("error", rbErr.Error()),
			)
		}
		sendError(w, apierror.FromExecutionError(err).WithData("executionId", executionID))
		return
	}
	if err := sess.Commit(ctx); err != nil {
		sendError(w, apierror.FromExecutionError(err).WithData("executionId", executionID))
		return
	}

	writeJSON(w, http.StatusOK, types.QueryResponse{
		Success: true,
		Data: &types.QueryData{
			ExecutionID:  executionID,
			Columns:      result.Columns,
			ColumnTypes:  result.ColumnTypes,
			Rows:         result.Rows,
			RowsAffected: result.RowsAffected,
		},
	})
}

// ListDiagnostics handles GET /api/v1/diagnostics?kind=&limit=.
func (h *AdminHandler) ListDiagnostics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sendError(w, apierror.NewInvalidParameterError("limit", "must be a non-negative integer"))
			return
		}
		limit = n
	}

	records := []diagnostic.Record{}
	if h.buffer != nil {
		records = h.buffer.List(diagnostic.Kind(r.URL.Query().Get("kind")), limit)
	}

	writeJSON(w, http.StatusOK, types.DiagnosticsResponse{Success: true, Data: records})
}

// GetDiagnostic handles GET /api/v1/diagnostics/{id}.
func (h *AdminHandler) GetDiagnostic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		rec diagnostic.Record
		ok  bool
	)
	if h.buffer != nil {
		rec, ok = h.buffer.Get(id)
	}
	if !ok {
		sendError(w, apierror.NewNotFoundError("diagnostic", id))
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// InstallFunctions handles POST /api/v1/functions/install.
func (h *AdminHandler) InstallFunctions(w http.ResponseWriter, r *http.Request) {
	if h.installer == nil {
		sendError(w, apierror.NewUnavailableError("Function installation"))
		return
	}

	report, err := h.installer.Install(r.Context())
	if err != nil {
		sendError(w, apierror.FromError(err))
		return
	}

	writeJSON(w, http.StatusOK, types.InstallFunctionsResponse{Success: report.OK(), Data: report})
}

// VerifyFunctions handles GET /api/v1/functions/verify.
func (h *AdminHandler) VerifyFunctions(w http.ResponseWriter, r *http.Request) {
	if h.installer == nil {
		sendError(w, apierror.NewUnavailableError("Function verification"))
		return
	}

	passed, checks := h.installer.Verify(r.Context())
	writeJSON(w, http.StatusOK, types.VerifyFunctionsResponse{Success: true, Passed: passed, Data: checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, err *apierror.CompatError) {
	writeJSON(w, err.HTTPStatus(), err.ToResponse())
}
