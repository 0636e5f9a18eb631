package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hyperjump/similar/internal/evaluation"
	"github.com/hyperjump/similar/internal/keyword"
	"github.com/hyperjump/similar/internal/models"
	"github.com/hyperjump/similar/internal/recommend"
	"github.com/hyperjump/similar/internal/storage"
	"github.com/hyperjump/similar/internal/vector"
)

const (
	defaultItemLimit = 10
	maxItemLimit     = 100
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeRequest reads a JSON body into req and checks its validate tags.
func decodeRequest(r *http.Request, req interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return errors.New("invalid request body")
	}
	return validate.Struct(req)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st recommend.Status
	if err := s.withSession(func(sess *recommend.Session) error {
		st = sess.Status()
		return nil
	}); err != nil {
		s.respondFailure(w, "status failed", err)
		return
	}
	resp := map[string]interface{}{
		"session":         st,
		"faiss_available": vector.IsFAISSAvailable(),
	}
	if s.storage != nil {
		n, err := s.storage.CountItems(r.Context())
		if err != nil {
			s.logger.Error("status: count items failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["stored_items"] = n
	}
	if s.config != nil {
		paths := []string{s.config.Data.MetadataPath}
		variantPaths := s.config.Data.Variants.Paths()
		for _, v := range models.Variants {
			paths = append(paths, variantPaths[v])
		}
		paths = append(paths, s.config.Storage.DatabasePath)
		if files, total, err := storage.DataFiles(paths...); err == nil {
			resp["files"] = files
			resp["disk_usage_bytes"] = total
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFindItems(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := defaultItemLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxItemLimit)
	}
	var hits []keyword.TitleHit
	if err := s.withSession(func(sess *recommend.Session) (err error) {
		hits, err = sess.FindTitles(q, limit)
		return err
	}); err != nil {
		s.respondFailure(w, "title search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"items": hits})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var item models.Item
	if err := s.withSession(func(sess *recommend.Session) (err error) {
		item, err = sess.Catalog().Item(id)
		return err
	}); err != nil {
		s.respondFailure(w, "get item failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	id, err := strconv.ParseInt(query.Get("item"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "item must be an integer id")
		return
	}
	variant, err := parseVariant(query.Get("variant"))
	if err != nil {
		s.respondFailure(w, "recommend failed", err)
		return
	}
	k := 0
	if v := query.Get("k"); v != "" {
		if k, err = strconv.Atoi(v); err != nil {
			s.respondError(w, http.StatusBadRequest, "k must be an integer")
			return
		}
	}
	s.logger.Debug("recommend request", zap.Int64("item", id), zap.String("variant", string(variant)), zap.Int("k", k))
	var resp *recommend.Response
	if err := s.withSession(func(sess *recommend.Session) (err error) {
		resp, err = sess.Recommend(recommend.Request{ItemID: id, Variant: variant, K: k})
		return err
	}); err != nil {
		s.respondFailure(w, "recommend failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type topSimilarRequest struct {
	Variant string  `json:"variant"`
	IDs     []int64 `json:"ids" validate:"required,min=1"`
	K       int     `json:"k" validate:"gte=0"`
}

func (s *Server) handleTopSimilar(w http.ResponseWriter, r *http.Request) {
	var req topSimilarRequest
	if err := decodeRequest(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	variant, err := parseVariant(req.Variant)
	if err != nil {
		s.respondFailure(w, "top similar failed", err)
		return
	}
	var rows []models.SimilarityRow
	if err := s.withSession(func(sess *recommend.Session) (err error) {
		rows, err = sess.TopSimilar(variant, req.IDs, req.K)
		return err
	}); err != nil {
		s.respondFailure(w, "top similar failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"rows": nonNil(rows)})
}

type cosineRequest struct {
	Variant string  `json:"variant"`
	Left    []int64 `json:"left" validate:"required,min=1"`
	Right   []int64 `json:"right" validate:"required,min=1"`
}

func (s *Server) handleCosineSimilarity(w http.ResponseWriter, r *http.Request) {
	var req cosineRequest
	if err := decodeRequest(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	variant, err := parseVariant(req.Variant)
	if err != nil {
		s.respondFailure(w, "cosine similarity failed", err)
		return
	}
	var rows []models.SimilarityRow
	if err := s.withSession(func(sess *recommend.Session) (err error) {
		rows, err = sess.CosineSimilarity(variant, req.Left, req.Right)
		return err
	}); err != nil {
		s.respondFailure(w, "cosine similarity failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"rows": nonNil(rows)})
}

type evaluationRequest struct {
	Source  string                 `json:"source" validate:"max=255"`
	Rows    []models.EvaluationRow `json:"rows" validate:"required,min=1"`
	K       int                    `json:"k" validate:"gte=0"`
	Metrics []string               `json:"metrics" validate:"dive,oneof=precision_recall spearman"`
}

type evaluationResponse struct {
	ID     string             `json:"id,omitempty"`
	Report *evaluation.Report `json:"report"`
}

func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := decodeRequest(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	k := req.K
	if k == 0 && s.config != nil {
		k = s.config.Evaluation.K
	}
	rep, err := evaluation.Evaluate(evaluation.FromRows(req.Rows), evaluation.DefaultColumns(), k, req.Metrics...)
	if err != nil {
		s.respondFailure(w, "evaluation failed", err)
		return
	}

	resp := evaluationResponse{Report: rep}
	if s.storage != nil {
		body, err := json.Marshal(rep)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		run := &models.EvaluationRun{Source: req.Source, K: k, Metrics: rep.Metrics, Groups: rep.Summary.Groups, Report: body}
		if err := s.storage.CreateRun(r.Context(), run); err != nil {
			s.logger.Error("persist evaluation run failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.ID = run.ID
	}
	s.logger.Debug("evaluation completed", zap.String("id", resp.ID), zap.Int("groups", rep.Summary.Groups), zap.Int("k", k))
	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not configured")
		return
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	runs, err := s.storage.ListRuns(r.Context(), max(offset, 0), min(limit, maxItemLimit))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.EvaluationRun{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not configured")
		return
	}
	run, err := s.storage.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, "get evaluation failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		s.respondError(w, http.StatusNotImplemented, "reload not configured")
		return
	}
	if err := s.reloader.Reload(r.Context()); err != nil {
		s.respondFailure(w, "reload failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// withSession runs fn against the current session. A reload can close the
// session between Holder.Session and the query; fn is then retried once
// against the session that replaced it.
func (s *Server) withSession(fn func(*recommend.Session) error) error {
	sess, err := s.sessions.Session()
	if err != nil {
		return err
	}
	err = fn(sess)
	if !errors.Is(err, recommend.ErrSessionClosed) {
		return err
	}
	if sess, err = s.sessions.Session(); err != nil {
		return err
	}
	return fn(sess)
}

func parseVariant(s string) (models.Variant, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return models.ParseVariant(s)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnknownID), errors.Is(err, models.ErrUnknownVariant), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidK), errors.Is(err, evaluation.ErrUnknownColumn),
		errors.Is(err, evaluation.ErrUnknownMetric), errors.Is(err, evaluation.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, recommend.ErrSessionClosed), errors.Is(err, recommend.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func nonNil(rows []models.SimilarityRow) []models.SimilarityRow {
	if rows == nil {
		return []models.SimilarityRow{}
	}
	return rows
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
