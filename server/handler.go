// Package server exposes a form flow session over HTTP for embedding pages.
//
// Each request rebuilds the session from its durable stores (progress
// snapshot + experiment assignment), applies one operation, persists, and
// returns the rendered state. That mirrors the page-load lifecycle of the
// client-side embedding: all state lives in the stores, none in the process.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"formflow/flow"
	"formflow/storage"
)

const clientCookie = "formflow_client"

// Server serves one form definition.
type Server struct {
	def    *flow.Definition
	cfg    flow.Config
	store  storage.KVStore
	logger *slog.Logger
}

func New(def *flow.Definition, cfg flow.Config, store storage.KVStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{def: def, cfg: cfg, store: store, logger: logger}
}

// Register wires the form endpoints onto a gin engine.
func (s *Server) Register(g *gin.Engine) {
	g.GET("/form", s.handleState)
	g.GET("/form/export", s.handleExport)
	g.POST("/form/fields", s.handleFields)
	g.POST("/form/advance", s.handleAdvance)
	g.POST("/form/back", s.handleBack)
	g.POST("/form/jump", s.handleJump)
	g.POST("/form/submit", s.handleSubmit)
	g.POST("/form/reset", s.handleReset)
}

// clientID identifies the visitor, assigning a cookie on first contact so
// progress and variant slots are per-client.
func (s *Server) clientID(c *gin.Context) string {
	if id, err := c.Cookie(clientCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(clientCookie, id, int((365 * 24 * time.Hour).Seconds()), "/", "", false, true)
	return id
}

// session rebuilds the client's session from storage. The recorder pair
// captures what the session asks the renderer/history collaborators to do,
// so the response can carry it back to the embedding page.
func (s *Server) session(c *gin.Context) (*flow.Session, *recorders, bool) {
	rec := &recorders{}
	env := flow.Env{
		Cookies: &ginCookieJar{c: c},
		Store:   storage.Prefixed(s.store, "client/"+s.clientID(c)+"/"),
		Render:  rec,
		History: rec,
		Track:   flow.LogTracker{Logger: s.logger},
		Logger:  s.logger,
	}
	sess, err := flow.NewSession(s.def, s.cfg, env)
	if err != nil {
		s.logger.Error("session construction failed", "form", s.def.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "form misconfigured"})
		return nil, nil, false
	}
	if err := sess.Init(c.Request.URL.Query()); err != nil {
		s.logger.Error("session init failed", "form", s.def.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "form misconfigured"})
		return nil, nil, false
	}
	return sess, rec, true
}

func (s *Server) handleState(c *gin.Context) {
	sess, rec, ok := s.session(c)
	if !ok {
		return
	}
	defer sess.Destroy()
	c.JSON(http.StatusOK, stateResponse(sess, rec))
}

func (s *Server) handleFields(c *gin.Context) {
	sess, rec, ok := s.session(c)
	if !ok {
		return
	}
	defer sess.Destroy()

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wrong request body format"})
		return
	}
	values := flow.FieldData{}
	for name, value := range body {
		switch value.(type) {
		case string, bool:
			values[name] = value
		}
	}
	sess.SetData(values)
	c.JSON(http.StatusOK, stateResponse(sess, rec))
}

func (s *Server) handleAdvance(c *gin.Context) {
	sess, rec, ok := s.session(c)
	if !ok {
		return
	}
	defer sess.Destroy()
	if !s.respondNavError(c, sess.Advance()) {
		return
	}
	c.JSON(http.StatusOK, stateResponse(sess, rec))
}

func (s *Server) handleBack(c *gin.Context) {
	sess, rec, ok := s.session(c)
	if !ok {
		return
	}
	defer sess.Destroy()
	if !s.respondNavError(c, sess.Retreat()) {
		return
	}
	c.JSON(http.StatusOK, stateResponse(sess, rec))
}

func (s *Server) handleJump(c *gin.Context) {
	sess, rec, ok := s.session(c)
	if !ok {
		return
	}
	defer sess.Destroy()

	var body struct {
		Index int `json:"index"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wrong request body format"})
		return
	}
	if !s.respondNavError(c, sess.Jump(body.Index)) {
		return
	}
	c.JSON(http.StatusOK, stateResponse(sess, rec))
}

func (s *Server) handleSubmit(c *gin.Context) {
	sess, rec, ok := s.session(c)
	if !ok {
		return
	}
	defer sess.Destroy()

	err := sess.Submit(c.Request.Context())
	var verr *flow.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, stateResponse(sess, rec))
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": gin.H{"field": verr.Field, "message": verr.Message},
		})
	case errors.Is(err, flow.ErrSubmitInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "submission already in progress"})
	case errors.Is(err, flow.ErrNotSubmittable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "form is not ready for submission"})
	default:
		// Transport failure: surfaced with a retry path, data preserved.
		c.JSON(http.StatusBadGateway, gin.H{"error": "submission failed, please retry"})
	}
}

func (s *Server) handleReset(c *gin.Context) {
	sess, rec, ok := s.session(c)
	if !ok {
		return
	}
	defer sess.Destroy()
	sess.Reset()
	c.JSON(http.StatusOK, stateResponse(sess, rec))
}

func (s *Server) handleExport(c *gin.Context) {
	sess, _, ok := s.session(c)
	if !ok {
		return
	}
	defer sess.Destroy()

	format := c.DefaultQuery("format", "json")
	out, err := sess.Export(format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contentType := "application/json"
	if format == "csv" {
		contentType = "text/csv"
	}
	c.Data(http.StatusOK, contentType, []byte(out))
}

// respondNavError maps navigation errors to responses. Returns true when the
// caller should send the normal state response.
func (s *Server) respondNavError(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var verr *flow.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": gin.H{"field": verr.Field, "message": verr.Message},
		})
	case errors.Is(err, flow.ErrSubmitInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "submission already in progress"})
	case errors.Is(err, flow.ErrInvalidStepIndex):
		c.JSON(http.StatusBadRequest, gin.H{"error": "step index out of bounds"})
	default:
		s.logger.Error("navigation failed", "form", s.def.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "navigation failed"})
	}
	return false
}

func stateResponse(sess *flow.Session, rec *recorders) gin.H {
	resp := gin.H{
		"state":      sess.State().String(),
		"stepIndex":  sess.StepIndex(),
		"totalSteps": len(sess.VisibleSteps()),
		"variant":    sess.Variant(),
		"data":       sess.Data(),
	}
	if step, ok := sess.CurrentStep(); ok {
		resp["stepId"] = step.ID
	}
	if view, ok := rec.lastView(); ok {
		resp["progress"] = view.Progress
		resp["isLastStep"] = view.IsLast
	}
	if change, ok := rec.lastChange(); ok {
		resp["stepChange"] = change
	}
	if q, ok := rec.cleanedQuery(); ok {
		resp["query"] = q.Encode()
	}
	return resp
}

// ginCookieJar adapts gin's cookie access to the flow.CookieJar contract.
type ginCookieJar struct {
	c *gin.Context
}

func (j *ginCookieJar) Get(name string) (string, bool) {
	v, err := j.c.Cookie(name)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (j *ginCookieJar) Set(name, value string, maxAge time.Duration) {
	j.c.SetCookie(name, value, int(maxAge.Seconds()), "/", "", false, true)
}

func (j *ginCookieJar) Delete(name string) {
	j.c.SetCookie(name, "", -1, "/", "", false, true)
}

// recorders captures render and history callbacks during one request so the
// response can reflect them to the embedding page.
type recorders struct {
	view   *flow.StepView
	change *flow.StepChange
	query  url.Values
	hasQ   bool
}

func (r *recorders) Render(view flow.StepView) {
	v := view
	r.view = &v
}

func (r *recorders) StepChanged(change flow.StepChange) {
	c := change
	r.change = &c
}

func (r *recorders) ReplaceQuery(q url.Values) {
	r.query = q
	r.hasQ = true
}

func (r *recorders) lastView() (flow.StepView, bool) {
	if r.view == nil {
		return flow.StepView{}, false
	}
	return *r.view, true
}

func (r *recorders) lastChange() (flow.StepChange, bool) {
	if r.change == nil {
		return flow.StepChange{}, false
	}
	return *r.change, true
}

func (r *recorders) cleanedQuery() (url.Values, bool) {
	return r.query, r.hasQ
}
