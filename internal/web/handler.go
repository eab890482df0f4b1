package web

import (
	"errors"
	"html/template"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/logger"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/middleware"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/nutrition"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/patient"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/upload"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/workbench"
)

// SessionCookie carries the workbench session id.
const SessionCookie = "maxlife_session"

// StageFailedPrefix leads the error slot when picked files are rejected.
const StageFailedPrefix = "Could not read files: "

type Handler struct {
	store        *workbench.Store
	stager       *upload.Stager
	secureCookie bool
	authEnabled  bool
}

func NewHandler(store *workbench.Store, stager *upload.Stager, secureCookie, authEnabled bool) *Handler {
	return &Handler{
		store:        store,
		stager:       stager,
		secureCookie: secureCookie,
		authEnabled:  authEnabled,
	}
}

// session loads the caller's session, starting one if the cookie is
// missing, expired or was issued to another signed-in user.
func (h *Handler) session(c *gin.Context) *workbench.Session {
	id, _ := c.Cookie(SessionCookie)
	sess, created := h.store.GetOrCreate(id, c.GetString(middleware.KeyUserID))
	if created {
		h.setSessionCookie(c, sess.ID(), 0)
	}
	return sess
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, value, maxAge, "/", "", h.secureCookie, true)
}

// respond answers JSON clients with the session state and sends browsers
// back to the form.
func (h *Handler) respond(c *gin.Context, sess *workbench.Session, status int) {
	if wantsJSON(c) {
		c.JSON(status, sess.Snapshot())
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// GET /
func (h *Handler) Index(c *gin.Context) {
	sess := h.session(c)
	c.HTML(http.StatusOK, "index.html", h.newPage(c, sess.Snapshot()))
}

// GET /login
func (h *Handler) LoginPage(c *gin.Context) {
	if !h.authEnabled {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Failed": c.Query("error") != "",
	})
}

// POST /patient
func (h *Handler) UpdatePatient(c *gin.Context) {
	sess := h.session(c)

	if c.ContentType() == gin.MIMEJSON {
		p := patient.New()
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient"})
			return
		}
		sess.SetPatient(p)
		h.respond(c, sess, http.StatusOK)
		return
	}

	if err := applyPatientForm(c, sess); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, sess, http.StatusOK)
}

// applyPatientForm copies the patient fields present in the posted form onto
// the session. Fields that were not posted keep their value.
func applyPatientForm(c *gin.Context, sess *workbench.Session) error {
	for _, field := range patient.Fields() {
		if v, ok := c.GetPostForm(field); ok {
			if err := sess.SetField(field, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// POST /files
func (h *Handler) UploadFiles(c *gin.Context) {
	sess := h.session(c)

	form, err := c.MultipartForm()
	if err != nil {
		sess.SetError(StageFailedPrefix + "expected a multipart form")
		h.respond(c, sess, http.StatusBadRequest)
		return
	}

	files, err := h.stager.FromMultipart(form.File["files"])
	if err != nil {
		logger.Warn("file staging failed", zap.String("session", sess.ID()), zap.Error(err))
		sess.SetError(StageFailedPrefix + err.Error())
		h.respond(c, sess, http.StatusBadRequest)
		return
	}

	sess.SetFiles(files)
	h.respond(c, sess, http.StatusOK)
}

// POST /extract
func (h *Handler) Extract(c *gin.Context) {
	sess := h.session(c)
	if err := applyPatientForm(c, sess); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := sess.Extract(c.Request.Context())
	h.afterAction(c, sess, "extract", err)
}

// POST /generate
func (h *Handler) Generate(c *gin.Context) {
	sess := h.session(c)
	if err := applyPatientForm(c, sess); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := sess.GenerateDiet(c.Request.Context())
	h.afterAction(c, sess, "generate", err)
}

func (h *Handler) afterAction(c *gin.Context, sess *workbench.Session, action string, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		logger.Warn("backend call failed",
			zap.String("action", action),
			zap.String("session", sess.ID()),
			zap.Error(err),
		)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	h.respond(c, sess, status)
}

// statusFor maps a workbench action error to the HTTP status returned to
// JSON clients.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, workbench.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, workbench.ErrNoFiles):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// POST /reset
func (h *Handler) Reset(c *gin.Context) {
	h.discardSession(c)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "session reset"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// EndSession runs ahead of the logout handler so the form state does not
// outlive the sign-in.
func (h *Handler) EndSession(c *gin.Context) {
	h.discardSession(c)
	c.Next()
}

func (h *Handler) discardSession(c *gin.Context) {
	if id, err := c.Cookie(SessionCookie); err == nil {
		h.store.Delete(id)
	}
	h.setSessionCookie(c, "", -1)
}

// GET /api/session
func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).Snapshot())
}

// GET /api/calories
func (h *Handler) Calories(c *gin.Context) {
	activity := c.Query("activity")
	c.JSON(http.StatusOK, gin.H{
		"calorie_target": nutrition.EstimateCalories(
			c.Query("weight"), c.Query("height"), c.Query("age"), c.Query("sex"), activity,
		),
		"activity_multiplier": nutrition.ActivityMultiplier(activity),
	})
}

// GET /admin/sessions
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"active_sessions": h.store.Len()})
}

// page is the view model for index.html.
type page struct {
	workbench.Snapshot
	ActivityLevels []patient.ActivityLevel
	Preferences    []patient.DietaryPreference
	Sexes          []string
	DietHTML       template.HTML
	DietMarkdown   string
	DietStructured string
	AuthEnabled    bool
	UserEmail      string
}

func (h *Handler) newPage(c *gin.Context, snap workbench.Snapshot) page {
	p := page{
		Snapshot:       snap,
		ActivityLevels: patient.ActivityLevels,
		Preferences:    patient.DietaryPreferences,
		Sexes:          patient.Sexes,
		AuthEnabled:    h.authEnabled,
		UserEmail:      c.GetString(middleware.KeyUserEmail),
	}

	// The backend owns the plan markup and it is rendered as delivered.
	if d := snap.Diet; d != nil {
		switch {
		case d.HTML != "":
			p.DietHTML = template.HTML(d.HTML)
		case d.Markdown != "":
			p.DietMarkdown = d.Markdown
		default:
			p.DietStructured = d.StructuredText()
		}
	}
	return p
}
