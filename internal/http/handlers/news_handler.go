// News HTTP handlers.
//
// This file exposes REST endpoints for the daily news post:
//   - GET    /news           (today's text for the session, ETag support)
//   - POST   /news           (request today's generation)
//   - DELETE /news           (clear today's result so it can be regenerated)
//   - GET    /news/text      (raw text, for copying to the clipboard)
//   - GET    /news/download  (today's text as ai_news.docx)
//
// Handlers are transport-thin: they resolve the caller's session, delegate to
// the session facade, and translate its Status into HTTP responses.
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-news-generator/internal/domain"
	"github.com/tbourn/go-news-generator/internal/export"
	"github.com/tbourn/go-news-generator/internal/http/middleware"
	"github.com/tbourn/go-news-generator/internal/services"
)

//
// Service contracts (context-aware)
//

// NewsSession is the per-session facade consumed by the handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type NewsSession interface {
	// CurrentText returns today's text; ok is false when none exists.
	CurrentText(ctx context.Context) (text string, ok bool, err error)
	// RequestGeneration runs the daily gate and reports the outcome.
	RequestGeneration(ctx context.Context) services.Status
	// Clear removes today's result.
	Clear(ctx context.Context) error
	// State returns the session's view of today.
	State() domain.GenerationState
	// Generating reports whether a remote fetch is outstanding.
	Generating() bool
}

// SessionProvider resolves a session id to its facade, creating it on demand.
type SessionProvider interface {
	Session(id string) NewsSession
}

//
// Handler wiring
//

// Handlers groups the news endpoints.
type Handlers struct {
	sessions SessionProvider
}

// New constructs and returns a Handlers instance bound to the given sessions.
func New(sessions SessionProvider) *Handlers {
	return &Handlers{sessions: sessions}
}

// session returns the facade for the caller. The id comes from the Session
// middleware; requests that bypass it share one fallback session.
func (h *Handlers) session(c *gin.Context) NewsSession {
	sid := middleware.SessionIDFrom(c)
	if sid == "" {
		sid = "anonymous"
	}
	return h.sessions.Session(sid)
}

//
// DTOs
//

// NewsResponse describes today's news as seen by the caller's session.
type NewsResponse struct {
	// Date is the calendar day (service time zone) the text belongs to.
	Date string `json:"date" example:"2026-10-15"`
	// Text is the generated post, verbatim.
	Text string `json:"text" example:"AI agents are reshaping..."`
	// AttemptsToday counts generation attempts by this session today.
	AttemptsToday int `json:"attempts_today" example:"1"`
	// Generating is true while a remote fetch is running in this process.
	Generating bool `json:"generating" example:"false"`
}

// GenerateResponse is returned by POST /news for generated and already
// generated outcomes.
type GenerateResponse struct {
	Status  string `json:"status" example:"generated"`
	Message string `json:"message" example:"News generated successfully!"`
	Date    string `json:"date" example:"2026-10-15"`
	Text    string `json:"text,omitempty"`
}

// MessageResponse carries a user-facing confirmation.
type MessageResponse struct {
	Message string `json:"message" example:"News cleared. You can now re-generate the news."`
}

const msgNoNews = "No news generated for today yet."

// newsETag derives a weak validator from the date and the text.
func newsETag(date, text string) string {
	sum := sha256.Sum256([]byte(text))
	return `W/"news:` + date + `:` + hex.EncodeToString(sum[:8]) + `"`
}

// notModified sets the ETag header and reports whether the client copy is
// current, in which case a 304 has already been written.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// currentText loads today's text or writes the 404/500 response.
func (h *Handlers) currentText(c *gin.Context, s NewsSession) (string, bool) {
	text, found, err := s.CurrentText(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load news")
		return "", false
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgNoNews)
		return "", false
	}
	return text, true
}

//
// Handlers
//

// GetNews godoc
// @ID          getNews
// @Summary     Get today's news
// @Description Returns today's generated post for the caller's session, loading it from the cache when needed.
// @Tags        News
// @Produce     json
//
// @Param       X-Session-ID   header  string  false "Session ID (defaults to the news_sid cookie)"
// @Param       If-None-Match  header  string  false "ETag from a previous response"
//
// @Success     200  {object}  handlers.NewsResponse
// @Success     304  "Not modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Nothing generated today"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /news [get]
func (h *Handlers) GetNews(c *gin.Context) {
	s := h.session(c)
	text, found := h.currentText(c, s)
	if !found {
		return
	}
	st := s.State()
	if notModified(c, newsETag(st.Date, text)) {
		return
	}
	ok(c, http.StatusOK, NewsResponse{
		Date:          st.Date,
		Text:          text,
		AttemptsToday: st.AttemptsToday,
		Generating:    s.Generating(),
	})
}

// GenerateNews godoc
// @ID          generateNews
// @Summary     Generate today's news
// @Description Calls the remote agent at most once per calendar day. Later calls report the cached result until it is cleared.
// @Description A retry carrying an Idempotency-Key after today's news exists is answered from the cache and marked Idempotency-Replayed.
// @Tags        News
// @Produce     json
//
// @Param       X-Session-ID     header  string  false "Session ID (defaults to the news_sid cookie)"
// @Param       Idempotency-Key  header  string  false "Key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
//
// @Success     201  {object}  handlers.GenerateResponse  "Generated"
// @Success     200  {object}  handlers.GenerateResponse  "Already generated today"
// @Failure     409  {object}  handlers.ErrorResponse     "Generation already running"
// @Failure     429  {object}  handlers.ErrorResponse     "Rate limited"
// @Failure     502  {object}  handlers.ErrorResponse     "Remote agent failed"
// @Router      /news [post]
func (h *Handlers) GenerateNews(c *gin.Context) {
	s := h.session(c)
	st := s.RequestGeneration(c.Request.Context())
	date := s.State().Date

	switch st.Kind {
	case services.StatusGenerated:
		ok(c, http.StatusCreated, GenerateResponse{
			Status: string(st.Kind), Message: st.Message, Date: date, Text: st.Text,
		})
	case services.StatusBlocked:
		if middleware.IsReplay(c) {
			c.Header("Idempotency-Replayed", "true")
		}
		ok(c, http.StatusOK, GenerateResponse{
			Status: string(st.Kind), Message: st.Message, Date: date, Text: st.Text,
		})
	case services.StatusInProgress:
		fail(c, http.StatusConflict, ErrCodeInProgress, st.Message)
	default:
		middleware.LoggerFrom(c).Warn().
			Err(st.Err).
			Str("error_kind", st.ErrorKind()).
			Msg("news generation failed")
		fail(c, http.StatusBadGateway, ErrCodeGenerationFailed, st.Message)
	}
}

// ClearNews godoc
// @ID          clearNews
// @Summary     Clear today's news
// @Description Deletes today's cached result so the news can be generated again.
// @Tags        News
// @Produce     json
//
// @Param       X-Session-ID  header  string  false "Session ID (defaults to the news_sid cookie)"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /news [delete]
func (h *Handlers) ClearNews(c *gin.Context) {
	if err := h.session(c).Clear(c.Request.Context()); err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("clear news")
		fail(c, http.StatusInternalServerError, ErrCodeClearFailed, "failed to clear news")
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: services.MsgCleared})
}

// GetNewsText godoc
// @ID          getNewsText
// @Summary     Get today's news as plain text
// @Description Returns the raw post for copying to the clipboard.
// @Tags        News
// @Produce     plain
//
// @Param       X-Session-ID  header  string  false "Session ID (defaults to the news_sid cookie)"
//
// @Success     200  {string}  string  "Post text"
// @Failure     404  {object}  handlers.ErrorResponse  "Nothing generated today"
// @Router      /news/text [get]
func (h *Handlers) GetNewsText(c *gin.Context) {
	s := h.session(c)
	text, found := h.currentText(c, s)
	if !found {
		return
	}
	if notModified(c, newsETag(s.State().Date, text)) {
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// DownloadNews godoc
// @ID          downloadNews
// @Summary     Download today's news as a Word document
// @Description Returns ai_news.docx holding the post as a single paragraph.
// @Tags        News
// @Produce     application/vnd.openxmlformats-officedocument.wordprocessingml.document
//
// @Param       X-Session-ID  header  string  false "Session ID (defaults to the news_sid cookie)"
//
// @Success     200  {file}    file
// @Failure     404  {object}  handlers.ErrorResponse  "Nothing generated today"
// @Failure     500  {object}  handlers.ErrorResponse  "Export failed"
// @Router      /news/download [get]
func (h *Handlers) DownloadNews(c *gin.Context) {
	text, found := h.currentText(c, h.session(c))
	if !found {
		return
	}
	doc, err := export.DOCX(text)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, "failed to build document")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.DOCXFilename+`"`)
	c.Data(http.StatusOK, export.DOCXContentType, doc)
}
