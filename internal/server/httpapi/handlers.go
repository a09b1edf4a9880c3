package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/logging"
	"github.com/dmitrijs2005/elnafo/internal/server/auth"
	"github.com/dmitrijs2005/elnafo/internal/server/metrics"
	"github.com/dmitrijs2005/elnafo/internal/server/models"
	"github.com/dmitrijs2005/elnafo/internal/server/services"
)

// multipartOverhead is the allowance for part headers and boundaries on
// top of the avatar size limit.
const multipartOverhead = 16 << 10

type registerRequest struct {
	Login    string `json:"login" binding:"required,max=64,login"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Name     string `json:"name" binding:"omitempty,max=128"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type removeRequest struct {
	ID string `json:"id" binding:"required"`
}

type passwordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type loginResponse struct {
	Status string            `json:"status"`
	Token  string            `json:"token"`
	User   models.PublicUser `json:"user"`
}

type userResponse struct {
	Status string            `json:"status"`
	User   models.PublicUser `json:"user"`
}

type Handlers struct {
	users          *services.UserService
	metrics        *metrics.Metrics
	logger         logging.Logger
	avatarMaxBytes int64
}

func NewHandlers(us *services.UserService, m *metrics.Metrics, logger logging.Logger, avatarMaxBytes int64) *Handlers {
	return &Handlers{
		users:          us,
		metrics:        m,
		logger:         logger.With("module", "http_handlers"),
		avatarMaxBytes: avatarMaxBytes,
	}
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusText(http.StatusOK)})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	abortWithError(c, h.logger, err)
}

func (h *Handlers) Healthcheck(c *gin.Context) {
	ok(c)
}

func (h *Handlers) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"status": statusText(http.StatusNotFound)})
}

func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.countRegistration(common.ErrInvalidInput)
		h.fail(c, bindError(err))
		return
	}

	user, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Login:    req.Login,
		Password: req.Password,
		Email:    req.Email,
		Name:     req.Name,
	})
	h.countRegistration(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user.Public(true))
}

// Login answers with the token in the body and as the session cookie.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.countLogin(common.ErrInvalidInput)
		h.fail(c, bindError(err))
		return
	}

	user, token, err := h.users.Login(c.Request.Context(), services.LoginInput{
		Login:    req.Login,
		Email:    req.Email,
		Password: req.Password,
	})
	h.countLogin(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	setSessionCookie(c, token, int(h.users.TokenLifetime().Seconds()))
	c.JSON(http.StatusOK, loginResponse{
		Status: statusText(http.StatusOK),
		Token:  token,
		User:   user.Public(true),
	})
}

// Logout expires the session cookie. Tokens already handed out stay valid
// until they expire.
func (h *Handlers) Logout(c *gin.Context) {
	setSessionCookie(c, "", -1)
	ok(c)
}

// Remove deletes the account named in the body. No session is required.
func (h *Handlers) Remove(c *gin.Context) {
	var req removeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: id: %v", common.ErrInvalidInput, err))
		return
	}

	if err := h.users.Remove(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	ok(c)
}

func (h *Handlers) Current(c *gin.Context) {
	user, _ := auth.UserFromContext(c.Request.Context())
	c.JSON(http.StatusOK, user.Public(true))
}

// CurrentProfile is Current in the enveloped {status, user} shape.
func (h *Handlers) CurrentProfile(c *gin.Context) {
	user, _ := auth.UserFromContext(c.Request.Context())
	c.JSON(http.StatusOK, userResponse{Status: statusText(http.StatusOK), User: user.Public(true)})
}

func (h *Handlers) All(c *gin.Context) {
	all, err := h.users.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	viewer, _ := auth.UserFromContext(c.Request.Context())
	out := make([]models.PublicUser, 0, len(all))
	for _, u := range all {
		out = append(out, u.Public(models.CanSeeEmailOf(viewer, u)))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) Profile(c *gin.Context) {
	user, err := h.users.Profile(c.Request.Context(), c.Param("login"))
	if err != nil {
		h.fail(c, err)
		return
	}

	viewer, _ := auth.UserFromContext(c.Request.Context())
	c.JSON(http.StatusOK, userResponse{
		Status: statusText(http.StatusOK),
		User:   user.Public(models.CanSeeEmailOf(viewer, user)),
	})
}

// UploadAvatar reads the first file part of a multipart body and makes it
// the caller's avatar.
func (h *Handlers) UploadAvatar(c *gin.Context) {
	user, _ := auth.UserFromContext(c.Request.Context())
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.avatarMaxBytes+multipartOverhead)

	data, err := h.readFirstFile(c.Request)
	if err != nil {
		h.fail(c, err)
		return
	}

	updated, err := h.users.SetAvatar(c.Request.Context(), user, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{Status: statusText(http.StatusOK), User: updated.Public(true)})
}

func (h *Handlers) readFirstFile(r *http.Request) ([]byte, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrReadContent, err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no file part", common.ErrReadContent)
		}
		if err != nil {
			return nil, readErr(err)
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, h.avatarMaxBytes+1))
		part.Close()
		if err != nil {
			return nil, readErr(err)
		}
		if int64(len(data)) > h.avatarMaxBytes {
			return nil, common.ErrContentTooLarge
		}
		return data, nil
	}
}

func readErr(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return common.ErrContentTooLarge
	}
	return fmt.Errorf("%w: %v", common.ErrReadContent, err)
}

func (h *Handlers) DeleteAvatar(c *gin.Context) {
	user, _ := auth.UserFromContext(c.Request.Context())
	updated, err := h.users.ClearAvatar(c.Request.Context(), user)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{Status: statusText(http.StatusOK), User: updated.Public(true)})
}

func (h *Handlers) ChangePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	user, _ := auth.UserFromContext(c.Request.Context())
	if err := h.users.ChangePassword(c.Request.Context(), user, req.OldPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	ok(c)
}

func (h *Handlers) Avatar(c *gin.Context) {
	data, err := h.users.Avatar(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func setSessionCookie(c *gin.Context, token string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handlers) countLogin(err error) {
	if h.metrics != nil {
		h.metrics.Logins.WithLabelValues(resultLabel(err)).Inc()
	}
}

func (h *Handlers) countRegistration(err error) {
	if h.metrics != nil {
		h.metrics.Registrations.WithLabelValues(resultLabel(err)).Inc()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, common.ErrExists):
		return "conflict"
	case statusFor(err) < http.StatusInternalServerError:
		return "rejected"
	default:
		return "error"
	}
}
