package editor

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/the-kennel/internal/config"
	"github.com/debemdeboas/the-kennel/internal/gateway"
	"github.com/debemdeboas/the-kennel/internal/layout"
	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/routes"
	"github.com/debemdeboas/the-kennel/internal/staging"
)

// OwnerEnforcer resolves the signed-in site owner, answering the request itself when there
// is none.
type OwnerEnforcer interface {
	EnforceOwner(w http.ResponseWriter, r *http.Request) (model.OwnerID, error)
}

type Options struct {
	SiteName       string
	MaxUploadBytes int64
}

type Handler struct {
	sessions  *SessionRepository
	layouts   *layout.Registry
	previewer staging.Previewer
	sink      gateway.Sink
	uploader  gateway.Uploader
	auth      OwnerEnforcer

	tmpl *template.Template
	opts Options
}

func NewHandler(
	sessions *SessionRepository,
	layouts *layout.Registry,
	previewer staging.Previewer,
	sink gateway.Sink,
	uploader gateway.Uploader,
	auth OwnerEnforcer,
	templates fs.FS,
	opts Options,
) (*Handler, error) {
	tmpl, err := template.ParseFS(templates,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplateEditor,
	)
	if err != nil {
		return nil, fmt.Errorf("error loading editor templates: %w", err)
	}

	return &Handler{
		sessions:  sessions,
		layouts:   layouts,
		previewer: previewer,
		sink:      sink,
		uploader:  uploader,
		auth:      auth,
		tmpl:      tmpl,
		opts:      opts,
	}, nil
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(routes.AdminSite, h.ServeEditor)
	mux.HandleFunc(routes.AdminFields, h.withSession(h.setField))
	mux.HandleFunc(routes.AdminLogo, h.limitBody(h.withSession(h.selectLogo)))
	mux.HandleFunc(routes.AdminLogoRemove, h.withSession(func(r *http.Request, s *Session) error {
		return s.Editor.RemoveLogo()
	}))
	mux.HandleFunc(routes.AdminHero, h.limitBody(h.withSession(h.selectHero)))
	mux.HandleFunc(routes.AdminHeroStaged, h.withSession(func(r *http.Request, s *Session) error {
		index, err := pathIndex(r)
		if err != nil {
			return err
		}
		return s.Editor.RemoveStagedHeroImage(index)
	}))
	mux.HandleFunc(routes.AdminHeroPersisted, h.withSession(func(r *http.Request, s *Session) error {
		index, err := pathIndex(r)
		if err != nil {
			return err
		}
		return s.Editor.RemovePersistedHeroImage(index)
	}))
	mux.HandleFunc(routes.AdminReset, h.withSession(func(r *http.Request, s *Session) error {
		return s.Editor.Reset()
	}))
	mux.HandleFunc(routes.AdminSave, h.withSession(h.save))
	mux.HandleFunc(routes.AdminRefresh, h.withSession(func(r *http.Request, s *Session) error {
		return s.Editor.Store().Refresh(r.Context())
	}))
	mux.HandleFunc(routes.AdminClose, h.CloseSession)
}

// Page is the editor template data.
type Page struct {
	*model.PageData

	Draft      Draft
	StagedLogo *staging.Handle
	StagedHero []staging.Handle
	PetCount   int

	Dirty   bool
	Loading bool
	Saved   bool

	Error string
}

// ServeEditor opens the editor of the signed-in owner, reusing the session of the cookie when
// it belongs to the same owner. A new session fetches the owner's layout first.
func (h *Handler) ServeEditor(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	owner, err := h.auth.EnforceOwner(w, r)
	if err != nil {
		return
	}

	if s, ok := h.cookieSession(r, owner); ok {
		h.render(w, r, s, http.StatusOK, nil)
		return
	}

	store, fetchErr := h.layouts.Ensure(r.Context(), owner)
	if fetchErr != nil {
		l.Warn().Err(fetchErr).Str("owner", string(owner)).Msg("Opening editor without a layout")
	}

	e := New(store, h.previewer)
	s := h.sessions.Create(owner, e, NewSaver(e, h.sink, h.uploader))

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSessionID,
		Value:    string(s.ID),
		Path:     config.AdminSitePath,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	})

	status := http.StatusOK
	if fetchErr != nil {
		status = http.StatusBadGateway
	}
	h.render(w, r, s, status, fetchErr)
}

// CloseSession tears down the editor session and sends the owner to their landing page.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	owner, err := h.auth.EnforceOwner(w, r)
	if err != nil {
		return
	}

	if s, ok := h.cookieSession(r, owner); ok {
		h.sessions.Delete(s.ID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:   config.CookieSessionID,
		Value:  "",
		Path:   config.AdminSitePath,
		MaxAge: -1,
	})
	w.Header().Set(config.HHxRedirect, config.SitesUrlPath+string(owner))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cookieSession(r *http.Request, owner model.OwnerID) (*Session, bool) {
	cookie, err := r.Cookie(config.CookieSessionID)
	if err != nil {
		return nil, false
	}
	s, err := h.sessions.Get(SessionID(cookie.Value))
	if err != nil || s.Owner != owner {
		return nil, false
	}
	return s, true
}

// withSession runs op against the caller's session and renders the editor with the outcome.
func (h *Handler) withSession(op func(r *http.Request, s *Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())

		owner, err := h.auth.EnforceOwner(w, r)
		if err != nil {
			return
		}

		s, ok := h.cookieSession(r, owner)
		if !ok {
			http.Error(w, config.ErrSessionNotFound, http.StatusNotFound)
			return
		}

		if err := op(r, s); err != nil {
			status, _ := statusFor(err)
			l.Warn().Err(err).Str("owner", string(owner)).Int("status", status).Msg("Editor operation failed")
			h.render(w, r, s, status, err)
			return
		}
		h.render(w, r, s, http.StatusOK, nil)
	}
}

func (h *Handler) setField(r *http.Request, s *Session) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return s.Editor.SetField(model.SectionType(r.PostFormValue("section")), r.PostFormValue("field"), r.PostFormValue("value"))
}

func (h *Handler) selectLogo(r *http.Request, s *Session) error {
	files, err := h.readFiles(r)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return fmt.Errorf("%w: expected one logo, got %d files", ErrInvalidArgument, len(files))
	}
	_, err = s.Editor.SelectLogo(files[0])
	return err
}

func (h *Handler) selectHero(r *http.Request, s *Session) error {
	files, err := h.readFiles(r)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no image selected", ErrInvalidArgument)
	}
	for _, f := range files {
		if _, err := s.Editor.SelectHeroImage(f); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) save(r *http.Request, s *Session) error {
	if err := s.Saver.Save(r.Context()); err != nil {
		if !errors.Is(err, ErrSaveInProgress) {
			// The failure is reported by this response.
			s.Saver.Observe()
		}
		return err
	}
	s.Saver.Observe()
	return nil
}

const (
	maxFilesPerUpload = 8
	multipartOverhead = 64 << 10
)

// limitBody caps an upload request at maxFilesPerUpload images plus form overhead, so an
// oversized body fails while it is read.
func (h *Handler) limitBody(next http.HandlerFunc) http.HandlerFunc {
	limit := h.opts.MaxUploadBytes*maxFilesPerUpload + multipartOverhead
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next(w, r)
	}
}

// readFiles validates every "file" part of a multipart request.
func (h *Handler) readFiles(r *http.Request) ([]staging.File, error) {
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, staging.ErrTooLarge)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["file"]
	if len(parts) > maxFilesPerUpload {
		return nil, fmt.Errorf("%w: at most %d images per upload, got %d", ErrInvalidArgument, maxFilesPerUpload, len(parts))
	}

	var files []staging.File
	for _, fh := range parts {
		data, err := readPart(fh, h.opts.MaxUploadBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		f, err := staging.NewFile(fh.Filename, fh.Header.Get(config.HCType), data, h.opts.MaxUploadBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidArgument, fh.Filename, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// readPart reads at most one byte past limit, enough for staging.NewFile to reject the part.
func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh.Size > limit {
		return nil, fmt.Errorf("%s: %w", fh.Filename, staging.ErrTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}

func pathIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, fmt.Errorf("%w: index %q", ErrInvalidArgument, r.PathValue("index"))
	}
	return index, nil
}

// statusFor maps an editor error to its HTTP status and the message shown in the banner.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, staging.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, config.ErrLayoutTooLarge
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, config.ErrLayoutBadRequest
	case errors.Is(err, ErrSaveInProgress):
		return http.StatusConflict, config.ErrLayoutSaving
	case errors.Is(err, gateway.ErrUploadFailed):
		return http.StatusBadGateway, config.ErrLayoutUpload
	case errors.Is(err, gateway.ErrSaveFailed):
		return http.StatusBadGateway, config.ErrLayoutSave
	case errors.Is(err, gateway.ErrFetchFailed):
		return http.StatusBadGateway, config.ErrLayoutFetch
	case errors.Is(err, ErrClosed), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, config.ErrSessionNotFound
	case errors.Is(err, layout.ErrNoOwner):
		return http.StatusNotFound, config.ErrOwnerNotFound
	default:
		return http.StatusInternalServerError, config.ErrInternalServerError
	}
}

func (h *Handler) page(r *http.Request, s *Session, err error) Page {
	e := s.Editor

	p := Page{
		PageData:   model.NewPageData(r, h.opts.SiteName, s.Owner),
		Draft:      e.Draft(),
		StagedHero: e.StagedHero(),
		Dirty:      e.Dirty(),
		Loading:    e.Store().Loading(),
	}
	if logo, ok := e.StagedLogo(); ok {
		p.StagedLogo = &logo
	}
	if pl := e.Store().PetList(); pl != nil {
		p.PetCount = len(pl.Pets)
	}

	if err != nil {
		_, p.Error = statusFor(err)
	} else if storeErr := e.Store().Err(); storeErr != nil {
		_, p.Error = statusFor(storeErr)
	}
	p.Saved = err == nil && r.URL.Path == config.AdminSitePath+"/save"
	return p
}

// render writes the whole page, or only the editor fragment for htmx requests.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, s *Session, status int, err error) {
	name := config.TemplateNameLayout
	if r.Header.Get("HX-Request") == "true" {
		name = "editor"
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Header().Set(config.HCacheControl, "no-store")
	w.WriteHeader(status)

	if err := h.tmpl.ExecuteTemplate(w, name, h.page(r, s, err)); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render editor")
	}
}
