package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/debemdeboas/the-kennel/internal/auth"
	"github.com/debemdeboas/the-kennel/internal/cache"
	"github.com/debemdeboas/the-kennel/internal/config"
	"github.com/debemdeboas/the-kennel/internal/db"
	"github.com/debemdeboas/the-kennel/internal/editor"
	"github.com/debemdeboas/the-kennel/internal/gateway"
	"github.com/debemdeboas/the-kennel/internal/layout"
	"github.com/debemdeboas/the-kennel/internal/logger"
	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/render"
	"github.com/debemdeboas/the-kennel/internal/repository"
	"github.com/debemdeboas/the-kennel/internal/routes"
	"github.com/debemdeboas/the-kennel/internal/sse"
	"github.com/debemdeboas/the-kennel/internal/staging"
	"github.com/debemdeboas/the-kennel/internal/util"
)

//go:embed static/* templates/*
var content embed.FS

const (
	sessionJanitorInterval = time.Minute
	shutdownTimeout        = 10 * time.Second
)

// server holds the public surface: landing pages, live reload, previews and the layout API.
type server struct {
	siteName          string
	defaultBackground string

	layouts  *layout.Registry
	previews *staging.Registry
	repo     repository.LayoutRepository
	clients  *sse.SSEClients
	renderer *render.Renderer
	auth     auth.AuthProvider
}

func setLoggers(l zerolog.Logger) {
	config.SetLogger(l)
	auth.SetLogger(l)
	db.SetLogger(l)
	editor.SetLogger(l)
	gateway.SetLogger(l)
	layout.SetLogger(l)
	render.SetLogger(l)
	repository.SetLogger(l)
	staging.SetLogger(l)
}

func main() {
	bootLog := logger.New("info", logger.FormatConsole)
	config.SetLogger(bootLog)

	if err := godotenv.Load(); err != nil {
		bootLog.Debug().Msg("No .env file loaded")
	}

	configPath := os.Getenv("KENNEL_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	if err := config.LoadConfig(configPath); err != nil {
		bootLog.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}
	cfg := config.AppConfig

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	setLoggers(log)

	ctx, stop := notifyContext(log)
	defer stop()

	sqlite := db.NewSQLite(cfg.Database.Path)
	if err := sqlite.InitDB(); err != nil {
		log.Fatal().Err(err).Msgf(config.ErrInitializeDatabaseFmt, err)
	}
	defer sqlite.Close()

	repo := repository.NewDBLayoutRepository(sqlite)

	var backend gateway.Backend = repo
	if cfg.Backend.URL != "" {
		backend = gateway.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
		log.Info().Str("url", cfg.Backend.URL).Msg("Using remote layout backend")
	}

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Uploads.Provider).Msg("Failed to create uploader")
	}

	mux := http.NewServeMux()

	var authProvider auth.AuthProvider
	if cfg.Auth.Enabled {
		p, err := auth.NewEd25519AuthProvider(cfg.Auth.OwnerKeys, "Authorization")
		if err != nil {
			log.Fatal().Err(err).Msgf(config.ErrCreateProviderFmt, err)
		}
		if err := auth.RegisterEd25519AuthRoutes(mux, p, cfg.Site.Name, content); err != nil {
			log.Fatal().Err(err).Msg("Failed to register auth routes")
		}
		authProvider = p
	} else {
		authProvider = auth.NewTrustedOwnerProvider()
	}

	renderer, err := render.NewRenderer(content)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load landing templates")
	}

	layouts := layout.NewRegistry(backend)
	defer layouts.Close()
	previews := staging.NewRegistry(config.PreviewUrlPath)
	sessions := editor.NewSessionRepository()

	editorHandler, err := editor.NewHandler(sessions, layouts, previews, backend, uploader, authProvider, content, editor.Options{
		SiteName:       cfg.Site.Name,
		MaxUploadBytes: cfg.Editor.MaxUploadBytes,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create editor handler")
	}
	editorHandler.Register(mux)

	s := &server{
		siteName:          cfg.Site.Name,
		defaultBackground: cfg.Site.DefaultBackground,
		layouts:           layouts,
		previews:          previews,
		clients:           sse.NewSSEClients(),
		renderer:          renderer,
		auth:              authProvider,
	}
	if cfg.Backend.ServeLayoutAPI {
		s.repo = repo
	}

	static, err := hashStatic(content)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash static content")
	}
	s.routes(mux, static)

	handler := logger.Middleware(log)(cacheIt(authProvider.WithHeaderAuthorization()(secureHeaders(mux))))

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sessions.Janitor(gctx, sessionJanitorInterval, cfg.Editor.SessionIdle)
		return nil
	})

	// Only the embedded repository can report changes made outside this process.
	if cfg.Backend.URL == "" {
		g.Go(func() error {
			repo.Watch(gctx, cfg.Backend.WatchInterval, func(owner model.OwnerID) {
				s.layoutChanged(gctx, owner)
			})
			return nil
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// notifyContext is cancelled on SIGINT or SIGTERM and carries log, so background work
// started from it logs through zerolog.Ctx like request handlers do.
func notifyContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return log.WithContext(ctx), stop
}

func newUploader(ctx context.Context, cfg *config.Config) (gateway.Uploader, error) {
	switch cfg.Uploads.Provider {
	case "s3":
		s3 := cfg.Uploads.S3
		return gateway.NewS3Uploader(ctx,
			os.Getenv("S3_ACCESS_KEY_ID"),
			os.Getenv("S3_SECRET_ACCESS_KEY"),
			s3.Region, s3.Endpoint, s3.Bucket, s3.Prefix, s3.PublicBaseURL,
			cfg.Backend.Timeout,
		)
	case "preset":
		return gateway.NewPresetUploader(cfg.Uploads.Preset.Endpoint, cfg.Uploads.Preset.Name, cfg.Backend.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown uploads provider %q", cfg.Uploads.Provider)
	}
}

// hashStatic records a content hash per static file for ETags and returns the static tree.
func hashStatic(root fs.FS) (fs.FS, error) {
	static, err := fs.Sub(root, config.StaticLocalDir)
	if err != nil {
		return nil, err
	}

	err = fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(static, path)
		if err != nil {
			return err
		}
		cache.SetStaticHash(config.StaticUrlPath+path, `"`+util.ShortHash(data, 16)+`"`)
		return nil
	})
	return static, err
}

func (s *server) routes(mux *http.ServeMux, static fs.FS) {
	mux.HandleFunc(routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(static, "robots.txt")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set(config.HCType, "text/plain")
		w.Write(data)
	})

	mux.Handle(config.StaticUrlPath, http.StripPrefix(config.StaticUrlPath, http.FileServer(http.FS(static))))
	mux.HandleFunc(routes.RootPath, s.serveRoot)
	mux.HandleFunc(routes.SitePath, s.serveLanding)
	mux.HandleFunc(routes.SSEPath, s.eventsHandler)
	mux.HandleFunc(routes.PreviewPath, s.servePreview)

	if s.repo != nil {
		mux.HandleFunc(routes.APILayoutGet, s.serveLayoutGet)
		mux.HandleFunc(routes.APILayoutPut, s.serveLayoutPut)
	}
}

// serveRoot sends a signed-in owner to their editor and everyone else to the login page.
func (s *server) serveRoot(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.GetOwnerFromSession(r); err == nil {
		http.Redirect(w, r, config.AdminSitePath, http.StatusFound)
		return
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusFound)
}

func (s *server) serveLanding(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())
	owner := model.OwnerID(r.PathValue("owner"))

	store, err := s.layouts.Lookup(r.Context(), owner)
	if errors.Is(err, layout.ErrUnknownOwner) {
		http.Error(w, config.ErrOwnerNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		l.Error().Err(err).Str("owner", string(owner)).Msg("Failed to load landing layout")
		http.Error(w, config.ErrLayoutFetch, http.StatusBadGateway)
		return
	}

	slide, _ := strconv.Atoi(r.URL.Query().Get("slide"))
	page := render.BuildLanding(store.Views(), slide, s.defaultBackground)

	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := s.renderer.Landing(w, model.NewPageData(r, s.siteName, owner), page); err != nil {
		l.Error().Err(err).Msg("Failed to render landing page")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

// layoutChanged refetches a changed layout and tells its landing viewers to reload.
func (s *server) layoutChanged(ctx context.Context, owner model.OwnerID) {
	if err := s.layouts.Refresh(ctx, owner); err != nil && !errors.Is(err, layout.ErrSuperseded) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("owner", string(owner)).Msg("Failed to refresh changed layout")
	}
	s.clients.Broadcast(owner, sse.MsgReload)
}

func (s *server) servePreview(w http.ResponseWriter, r *http.Request) {
	f, ok := s.previews.Open(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set(config.HCType, f.ContentType)
	w.Header().Set(config.HCacheControl, "private, no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Write(f.Data)
}

type layoutEnvelope struct {
	LayoutConfig *model.LayoutConfig `json:"layoutConfig"`
}

func (s *server) serveLayoutGet(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())
	owner := model.OwnerID(r.PathValue("owner"))

	cfg, err := s.repo.GetLayout(r.Context(), owner)
	if errors.Is(err, gateway.ErrNotFound) {
		http.Error(w, config.ErrOwnerNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		l.Error().Err(err).Str("owner", string(owner)).Msg("Failed to read layout")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}
	writeLayout(w, cfg)
}

// serveLayoutPut replaces the layout of the owner in the path, who must be the signed-in owner.
func (s *server) serveLayoutPut(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())
	owner := model.OwnerID(r.PathValue("owner"))

	current, err := s.auth.EnforceOwner(w, r)
	if err != nil {
		return
	}
	if current != owner {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	var env layoutEnvelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&env); err != nil {
		http.Error(w, config.ErrLayoutBadRequest+": "+err.Error(), http.StatusBadRequest)
		return
	}
	if env.LayoutConfig == nil {
		env.LayoutConfig = &model.LayoutConfig{}
	}

	cfg, err := s.repo.PutLayout(r.Context(), owner, env.LayoutConfig)
	if err != nil {
		l.Error().Err(err).Str("owner", string(owner)).Msg("Failed to write layout")
		http.Error(w, config.ErrLayoutSave, http.StatusInternalServerError)
		return
	}
	writeLayout(w, cfg)
}

func writeLayout(w http.ResponseWriter, cfg *model.LayoutConfig) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.Header().Set(config.HCacheControl, "no-store")
	json.NewEncoder(w).Encode(layoutEnvelope{LayoutConfig: cfg})
}

func (s *server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	owner := model.OwnerID(r.URL.Query().Get("owner"))
	if owner == "" {
		http.Error(w, "Owner parameter required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := sse.NewClient(owner)
	s.clients.Add(client)
	l.Debug().Str("owner", string(owner)).Msg("SSE client connected")

	defer func() {
		s.clients.Delete(client)
		l.Debug().Str("owner", string(owner)).Msg("SSE client disconnected")
	}()

	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg, msg)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func cacheIt(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")

		// Add etag header to response if it's a static file
		if hash, ok := cache.GetStaticHash(r.URL.Path); ok {
			w.Header().Set(config.HCacheControl, "public, max-age=3600")
			w.Header().Set(config.HETag, hash)
		}

		h.ServeHTTP(w, r)
	})
}

func secureHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		h.ServeHTTP(w, r)
	})
}
