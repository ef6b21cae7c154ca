package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/burrowdb/burrow/pkg/backup"
	"github.com/burrowdb/burrow/pkg/config"
	"github.com/burrowdb/burrow/pkg/importer"
	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/metrics"
	"github.com/burrowdb/burrow/pkg/namespace"
	"github.com/burrowdb/burrow/pkg/pubsub"
	"github.com/burrowdb/burrow/pkg/storage"
)

// Server is the HTTP front of the document store. It owns the router, the
// middleware chain, and the background orchestrators; the storage engine and
// the pub/sub fabric are shared with it.
type Server struct {
	cfg      *config.Config
	store    storage.Store
	fabric   *pubsub.Fabric
	backups  *backup.Orchestrator
	importer *importer.Importer
	logger   zerolog.Logger
	http     *http.Server
}

// NewServer wires the full request pipeline. The backup directory and the
// record column families are prepared here.
func NewServer(cfg *config.Config, store storage.Store, fabric *pubsub.Fabric) (*Server, error) {
	orchestrator, err := backup.NewOrchestrator(store, cfg.BackupDir, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backup orchestrator: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		fabric:   fabric,
		backups:  orchestrator,
		importer: importer.New(store, fabric),
		logger:   log.WithComponent("api"),
	}

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: subscription streams stay open indefinitely.
	}
	return s, nil
}

// Handler builds the middleware chain and route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	// Collection scope.
	router.HEAD("/api/:collection", s.collectionExists)
	router.PUT("/api/:collection", s.createCollection)
	router.DELETE("/api/:collection", s.dropCollection)
	router.GET("/api/:collection", s.listCollection)
	router.POST("/api/:collection", s.queryCollection)

	// Key scope. Reserved _-prefixed keys dispatch to collection-wide
	// operations; httprouter cannot mix static and parameterized segments
	// at the same position, so the split happens here.
	router.HEAD("/api/:collection/:key", s.keyExists)
	router.GET("/api/:collection/:key", s.getKeyOrDispatch)
	router.PUT("/api/:collection/:key", s.putKeyOrBatch)
	router.POST("/api/:collection/:key", s.postDispatch)
	router.DELETE("/api/:collection/:key", s.deleteKey)
	router.GET("/api/:collection/:key/:action", s.getActionDispatch)
	router.POST("/api/:collection/:key/:action", s.postActionDispatch)

	// System scope.
	router.HandlerFunc(http.MethodGet, "/benchmark", s.benchmark)
	router.HandlerFunc(http.MethodGet, "/health", s.health)
	router.HandlerFunc(http.MethodGet, "/ready", s.ready)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())
	router.ServeFiles("/backups/*filepath", http.Dir(s.cfg.BackupDir))

	chain := http.Handler(router)
	chain = namespace.AuthGate(s.store, s.cfg.AdminToken)(chain)
	chain = namespace.Resolver(s.store)(chain)
	chain = limitBody(chain)
	chain = instrument(chain)
	chain = requestLogger(chain)
	chain = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodHead, http.MethodPut,
			http.MethodPost, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{
			"Content-Type", namespace.SecretHeader, namespace.AdminHeader,
		}),
	)(chain)
	return chain
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Int("port", s.cfg.Port).Msg("starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and waits for background backup and
// restore jobs to settle.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.backups.Wait()
	return err
}

// resolved pulls the namespace resolution out of the request context. The
// resolver middleware attaches it to every /api request; a miss means the
// chain is misassembled, so fall back to the raw name.
func resolved(r *http.Request, userName string) *namespace.Resolved {
	if res, ok := namespace.FromContext(r.Context()); ok {
		return res
	}
	return &namespace.Resolved{UserName: userName, InternalName: userName}
}

// getKeyOrDispatch routes GET /api/{collection}/{key}: reserved keys select
// the subscribe stream and the backup/restore listings.
func (s *Server) getKeyOrDispatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("key") {
	case "_subscribe":
		s.subscribe(w, r, ps)
	case "_backup":
		s.listBackups(w, r, ps)
	case "_restore":
		s.restoreStatusOrList(w, r, ps)
	default:
		s.getKey(w, r, ps)
	}
}

func (s *Server) putKeyOrBatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("key") == "_batch" {
		s.batchInsert(w, r, ps)
		return
	}
	s.putKey(w, r, ps)
}

func (s *Server) postDispatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("key") {
	case "_backup":
		s.startBackup(w, r, ps)
	case "_restore":
		s.startRestore(w, r, ps)
	case "_import":
		s.importDocuments(w, r, ps)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) getActionDispatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key, action := ps.ByName("key"), ps.ByName("action")
	switch {
	case key == "_backup" && action == "status":
		s.backupStatus(w, r, ps)
	case key == "_restore" && action == "status":
		s.restoreStatus(w, r, ps)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) postActionDispatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("key") == "_backup" && ps.ByName("action") == "upload" {
		s.uploadBackup(w, r, ps)
		return
	}
	writeError(w, http.StatusNotFound, "Not found")
}
