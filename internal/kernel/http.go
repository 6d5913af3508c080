package kernel

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shashiranjanraj/kisanmart/app/graphql"
	"github.com/shashiranjanraj/kisanmart/app/routes"
	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/config"
	gql "github.com/shashiranjanraj/kisanmart/pkg/graphql"
	"github.com/shashiranjanraj/kisanmart/pkg/grpc"
	"github.com/shashiranjanraj/kisanmart/pkg/metrics"
	"github.com/shashiranjanraj/kisanmart/pkg/middleware"
	"github.com/shashiranjanraj/kisanmart/pkg/reqid"
	"github.com/shashiranjanraj/kisanmart/pkg/response"
	"github.com/shashiranjanraj/kisanmart/pkg/router"
	"github.com/shashiranjanraj/kisanmart/pkg/session"
	"github.com/shashiranjanraj/kisanmart/pkg/storage"
)

// HTTPOptions are the parts of the HTTP surface that depend on what Boot
// connected.
type HTTPOptions struct {
	Checks map[string]grpc.Check
	Disk   storage.Disk

	// Sessions defaults to session.NewStore().
	Sessions session.Store
}

// NewRouter builds the full HTTP surface over svc.
func NewRouter(svc *services.Registry, opts HTTPOptions) (*router.Router, error) {
	r := router.New()
	if opts.Sessions == nil {
		opts.Sessions = session.NewStore()
	}

	// Outermost first: metrics see total latency, recovery guards everything
	// below it, and the logger needs the request id.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(session.Middleware(session.DefaultOptions(), opts.Sessions))
	r.Use(middleware.CORS(middleware.CORSFromConfig()))
	r.Use(middleware.RateLimit(config.Int("RATE_LIMIT_PER_MINUTE", 300), time.Minute))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", "health", health(opts.Checks))
	r.Get("/metrics", "metrics", metrics.Handler())

	schema, err := graphql.NewSchema(svc.Catalog)
	if err != nil {
		return nil, err
	}
	r.Get("/graphql", "graphql.query", gql.Handler(schema))
	r.Post("/graphql", "graphql", gql.Handler(schema))

	if local, ok := opts.Disk.(*storage.LocalDisk); ok {
		prefix := "/storage"
		if u, err := url.Parse(config.StorageURL()); err == nil && u.Path != "" {
			prefix = u.Path
		}
		r.Handle(prefix, "storage", local.Handler(prefix))
	}

	routes.RegisterAPI(r, svc)
	return r, nil
}

// health answers 200 when every check passes and 503 otherwise.
func health(checks map[string]grpc.Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}

		if !healthy {
			response.Write(w, http.StatusServiceUnavailable, response.Envelope{Message: "Service unavailable", Data: status})
			return
		}
		response.Message(w, "OK", status)
	}
}
