package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpopenapi "github.com/storefront-labs/hubsync/internal/http/openapi"
	"github.com/storefront-labs/hubsync/internal/obs"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	obs.RegisterMetrics()

	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(WithTelemetry(app.Cfg.NodeID))

	r.Post("/commands", app.commandsHandler)
	r.Route("/products", func(r chi.Router) {
		r.Post("/", app.createProductHandler)
		r.Get("/{id}", app.getProductHandler)
		r.Put("/{id}", app.patchProductHandler)
		r.Put("/{id}/stock", app.putStockHandler)
	})
	r.Get("/healthz", app.healthHandler)
	r.Get("/debug/status", app.statusHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(httpopenapi.YAML)
	})
	r.Get("/docs", docsHandler)

	return r
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}
