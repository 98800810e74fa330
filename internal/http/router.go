package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	ServiceName    string
	// Log receives the access log; nil falls back to chi's default logger.
	Log *logrus.Entry
}

func NewRouter(cfg RouterConfig, carts *CartHandler, products *ProductHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	if cfg.Log != nil {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: cfg.Log, NoColor: true}))
	} else {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Post("/", carts.AddItem)
		r.Route("/{userId}", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Patch("/", carts.UpdateQuantity)
			r.Delete("/", carts.ClearCart)
			r.Delete("/items/{productId}", carts.RemoveItem)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", products.List)
		r.Post("/", products.Create)
		r.Get("/{productId}", products.Get)
		r.Patch("/{productId}", products.Update)
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
