// Package api provides HTTP handlers for the tinyplot figure server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lighttransport/tinyplotlib/internal/data/zarr"
	"github.com/lighttransport/tinyplotlib/internal/raster"
	"github.com/lighttransport/tinyplotlib/internal/service"
	"github.com/lighttransport/tinyplotlib/pkg/colormap"
	"github.com/lighttransport/tinyplotlib/pkg/plot"
)

// maxMatrixBody bounds the JSON body of a matshow request.
const maxMatrixBody = 32 << 20

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *DatasetRegistry
	CORSOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Global endpoints (not dataset-scoped)
	r.Get("/api/datasets", datasetsHandler(cfg.Registry))
	r.Get("/api/colormaps", colormapsHandler)
	r.Post("/api/matshow", matshowHandler(cfg.Registry))

	// Dataset-scoped routes: /d/{dataset}/...
	r.Route("/d/{dataset}", func(r chi.Router) {
		r.Use(datasetMiddleware(cfg.Registry))

		// NOTE: chi treats '.' as a param delimiter in `{array}.png`, which breaks
		// array names containing '.'. Capture the full segment and split the
		// extension in the handler.
		r.Get("/arrays/{file}", arrayFigureHandler)
		r.Get("/api/arrays", arraysHandler)
	})

	return r
}

// Context key for dataset service
type ctxKey string

const datasetServiceKey ctxKey = "datasetService"

// datasetMiddleware resolves the dataset from URL and injects the figure service into context.
func datasetMiddleware(registry *DatasetRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			datasetID := chi.URLParam(r, "dataset")
			svc := registry.Get(datasetID)
			if svc == nil {
				http.Error(w, "dataset not found: "+datasetID, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), datasetServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getDatasetService(r *http.Request) *service.FigureService {
	if svc, ok := r.Context().Value(datasetServiceKey).(*service.FigureService); ok {
		return svc
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeFigure(w http.ResponseWriter, data []byte, format plot.Format) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// datasetsHandler returns the list of available datasets.
func datasetsHandler(registry *DatasetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"default":  registry.DefaultDatasetID(),
			"datasets": registry.Datasets(),
			"title":    registry.Title(),
		})
	}
}

// colormapsHandler returns the available colormap names.
func colormapsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"default":   colormap.Default.String(),
		"colormaps": colormap.Names(),
	})
}

func arraysHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}
	arrays, err := svc.Arrays()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if arrays == nil {
		arrays = []zarr.ArrayInfo{}
	}
	writeJSON(w, map[string]interface{}{
		"dataset": svc.DatasetID(),
		"arrays":  arrays,
	})
}

// splitFigureName splits "name.png" into the array name and format. Names
// without a known extension render as PNG.
func splitFigureName(file string) (string, plot.Format) {
	ext := path.Ext(file)
	format, err := plot.FormatFromExt(ext)
	if err != nil {
		return file, plot.PNG
	}
	return strings.TrimSuffix(file, ext), format
}

func arrayFigureHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}

	array, format := splitFigureName(chi.URLParam(r, "file"))
	req, err := parseFigureQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Format = format

	data, err := svc.GetArrayFigure(array, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeFigure(w, data, format)
}

func parseFigureQuery(query url.Values) (service.FigureRequest, error) {
	req := service.FigureRequest{
		Colormap: strings.TrimSpace(query.Get("colormap")),
		Title:    query.Get("title"),
	}
	if s := strings.TrimSpace(query.Get("colorbar")); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return req, errors.New("invalid colorbar: " + s)
		}
		req.Colorbar = b
	}
	req.VMin = parseOptionalFloat(query.Get("vmin"))
	req.VMax = parseOptionalFloat(query.Get("vmax"))
	return req, nil
}

// parseOptionalFloat returns nil for empty, malformed or non-finite input.
func parseOptionalFloat(s string) *float32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := float32(f)
	return &v
}

// matshowRequest is the JSON body of POST /api/matshow.
type matshowRequest struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Data     []float32 `json:"data"`
	Colormap string    `json:"colormap"`
	Colorbar bool      `json:"colorbar"`
	VMin     *float32  `json:"vmin"`
	VMax     *float32  `json:"vmax"`
	Title    string    `json:"title"`
	Format   string    `json:"format"`
}

func matshowHandler(registry *DatasetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := registry.Default()
		if svc == nil {
			http.Error(w, "no default dataset configured", http.StatusServiceUnavailable)
			return
		}

		var body matshowRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMatrixBody))
		if err := dec.Decode(&body); err != nil {
			http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}

		format := plot.PNG
		if body.Format != "" {
			f, err := plot.FormatFromExt(body.Format)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			format = f
		}

		m := raster.Matrix{Width: body.Width, Height: body.Height, Data: body.Data}
		data, err := svc.RenderMatrix(m, service.FigureRequest{
			Colormap: body.Colormap,
			Colorbar: body.Colorbar,
			VMin:     body.VMin,
			VMax:     body.VMax,
			Title:    body.Title,
			Format:   format,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeFigure(w, data, format)
	}
}
