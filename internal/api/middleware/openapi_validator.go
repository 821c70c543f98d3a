package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelguide.io/guestbook/api"
	"travelguide.io/guestbook/internal/pkg/logger"
)

// OpenAPI validation error codes.
const (
	CodeOpenAPIRouteInvalid    = "OPENAPI_ROUTE_INVALID"
	CodeOpenAPIRequestInvalid  = "OPENAPI_REQUEST_INVALID"
	CodeOpenAPIResponseInvalid = "OPENAPI_RESPONSE_INVALID"
)

const openAPIResponseValidationMessage = "response does not conform to OpenAPI contract"

// OpenAPIOptions tunes the validator.
type OpenAPIOptions struct {
	// ValidateResponses buffers handler output and replaces non-conforming
	// responses with a 500.
	ValidateResponses bool
}

// MustOpenAPIValidator creates the validator middleware and panics on setup failure.
func MustOpenAPIValidator(basePath string, opts OpenAPIOptions) gin.HandlerFunc {
	mw, err := NewOpenAPIValidator(basePath, opts)
	if err != nil {
		panic(fmt.Sprintf("init openapi validator: %v", err))
	}
	return mw
}

// NewOpenAPIValidator validates requests, and optionally responses, against
// the embedded OpenAPI document. Paths the document does not describe pass through.
func NewOpenAPIValidator(basePath string, opts OpenAPIOptions) (gin.HandlerFunc, error) {
	doc, err := api.Spec()
	if err != nil {
		return nil, err
	}
	return newOpenAPIValidator(doc, basePath, opts)
}

func newOpenAPIValidator(doc *openapi3.T, basePath string, opts OpenAPIOptions) (gin.HandlerFunc, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create openapi router: %w", err)
	}
	basePath = normalizeBasePath(basePath)

	// Authentication is enforced by the JWT middleware.
	filterOpts := &openapi3filter.Options{
		AuthenticationFunc: func(context.Context, *openapi3filter.AuthenticationInput) error { return nil },
		MultiError:         false,
	}

	return func(c *gin.Context) {
		origPath := c.Request.URL.Path
		origRawPath := c.Request.URL.RawPath
		restore := func() {
			c.Request.URL.Path = origPath
			c.Request.URL.RawPath = origRawPath
		}

		route, pathParams, routeErr := findRouteWithFallback(router, c.Request, basePath)
		restore()
		if routeErr != nil {
			if isPathNotFoundError(routeErr) {
				c.Next()
				return
			}
			abortWithOpenAPIError(c, http.StatusBadRequest, CodeOpenAPIRouteInvalid, routeErr.Error())
			return
		}

		reqInput := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options:    filterOpts,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), reqInput); err != nil {
			abortWithOpenAPIError(c, http.StatusBadRequest, CodeOpenAPIRequestInvalid, err.Error())
			return
		}

		if !opts.ValidateResponses {
			c.Next()
			return
		}

		buffered := newBufferedResponseWriter(c.Writer)
		c.Writer = buffered
		c.Next()
		c.Writer = buffered.ResponseWriter

		respInput := &openapi3filter.ResponseValidationInput{
			RequestValidationInput: reqInput,
			Status:                 buffered.Status(),
			Header:                 buffered.Header().Clone(),
			Options:                filterOpts,
		}
		if buffered.body.Len() > 0 {
			respInput.SetBodyBytes(buffered.body.Bytes())
		}
		if err := openapi3filter.ValidateResponse(c.Request.Context(), respInput); err != nil {
			logger.Error("OpenAPI response validation failed",
				zap.String("method", c.Request.Method),
				zap.String("path", origPath),
				zap.Int("status", buffered.Status()),
				zap.Error(err),
			)
			buffered.resetJSON(http.StatusInternalServerError, map[string]string{
				"code":    CodeOpenAPIResponseInvalid,
				"message": openAPIResponseValidationMessage,
			})
		}

		if err := buffered.flush(); err != nil {
			logger.Warn("failed to flush buffered response",
				zap.String("method", c.Request.Method),
				zap.String("path", origPath),
				zap.Error(err),
			)
		}
	}, nil
}

func normalizeBasePath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" || basePath == "/" {
		return ""
	}
	return "/" + strings.Trim(basePath, "/")
}

func stripBasePath(basePath, path string) string {
	switch {
	case basePath == "" && path == "":
		return "/"
	case basePath == "":
		return path
	case path == basePath:
		return "/"
	case strings.HasPrefix(path, basePath+"/"):
		return strings.TrimPrefix(path, basePath)
	default:
		return path
	}
}

// findRouteWithFallback tries the raw request path and then the path with
// basePath stripped, since the document's paths are relative to the API root.
func findRouteWithFallback(router routers.Router, req *http.Request, basePath string) (*routers.Route, map[string]string, error) {
	origPath := req.URL.Path
	origRawPath := req.URL.RawPath
	defer func() {
		req.URL.Path = origPath
		req.URL.RawPath = origRawPath
	}()

	candidates := [][2]string{{origPath, origRawPath}}
	strippedPath := stripBasePath(basePath, origPath)
	strippedRaw := origRawPath
	if origRawPath != "" {
		strippedRaw = stripBasePath(basePath, origRawPath)
	}
	if strippedPath != origPath {
		candidates = append(candidates, [2]string{strippedPath, strippedRaw})
	}

	var lastErr error
	for _, candidate := range candidates {
		req.URL.Path = candidate[0]
		req.URL.RawPath = candidate[1]

		route, pathParams, err := router.FindRoute(req)
		if err == nil {
			return route, pathParams, nil
		}
		if !isPathNotFoundError(err) {
			return nil, nil, err
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

func isPathNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, routers.ErrPathNotFound) {
		return true
	}
	var routeErr *routers.RouteError
	if errors.As(err, &routeErr) && strings.Contains(routeErr.Reason, routers.ErrPathNotFound.Error()) {
		return true
	}
	return strings.Contains(err.Error(), routers.ErrPathNotFound.Error())
}

func abortWithOpenAPIError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":       code,
		"message":    message,
		"request_id": GetRequestID(c.Request.Context()),
	})
}

// bufferedResponseWriter holds the handler's response until it has been validated.
type bufferedResponseWriter struct {
	gin.ResponseWriter
	body        bytes.Buffer
	statusCode  int
	wroteHeader bool
}

func newBufferedResponseWriter(w gin.ResponseWriter) *bufferedResponseWriter {
	return &bufferedResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *bufferedResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = code
	w.wroteHeader = true
}

func (w *bufferedResponseWriter) WriteHeaderNow() {
	w.wroteHeader = true
}

func (w *bufferedResponseWriter) Write(data []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return w.body.Write(data)
}

func (w *bufferedResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *bufferedResponseWriter) Status() int {
	return w.statusCode
}

func (w *bufferedResponseWriter) Size() int {
	return w.body.Len()
}

func (w *bufferedResponseWriter) Written() bool {
	return w.wroteHeader
}

func (w *bufferedResponseWriter) resetJSON(statusCode int, payload map[string]string) {
	w.statusCode = statusCode
	w.wroteHeader = true
	w.body.Reset()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"code":"` + CodeOpenAPIResponseInvalid + `","message":"` + openAPIResponseValidationMessage + `"}`)
	}
	_, _ = w.body.Write(data)
}

func (w *bufferedResponseWriter) flush() error {
	w.ResponseWriter.WriteHeader(w.statusCode)
	if w.body.Len() == 0 {
		w.ResponseWriter.WriteHeaderNow()
		return nil
	}
	_, err := w.ResponseWriter.Write(w.body.Bytes())
	return err
}
