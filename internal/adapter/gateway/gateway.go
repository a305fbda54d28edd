package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"user-management-service/api/openapi"
	grpcadapter "user-management-service/internal/adapter/grpc"
	apperrors "user-management-service/pkg/errors"
	"user-management-service/pkg/logger"
)

// Routes served by the gateway.
const (
	UsersPath       = "/v1/users"
	OpenAPIYAMLPath = "/openapi/" + openapi.FileName
	OpenAPIJSONPath = "/openapi/user-management-api.json"
	SwaggerPath     = "/swagger/"
)

// Gateway exposes the gRPC user service as REST.
type Gateway struct {
	client grpcadapter.UserServiceClient
	mux    *runtime.ServeMux
	log    *zap.Logger
}

// New builds the gateway routes on top of a gRPC client and returns the HTTP handler.
func New(client grpcadapter.UserServiceClient, log *zap.Logger) (http.Handler, error) {
	g := &Gateway{
		client: client,
		log:    log,
	}
	g.mux = runtime.NewServeMux(
		runtime.WithIncomingHeaderMatcher(headerMatcher),
		runtime.WithErrorHandler(g.httpError),
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONPb{
			MarshalOptions: protojson.MarshalOptions{
				EmitUnpopulated: true,
			},
			UnmarshalOptions: protojson.UnmarshalOptions{
				DiscardUnknown: true,
			},
		}),
	)

	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodGet, UsersPath, g.listUsers},
		{http.MethodPost, UsersPath, g.createUser},
		{http.MethodGet, OpenAPIYAMLPath, g.openAPIYAML},
	}
	for _, route := range routes {
		if err := g.mux.HandlePath(route.method, route.pattern, route.handler); err != nil {
			return nil, err
		}
	}

	// Create main HTTP mux to handle both API and Swagger UI
	httpMux := http.NewServeMux()
	httpMux.HandleFunc(OpenAPIJSONPath, g.openAPIJSON)
	httpMux.HandleFunc(SwaggerPath, httpSwagger.Handler(
		httpSwagger.URL(OpenAPIJSONPath),
	))
	httpMux.Handle("/", g.mux)

	return httpMux, nil
}

// headerMatcher forwards the request id alongside the default permanent headers.
func headerMatcher(key string) (string, bool) {
	if strings.EqualFold(key, logger.RequestIDHeader) {
		return strings.ToLower(key), true
	}
	return runtime.DefaultHeaderMatcher(key)
}

// httpError renders gRPC failures with the same error body the Gin API returns.
func (g *Gateway) httpError(ctx context.Context, _ *runtime.ServeMux, m runtime.Marshaler, w http.ResponseWriter, r *http.Request, err error) {
	var customStatus *runtime.HTTPStatusError
	if errors.As(err, &customStatus) {
		err = customStatus.Err
	}

	st := status.Convert(err)
	code, body := errorResponse(st)
	if customStatus != nil {
		code = customStatus.HTTPStatus
	}
	if code == http.StatusInternalServerError {
		logger.WithContext(ctx, g.log).Error("gateway request failed",
			zap.String("path", r.URL.Path),
			zap.Stringer("code", st.Code()),
			zap.String("message", st.Message()),
		)
	}

	data, merr := m.Marshal(body)
	if merr != nil {
		logger.WithContext(ctx, g.log).Error("failed to marshal error response", zap.Error(merr))
		code, data = http.StatusInternalServerError, []byte(`{"error":"internal_error"}`)
	}

	w.Header().Del("Trailer")
	w.Header().Del("Transfer-Encoding")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logger.WithContext(ctx, g.log).Warn("failed to write error response", zap.Error(err))
	}
}

func errorResponse(st *status.Status) (int, apperrors.Response) {
	switch st.Code() {
	case codes.InvalidArgument:
		return http.StatusBadRequest, apperrors.Response{
			Error:      apperrors.KindValidation,
			Message:    st.Message(),
			Violations: apperrors.ViolationsFromStatus(st),
		}
	case codes.AlreadyExists:
		return http.StatusConflict, apperrors.Response{
			Error:   apperrors.KindAlreadyExists,
			Message: st.Message(),
		}
	case codes.Internal, codes.Unknown:
		return http.StatusInternalServerError, apperrors.Response{
			Error:   apperrors.KindInternal,
			Message: apperrors.InternalMessage,
		}
	}

	// Routing failures and transport codes: "Not Found" -> "not_found"
	code := runtime.HTTPStatusFromCode(st.Code())
	return code, apperrors.Response{
		Error:   strings.ToLower(strings.ReplaceAll(http.StatusText(code), " ", "_")),
		Message: st.Message(),
	}
}

func (g *Gateway) listUsers(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	_, outbound := runtime.MarshalerForRequest(g.mux, r)

	ctx, err := runtime.AnnotateContext(r.Context(), g.mux, r, grpcadapter.ListUsersFullMethodName, runtime.WithHTTPPathPattern(UsersPath))
	if err != nil {
		runtime.HTTPError(r.Context(), g.mux, outbound, w, r, err)
		return
	}

	var md runtime.ServerMetadata
	resp, err := g.client.ListUsers(ctx, &emptypb.Empty{}, grpc.Header(&md.HeaderMD), grpc.Trailer(&md.TrailerMD))
	ctx = runtime.NewServerMetadataContext(ctx, md)
	if err != nil {
		runtime.HTTPError(ctx, g.mux, outbound, w, r, err)
		return
	}

	g.write(ctx, w, r, outbound, http.StatusOK, resp)
}

func (g *Gateway) createUser(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	inbound, outbound := runtime.MarshalerForRequest(g.mux, r)

	ctx, err := runtime.AnnotateContext(r.Context(), g.mux, r, grpcadapter.CreateUserFullMethodName, runtime.WithHTTPPathPattern(UsersPath))
	if err != nil {
		runtime.HTTPError(r.Context(), g.mux, outbound, w, r, err)
		return
	}

	var in structpb.Struct
	if err := inbound.NewDecoder(r.Body).Decode(&in); err != nil {
		logger.WithContext(ctx, g.log).Warn("malformed create user body", zap.Error(err))
		badBody := apperrors.NewValidationError(apperrors.FieldViolation{
			Field:   "body",
			Rule:    "json",
			Message: "request body must be a JSON object with name and email",
		})
		runtime.HTTPError(ctx, g.mux, outbound, w, r, badBody.GRPCStatus().Err())
		return
	}

	var md runtime.ServerMetadata
	resp, err := g.client.CreateUser(ctx, &in, grpc.Header(&md.HeaderMD), grpc.Trailer(&md.TrailerMD))
	ctx = runtime.NewServerMetadataContext(ctx, md)
	if err != nil {
		runtime.HTTPError(ctx, g.mux, outbound, w, r, err)
		return
	}

	g.write(ctx, w, r, outbound, http.StatusCreated, resp)
}

func (g *Gateway) openAPIYAML(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	_, outbound := runtime.MarshalerForRequest(g.mux, r)

	ctx, err := runtime.AnnotateContext(r.Context(), g.mux, r, grpcadapter.GetOpenAPIFullMethodName, runtime.WithHTTPPathPattern(OpenAPIYAMLPath))
	if err != nil {
		runtime.HTTPError(r.Context(), g.mux, outbound, w, r, err)
		return
	}

	body, err := g.client.GetOpenAPI(ctx, &emptypb.Empty{})
	if err != nil {
		runtime.HTTPError(ctx, g.mux, outbound, w, r, err)
		return
	}

	w.Header().Set("Content-Type", body.GetContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body.GetData()); err != nil {
		logger.WithContext(ctx, g.log).Warn("failed to write openapi document", zap.Error(err))
	}
}

func (g *Gateway) openAPIJSON(w http.ResponseWriter, r *http.Request) {
	data, err := openapi.JSON()
	if err != nil {
		g.log.Error("failed to render openapi document", zap.Error(err))
		http.Error(w, "failed to render openapi document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		g.log.Warn("failed to write openapi document", zap.Error(err))
	}
}

func (g *Gateway) write(ctx context.Context, w http.ResponseWriter, r *http.Request, m runtime.Marshaler, code int, resp any) {
	data, err := m.Marshal(resp)
	if err != nil {
		runtime.HTTPError(ctx, g.mux, m, w, r, err)
		return
	}

	w.Header().Set("Content-Type", m.ContentType(resp))
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logger.WithContext(ctx, g.log).Warn("failed to write response", zap.Error(err))
	}
}
