package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"user-management-service/api/openapi"
	grpcadapter "user-management-service/internal/adapter/grpc"
	"user-management-service/internal/adapter/repository/memory"
	domain "user-management-service/internal/domain/user"
	"user-management-service/internal/usecase/user"
	apperrors "user-management-service/pkg/errors"
	"user-management-service/pkg/logger"
)

// GatewayTestSuite runs the REST facade against a real gRPC server on bufconn.
type GatewayTestSuite struct {
	suite.Suite
	server     *grpc.Server
	conn       *grpc.ClientConn
	handler    http.Handler
	requestIDs []string
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}

func (s *GatewayTestSuite) SetupTest() {
	log := zaptest.NewLogger(s.T())
	uc := user.New(memory.NewUserRepository(log), log)

	s.requestIDs = nil
	lis := bufconn.Listen(1024 * 1024)
	s.server = grpc.NewServer(grpc.ChainUnaryInterceptor(
		logger.RequestIDInterceptor(),
		s.captureRequestID,
	))
	grpcadapter.RegisterUserServiceServer(s.server, grpcadapter.NewUserService(uc, log))
	go func() {
		_ = s.server.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	s.Require().NoError(err)
	s.conn = conn

	handler, err := New(grpcadapter.NewUserServiceClient(conn), log)
	s.Require().NoError(err)
	s.handler = handler
}

func (s *GatewayTestSuite) TearDownTest() {
	_ = s.conn.Close()
	s.server.Stop()
}

func (s *GatewayTestSuite) captureRequestID(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		s.requestIDs = append(s.requestIDs, md.Get("x-request-id")...)
	}
	return handler(ctx, req)
}

func (s *GatewayTestSuite) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *GatewayTestSuite) TestListUsers_Empty() {
	w := s.do(http.MethodGet, UsersPath, "")

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, w.Body.String())
}

func (s *GatewayTestSuite) TestCreateAndList() {
	w := s.do(http.MethodPost, UsersPath, `{"id":7,"name":"John Doe","email":"john.doe@example.com"}`)
	s.Require().Equal(http.StatusCreated, w.Code)
	s.JSONEq(`{"id":1,"name":"John Doe","email":"john.doe@example.com"}`, w.Body.String())

	w = s.do(http.MethodPost, UsersPath, `{"name":"Jane","email":"jane@example.com"}`)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, UsersPath, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`[
		{"id":1,"name":"John Doe","email":"john.doe@example.com"},
		{"id":2,"name":"Jane","email":"jane@example.com"}
	]`, w.Body.String())
}

func (s *GatewayTestSuite) errorBody(w *httptest.ResponseRecorder) apperrors.Response {
	s.Equal("application/json", w.Header().Get("Content-Type"))

	var resp apperrors.Response
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *GatewayTestSuite) TestCreateUser_Conflict() {
	body := `{"name":"John Doe","email":"john@example.com"}`
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, UsersPath, body).Code)

	w := s.do(http.MethodPost, UsersPath, body)

	s.Equal(http.StatusConflict, w.Code)
	s.JSONEq(`{"error":"already_exists","message":"email already exists"}`, w.Body.String())
}

func (s *GatewayTestSuite) TestCreateUser_ValidationError() {
	w := s.do(http.MethodPost, UsersPath, `{"name":"","email":"bad"}`)

	s.Equal(http.StatusBadRequest, w.Code)

	resp := s.errorBody(w)
	s.Equal(apperrors.KindValidation, resp.Error)
	s.Contains(resp.Message, "name is required")
	s.Equal([]apperrors.FieldViolation{
		{Field: "name", Rule: domain.RuleRequired, Message: "name is required"},
		{Field: "email", Rule: domain.RulePattern, Message: "email must be a valid email address"},
	}, resp.Violations)
}

func (s *GatewayTestSuite) TestCreateUser_MalformedBody() {
	for _, body := range []string{"invalid json", `["not","an","object"]`} {
		w := s.do(http.MethodPost, UsersPath, body)
		s.Equal(http.StatusBadRequest, w.Code, body)

		resp := s.errorBody(w)
		s.Equal(apperrors.KindValidation, resp.Error, body)
		s.Require().Len(resp.Violations, 1, body)
		s.Equal("body", resp.Violations[0].Field)
		s.Equal("json", resp.Violations[0].Rule)
	}
}

func (s *GatewayTestSuite) TestRequestIDForwarded() {
	s.do(http.MethodGet, UsersPath, "", logger.RequestIDHeader, "req-abc")

	s.Equal([]string{"req-abc"}, s.requestIDs)
}

func (s *GatewayTestSuite) TestOpenAPIYAML() {
	w := s.do(http.MethodGet, OpenAPIYAMLPath, "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("application/yaml", w.Header().Get("Content-Type"))
	s.Equal(openapi.YAML(), w.Body.Bytes())
}

func (s *GatewayTestSuite) TestOpenAPIJSON() {
	w := s.do(http.MethodGet, OpenAPIJSONPath, "")

	s.Equal(http.StatusOK, w.Code)

	var doc map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &doc))
	s.Contains(doc, "paths")
}

func (s *GatewayTestSuite) TestSwaggerUI() {
	w := s.do(http.MethodGet, SwaggerPath+"index.html", "")

	s.Equal(http.StatusOK, w.Code)
}

func (s *GatewayTestSuite) TestUnknownRoute() {
	w := s.do(http.MethodGet, "/v1/users/1", "")

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("not_found", s.errorBody(w).Error)
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		st       *status.Status
		wantCode int
		want     apperrors.Response
	}{
		{
			name:     "internal hides message",
			st:       status.New(codes.Internal, "failed to create user: dial tcp: refused"),
			wantCode: http.StatusInternalServerError,
			want:     apperrors.Response{Error: apperrors.KindInternal, Message: apperrors.InternalMessage},
		},
		{
			name:     "unknown is internal",
			st:       status.New(codes.Unknown, "boom"),
			wantCode: http.StatusInternalServerError,
			want:     apperrors.Response{Error: apperrors.KindInternal, Message: apperrors.InternalMessage},
		},
		{
			name:     "already exists",
			st:       status.New(codes.AlreadyExists, "email already exists"),
			wantCode: http.StatusConflict,
			want:     apperrors.Response{Error: apperrors.KindAlreadyExists, Message: "email already exists"},
		},
		{
			name:     "invalid argument without details",
			st:       status.New(codes.InvalidArgument, "Bad Request"),
			wantCode: http.StatusBadRequest,
			want:     apperrors.Response{Error: apperrors.KindValidation, Message: "Bad Request"},
		},
		{
			name:     "unavailable",
			st:       status.New(codes.Unavailable, "connection refused"),
			wantCode: http.StatusServiceUnavailable,
			want:     apperrors.Response{Error: "service_unavailable", Message: "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := errorResponse(tt.st)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.want, resp)
		})
	}
}
