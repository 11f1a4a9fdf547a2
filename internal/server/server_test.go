package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/core"
	"github.com/joseph-ayodele/docintel/internal/entity"
)

type stubAnalyzer struct {
	last core.AnalyzeRequest
	rec  constants.Recommendation
	err  error
}

func (s *stubAnalyzer) Analyze(_ context.Context, req core.AnalyzeRequest) (core.Analysis, error) {
	s.last = req
	rec := s.rec
	if rec == "" {
		rec = constants.RecommendationAccept
	}
	return core.Analysis{
		DocumentID:  "doc-1",
		Filename:    req.Filename,
		Fingerprint: entity.DocumentFingerprint{Checksum: "abc"},
		Decision:    entity.IntelligenceDecision{Recommendation: rec, Action: rec.Action(), OverallScore: 0.7},
	}, s.err
}

type stubStore struct {
	docs []*entity.Document
	err  error
}

func (s *stubStore) UpsertByChecksum(_ context.Context, doc *entity.Document) (*entity.Document, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	s.docs = append(s.docs, doc)
	return doc, false, nil
}

func TestAnalyze_ValidatesInput(t *testing.T) {
	svc := NewIntelligenceService(&stubAnalyzer{}, nil, nil)

	_, err := svc.Analyze(context.Background(), &AnalyzeRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req := &AnalyzeRequest{Store: true}
	req.Filename = "a.pdf"
	req.Content = []byte("%PDF")
	_, err = svc.Analyze(context.Background(), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, err.Error(), "company_id")

	bad := &AnalyzeRequest{}
	bad.Filename = "a.pdf"
	bad.Content = []byte("x")
	bad.DocumentID = "nope"
	_, err = svc.Analyze(context.Background(), bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAnalyze_StoresCatalogableDocuments(t *testing.T) {
	store := &stubStore{}
	an := &stubAnalyzer{}
	svc := NewIntelligenceService(an, store, nil)

	req := &AnalyzeRequest{Store: true}
	req.Filename = " receipt.pdf "
	req.Content = []byte("%PDF")
	ctx := testCaller(context.Background())
	resp, err := svc.Analyze(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.Stored)
	assert.Equal(t, "receipt.pdf", an.last.Filename)
	assert.Equal(t, "acme", an.last.CompanyID)
	require.Len(t, store.docs, 1)
	assert.Equal(t, "u1", store.docs[0].UploadedBy)

	an.rec = constants.RecommendationReject
	resp, err = svc.Analyze(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.Stored)
	assert.Len(t, store.docs, 1)
}

func TestAnalyze_ChecksumWithTextCanBeAccepted(t *testing.T) {
	store := &stubStore{}
	svc := NewIntelligenceService(core.NewProcessor(nil, core.Config{}), store, nil)

	text := "ACME SERVICES LLC\n123 Main Street\nReceipt\nDate: 2024-03-01\nTotal: $42.50\nPayment: VISA"
	req := &AnalyzeRequest{Store: true}
	req.Filename = "receipt.pdf"
	req.OriginalFilename = "Lunch with client.pdf"
	req.Checksum = "abc123"
	req.Text = &text
	req.Context = "expense_receipt"
	resp, err := svc.Analyze(testCaller(context.Background()), req)
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	assert.Empty(t, resp.Analysis.SecurityFlags)
	assert.NotEqual(t, constants.RecommendationReject, resp.Analysis.Decision.Recommendation)
	assert.True(t, resp.Stored)
	require.Len(t, store.docs, 1)
	assert.Equal(t, "abc123", store.docs[0].Fingerprint.Checksum)
	assert.Equal(t, "Lunch with client.pdf", store.docs[0].OriginalFilename)
}

func TestAnalyze_DegradedAndCancelled(t *testing.T) {
	req := &AnalyzeRequest{}
	req.Filename = "a.txt"
	req.Content = []byte("x")

	svc := NewIntelligenceService(&stubAnalyzer{err: errors.New("catalog down")}, nil, nil)
	resp, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, "catalog down", resp.Error)

	svc = NewIntelligenceService(&stubAnalyzer{err: context.Canceled}, nil, nil)
	_, err = svc.Analyze(context.Background(), req)
	assert.Equal(t, codes.Canceled, status.Code(err))

	req.Store = true
	req.CompanyID = "acme"
	svc = NewIntelligenceService(&stubAnalyzer{}, &stubStore{err: errors.New("disk full")}, nil)
	_, err = svc.Analyze(context.Background(), req)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func testCaller(ctx context.Context) context.Context {
	return metadataCaller(ctx, "acme", "u1")
}

func metadataCaller(ctx context.Context, company, user string) context.Context {
	// Same path the interceptor takes.
	var out context.Context
	_, _ = UnaryInterceptor(nil)(
		metadata.NewIncomingContext(ctx, metadata.Pairs(MetadataCompanyID, company, MetadataUserID, user)),
		nil, &grpc.UnaryServerInfo{FullMethod: "test"},
		func(ctx context.Context, _ any) (any, error) { out = ctx; return nil, nil },
	)
	return out
}

func TestGRPC_RoundTrip(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	an := &stubAnalyzer{}
	srv, _ := NewGRPCServer(NewIntelligenceService(an, nil, nil), 0, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := metadata.AppendToOutgoingContext(context.Background(), MetadataCompanyID, "acme", MetadataUserID, "u9")
	req := &AnalyzeRequest{}
	req.Filename = "invoice.pdf"
	req.Content = []byte("%PDF-1.4")
	req.Context = "vendor_invoice"

	resp, err := NewIntelligenceClient(conn).Analyze(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, constants.RecommendationAccept, resp.Analysis.Decision.Recommendation)
	assert.Equal(t, "doc-1", resp.Analysis.DocumentID)
	assert.Equal(t, []byte("%PDF-1.4"), an.last.Content)
	assert.Equal(t, "acme", an.last.CompanyID)
	assert.Equal(t, "u9", an.last.UserID)

	_, err = NewIntelligenceClient(conn).Analyze(context.Background(), &AnalyzeRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	hc, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: IntelligenceServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, hc.Status)
}

func TestHTTP_AnalyzeMultipartAndJSON(t *testing.T) {
	an := &stubAnalyzer{}
	h := NewRouter(RouterConfig{
		Service: NewIntelligenceService(an, nil, nil),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("metrics")) }),
	})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "receipt.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("Total $5.00"))
	require.NoError(t, mw.WriteField("context", "expense_receipt"))
	require.NoError(t, mw.WriteField("strict_mode", "true"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/v1/analyze", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.Header.Set("X-Company-ID", "acme")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, constants.RecommendationAccept, resp.Analysis.Decision.Recommendation)
	assert.Equal(t, "receipt.txt", an.last.Filename)
	assert.Equal(t, "expense_receipt", an.last.Context)
	assert.True(t, an.last.Options.StrictMode)
	assert.Equal(t, "acme", an.last.CompanyID)
	assert.Equal(t, []byte("Total $5.00"), an.last.Content)

	js, _ := json.Marshal(map[string]any{"filename": "b.txt", "content": []byte("hi")})
	r = httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(js))
	r.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "b.txt", an.last.Filename)

	r = httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader([]byte(`{"filename":""}`)))
	r.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader([]byte("x")))
	r.Header.Set("Content-Type", "text/plain")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "metrics", w.Body.String())
}

func TestHTTP_Health(t *testing.T) {
	healthy := NewRouter(RouterConfig{Service: NewIntelligenceService(&stubAnalyzer{}, nil, nil)})
	w := httptest.NewRecorder()
	healthy.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	down := NewRouter(RouterConfig{
		Service: NewIntelligenceService(&stubAnalyzer{}, nil, nil),
		Health:  func(context.Context) error { return errors.New("db unreachable") },
	})
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db unreachable")

	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/documents/export.xlsx", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
