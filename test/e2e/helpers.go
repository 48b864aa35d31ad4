//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/cairoware/tourbase/internal/api/handlers"
	"github.com/cairoware/tourbase/internal/repository"
	"github.com/cairoware/tourbase/internal/server"
	"github.com/cairoware/tourbase/internal/service"
	"github.com/cairoware/tourbase/internal/storage"
	"github.com/cairoware/tourbase/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const testAPIKey = "tb_e2e_0123456789abcdef0123456789abcdef"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	MediaClient  *storage.MediaClient
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	mediaClient, err := storage.NewMediaClient(ctx, storage.MediaClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-media",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create media client: %v", err)
	}
	if err := mediaClient.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, mediaClient, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		MediaClient:  mediaClient,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// SeedCity inserts a city row and returns its ID.
func (e *E2ETestEnv) SeedCity(nameEN string, lat, lon float64) int64 {
	var id int64
	err := e.Pool.QueryRow(e.Ctx,
		`INSERT INTO cities (name, description, latitude, longitude)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		fmt.Sprintf(`{"en": %q}`, nameEN), `{"en": "a city"}`, lat, lon,
	).Scan(&id)
	if err != nil {
		e.T.Fatalf("failed to seed city: %v", err)
	}
	return id
}

// SeedAttraction inserts an attraction row and returns its ID. embedding
// and mediaKey may be zero values.
func (e *E2ETestEnv) SeedAttraction(nameEN, nameAR string, cityID int64, lat, lon float64, embedding []float32, mediaKey string) int64 {
	var emb any
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		emb = &v
	}
	var key any
	if mediaKey != "" {
		key = mediaKey
	}

	var id int64
	err := e.Pool.QueryRow(e.Ctx,
		`INSERT INTO attractions (city_id, name, description, category, latitude, longitude, embedding, media_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		cityID,
		fmt.Sprintf(`{"en": %q, "ar": %q}`, nameEN, nameAR),
		`{"en": "a place worth visiting", "ar": "وصف"}`,
		"museum", lat, lon, emb, key,
	).Scan(&id)
	if err != nil {
		e.T.Fatalf("failed to seed attraction: %v", err)
	}
	return id
}

// UnitEmbedding builds a deterministic 768-dim unit vector.
func UnitEmbedding(hot int) []float32 {
	v := make([]float32, 768)
	v[hot%768] = 1
	return v
}

// BuildBinaries builds the tourbase and tourbased binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "tourbase-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "tourbased"), "./cmd/tourbased")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build tourbased: %v\n%s", err, out)
	}

	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "tourbase"), "./cmd/tourbase")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build tourbase: %v\n%s", err, out)
	}
}

// RunTourbase runs the tourbase CLI command against the test server
func (e *E2ETestEnv) RunTourbase(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "tourbase"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("TOURBASE_API_KEY=%s", testAPIKey),
		fmt.Sprintf("TOURBASE_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// DownloadFile downloads a file from the presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, mediaClient *storage.MediaClient, port int) (string, func()) {
	searchRepo := repository.NewSearchRepository(pool)
	recordRepo := repository.NewRecordRepository(pool)

	searchSvc := service.NewSearchService(searchRepo)
	recordSvc := service.NewRecordService(recordRepo, mediaClient)

	cfg := server.RouterConfig{
		APIKeys:       []string{testAPIKey},
		SearchHandler: handlers.NewSearchHandler(searchSvc),
		RecordHandler: handlers.NewRecordHandler(recordSvc),
	}

	router := server.NewRouter(cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
