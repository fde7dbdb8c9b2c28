package server_test

import (
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joho/godotenv"

	"github.com/opencode-ai/hostbridge/internal/hostsim"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/internal/server"
	"github.com/opencode-ai/hostbridge/internal/storage"
)

var (
	srv     *server.Server
	ts      *httptest.Server
	wsURL   string
	dataDir string
	ctx     context.Context
)

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Server Suite")
}

var _ = BeforeSuite(func() {
	_ = godotenv.Load("../../.env")

	cfg := logging.DefaultConfig()
	cfg.Output = GinkgoWriter
	cfg.Level = logging.ParseLevel(os.Getenv("HOSTBRIDGE_LOG_LEVEL"))
	logging.Init(cfg)

	var err error
	dataDir, err = os.MkdirTemp("", "hostbridge-server-*")
	Expect(err).NotTo(HaveOccurred())

	srv = server.New(server.DefaultConfig(), storage.New(dataDir),
		hostsim.WithTheme(map[string]string{"bg_color": "#000000", "text_color": "#ffffff"}),
	)
	ts = httptest.NewServer(srv.Handler())
	wsURL = "ws" + strings.TrimPrefix(ts.URL, "http") + "/bridge"
	ctx = context.Background()
})

var _ = AfterSuite(func() {
	if srv != nil {
		srv.Shutdown(context.Background())
	}
	if ts != nil {
		ts.Close()
	}
	os.RemoveAll(dataDir)
})
