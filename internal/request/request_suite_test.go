package request_test

import (
	"context"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joho/godotenv"

	"github.com/opencode-ai/hostbridge/internal/logging"
)

func TestRequestSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Request Suite")
}

var ctx context.Context

var _ = BeforeSuite(func() {
	_ = godotenv.Load("../../.env")

	cfg := logging.DefaultConfig()
	cfg.Output = GinkgoWriter
	cfg.Level = logging.ParseLevel(os.Getenv("HOSTBRIDGE_LOG_LEVEL"))
	logging.Init(cfg)

	ctx = context.Background()
	Expect(ctx).NotTo(BeNil())
})
