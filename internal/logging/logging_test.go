package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BrandonDHaskell/Portcullis/server/internal/logging"
)

func TestNew_RejectsBadLevel(t *testing.T) {
	if _, err := logging.New(logging.Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := logging.New(logging.Config{Encoding: "xml"}); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portcullis.log")
	logger, err := logging.New(logging.Config{Level: "debug", FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("gate toggled")
	_ = logger.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), `"msg":"gate toggled"`) {
		t.Errorf("log file missing entry: %s", b)
	}
}
