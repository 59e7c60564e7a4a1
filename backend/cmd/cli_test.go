package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// fakeS3 serves objects path-style under /test-bucket/ and counts requests.
type fakeS3 struct {
	objects map[string][]byte
	hits    atomic.Int32
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	data, ok := f.objects[strings.TrimPrefix(r.URL.Path, "/test-bucket/")]
	if !ok {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		if r.Method != http.MethodHead {
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
		}
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

type cliEndpoints struct {
	s3     string
	jobAPI string
	agent  string
}

// writeCLIConfig points every remote at the given fakes. The job API delay is
// long on purpose so that tests finishing quickly show --delay took effect.
func writeCLIConfig(t *testing.T, e cliEndpoints) string {
	t.Helper()
	s3Host := "127.0.0.1:1"
	if e.s3 != "" {
		u, err := url.Parse(e.s3)
		if err != nil {
			t.Fatalf("Failed to parse S3 url: %v", err)
		}
		s3Host = u.Host
	}
	dir := t.TempDir()
	content := fmt.Sprintf(`
storage:
  endpoint: %q
  region: "us-east-1"
  bucket: "test-bucket"
  use_ssl: false
  temp_dir: %q
job_api:
  base_url: %q
  poll_delay_seconds: 30
agent:
  api_url: %q
  temp_dir: %q
catalog:
  filenames:
    - %q
log:
  level: "error"
`, s3Host, dir, e.jobAPI, e.agent, dir, testFilename)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func resetFlags(cmds ...*cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	for _, c := range cmds {
		c.PersistentFlags().VisitAll(reset)
		c.Flags().VisitAll(reset)
	}
}

// runCLI executes the root command with fresh flags and captures its output.
func runCLI(t *testing.T, configFile string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd, jobCmd, extractCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	base := []string{"--config", configFile, "--env-file", filepath.Join(t.TempDir(), "absent.env")}
	rootCmd.SetArgs(append(base, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
