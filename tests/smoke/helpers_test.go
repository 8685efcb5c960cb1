//go:build smoke

package smoke

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"text/template"
	"time"
)

type smokeConfig struct {
	Port      int
	Database  string
	Reminders bool
}

var configTemplate = template.Must(template.New("config").Parse(`app:
  name: Spinergy
  environment: development
  port: {{.Port}}
  base_url: http://localhost:{{.Port}}

database:
  driver: sqlite
  filename: {{.Database}}

reminders:
  enabled: {{.Reminders}}
  cron: "*/15 * * * *"

features:
  enable_tracing: false
  enable_debug: true
`))

// smokeServer is a freshly built server binary running against a temporary database.
type smokeServer struct {
	base   string
	client *http.Client
	cmd    *exec.Cmd
	output bytes.Buffer
	exited chan struct{}
	err    error
}

func startServer(t *testing.T, mutate func(*smokeConfig)) *smokeServer {
	t.Helper()
	dir := t.TempDir()

	bin := filepath.Join(dir, "spinergy-server")
	build := exec.Command("go", "build", "-o", bin, "./cmd/server")
	build.Dir = repoRoot(t)
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build server: %v\n%s", err, out)
	}

	cfg := smokeConfig{Port: freePort(t), Database: filepath.ToSlash(filepath.Join(dir, "db", "smoke.db"))}
	if mutate != nil {
		mutate(&cfg)
	}
	var rendered bytes.Buffer
	if err := configTemplate.Execute(&rendered, cfg); err != nil {
		t.Fatalf("render config: %v", err)
	}
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, rendered.Bytes(), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	srv := &smokeServer{
		base:   fmt.Sprintf("http://localhost:%d", cfg.Port),
		client: &http.Client{Timeout: 5 * time.Second},
		cmd:    exec.Command(bin),
		exited: make(chan struct{}),
	}
	srv.cmd.Dir = dir
	srv.cmd.Env = append(os.Environ(), "CONFIG_PATH="+configPath)
	srv.cmd.Stdout = &srv.output
	srv.cmd.Stderr = &srv.output
	if err := srv.cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	go func() {
		srv.err = srv.cmd.Wait()
		close(srv.exited)
	}()
	t.Cleanup(srv.stop)

	srv.waitHealthy(t, 10*time.Second)
	return srv
}

func (s *smokeServer) waitHealthy(t *testing.T, within time.Duration) {
	t.Helper()
	probe := &http.Client{Timeout: 500 * time.Millisecond}
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		select {
		case <-s.exited:
			t.Fatalf("server exited before becoming healthy: %v\n%s", s.err, s.output.String())
		default:
		}
		if resp, err := probe.Get(s.base + "/health"); err == nil {
			drain(resp)
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %v\n%s", within, s.output.String())
}

// stop interrupts the server and kills it if graceful shutdown stalls.
func (s *smokeServer) stop() {
	if s.cmd.Process == nil {
		return
	}
	_ = s.cmd.Process.Signal(os.Interrupt)
	select {
	case <-s.exited:
		return
	case <-time.After(5 * time.Second):
	}
	_ = s.cmd.Process.Kill()
	<-s.exited
}

func (s *smokeServer) requireRunning(t *testing.T) {
	t.Helper()
	select {
	case <-s.exited:
		t.Fatalf("server exited unexpectedly: %v\n%s", s.err, s.output.String())
	default:
	}
}

// get issues a GET and decodes the body into out when out is non-nil.
func (s *smokeServer) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := s.client.Get(s.base + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer drain(resp)
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (s *smokeServer) post(t *testing.T, path, body string) int {
	t.Helper()
	resp, err := s.client.Post(s.base+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	drain(resp)
	return resp.StatusCode
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func repoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above working directory")
		}
		dir = parent
	}
}
