package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"autonomy-core/pkg/api"
)

func TestScheduleListCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/admin/schedule" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		resp := api.ListTasksResponse{Tasks: []api.TaskView{
			{ID: "t1", Kind: "interval", OwnerUser: "u1", Enabled: true},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"schedule", "list"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "t1") {
		t.Errorf("expected task id in output, got: %s", stdout.String())
	}
}

func TestScheduleAddCommand_MissingFlags(t *testing.T) {
	resetViper()
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"schedule", "add"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "--user is required") {
		t.Errorf("expected validation error, got: %s", stdout.String())
	}
}

func TestScheduleAddCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.AddTaskRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.UserID != "u1" || req.Message != "every hour" {
			t.Errorf("unexpected request body: %+v", req)
		}
		json.NewEncoder(w).Encode(api.AddTaskResponse{Task: api.TaskView{ID: "new-task", Kind: "interval"}})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"schedule", "add", "--user", "u1", "--message", "every hour"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "new-task") {
		t.Errorf("expected new task id in output, got: %s", stdout.String())
	}
}

func TestScheduleRunCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/admin/schedule/t1/run") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.RunTaskResponse{TaskID: "t1", Ran: true})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"schedule", "run", "t1"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "ran=true") {
		t.Errorf("expected ran=true in output, got: %s", stdout.String())
	}
}

func TestScheduleDeleteCommand_NotFound(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"schedule", "delete", "missing"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Failed to delete task") {
		t.Errorf("expected error output, got: %s", stdout.String())
	}
}
