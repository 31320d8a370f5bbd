package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"autonomy-core/internal/store"
)

func TestSaveTask_Success(t *testing.T) {
	g, mock := newMockGateway(t)
	defer g.db.Close()

	now := time.Now().Truncate(time.Second)
	task := &store.Task{
		ID:        "task-1",
		OwnerUser: "u1",
		Kind:      store.TaskKindInterval,
		Trigger:   store.Trigger{IntervalSeconds: 60},
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO tasks`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := g.SaveTask(context.Background(), task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLoadTasks_Success(t *testing.T) {
	g, mock := newMockGateway(t)
	defer g.db.Close()

	now := time.Now().Truncate(time.Second)
	cols := []string{"id", "owner_user", "kind", "trigger", "enabled", "payload", "steps", "state",
		"last_run_at", "next_run_at", "last_result", "failure_count", "disable_reason", "created_at", "updated_at"}

	mock.ExpectQuery(`SELECT id, owner_user, kind, trigger`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("task-1", "u1", "interval", []byte(`{"interval_seconds":60}`), true,
				[]byte(`{}`), []byte(`[]`), []byte(`{}`), nil, nil, "", 0, "", now, now))

	tasks, err := g.LoadTasks(context.Background())
	if err != nil {
		t.Fatalf("LoadTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "task-1" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if tasks[0].Trigger.IntervalSeconds != 60 {
		t.Errorf("got interval %d, want 60", tasks[0].Trigger.IntervalSeconds)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeleteTask_Success(t *testing.T) {
	g, mock := newMockGateway(t)
	defer g.db.Close()

	mock.ExpectExec(`DELETE FROM tasks WHERE id = \$1`).
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := g.DeleteTask(context.Background(), "task-1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
