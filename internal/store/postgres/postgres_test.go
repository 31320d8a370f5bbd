package postgres

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockGateway(t *testing.T) (*Gateway, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Gateway{db: db}, mock
}
