package store

import (
	"context"
	"os"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/platform/dbctx"
	"github.com/brightloop/batchcore/internal/platform/logger"
)

// testDB opens the database named by TEST_POSTGRES_DSN and skips the
// test when it is unset, so the integration suite only runs where a
// throwaway Postgres is actually available.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test postgres: %v", err)
	}
	if err := db.AutoMigrate(&domain.JobInstance{}, &domain.JobExecution{}, &domain.StepExecution{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	tx := db.Begin()
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

func TestGormStoreCreateAndFindExecution(t *testing.T) {
	db := testDB(t)
	log, err := logger.New("")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	s := NewGormExecutionStore(db, log)
	dc := dbctx.Context{Ctx: context.Background()}

	inst, err := s.CreateInstance(dc, "pg-job", "triggerId=pg-1")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	exec, err := s.CreateExecution(dc, inst, "pg-job", "pg-1", testParams("pg-1"))
	if err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	found, err := s.FindExecution(context.Background(), exec.ID)
	if err != nil || found == nil {
		t.Fatalf("FindExecution: %v, %v", found, err)
	}
	if found.Status != domain.ExecutionStarting {
		t.Fatalf("Status = %v, want STARTING", found.Status)
	}

	byTrigger, err := s.FindExecutionByTriggerID(context.Background(), "pg-1")
	if err != nil || byTrigger == nil {
		t.Fatalf("FindExecutionByTriggerID: %v, %v", byTrigger, err)
	}
	if byTrigger.ID != exec.ID {
		t.Fatalf("by-trigger lookup returned %v, want %v", byTrigger.ID, exec.ID)
	}
}

func TestGormStoreInstanceFindOrCreateIsStable(t *testing.T) {
	db := testDB(t)
	log, err := logger.New("")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	s := NewGormExecutionStore(db, log)
	dc := dbctx.Context{Ctx: context.Background()}

	first, err := s.CreateInstance(dc, "pg-job", "triggerId=same")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	again, err := s.CreateInstance(dc, "pg-job", "triggerId=same")
	if err != nil {
		t.Fatalf("CreateInstance (second): %v", err)
	}
	if first.ID != again.ID {
		t.Fatalf("find-or-create returned two instances for one key: %v vs %v", first.ID, again.ID)
	}
}
