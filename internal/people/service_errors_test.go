package people

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStoreFailureIsCodedAndLogged(t *testing.T) {
	service, db := newTestService(t, nil)
	core, logs := observer.New(zapcore.ErrorLevel)
	service.logger = zap.New(core)

	if err := db.Migrator().DropTable(&Person{}); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	_, err := service.List(context.Background())
	if err == nil {
		t.Fatalf("expected list to fail without a table")
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if serviceErr.Code() != "people.list.query_failed" {
		t.Fatalf("unexpected code %s", serviceErr.Code())
	}

	entries := logs.FilterMessage("people service error").All()
	if len(entries) != 1 {
		t.Fatalf("expected one logged error, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["operation"] != opList || fields["reason"] != reasonQuery {
		t.Fatalf("unexpected log fields %v", fields)
	}
}
