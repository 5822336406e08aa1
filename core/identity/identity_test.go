package identity

import (
	"context"
	"testing"
)

func TestWithMeta(t *testing.T) {
	meta := &RequestMeta{RequestID: "req-1", SessionID: "s-1", RemoteIP: "10.0.0.1"}
	ctx := WithMeta(context.Background(), meta)

	got, ok := MetaFrom(ctx)
	if !ok {
		t.Fatal("meta should be found in context")
	}
	if got.RequestID != "req-1" || got.SessionID != "s-1" || got.RemoteIP != "10.0.0.1" {
		t.Errorf("unexpected meta: %+v", got)
	}
	if RequestID(ctx) != "req-1" {
		t.Errorf("RequestID = %q, want req-1", RequestID(ctx))
	}
}

func TestMetaFromEmpty(t *testing.T) {
	if _, ok := MetaFrom(context.Background()); ok {
		t.Error("empty context should carry no meta")
	}
	if _, ok := MetaFrom(WithMeta(context.Background(), nil)); ok {
		t.Error("nil meta should not be reported as present")
	}
	if RequestID(context.Background()) != "" {
		t.Error("RequestID of empty context should be empty")
	}
}
