package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/GabeCloud94/b2b-ez-catalogs/common/clients"
)

// TestProvision_RuleAndChannel: the collection is created with the
// single TAG EQUALS rule on the raw company name and published to the
// run's channel.
func TestProvision_RuleAndChannel(t *testing.T) {
	var gotRule clients.Rule
	var gotChannel string

	gw := &fakeGateway{
		createCollectionFn: func(ctx context.Context, title string, rule clients.Rule) (string, error) {
			gotRule = rule
			return "col-1", nil
		},
		publishFn: func(ctx context.Context, resourceID, channelID string) error {
			gotChannel = channelID
			return nil
		},
	}

	p := NewProvisioner(gw, "chan-9", testLog())
	result, err := p.Provision(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	want := clients.Rule{Column: clients.RuleColumnTag, Relation: clients.RuleRelationEquals, Condition: "Acme"}
	if gotRule != want {
		t.Errorf("expected rule %+v, got %+v", want, gotRule)
	}
	if gotChannel != "chan-9" {
		t.Errorf("expected publish to chan-9, got %s", gotChannel)
	}
	if result.ID != "col-1" || result.Title != "Acme Catalog" || !result.Published {
		t.Errorf("unexpected result %+v", result)
	}
}

// TestProvision_CreateFailure: nothing to report when creation itself
// fails.
func TestProvision_CreateFailure(t *testing.T) {
	gw := &fakeGateway{
		createCollectionFn: func(ctx context.Context, title string, rule clients.Rule) (string, error) {
			return "", &clients.ValidationError{
				Op:     "collectionCreate",
				Errors: []clients.UserError{{Field: "title", Message: "has already been taken"}},
			}
		},
	}

	p := NewProvisioner(gw, "chan-1", testLog())
	result, err := p.Provision(context.Background(), "Acme")
	if err == nil {
		t.Fatal("expected error")
	}
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}
	if _, ok := clients.AsValidation(err); !ok {
		t.Errorf("expected ValidationError, got %T", err)
	}
	if n := gw.callCount("Publish"); n != 0 {
		t.Errorf("expected no publish after create failure, got %d", n)
	}
}

// TestProvision_PublishFailure: the collection is live, so the result is
// returned alongside the error with Published false.
func TestProvision_PublishFailure(t *testing.T) {
	gw := &fakeGateway{
		publishFn: func(ctx context.Context, resourceID, channelID string) error {
			return &clients.TransportError{Op: "publishablePublish", Err: errors.New("timeout")}
		},
	}

	p := NewProvisioner(gw, "chan-1", testLog())
	result, err := p.Provision(context.Background(), "Acme")
	if err == nil {
		t.Fatal("expected error")
	}
	if result == nil {
		t.Fatal("expected non-nil result for a created collection")
	}
	if result.Published {
		t.Error("expected Published=false")
	}
}
