package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	factory = common.HexToAddress("0x00000000000000000000000000000000000000fa")
	router  = common.HexToAddress("0x00000000000000000000000000000000000000ab")
	pool    = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

type failingInspector struct{}

func (failingInspector) IsPoolFromFactory(context.Context, common.Address) (bool, error) {
	return false, errors.New("rpc down")
}

func TestAuthorizeCaller(t *testing.T) {
	g := New(factory, router, nil)
	if err := g.AuthorizeCaller(router); err != nil {
		t.Fatalf("trusted router rejected: %v", err)
	}
	other := common.HexToAddress("0x00000000000000000000000000000000000000cd")
	if err := g.AuthorizeCaller(other); !errors.Is(err, ErrUntrustedRouter) {
		t.Fatalf("expected untrusted router, got %v", err)
	}
}

func TestAuthorizeRegistration(t *testing.T) {
	ctx := context.Background()
	g := New(factory, router, NewStaticInspector([]common.Address{pool}))

	ok, err := g.AuthorizeRegistration(ctx, factory, pool)
	if err != nil || !ok {
		t.Fatalf("expected registration accepted, got %v %v", ok, err)
	}

	ok, err = g.AuthorizeRegistration(ctx, router, pool)
	if err != nil || ok {
		t.Fatalf("wrong factory should be refused, got %v %v", ok, err)
	}

	unknown := common.HexToAddress("0x2222222222222222222222222222222222222222")
	ok, err = g.AuthorizeRegistration(ctx, factory, unknown)
	if err != nil || ok {
		t.Fatalf("foreign pool should be refused, got %v %v", ok, err)
	}
}

func TestAuthorizeRegistrationInspectorError(t *testing.T) {
	g := New(factory, router, failingInspector{})
	ok, err := g.AuthorizeRegistration(context.Background(), factory, pool)
	if err == nil || ok {
		t.Fatalf("expected inspector error, got %v %v", ok, err)
	}
}
