package router_test

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	rtr "github.com/devilelephant/blacklist/router"
)

func TestChainBasicHandler(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	chain := rtr.NewChain(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()
	chain.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body := rec.Body.String(); body != "OK" {
		t.Errorf("expected body 'OK', got '%s'", body)
	}
}

func TestChainMiddlewareOrder(t *testing.T) {
	var callOrder []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				callOrder = append(callOrder, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callOrder = append(callOrder, "handler")
	})

	chain := rtr.NewChain(handler).
		WithMiddleware(mw("mw1"), mw("mw2")).
		WithMiddleware(mw("mw3"))

	chain.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

	want := []string{"mw1", "mw2", "mw3", "handler"}
	if !reflect.DeepEqual(callOrder, want) {
		t.Errorf("call order = %v, want %v", callOrder, want)
	}
}

func TestChainMiddlewareCanStop(t *testing.T) {
	block := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler called after a middleware stopped the chain")
	})

	rec := httptest.NewRecorder()
	rtr.NewChain(handler).WithMiddleware(block).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestNewChainNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewChain(nil) did not panic")
		}
	}()
	rtr.NewChain(nil)
}
