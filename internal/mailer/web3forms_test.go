package mailer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timberwood/outreach/internal/config"
)

func TestWeb3FormsSendSuccess(t *testing.T) {
	var gotTo, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotTo = r.Form.Get("to")
		gotKey = r.Form.Get("access_key")
		w.Write([]byte(`{"success": true, "message": "Email sent"}`))
	}))
	defer srv.Close()

	s := NewWeb3FormsSender(config.Web3FormsConfig{
		AccessKey: "key-123", BaseURL: srv.URL, TimeoutSeconds: 5,
	})
	err := s.Send(context.Background(), Message{
		To: "info@acmetimber.com", Subject: "Hi", HTMLBody: "<p>hello</p>",
		FromName: "Jordan", FromEmail: "j@t.example",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotTo != "info@acmetimber.com" || gotKey != "key-123" {
		t.Errorf("form fields: to=%q key=%q", gotTo, gotKey)
	}
}

func TestWeb3FormsSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "invalid access key"}`))
	}))
	defer srv.Close()

	s := NewWeb3FormsSender(config.Web3FormsConfig{AccessKey: "bad", BaseURL: srv.URL, TimeoutSeconds: 5})
	err := s.Send(context.Background(), Message{To: "a@b.com"})
	if err == nil {
		t.Fatal("success=false must be a delivery failure")
	}
}

func TestWeb3FormsSendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewWeb3FormsSender(config.Web3FormsConfig{AccessKey: "k", BaseURL: srv.URL, TimeoutSeconds: 5})
	if err := s.Send(context.Background(), Message{To: "a@b.com"}); err == nil {
		t.Fatal("expected error on HTTP 400")
	}
}
