package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testNotification() Notification {
	return Notification{
		ContratanteID:  101,
		PlanejamentoID: 42,
		RunTimestamp:   time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Alerts: []Alert{
			{Metric: "dias_ruptura", Issue: IssueAbaixoMeta, Detail: "dias_ruptura 100 acima da meta 80", Severity: SeverityAlta},
		},
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("caminho deveria conter sendMessage, obteve %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("falha ao decodificar corpo: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("Notify deveria suceder: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id incorreto: %#v", received)
	}
	if !strings.Contains(received["text"], "[Monitor de Estoque]") {
		t.Fatalf("mensagem deveria carregar o cabeçalho do monitor: %q", received["text"])
	}
	if !strings.Contains(received["text"], "dias_ruptura") {
		t.Fatalf("mensagem deveria listar o alerta: %q", received["text"])
	}
}

func TestTelegramNotifierOKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNotification()); err == nil {
		t.Fatal("ok=false deveria retornar erro")
	}
}

func TestTelegramNotifierHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNotification()); err == nil {
		t.Fatal("status não-2xx deveria retornar erro")
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
