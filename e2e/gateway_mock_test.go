//go:build e2e
// +build e2e

package e2e

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
)

const gatewayMockAddr = "0.0.0.0:38085"

// gatewayMock serves GET /payments/{id}/verify. Payment ids select the script:
// pay_ok succeeds, pay_3ds needs one 3-D Secure round, pay_declined fails, and
// anything else is unknown to the gateway.
type gatewayMock struct {
	mu    sync.Mutex
	calls map[string]int
}

func startGatewayMock(addr string) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mock := &gatewayMock{calls: map[string]int{}}
	server := &http.Server{Handler: mock}
	go func() {
		_ = server.Serve(listener)
	}()
	return server, nil
}

func (g *gatewayMock) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")
	if r.Method != http.MethodGet || len(parts) != 3 || parts[0] != "payments" || parts[2] != "verify" {
		writeGatewayJSON(w, http.StatusNotFound, map[string]any{"message": "route not found"})
		return
	}
	if r.Header.Get("X-Request-ID") == "" {
		writeGatewayJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "missing request id"}})
		return
	}

	paymentID := parts[1]
	g.mu.Lock()
	g.calls[paymentID]++
	call := g.calls[paymentID]
	g.mu.Unlock()

	switch {
	case strings.HasPrefix(paymentID, "pay_ok"):
		writeGatewayJSON(w, http.StatusOK, verifyBody("succeeded", "ord_e2e", ""))
	case strings.HasPrefix(paymentID, "pay_3ds"):
		if call == 1 {
			writeGatewayJSON(w, http.StatusOK, verifyBody("requires_3ds_verification", "ord_e2e", ""))
			return
		}
		writeGatewayJSON(w, http.StatusOK, verifyBody("succeeded", "ord_e2e", ""))
	case strings.HasPrefix(paymentID, "pay_declined"):
		writeGatewayJSON(w, http.StatusOK, verifyBody("failed", "ord_e2e", "Card declined"))
	default:
		writeGatewayJSON(w, http.StatusNotFound, map[string]any{"message": "Payment not found"})
	}
}

func verifyBody(status, orderID, reason string) map[string]any {
	payment := map[string]any{
		"status":   status,
		"order_id": orderID,
		"amount":   "49.90",
	}
	if reason != "" {
		payment["failure_reason"] = reason
	}
	return map[string]any{"status": "success", "payment": payment}
}

func writeGatewayJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
