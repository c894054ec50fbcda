package types

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ReconciliationResponse struct {
	SessionID   string `json:"session_id,omitempty"`
	State       string `json:"state"`
	Message     string `json:"message"`
	Attempt     int    `json:"attempt"`
	Budget      int    `json:"budget"`
	PaymentID   string `json:"payment_id,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Navigate    bool   `json:"navigate"`
	Terminal    bool   `json:"terminal"`
	UpdatedAt   string `json:"updated_at"`
}

type ListReconciliationsResponse struct {
	Sessions []*ReconciliationResponse `json:"sessions"`
}

type PendingPaymentResponse struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	RequestID string `json:"request_id"`
	Amount    string `json:"amount"`
}
