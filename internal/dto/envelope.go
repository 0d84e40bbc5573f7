package dto

type CreateEnvelopeRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type UpdateEnvelopeRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

type EnvelopeOrderItem struct {
	EnvelopeID string `json:"envelopeId"`
	Order      int    `json:"order"`
}

type ReorderEnvelopesRequest struct {
	EnvelopeOrder []EnvelopeOrderItem `json:"envelopeOrder"`
}
