package offer

type CreateOfferRequest struct {
	TailorID    int64   `json:"tailor_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"required"`
}

// NegotiateRequest is one bargaining step. With accepted=false it is a
// counter-offer and amount is required; with accepted=true it marks the
// actor's half of the acceptance and amount is optional.
type NegotiateRequest struct {
	Amount   *float64 `json:"amount"`
	Message  string   `json:"message"`
	Accepted bool     `json:"accepted"`
}

// AcceptRequest optionally pins the amount the actor is accepting at.
type AcceptRequest struct {
	Amount *float64 `json:"amount"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
