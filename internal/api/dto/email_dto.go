package dto

// InboundEmailRequest is one parsed message posted by the mail relay.
type InboundEmailRequest struct {
	Organization string `json:"organization"`
	From         string `json:"from"`
	FromName     string `json:"from_name"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}
