package dto

type SyncResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
