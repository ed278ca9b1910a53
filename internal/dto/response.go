package dto

import "github.com/yukikurage/team-task-api/internal/utils"

// Response is the body of every successful response
type Response struct {
	Success    bool                      `json:"success"`
	Message    string                    `json:"message,omitempty"`
	Data       any                       `json:"data,omitempty"`
	Pagination *utils.PaginationResponse `json:"pagination,omitempty"`
}

// OK wraps data in a success response
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Page wraps one page of a listing
func Page(data any, pagination utils.PaginationResponse) Response {
	return Response{Success: true, Data: data, Pagination: &pagination}
}

// Message is a success response without data
func Message(msg string) Response {
	return Response{Success: true, Message: msg}
}
