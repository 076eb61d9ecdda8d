package dto

import (
	"strings"

	"github.com/roastery/backend/internal/domain/fulfillment"
)

// ShippingAddressRequest is the body of a submit call
type ShippingAddressRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,max=32"`
	Country   string `json:"country" binding:"required,country_code"`
	Region    string `json:"region" binding:"omitempty,max=100"`
	Address1  string `json:"address1" binding:"required,max=255"`
	Address2  string `json:"address2" binding:"omitempty,max=255"`
	City      string `json:"city" binding:"required,max=100"`
	Zip       string `json:"zip" binding:"required,max=20"`
}

// ToDomain converts the request to a fulfillment.ShippingAddress
func (r ShippingAddressRequest) ToDomain() fulfillment.ShippingAddress {
	return fulfillment.ShippingAddress{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     strings.TrimSpace(r.Email),
		Phone:     strings.TrimSpace(r.Phone),
		Country:   strings.ToUpper(strings.TrimSpace(r.Country)),
		Region:    strings.TrimSpace(r.Region),
		Address1:  strings.TrimSpace(r.Address1),
		Address2:  strings.TrimSpace(r.Address2),
		City:      strings.TrimSpace(r.City),
		Zip:       strings.TrimSpace(r.Zip),
	}
}

// ListSyncRunsRequest holds query parameters for the sync run listing
type ListSyncRunsRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ExternalProductRequest carries the provider product id path parameter
type ExternalProductRequest struct {
	ExternalID string `uri:"externalId" binding:"required,max=64"`
}
