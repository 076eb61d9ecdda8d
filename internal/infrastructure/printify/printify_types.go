package printify

import (
	"encoding/json"

	"github.com/roastery/backend/internal/domain/provider"
)

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// PrintifyOrder is the order object returned by orders/{id}.json and cancel.json
type PrintifyOrder struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	ExternalID string             `json:"external_id,omitempty"`
	Shipments  []PrintifyShipment `json:"shipments"`
}

// PrintifyCreateOrderResponse is returned by POST orders.json
type PrintifyCreateOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// PrintifyShipment is a carrier shipment. Older payloads use
// tracking_number/tracking_url, current ones number/url.
type PrintifyShipment struct {
	Carrier        string `json:"carrier"`
	Service        string `json:"service,omitempty"`
	Number         string `json:"number,omitempty"`
	URL            string `json:"url,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	TrackingURL    string `json:"tracking_url,omitempty"`
	DeliveredAt    string `json:"delivered_at,omitempty"`
}

func (s PrintifyShipment) toProvider() provider.Shipment {
	shipment := provider.Shipment{
		Carrier:        s.Carrier,
		Service:        s.Service,
		TrackingNumber: s.TrackingNumber,
		TrackingURL:    s.TrackingURL,
	}
	if shipment.TrackingNumber == "" {
		shipment.TrackingNumber = s.Number
	}
	if shipment.TrackingURL == "" {
		shipment.TrackingURL = s.URL
	}
	return shipment
}

func convertShipments(in []PrintifyShipment) []provider.Shipment {
	out := make([]provider.Shipment, 0, len(in))
	for _, s := range in {
		out = append(out, s.toProvider())
	}
	return out
}

// PrintifyShippingResponse is returned by orders/{id}/shipping.json
type PrintifyShippingResponse struct {
	Shipments []PrintifyShipment `json:"shipments"`
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// PrintifyProductPage is one page of products.json
type PrintifyProductPage struct {
	CurrentPage int               `json:"current_page"`
	LastPage    int               `json:"last_page"`
	Data        []json.RawMessage `json:"data"`
}

// PrintifyImage is a product mockup image
type PrintifyImage struct {
	Src       string `json:"src"`
	IsDefault bool   `json:"is_default"`
}

// PrintifyVariant is a product variant, price in cents
type PrintifyVariant struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	IsEnabled bool   `json:"is_enabled"`
}

// PrintifyProduct is a product listing
type PrintifyProduct struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Visible     bool              `json:"visible"`
	Images      []PrintifyImage   `json:"images"`
	Variants    []PrintifyVariant `json:"variants"`
}

func (p PrintifyProduct) toProvider(raw json.RawMessage) provider.Product {
	product := provider.Product{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Visible:     p.Visible,
		Images:      make([]provider.ProductImage, 0, len(p.Images)),
		Variants:    make([]provider.ProductVariant, 0, len(p.Variants)),
		Raw:         raw,
	}
	for _, img := range p.Images {
		product.Images = append(product.Images, provider.ProductImage{Src: img.Src, IsDefault: img.IsDefault})
	}
	for _, v := range p.Variants {
		product.Variants = append(product.Variants, provider.ProductVariant{
			ID:        v.ID,
			Title:     v.Title,
			Price:     v.Price,
			IsEnabled: v.IsEnabled,
		})
	}
	return product
}

// decodeProduct decodes one listing. A listing that does not decode is still
// returned, carrying its id when it can be recovered, so callers can report it.
func decodeProduct(raw json.RawMessage) provider.Product {
	var p PrintifyProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		var idOnly struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw, &idOnly)
		return provider.Product{ID: idOnly.ID, Raw: raw, DecodeErr: err}
	}
	return p.toProvider(raw)
}

// PrintifyErrorResponse is the error envelope returned on 4xx responses
type PrintifyErrorResponse struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}
