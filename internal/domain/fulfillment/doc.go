// Package fulfillment contains the Fulfillment bounded context.
// It tracks how a paid storefront order moves through the print-on-demand
// provider's pipeline.
//
// Key concepts:
//   - Order: local order with an external fulfillment id assigned once on submission
//   - LocalStatus: paid < processing < shipped < delivered, with canceled reachable
//     from any non-terminal status
//   - MapProviderStatus: translation of the provider status vocabulary
//   - DecideTransition: monotonic progress guard shared by polling and webhooks
//   - ShippingRecord: carrier shipment, unique per (order, tracking number)
//   - FulfillmentRecord: audit of the request/response exchanged on submission
package fulfillment
