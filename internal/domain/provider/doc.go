// Package provider contains the Provider bounded context.
// It describes the print-on-demand fulfillment provider the storefront delegates
// merchandise production and shipping to.
//
// Key concepts:
//   - Credentials: API key and shop identifier, loaded per operation
//   - FulfillmentProvider: Port for creating, reading and canceling provider orders
//   - CatalogProvider: Port for reading the provider's product listings
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package provider
