// Package core provides the business logic of the catalog API.
//
// The package sits between the HTTP layer and the persistence gateway. It
// owns every rule that does not depend on a transport, so web handlers, the
// CLI exporter and tests all use the same [Service].
//
// # Architecture
//
//   - Store: the gateway interface, satisfied by *database.Store.
//   - Service: CRUD, statistics and login for companies, users and products.
//   - Exports: [Service.ExportProducts] and [Service.ExportCompanyProducts]
//     open a lazy row source that the export package serializes.
//   - Limits: [ExportLimiter] caps concurrent export cursors.
//   - Events: successful product writes are announced through a [Publisher].
//
// # Deletes
//
// Nothing is removed from the database. Delete operations set status_id to
// the inactive value and return the updated record.
//
// # Pagination
//
// List operations take a [PageRequest] and return a [List] whose
// [Pagination] carries page, limit, total, totalPages, hasNext and hasPrev.
// The count and the page query run concurrently.
//
// # Error Handling
//
// Domain failures are [*Error] or [*ValidationError] values that match the
// kind sentinels with errors.Is:
//
//   - [ErrNotFound]: the addressed record does not exist
//   - [ErrConflict]: a unique field is already taken
//   - [ErrInvalidInput]: the request failed validation
//   - [ErrInvalidCredentials]: login did not match an active user
//
// Anything else is an infrastructure failure. [MapError] turns those into a
// user message with a support code.
package core
