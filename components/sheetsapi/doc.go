// Package sheetsapi exposes the sheet service over net/http.
//
// Routes, relative to the route path (default /api/sheets):
//
//	POST   /                       create a sheet (fields, or user_data as fallback)
//	GET    /?owner_id=...          list an owner's sheets
//	GET    /templates              list templates from the provider
//	GET    /templates/search?q=    ranked template options for pickers
//	GET    /templates/by-id/{id}   fetch one template
//	GET    /templates/by-name/{n}  fetch one template by system name
//	GET    /openapi.json           API description
//	GET    /{id}                   fetch a sheet
//	PATCH  /{id}                   change owner and/or replace fields
//	DELETE /{id}                   delete a sheet
//	GET    /{id}/render            printable HTML
//
// A health route (default /health) is registered alongside. Failures are
// JSON objects of the form {"error": {"code", "message", ...}}.
package sheetsapi
