// Package services holds the error taxonomy shared by the ingest, merge,
// and enrichment components, plus clients for external collaborators in
// subpackages.
package services
